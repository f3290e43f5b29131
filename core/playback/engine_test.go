package playback

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/koscakluka/ema-voice/core/audio"
)

type outputStub struct {
	encoding audio.EncodingInfo

	mu      sync.Mutex
	written int
	clears  atomic.Int32
}

func newOutputStub() *outputStub {
	return &outputStub{encoding: audio.EncodingInfo{SampleRate: 8000, Channels: 1, Format: audio.EncodingLinear16}}
}

func (o *outputStub) EncodingInfo() audio.EncodingInfo { return o.encoding }

func (o *outputStub) SendAudio(data []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.written += len(data)
	return nil
}

func (o *outputStub) ClearBuffer() { o.clears.Add(1) }

func (o *outputStub) bytesWritten() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.written
}

type gainTrace struct {
	mu      sync.Mutex
	samples []GainSample
}

func (g *gainTrace) record(sample GainSample) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.samples = append(g.samples, sample)
}

func (g *gainTrace) snapshot() []GainSample {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]GainSample(nil), g.samples...)
}

func toneClip(duration time.Duration, sampleRate int) *audio.Clip {
	samples := make([]int16, int(duration.Seconds()*float64(sampleRate)))
	for i := range samples {
		samples[i] = 10000
	}
	return audio.NewClip(samples, sampleRate, 1)
}

func newTestEngine(output Output, trace *gainTrace) *Engine {
	return NewEngine(output,
		WithFrameDuration(10*time.Millisecond),
		WithLead(20*time.Millisecond),
		WithFadeIn(20*time.Millisecond),
		WithFadeOut(40*time.Millisecond),
		WithGainObserver(trace.record),
	)
}

func TestPlayCompletesNaturallyWithFades(t *testing.T) {
	output := newOutputStub()
	trace := &gainTrace{}
	engine := newTestEngine(output, trace)

	clip := toneClip(150*time.Millisecond, 8000)
	completed := make(chan struct{}, 2)
	start := time.Now()
	if err := engine.Play(context.Background(), clip, func() { completed <- struct{}{} }); err != nil {
		t.Fatalf("expected play to start, got %v", err)
	}

	select {
	case <-completed:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for natural completion")
	}

	if elapsed := time.Since(start); elapsed < 130*time.Millisecond {
		t.Fatalf("expected completion to wait for the clip duration, took %s", elapsed)
	}
	if engine.IsPlaying() {
		t.Fatalf("expected engine to be idle after completion")
	}
	if got := output.bytesWritten(); got != len(clip.Samples)*2 {
		t.Fatalf("expected %d bytes written, got %d", len(clip.Samples)*2, got)
	}

	samples := trace.snapshot()
	if samples[0].Gain != DefaultSilenceFloor {
		t.Fatalf("expected fade-in to start at the silence floor, got %f", samples[0].Gain)
	}
	if samples[1].Gain <= samples[0].Gain {
		t.Fatalf("expected fade-in to ramp up, got %f then %f", samples[0].Gain, samples[1].Gain)
	}
	if last := samples[len(samples)-1].Gain; last != DefaultSilenceFloor {
		t.Fatalf("expected trace to end at the silence floor, got %f", last)
	}
	if got := output.clears.Load(); got != 0 {
		t.Fatalf("expected no buffer clears on natural completion, got %d", got)
	}
}

func TestPlayFadesOutPreviousClipBeforeNextIsAudible(t *testing.T) {
	output := newOutputStub()
	trace := &gainTrace{}
	engine := newTestEngine(output, trace)

	first := toneClip(time.Second, 8000)
	second := toneClip(100*time.Millisecond, 8000)

	firstCompleted := atomic.Bool{}
	if err := engine.Play(context.Background(), first, func() { firstCompleted.Store(true) }); err != nil {
		t.Fatalf("expected first clip to start, got %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	secondCompleted := make(chan struct{}, 1)
	if err := engine.Play(context.Background(), second, func() { secondCompleted <- struct{}{} }); err != nil {
		t.Fatalf("expected second clip to start, got %v", err)
	}

	select {
	case <-secondCompleted:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for second clip")
	}

	if firstCompleted.Load() {
		t.Fatalf("expected cancelled clip not to report completion")
	}
	if got := output.clears.Load(); got != 1 {
		t.Fatalf("expected queued audio to be cleared once, got %d", got)
	}

	samples := trace.snapshot()
	lastFirst, firstSecond := -1, -1
	for i, sample := range samples {
		switch sample.ClipID {
		case first.ID:
			lastFirst = i
		case second.ID:
			if firstSecond == -1 {
				firstSecond = i
			}
		}
	}
	if lastFirst == -1 || firstSecond == -1 {
		t.Fatalf("expected both clips in the gain trace")
	}
	if lastFirst > firstSecond {
		t.Fatalf("expected first clip trace to finish before second clip starts, got overlap at %d/%d", lastFirst, firstSecond)
	}
	if gain := samples[lastFirst].Gain; gain > DefaultSilenceFloor {
		t.Fatalf("expected first clip to reach near silence, got %f", gain)
	}
	if samples[lastFirst].At.After(samples[firstSecond].At) {
		t.Fatalf("expected first clip silence before second clip became audible")
	}

	fadeSteps := 0
	previous := 1.0
	for _, sample := range samples[:lastFirst+1] {
		if sample.Gain < previous && sample.Gain > DefaultSilenceFloor {
			fadeSteps++
		}
		previous = sample.Gain
	}
	if fadeSteps < 2 {
		t.Fatalf("expected a gradual fade rather than an abrupt stop, got %d steps", fadeSteps)
	}
}

func TestCancelBlocksUntilFadeCompletes(t *testing.T) {
	output := newOutputStub()
	trace := &gainTrace{}
	engine := newTestEngine(output, trace)

	completed := atomic.Bool{}
	if err := engine.Play(context.Background(), toneClip(time.Second, 8000), func() { completed.Store(true) }); err != nil {
		t.Fatalf("expected play to start, got %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	start := time.Now()
	if err := engine.Cancel(context.Background()); err != nil {
		t.Fatalf("expected cancel to succeed, got %v", err)
	}
	elapsed := time.Since(start)

	if elapsed < 30*time.Millisecond {
		t.Fatalf("expected cancel to wait for the fade window, took %s", elapsed)
	}
	if elapsed > 500*time.Millisecond {
		t.Fatalf("expected cancel to finish promptly, took %s", elapsed)
	}
	if engine.IsPlaying() {
		t.Fatalf("expected engine to be idle after cancel")
	}

	time.Sleep(50 * time.Millisecond)
	if completed.Load() {
		t.Fatalf("expected cancelled clip not to report completion")
	}
}

func TestCancelWithoutActiveClipIsNoop(t *testing.T) {
	engine := NewEngine(newOutputStub())
	if err := engine.Cancel(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestPlayConvertsClipToOutputFormat(t *testing.T) {
	output := newOutputStub()
	engine := NewEngine(output, WithFadeIn(0), WithFadeOut(0))

	clip := toneClip(50*time.Millisecond, 16000)
	completed := make(chan struct{}, 1)
	if err := engine.Play(context.Background(), clip, func() { completed <- struct{}{} }); err != nil {
		t.Fatalf("expected play to start, got %v", err)
	}

	select {
	case <-completed:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for completion")
	}

	if got := output.bytesWritten(); got != 400*2 {
		t.Fatalf("expected clip resampled to 400 samples, got %d bytes", got)
	}
}

func TestPlayRejectsEmptyClip(t *testing.T) {
	engine := NewEngine(newOutputStub())
	if err := engine.Play(context.Background(), audio.NewClip(nil, 8000, 1), nil); err == nil {
		t.Fatalf("expected empty clip to be rejected")
	}
}
