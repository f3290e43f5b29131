package playback

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/koscakluka/ema-voice/core/audio"
	"go.opentelemetry.io/otel/attribute"
)

// Output is the device side of the engine. Audio sent is queued and played in
// order; ClearBuffer drops whatever has not been played yet.
type Output interface {
	EncodingInfo() audio.EncodingInfo
	SendAudio(audio []byte) error
	ClearBuffer()
}

// Engine plays one clip at a time. It owns the only handle to the output, so
// fades and teardown cannot be bypassed.
type Engine struct {
	output Output

	fadeIn   time.Duration
	fadeOut  time.Duration
	frame    time.Duration
	lead     time.Duration
	floor    float64
	observer func(GainSample)

	// playMu serializes Play so the previous clip is gone before the next
	// one is registered.
	playMu sync.Mutex
	mu     sync.Mutex
	active *activeClip
}

func NewEngine(output Output, opts ...EngineOption) *Engine {
	engine := &Engine{
		output:  output,
		fadeIn:  DefaultFadeIn,
		fadeOut: DefaultFadeOut,
		frame:   DefaultFrameDuration,
		lead:    DefaultLead,
		floor:   DefaultSilenceFloor,
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

type activeClip struct {
	clip       *audio.Clip
	onComplete func()

	cancelOnce sync.Once
	cancelCh   chan struct{}
	done       chan struct{}
}

func (a *activeClip) requestCancel() {
	a.cancelOnce.Do(func() { close(a.cancelCh) })
}

func (a *activeClip) cancelRequested() bool {
	select {
	case <-a.cancelCh:
		return true
	default:
		return false
	}
}

// Play starts clip after any active clip has been faded out and torn down.
// It returns once the new clip is playing; ctx only bounds the wait for the
// previous clip. onComplete runs when the clip finishes on its own and never
// after a cancellation.
func (e *Engine) Play(ctx context.Context, clip *audio.Clip, onComplete func()) error {
	if clip.IsEmpty() {
		return errors.New("clip has no samples")
	}

	encoding := e.output.EncodingInfo()
	if encoding.Format != audio.EncodingLinear16 {
		return fmt.Errorf("unsupported output format %q", encoding.Format.Name())
	}
	if clip.SampleRate != encoding.SampleRate || clip.Channels != encoding.ChannelCount() {
		clip = audio.Convert(clip, encoding)
	}

	e.playMu.Lock()
	defer e.playMu.Unlock()

	if err := e.Cancel(ctx); err != nil {
		return fmt.Errorf("previous clip did not finish fading: %w", err)
	}

	active := &activeClip{
		clip:       clip,
		onComplete: onComplete,
		cancelCh:   make(chan struct{}),
		done:       make(chan struct{}),
	}
	e.mu.Lock()
	e.active = active
	e.mu.Unlock()

	go e.run(context.WithoutCancel(ctx), active)
	return nil
}

// Cancel fades the active clip to near silence and blocks until it is torn
// down. It is a no-op when nothing is playing.
func (e *Engine) Cancel(ctx context.Context) error {
	e.mu.Lock()
	active := e.active
	e.mu.Unlock()
	if active == nil {
		return nil
	}

	active.requestCancel()
	select {
	case <-active.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) IsPlaying() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active != nil
}

func (e *Engine) run(ctx context.Context, active *activeClip) {
	ctx, span := tracer.Start(ctx, "play clip")
	defer span.End()

	clip := active.clip
	span.SetAttributes(
		attribute.String("clip.id", clip.ID),
		attribute.Float64("clip.duration_seconds", clip.Duration().Seconds()),
	)

	natural := e.stream(ctx, active)
	span.SetAttributes(attribute.Bool("clip.cancelled", !natural))

	e.mu.Lock()
	if e.active == active {
		e.active = nil
	}
	e.mu.Unlock()
	close(active.done)

	if natural && active.onComplete != nil {
		active.onComplete()
	}
}

// stream writes the clip in paced frames and reports whether it ended
// naturally.
func (e *Engine) stream(ctx context.Context, active *activeClip) bool {
	clip := active.clip
	totalFrames := clip.Frames()
	frameSize := e.frameSize(clip.SampleRate)
	fadeInFrames := e.framesIn(e.fadeIn, clip.SampleRate)
	fadeOutFrames := e.framesIn(e.fadeOut, clip.SampleRate)

	envelope := func(position int) float64 {
		gain := 1.0
		if fadeInFrames > 0 && position < fadeInFrames {
			gain = e.floor + (1-e.floor)*float64(position)/float64(fadeInFrames)
		}
		if remaining := totalFrames - position; fadeOutFrames > 0 && remaining < fadeOutFrames {
			gain = min(gain, e.floor+(1-e.floor)*float64(remaining)/float64(fadeOutFrames))
		}
		return gain
	}

	start := time.Now()
	written := 0
	for written < totalFrames {
		if active.cancelRequested() {
			e.fadeAndStop(ctx, active, start, written, envelope)
			return false
		}

		ahead := durationOf(written, clip.SampleRate) - time.Since(start)
		if ahead > e.lead {
			if !e.sleep(ahead-e.lead, active) {
				e.fadeAndStop(ctx, active, start, written, envelope)
				return false
			}
			continue
		}

		end := min(written+frameSize, totalFrames)
		e.observe(clip.ID, envelope(written))
		if err := e.write(clip, written, end, envelope); err != nil {
			logger.WarnContext(ctx, "output rejected audio, ending clip early", "clip", clip.ID, "error", err)
			e.observe(clip.ID, e.floor)
			return true
		}
		written = end
	}

	if !e.sleep(time.Until(start.Add(clip.Duration())), active) || active.cancelRequested() {
		e.fadeAndStop(ctx, active, start, written, envelope)
		return false
	}

	e.observe(clip.ID, e.floor)
	return true
}

// fadeAndStop drops queued audio and replaces it with a fade from the
// estimated playhead down to the silence floor.
func (e *Engine) fadeAndStop(ctx context.Context, active *activeClip, start time.Time, written int, envelope func(int) float64) {
	clip := active.clip
	e.output.ClearBuffer()

	position := min(e.framesIn(time.Since(start), clip.SampleRate), written, clip.Frames())
	fadeFrames := e.framesIn(e.fadeOut, clip.SampleRate)
	startGain := envelope(position)
	frameSize := e.frameSize(clip.SampleRate)

	logger.DebugContext(ctx, "fading out cancelled clip",
		"clip", clip.ID, "position", durationOf(position, clip.SampleRate), "gain", startGain)

	fadeGain := func(offset int) float64 {
		if fadeFrames == 0 {
			return e.floor
		}
		return startGain + (e.floor-startGain)*float64(offset)/float64(fadeFrames)
	}

	fadeStart := time.Now()
	for offset := 0; offset < fadeFrames; {
		ahead := durationOf(offset, clip.SampleRate) - time.Since(fadeStart)
		if ahead > 0 {
			time.Sleep(ahead)
		}

		end := min(offset+frameSize, fadeFrames)
		e.observe(clip.ID, fadeGain(offset))
		samples := make([]int16, (end-offset)*clip.Channels)
		for i := offset; i < end; i++ {
			source := position + i
			if source >= clip.Frames() {
				break
			}
			gain := fadeGain(i)
			for ch := range clip.Channels {
				samples[(i-offset)*clip.Channels+ch] = scale(clip.Samples[source*clip.Channels+ch], gain)
			}
		}
		if err := e.output.SendAudio(audio.SamplesToBytes(samples)); err != nil {
			logger.DebugContext(ctx, "output rejected fade audio", "clip", clip.ID, "error", err)
			break
		}
		offset = end
	}

	if remaining := durationOf(fadeFrames, clip.SampleRate) - time.Since(fadeStart); remaining > 0 {
		time.Sleep(remaining)
	}
	e.observe(clip.ID, e.floor)
}

func (e *Engine) write(clip *audio.Clip, from, to int, envelope func(int) float64) error {
	samples := make([]int16, (to-from)*clip.Channels)
	for frame := from; frame < to; frame++ {
		gain := envelope(frame)
		for ch := range clip.Channels {
			samples[(frame-from)*clip.Channels+ch] = scale(clip.Samples[frame*clip.Channels+ch], gain)
		}
	}
	return e.output.SendAudio(audio.SamplesToBytes(samples))
}

// sleep waits for d and reports false if cancellation was requested first.
func (e *Engine) sleep(d time.Duration, active *activeClip) bool {
	if d <= 0 {
		return !active.cancelRequested()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-active.cancelCh:
		return false
	}
}

func (e *Engine) observe(clipID string, gain float64) {
	if e.observer != nil {
		e.observer(GainSample{ClipID: clipID, Gain: gain, At: time.Now()})
	}
}

func (e *Engine) framesIn(d time.Duration, sampleRate int) int {
	return int(int64(d) * int64(sampleRate) / int64(time.Second))
}

func (e *Engine) frameSize(sampleRate int) int {
	return max(1, e.framesIn(e.frame, sampleRate))
}

func durationOf(frames, sampleRate int) time.Duration {
	return time.Duration(frames) * time.Second / time.Duration(sampleRate)
}

func scale(sample int16, gain float64) int16 {
	return int16(float64(sample) * gain)
}
