package speechtotext

import (
	"context"
	"strings"
	"sync"

	"github.com/koscakluka/ema-voice/internal/schedule"
)

// Adapter wraps a Recognizer and reduces its events to final transcripts,
// interim activity and classified failures. Benign failures are absorbed,
// and a stream that ends on its own is restarted after a fixed delay if the
// owner still wants to listen.
type Adapter struct {
	recognizer Recognizer
	options    AdapterOptions

	// opMu serializes start and stop so a start never races a stop that is
	// still in flight.
	opMu sync.Mutex

	// streams keys restarts and event delivery to the current stream.
	streams *schedule.Scheduler

	mu     sync.Mutex
	active bool
	ctx    context.Context
}

func NewAdapter(recognizer Recognizer, opts ...AdapterOption) *Adapter {
	options := AdapterOptions{
		OnFinalTranscript: func(string) {},
		OnInterimActivity: func(string) {},
		OnFailure:         func(FailureKind, error) {},
		ShouldListen:      func() bool { return true },
		RestartDelay:      DefaultRestartDelay,
	}
	for _, opt := range opts {
		opt(&options)
	}

	return &Adapter{
		recognizer: recognizer,
		options:    options,
		streams:    schedule.New(),
		ctx:        context.Background(),
	}
}

// Start opens a new recognition stream. It is a no-op if one is active.
func (a *Adapter) Start(ctx context.Context) error {
	a.opMu.Lock()
	defer a.opMu.Unlock()

	a.mu.Lock()
	a.ctx = ctx
	a.mu.Unlock()

	return a.start(ctx)
}

func (a *Adapter) start(ctx context.Context) error {
	a.mu.Lock()
	if a.active {
		a.mu.Unlock()
		return nil
	}
	generation := a.streams.Advance()
	a.active = true
	a.mu.Unlock()

	ctx, span := tracer.Start(ctx, "start recognition")
	defer span.End()

	err := a.recognizer.Start(ctx, func(event Event) { a.handle(generation, event) })
	if err != nil {
		a.mu.Lock()
		if a.streams.IsCurrent(generation) {
			a.active = false
		}
		a.mu.Unlock()
		span.RecordError(err)
		return &Failure{Kind: ClassifyError(err), Err: err}
	}

	return nil
}

// Stop ends the current stream. Events still in flight from it are dropped
// and no restart follows.
func (a *Adapter) Stop() error {
	a.opMu.Lock()
	defer a.opMu.Unlock()

	a.mu.Lock()
	a.streams.Advance()
	wasActive := a.active
	a.active = false
	a.mu.Unlock()

	if !wasActive {
		return nil
	}
	return a.recognizer.Stop()
}

func (a *Adapter) IsActive() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active
}

// SendAudio forwards captured audio while a stream is active.
func (a *Adapter) SendAudio(audio []byte) error {
	if !a.IsActive() {
		return nil
	}

	sink, ok := a.recognizer.(AudioSink)
	if !ok {
		return nil
	}
	return sink.SendAudio(audio)
}

func (a *Adapter) handle(generation uint64, event Event) {
	if !a.streams.IsCurrent(generation) {
		logger.Debug("dropping event from a stale recognition stream", "event", eventName(event))
		return
	}

	switch e := event.(type) {
	case Started:
		logger.Debug("recognition started")

	case FinalResult:
		if transcript := strings.TrimSpace(e.Text); transcript != "" {
			a.options.OnFinalTranscript(transcript)
		}

	case InterimActivity:
		logger.Debug("interim recognition activity", "transcript", e.Text)
		a.options.OnInterimActivity(e.Text)

	case Failed:
		if e.Kind.IsBenign() {
			logger.Debug("benign recognition failure", "kind", string(e.Kind), "error", e.Err)
			return
		}

		logger.Warn("recognition failed", "kind", string(e.Kind), "error", e.Err)
		if e.Kind.IsFatal() {
			a.mu.Lock()
			if a.streams.IsCurrent(generation) {
				a.streams.Advance()
				a.active = false
			}
			a.mu.Unlock()
		}
		a.options.OnFailure(e.Kind, e.Err)

	case Ended:
		a.mu.Lock()
		if !a.streams.IsCurrent(generation) {
			a.mu.Unlock()
			return
		}
		a.active = false
		a.mu.Unlock()

		a.streams.After(a.options.RestartDelay, a.restart)
	}
}

func (a *Adapter) restart() {
	a.opMu.Lock()
	defer a.opMu.Unlock()

	if a.IsActive() {
		return
	}
	if !a.options.ShouldListen() {
		logger.Debug("recognition restart suppressed")
		return
	}

	a.mu.Lock()
	ctx := a.ctx
	a.mu.Unlock()
	if ctx.Err() != nil {
		return
	}

	if err := a.start(ctx); err != nil {
		kind := ClassifyError(err)
		logger.Warn("failed to restart recognition", "kind", string(kind), "error", err)
		a.options.OnFailure(kind, err)
	}
}

func eventName(event Event) string {
	switch event.(type) {
	case Started:
		return "started"
	case FinalResult:
		return "final"
	case InterimActivity:
		return "interim"
	case Failed:
		return "failed"
	case Ended:
		return "ended"
	}
	return "unknown"
}
