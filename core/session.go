package orchestration

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/koscakluka/ema-voice/core/audio"
	"github.com/koscakluka/ema-voice/core/audio/codec"
	"github.com/koscakluka/ema-voice/core/conversations"
	"github.com/koscakluka/ema-voice/core/events"
	"github.com/koscakluka/ema-voice/core/llms"
	"github.com/koscakluka/ema-voice/core/playback"
	"github.com/koscakluka/ema-voice/core/speechtotext"
	"github.com/koscakluka/ema-voice/core/texttospeech"
	"github.com/koscakluka/ema-voice/internal/schedule"
)

const playbackTeardownTimeout = 2 * time.Second

// Session is one live voice conversation. It listens for final transcripts,
// asks the reply generator for an answer, speaks it and goes back to
// listening, one turn at a time.
//
// All transitions happen on a single controller goroutine. Work that has to
// wait (microphone access, replies, synthesis, playback) runs elsewhere and
// reports back through the controller queue, tagged with the generation it
// was started in so results from an ended session are dropped.
type Session struct {
	id string

	replies             llms.ReplyGenerator
	chain               *texttospeech.Chain
	localVoice          texttospeech.Provider
	decoder             *codec.Decoder
	output              playback.Output
	playback            *playback.Engine
	microphone          audio.Microphone
	recognizer          speechtotext.Recognizer
	capture             *speechtotext.Adapter
	bargeIn             bool
	resumeDelay         time.Duration
	captureRestartDelay time.Duration
	emitters            []eventEmitter
	emit                eventEmitter

	context conversations.ContextHolder

	// timers holds the session generation. Every delayed action and every
	// asynchronous result is keyed to it.
	timers *schedule.Scheduler

	mu      sync.RWMutex
	state   State
	lastErr error
	history []llms.Turn
	ctx     context.Context
	cancel  context.CancelFunc

	queue     chan controlEvent
	closeCh   chan struct{}
	done      chan struct{}
	startOnce sync.Once
	closeOnce sync.Once
	started   atomic.Bool

	// Owned by the controller goroutine.
	stopWatch    func()
	stream       audio.CaptureStream
	startReply   chan error
	turnSeq      uint64
	turnOrdinal  int
	cancelTurn   context.CancelFunc
	cancelResume func()
	pending      []string
	clipID       string
}

func NewSession(opts ...SessionOption) *Session {
	s := &Session{
		id:                  uuid.NewString(),
		resumeDelay:         DefaultResumeDelay,
		captureRestartDelay: speechtotext.DefaultRestartDelay,
		timers:              schedule.New(),
		state:               StateIdle,
		ctx:                 context.Background(),
		queue:               make(chan controlEvent, sessionEventQueueCapacity),
		closeCh:             make(chan struct{}),
		done:                make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.decoder == nil {
		s.decoder = codec.NewDecoder()
	}

	s.emit = noopEventEmitter
	if len(s.emitters) > 0 {
		s.emit = chainEmitters(s.emitters...)
	}

	if s.recognizer != nil {
		s.capture = speechtotext.NewAdapter(s.recognizer,
			speechtotext.WithFinalTranscriptCallback(func(transcript string) {
				s.enqueue(transcriptReceived{generation: s.timers.Generation(), text: transcript})
			}),
			speechtotext.WithInterimActivityCallback(func(transcript string) {
				s.emit(events.NewUserTranscriptInterimUpdated(transcript))
			}),
			speechtotext.WithFailureCallback(func(kind speechtotext.FailureKind, err error) {
				generation := s.timers.Generation()
				go s.enqueue(captureFailed{generation: generation, kind: kind, err: err})
			}),
			speechtotext.WithShouldListen(s.shouldListen),
			speechtotext.WithRestartDelay(s.captureRestartDelay),
		)
	}

	return s
}

func (s *Session) ID() string {
	return s.id
}

// Start asks for the microphone and starts listening. It returns once the
// session has left StateAwaitingMic: nil when listening, a *SessionError when
// the microphone could not be used.
//
// ctx bounds the whole session; cancelling it ends the session.
func (s *Session) Start(ctx context.Context) error {
	return s.requestStart(ctx, StateIdle)
}

// Retry starts a session that is in StateError again.
func (s *Session) Retry(ctx context.Context) error {
	return s.requestStart(ctx, StateError)
}

func (s *Session) requestStart(ctx context.Context, from State) error {
	if s.isClosed() {
		return ErrSessionClosed
	}

	s.startOnce.Do(func() {
		s.started.Store(true)
		go s.run()
	})

	reply := make(chan error, 1)
	if !s.enqueue(startRequested{ctx: ctx, from: from, reply: reply}) {
		return ErrSessionClosed
	}

	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrSessionClosed
	}
}

// End moves the session to StateIdle immediately and tears down capture,
// playback and timers in the background. Results of work started before End
// are discarded.
func (s *Session) End() {
	s.mu.Lock()
	if s.state == StateIdle {
		s.mu.Unlock()
		return
	}
	from := s.state
	s.state = StateIdle
	s.timers.Advance()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.emitStateChange(from, StateIdle)
	s.enqueue(teardownRequested{})
}

// endContext ends the session only if ctx still bounds it.
func (s *Session) endContext(ctx context.Context) {
	s.mu.RLock()
	current := s.ctx == ctx
	s.mu.RUnlock()
	if current {
		s.End()
	}
}

// Close ends the session and waits for the teardown to finish. A closed
// session cannot be started again. It must not be called from an event
// handler.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.End()
		close(s.closeCh)
	})

	if s.started.Load() {
		<-s.done
	}
}

// HandleTranscript feeds a final transcript to the session as if it had been
// recognized from speech.
func (s *Session) HandleTranscript(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyTranscript
	}
	if s.isClosed() {
		return ErrSessionClosed
	}
	if state := s.State(); state == StateIdle {
		return fmt.Errorf("%w: %s", ErrInvalidState, state)
	}

	if !s.enqueue(transcriptReceived{generation: s.timers.Generation(), text: text}) {
		return ErrSessionClosed
	}
	return nil
}

// SetContext replaces the hints sent along with future reply requests.
func (s *Session) SetContext(context conversations.SessionContext) {
	s.context.Set(context)
}

func (s *Session) UpdateContext(update func(*conversations.SessionContext)) {
	s.context.Update(update)
}

func (s *Session) Context() conversations.SessionContext {
	return s.context.Snapshot()
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// LastError returns the error that moved the session to StateError, if any.
func (s *Session) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// History returns a copy of the conversation so far, oldest turn first.
func (s *Session) History() []llms.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.history)
}

func (s *Session) shouldListen() bool {
	switch s.State() {
	case StateListening, StateAwaitingMic:
		return true
	case StateSpeaking:
		return s.bargeIn
	}
	return false
}

func (s *Session) isClosed() bool {
	select {
	case <-s.closeCh:
		return true
	default:
		return false
	}
}

func (s *Session) enqueue(event controlEvent) bool {
	select {
	case <-s.closeCh:
		return false
	default:
	}

	select {
	case <-s.closeCh:
		return false
	case s.queue <- event:
		return true
	}
}

// transition moves to state unless generation has been superseded.
func (s *Session) transition(generation uint64, to State) bool {
	s.mu.Lock()
	if !s.timers.IsCurrent(generation) {
		s.mu.Unlock()
		return false
	}
	from := s.state
	s.state = to
	s.mu.Unlock()

	if from != to {
		s.emitStateChange(from, to)
	}
	return true
}

func (s *Session) emitStateChange(from, to State) {
	logger.Debug("session state changed", "session_id", s.id, "from", from.String(), "to", to.String())
	s.emit(events.NewSessionStateChanged(from.String(), to.String()))
}

func (s *Session) sessionContext() context.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ctx
}
