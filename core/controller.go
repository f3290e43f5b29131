package orchestration

import (
	"context"
	"errors"
	"fmt"

	"github.com/koscakluka/ema-voice/core/audio"
	"github.com/koscakluka/ema-voice/core/events"
	"github.com/koscakluka/ema-voice/core/speechtotext"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type controlEvent interface {
	isControlEvent()
}

type startRequested struct {
	ctx   context.Context
	from  State
	reply chan error
}

type micAcquired struct {
	generation uint64
	stream     audio.CaptureStream
	err        error
}

type transcriptReceived struct {
	generation uint64
	text       string
}

type captureFailed struct {
	generation uint64
	kind       speechtotext.FailureKind
	err        error
}

type captureRearm struct {
	generation uint64
}

type deviceFailed struct {
	generation uint64
	err        error
}

type turnReady struct {
	generation uint64
	seq        uint64
	result     turnResult
}

type playbackEnded struct {
	generation uint64
	seq        uint64
	clipID     string
}

type resumeListening struct {
	generation uint64
	seq        uint64
}

type teardownRequested struct{}

func (startRequested) isControlEvent()     {}
func (micAcquired) isControlEvent()        {}
func (transcriptReceived) isControlEvent() {}
func (captureFailed) isControlEvent()      {}
func (captureRearm) isControlEvent()       {}
func (deviceFailed) isControlEvent()       {}
func (turnReady) isControlEvent()          {}
func (playbackEnded) isControlEvent()      {}
func (resumeListening) isControlEvent()    {}
func (teardownRequested) isControlEvent()  {}

func (s *Session) run() {
	defer close(s.done)

	for {
		select {
		case <-s.closeCh:
			s.teardown()
			return
		case event := <-s.queue:
			s.handle(event)
		}
	}
}

func (s *Session) handle(event controlEvent) {
	switch e := event.(type) {
	case startRequested:
		s.handleStart(e)
	case micAcquired:
		s.handleMicrophone(e)
	case transcriptReceived:
		s.handleTranscript(e)
	case captureFailed:
		s.handleCaptureFailure(e.generation, e.kind, e.err)
	case captureRearm:
		if s.timers.IsCurrent(e.generation) && s.shouldListen() {
			s.startCapture(e.generation)
		}
	case deviceFailed:
		s.fail(e.generation, &SessionError{Kind: classifyDeviceError(e.err), Err: e.err})
	case turnReady:
		s.handleTurnReady(e)
	case playbackEnded:
		s.handlePlaybackEnded(e)
	case resumeListening:
		s.handleResume(e)
	case teardownRequested:
		s.teardown()
	}
}

func (s *Session) handleStart(e startRequested) {
	if state := s.State(); state != e.from {
		e.reply <- fmt.Errorf("%w: cannot start from %s", ErrInvalidState, state)
		return
	}
	if err := e.ctx.Err(); err != nil {
		e.reply <- err
		return
	}

	if s.stopWatch != nil {
		s.stopWatch()
	}

	ctx, cancel := context.WithCancel(e.ctx)
	s.mu.Lock()
	previousCancel := s.cancel
	generation := s.timers.Advance()
	s.ctx, s.cancel = ctx, cancel
	s.lastErr = nil
	from := s.state
	s.state = StateAwaitingMic
	s.mu.Unlock()

	if previousCancel != nil {
		previousCancel()
	}
	s.emitStateChange(from, StateAwaitingMic)
	s.stopWatch = watchContext(ctx, func() { s.endContext(ctx) })
	s.startReply = e.reply

	if s.microphone == nil {
		s.handleMicrophone(micAcquired{generation: generation})
		return
	}

	go func() {
		ctx, span := tracer.Start(ctx, "acquire microphone")
		defer span.End()

		stream, err := s.microphone.Acquire(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "microphone unavailable")
		}
		if !s.enqueue(micAcquired{generation: generation, stream: stream, err: err}) && stream != nil {
			_ = stream.Release()
		}
	}()
}

func (s *Session) handleMicrophone(e micAcquired) {
	if !s.timers.IsCurrent(e.generation) || s.State() != StateAwaitingMic {
		if e.stream != nil {
			if err := e.stream.Release(); err != nil {
				logger.Warn("failed to release stale microphone", "error", err)
			}
		}
		return
	}

	if e.err != nil {
		s.fail(e.generation, &SessionError{Kind: classifyDeviceError(e.err), Err: e.err})
		return
	}

	if e.stream != nil {
		s.stream = e.stream
		generation := e.generation
		onFailure := func(err error) {
			go s.enqueue(deviceFailed{generation: generation, err: errors.Join(audio.ErrDeviceLost, err)})
		}
		if err := e.stream.Start(s.forwardAudio, onFailure); err != nil {
			s.fail(e.generation, &SessionError{Kind: classifyDeviceError(err), Err: err})
			return
		}
	}

	if !s.transition(e.generation, StateListening) {
		return
	}
	s.answerStart(nil)
	s.startCapture(e.generation)
}

func (s *Session) forwardAudio(data []byte) {
	if s.capture == nil {
		return
	}
	if err := s.capture.SendAudio(data); err != nil {
		logger.Debug("failed to forward captured audio", "error", err)
	}
}

func (s *Session) startCapture(generation uint64) {
	if s.capture == nil {
		return
	}

	if err := s.capture.Start(s.sessionContext()); err != nil {
		kind := speechtotext.ClassifyError(err)
		s.handleCaptureFailure(generation, kind, err)
		if !kind.IsFatal() {
			s.timers.After(s.captureRestartDelay, func() {
				s.enqueue(captureRearm{generation: generation})
			})
		}
	}
}

func (s *Session) stopCapture() {
	if s.capture == nil {
		return
	}
	if err := s.capture.Stop(); err != nil {
		logger.Debug("failed to stop recognition", "error", err)
	}
}

func (s *Session) handleCaptureFailure(generation uint64, kind speechtotext.FailureKind, err error) {
	if !s.timers.IsCurrent(generation) {
		return
	}
	if kind.IsBenign() {
		return
	}
	if kind.IsFatal() {
		s.fail(generation, &SessionError{Kind: errorKindForCapture(kind), Err: err})
		return
	}

	logger.Warn("recognition failed, waiting for restart", "session_id", s.id, "kind", string(kind), "error", err)
	s.emit(events.NewUserCaptureFailed(string(kind), err))
}

// fail moves the session to StateError and releases its devices.
func (s *Session) fail(generation uint64, err *SessionError) {
	s.mu.Lock()
	if !s.timers.IsCurrent(generation) {
		s.mu.Unlock()
		return
	}
	s.timers.Advance()
	from := s.state
	s.state = StateError
	s.lastErr = err
	ctx := s.ctx
	s.mu.Unlock()

	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	logger.Error("session failed", "session_id", s.id, "kind", string(err.Kind), "error", err.Err)

	s.emitStateChange(from, StateError)
	s.emit(events.NewSessionFailed(string(err.Kind), err.Err))
	s.release()
	s.answerStart(err)
}

func (s *Session) answerStart(err error) {
	if s.startReply == nil {
		return
	}
	s.startReply <- err
	s.startReply = nil
}

// release stops everything the session holds. It is safe to call repeatedly.
func (s *Session) release() {
	if s.cancelTurn != nil {
		s.cancelTurn()
		s.cancelTurn = nil
	}
	if s.cancelResume != nil {
		s.cancelResume()
		s.cancelResume = nil
	}
	s.pending = nil

	s.stopCapture()
	s.stopPlayback()

	if s.stream != nil {
		if err := s.stream.Stop(); err != nil {
			logger.Debug("failed to stop microphone", "error", err)
		}
		if err := s.stream.Release(); err != nil {
			logger.Warn("failed to release microphone", "error", err)
		}
		s.stream = nil
	}
}

// stopPlayback fades out the active clip and waits for the fade.
func (s *Session) stopPlayback() {
	clipID := s.clipID
	s.clipID = ""
	if s.playback == nil || !s.playback.IsPlaying() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), playbackTeardownTimeout)
	defer cancel()
	if err := s.playback.Cancel(ctx); err != nil {
		logger.Warn("playback did not fade out in time", "error", err)
	}
	if clipID != "" {
		s.emit(events.NewAssistantPlaybackInterrupted(clipID))
	}
}

func (s *Session) teardown() {
	s.release()
	s.timers.Stop()
	s.answerStart(ErrSessionEnded)
	if s.stopWatch != nil {
		s.stopWatch()
		s.stopWatch = nil
	}
}
