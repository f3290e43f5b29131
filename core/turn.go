package orchestration

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/koscakluka/ema-voice/core/audio"
	"github.com/koscakluka/ema-voice/core/events"
	"github.com/koscakluka/ema-voice/core/llms"
	"github.com/koscakluka/ema-voice/core/texttospeech"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var errNoReplyGenerator = errors.New("no reply generator configured")

// turnResult is what a turn worker reports back to the controller.
type turnResult struct {
	reply    string
	replyErr error

	clip          *audio.Clip
	provider      string
	localFallback bool
	// speechErr is set when no synthesizer produced audio.
	speechErr error
}

func (s *Session) handleTranscript(e transcriptReceived) {
	if !s.timers.IsCurrent(e.generation) {
		logger.Debug("dropping transcript from an ended session", "session_id", s.id)
		return
	}

	switch state := s.State(); state {
	case StateListening:
		s.emit(events.NewUserTranscriptFinal(e.text))
		s.beginTurn(e.generation, e.text)

	case StateThinking:
		s.emit(events.NewUserTranscriptFinal(e.text))
		s.pending = append(s.pending, e.text)
		logger.Debug("queued transcript until the current turn finishes", "session_id", s.id, "queued", len(s.pending))

	case StateSpeaking:
		s.emit(events.NewUserTranscriptFinal(e.text))
		if s.clipID == "" {
			// The clip already finished and the session is only waiting out
			// the resume delay, so the turn completed.
			if s.cancelResume != nil {
				s.cancelResume()
				s.cancelResume = nil
			}
			s.pending = append(s.pending, e.text)
			s.resume(e.generation)
			return
		}
		s.interrupt(e.generation)
		s.beginTurn(e.generation, e.text)

	default:
		logger.Debug("ignoring transcript", "session_id", s.id, "state", state.String())
	}
}

// beginTurn records the user turn and starts working on the reply.
func (s *Session) beginTurn(generation uint64, text string) {
	s.stopCapture()

	s.mu.Lock()
	if !s.timers.IsCurrent(generation) {
		s.mu.Unlock()
		return
	}
	ordinal := len(s.history) + 1
	s.history = append(s.history, llms.Turn{Speaker: llms.SpeakerUser, Text: text, Ordinal: ordinal})
	history := slices.Clone(s.history)
	from := s.state
	s.state = StateThinking
	ctx := s.ctx
	s.mu.Unlock()

	s.emitStateChange(from, StateThinking)
	s.emit(events.NewTurnStarted(ordinal))

	s.turnSeq++
	seq := s.turnSeq
	s.turnOrdinal = ordinal

	contextNote := s.context.Snapshot().Annotation()
	turnCtx, cancel := context.WithCancel(ctx)
	s.cancelTurn = cancel

	go func() {
		result := s.runTurn(turnCtx, ordinal, history, contextNote)
		s.enqueue(turnReady{generation: generation, seq: seq, result: result})
	}()
}

// interrupt fades out the reply being spoken so the next turn can start.
func (s *Session) interrupt(generation uint64) {
	if s.cancelResume != nil {
		s.cancelResume()
		s.cancelResume = nil
	}

	ctx, span := tracer.Start(s.sessionContext(), "barge in")
	defer span.End()
	span.SetAttributes(attribute.Int("turn.ordinal", s.turnOrdinal))

	s.stopPlayback()
	logger.InfoContext(ctx, "assistant interrupted", "session_id", s.id, "turn", s.turnOrdinal)
	s.emit(events.NewTurnCancelled(s.turnOrdinal))
	s.transition(generation, StateListening)
}

func (s *Session) handleTurnReady(e turnReady) {
	if !s.timers.IsCurrent(e.generation) || e.seq != s.turnSeq || s.State() != StateThinking {
		logger.Debug("discarding stale turn result", "session_id", s.id)
		return
	}
	if s.cancelTurn != nil {
		s.cancelTurn()
		s.cancelTurn = nil
	}

	result := e.result
	if result.replyErr != nil {
		logger.Warn("failed to generate reply", "session_id", s.id, "error", result.replyErr)
		s.emit(events.NewAssistantResponseFailed(result.replyErr))
		s.resume(e.generation)
		return
	}

	if result.reply != "" {
		s.mu.Lock()
		if !s.timers.IsCurrent(e.generation) {
			s.mu.Unlock()
			return
		}
		ordinal := len(s.history) + 1
		s.history = append(s.history, llms.Turn{Speaker: llms.SpeakerAssistant, Text: result.reply, Ordinal: ordinal})
		s.mu.Unlock()
		s.emit(events.NewAssistantResponseFinal(result.reply))
	}

	if result.speechErr != nil {
		logger.Error("speech synthesis failed on every provider", "session_id", s.id, "error", result.speechErr)
		s.emit(events.NewAssistantSpeechFailed(result.speechErr))
	}

	if result.clip == nil {
		s.resume(e.generation)
		return
	}

	s.emit(events.NewAssistantSpeechSynthesized(result.provider, result.localFallback))
	s.speak(e.generation, e.seq, result.clip)
}

func (s *Session) speak(generation, seq uint64, clip *audio.Clip) {
	if !s.transition(generation, StateSpeaking) {
		return
	}

	onComplete := func() {
		s.enqueue(playbackEnded{generation: generation, seq: seq, clipID: clip.ID})
	}
	if err := s.playback.Play(s.sessionContext(), clip, onComplete); err != nil {
		logger.Warn("failed to start playback", "session_id", s.id, "error", err)
		s.resume(generation)
		return
	}

	s.clipID = clip.ID
	s.emit(events.NewAssistantPlaybackStarted(clip.ID, clip.Duration()))
	if s.bargeIn {
		s.startCapture(generation)
	}
}

func (s *Session) handlePlaybackEnded(e playbackEnded) {
	if !s.timers.IsCurrent(e.generation) || e.seq != s.turnSeq || s.State() != StateSpeaking {
		return
	}

	s.clipID = ""
	s.emit(events.NewAssistantPlaybackEnded(e.clipID))

	generation, seq := e.generation, e.seq
	s.cancelResume = s.timers.After(s.resumeDelay, func() {
		s.enqueue(resumeListening{generation: generation, seq: seq})
	})
}

func (s *Session) handleResume(e resumeListening) {
	if !s.timers.IsCurrent(e.generation) || e.seq != s.turnSeq || s.State() != StateSpeaking {
		return
	}
	s.cancelResume = nil
	s.resume(e.generation)
}

// resume finishes the current turn and goes back to listening, or straight
// into the next queued transcript.
func (s *Session) resume(generation uint64) {
	if !s.transition(generation, StateListening) {
		return
	}
	s.emit(events.NewTurnCompleted(s.turnOrdinal))

	if len(s.pending) > 0 {
		next := s.pending[0]
		s.pending = s.pending[1:]
		s.beginTurn(generation, next)
		return
	}
	s.startCapture(generation)
}

func (s *Session) runTurn(ctx context.Context, ordinal int, history []llms.Turn, contextNote string) (result turnResult) {
	ctx, span := tracer.Start(ctx, "process turn")
	defer span.End()
	span.SetAttributes(
		attribute.String("session.id", s.id),
		attribute.Int("turn.ordinal", ordinal),
	)

	err := panicSafeStage("reply", func(ctx context.Context) error {
		reply, err := s.generateReply(ctx, history, contextNote)
		result.reply = reply
		return err
	})(ctx)
	if err != nil {
		result.replyErr = err
		span.RecordError(err)
		span.SetStatus(codes.Error, "reply generation failed")
		return result
	}
	if result.reply == "" || s.playback == nil {
		return result
	}

	if err := panicSafeStage("speech", func(ctx context.Context) error {
		return s.synthesize(ctx, &result)
	})(ctx); err != nil {
		result.speechErr = err
		span.RecordError(err)
		span.SetStatus(codes.Error, "speech synthesis failed")
	}
	return result
}

func (s *Session) generateReply(ctx context.Context, history []llms.Turn, contextNote string) (string, error) {
	if s.replies == nil {
		return "", errNoReplyGenerator
	}

	ctx, span := tracer.Start(ctx, "generate reply")
	defer span.End()

	reply, err := s.replies.GenerateReply(ctx, history, contextNote)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	return strings.TrimSpace(reply), nil
}

// synthesize fills in the clip for result.reply. Network providers are tried
// first; the local voice is only used when all of them failed. A clip that
// cannot be decoded is skipped without an error.
func (s *Session) synthesize(ctx context.Context, result *turnResult) error {
	outcome := texttospeech.Outcome{LocalFallback: true}
	if s.chain != nil {
		var err error
		if outcome, err = s.chain.Synthesize(ctx, result.reply); err != nil {
			return err
		}
	}

	if !outcome.LocalFallback {
		clip, err := s.decoder.DecodeFor(ctx, outcome.Result, s.output.EncodingInfo())
		if err != nil {
			span := trace.SpanFromContext(ctx)
			span.RecordError(err)
			logger.WarnContext(ctx, "skipping audio that could not be decoded", "provider", outcome.Provider, "error", err)
			return nil
		}
		result.clip = clip
		result.provider = outcome.Provider
		return nil
	}

	return s.synthesizeLocally(ctx, result, outcome.Err())
}

func (s *Session) synthesizeLocally(ctx context.Context, result *turnResult, providerErr error) error {
	if s.localVoice == nil {
		return errors.Join(providerErr, ErrNoLocalVoice)
	}

	timeout := texttospeech.DefaultProviderTimeout
	if s.chain != nil {
		timeout = s.chain.ProviderTimeout()
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	logger.InfoContext(ctx, "falling back to local voice", "provider", s.localVoice.Name())
	synthesized, err := s.localVoice.Synthesize(ctx, result.reply)
	if err != nil {
		return errors.Join(providerErr, fmt.Errorf("%s: %w", s.localVoice.Name(), err))
	}

	clip, err := s.decoder.DecodeFor(ctx, synthesized, s.output.EncodingInfo())
	if err != nil {
		return errors.Join(providerErr, fmt.Errorf("decode %s audio: %w", s.localVoice.Name(), err))
	}

	result.clip = clip
	result.provider = s.localVoice.Name()
	result.localFallback = true
	return nil
}
