package orchestration

import (
	"time"

	"github.com/koscakluka/ema-voice/core/audio"
	"github.com/koscakluka/ema-voice/core/audio/codec"
	"github.com/koscakluka/ema-voice/core/events"
	"github.com/koscakluka/ema-voice/core/llms"
	"github.com/koscakluka/ema-voice/core/playback"
	"github.com/koscakluka/ema-voice/core/speechtotext"
	"github.com/koscakluka/ema-voice/core/texttospeech"
)

const (
	// DefaultResumeDelay is how long the session waits after playback ends
	// before it listens again, so the playback tail is not recognized as
	// speech.
	DefaultResumeDelay = 400 * time.Millisecond

	sessionEventQueueCapacity = 64
)

type SessionOption func(*Session)

func WithReplyGenerator(generator llms.ReplyGenerator) SessionOption {
	return func(s *Session) { s.replies = generator }
}

// WithSynthesisChain sets the network providers tried for every reply.
func WithSynthesisChain(chain *texttospeech.Chain) SessionOption {
	return func(s *Session) { s.chain = chain }
}

// WithSynthesisProviders builds a chain from providers, in priority order.
func WithSynthesisProviders(providers ...texttospeech.Provider) SessionOption {
	return func(s *Session) {
		s.chain = texttospeech.NewChain(texttospeech.WithProviders(providers...))
	}
}

// WithLocalSynthesizer sets the voice used when every network provider
// fails. It should not depend on the network.
func WithLocalSynthesizer(synthesizer texttospeech.Provider) SessionOption {
	return func(s *Session) { s.localVoice = synthesizer }
}

func WithDecoder(decoder *codec.Decoder) SessionOption {
	return func(s *Session) { s.decoder = decoder }
}

// WithAudioOutput plays replies on output through a playback engine built
// with opts.
func WithAudioOutput(output playback.Output, opts ...playback.EngineOption) SessionOption {
	return func(s *Session) {
		s.output = output
		s.playback = playback.NewEngine(output, opts...)
	}
}

func WithMicrophone(microphone audio.Microphone) SessionOption {
	return func(s *Session) { s.microphone = microphone }
}

// WithRecognizer sets the speech recognition source. Captured microphone
// audio is forwarded to it when it implements speechtotext.AudioSink.
func WithRecognizer(recognizer speechtotext.Recognizer) SessionOption {
	return func(s *Session) { s.recognizer = recognizer }
}

// WithBargeIn keeps recognition running while the assistant speaks so the
// user can interrupt by voice. Without it only HandleTranscript can
// interrupt playback.
func WithBargeIn(enabled bool) SessionOption {
	return func(s *Session) { s.bargeIn = enabled }
}

func WithResumeDelay(delay time.Duration) SessionOption {
	return func(s *Session) {
		if delay >= 0 {
			s.resumeDelay = delay
		}
	}
}

// WithCaptureRestartDelay sets how long recognition waits before restarting
// after its stream ends on its own.
func WithCaptureRestartDelay(delay time.Duration) SessionOption {
	return func(s *Session) {
		if delay >= 0 {
			s.captureRestartDelay = delay
		}
	}
}

// WithEventHandler receives every session event. Handlers run on session
// goroutines and must not block.
func WithEventHandler(handler func(events.Event)) SessionOption {
	return func(s *Session) {
		if handler != nil {
			s.emitters = append(s.emitters, handler)
		}
	}
}

func WithEventCallbacks(callbacks EventCallbacks) SessionOption {
	return func(s *Session) {
		s.emitters = append(s.emitters, newCallbackEventEmitter(callbacks))
	}
}
