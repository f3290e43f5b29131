package commands

import (
	"errors"
	"fmt"

	"github.com/koscakluka/ema-voice/core/audio"
	"github.com/koscakluka/ema-voice/core/audio/miniaudio"
	"github.com/koscakluka/ema-voice/core/audio/portaudio"
	"github.com/koscakluka/ema-voice/core/llms"
	groqllm "github.com/koscakluka/ema-voice/core/llms/groq"
	openaillm "github.com/koscakluka/ema-voice/core/llms/openai"
	"github.com/koscakluka/ema-voice/core/playback"
	deepgramstt "github.com/koscakluka/ema-voice/core/speechtotext/deepgram"
	"github.com/koscakluka/ema-voice/core/texttospeech"
	deepgramtts "github.com/koscakluka/ema-voice/core/texttospeech/deepgram"
	"github.com/koscakluka/ema-voice/core/texttospeech/espeak"
	openaitts "github.com/koscakluka/ema-voice/core/texttospeech/openai"
	"github.com/koscakluka/ema-voice/internal/config"
)

var errNoSynthesizer = errors.New("no speech synthesizer available")

// audioDevice is a speaker and microphone pair from one backend.
type audioDevice interface {
	playback.Output
	audio.Microphone
	Close()
}

// openAudioDevice opens the configured backend. The returned encoding is the
// format captured audio will arrive in.
func openAudioDevice(cfg config.AudioConfig) (audioDevice, audio.EncodingInfo, error) {
	switch cfg.Backend {
	case config.BackendPortaudio:
		client, err := portaudio.NewClient(cfg.PlaybackSampleRate, cfg.FramesPerBuffer)
		if err != nil {
			return nil, audio.EncodingInfo{}, err
		}
		return client, client.EncodingInfo(), nil

	case config.BackendMiniaudio, "":
		client, err := miniaudio.NewClient(
			miniaudio.WithPlaybackSampleRate(cfg.PlaybackSampleRate),
			miniaudio.WithCaptureSampleRate(cfg.CaptureSampleRate),
		)
		if err != nil {
			return nil, audio.EncodingInfo{}, err
		}
		return client, audio.EncodingInfo{
			SampleRate: cfg.CaptureSampleRate,
			Channels:   1,
			Format:     audio.EncodingLinear16,
		}, nil
	}
	return nil, audio.EncodingInfo{}, fmt.Errorf("unknown audio backend %q", cfg.Backend)
}

func playbackOptions(cfg config.AudioConfig) []playback.EngineOption {
	return []playback.EngineOption{
		playback.WithFadeIn(cfg.FadeIn),
		playback.WithFadeOut(cfg.FadeOut),
	}
}

func newReplyGenerator(cfg config.LLMConfig) (llms.ReplyGenerator, error) {
	switch cfg.Provider {
	case "groq":
		client, err := groqllm.NewClient(
			groqllm.WithAPIKey(cfg.GroqAPIKey),
			groqllm.WithModel(cfg.Model),
			groqllm.WithInstructions(cfg.Instructions),
		)
		if err != nil {
			return nil, err
		}
		return client, nil

	case "openai", "":
		client, err := openaillm.NewClient(
			openaillm.WithAPIKey(cfg.OpenAIAPIKey),
			openaillm.WithModel(cfg.Model),
			openaillm.WithInstructions(cfg.Instructions),
		)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
	return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
}

func newRecognizer(cfg config.STTConfig, encoding audio.EncodingInfo) (*deepgramstt.TranscriptionClient, error) {
	return deepgramstt.NewTranscriptionClient(
		deepgramstt.WithAPIKey(cfg.DeepgramAPIKey),
		deepgramstt.WithModel(cfg.Model),
		deepgramstt.WithLanguage(cfg.Language),
		deepgramstt.WithEncodingInfo(encoding),
	)
}

// newSynthesisProviders builds the network providers in configured order.
// Providers that cannot be constructed, usually for a missing API key, are
// left out of the chain.
func newSynthesisProviders(cfg config.TTSConfig, sampleRate int) []texttospeech.Provider {
	providers := make([]texttospeech.Provider, 0, len(cfg.Providers))
	for _, name := range cfg.Providers {
		var (
			provider texttospeech.Provider
			err      error
		)
		switch name {
		case "openai":
			provider, err = openaitts.NewTextToSpeechClient(
				openaitts.WithAPIKey(cfg.OpenAIAPIKey),
				openaitts.WithModel(cfg.OpenAIModel),
				openaitts.WithVoice(cfg.OpenAIVoice),
			)
		case "deepgram":
			provider, err = deepgramtts.NewTextToSpeechClient(
				deepgramtts.WithAPIKey(cfg.DeepgramAPIKey),
				deepgramtts.WithVoice(deepgramtts.Voice(cfg.DeepgramVoice)),
				deepgramtts.WithSampleRate(sampleRate),
			)
		default:
			err = fmt.Errorf("unknown provider")
		}
		if err != nil {
			logger.Warn("skipping speech provider", "provider", name, "error", err)
			continue
		}
		providers = append(providers, provider)
	}
	return providers
}

// newLocalVoice returns the espeak synthesizer, or nil when it is disabled or
// not installed.
func newLocalVoice(cfg config.TTSConfig) texttospeech.Provider {
	if !cfg.LocalEnabled {
		return nil
	}
	synthesizer := espeak.NewSynthesizer(
		espeak.WithBinary(cfg.LocalBinary),
		espeak.WithVoice(cfg.LocalVoice),
	)
	if !synthesizer.Available() {
		logger.Warn("local voice not installed", "binary", cfg.LocalBinary)
		return nil
	}
	return synthesizer
}

func newSynthesisChain(cfg config.TTSConfig, providers []texttospeech.Provider) *texttospeech.Chain {
	return texttospeech.NewChain(
		texttospeech.WithProviders(providers...),
		texttospeech.WithProviderTimeout(cfg.ProviderTimeout),
	)
}
