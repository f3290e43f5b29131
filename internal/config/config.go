// Package config loads the ema-voice binary configuration from a YAML file
// and EMA_ prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	EnvPrefix        = "EMA"
	configName       = "ema-voice"
	configDirName    = "ema-voice"
	BackendMiniaudio = "miniaudio"
	BackendPortaudio = "portaudio"
)

var (
	knownBackends     = []string{BackendMiniaudio, BackendPortaudio}
	knownReplyEngines = []string{"openai", "groq"}
	knownSynthesizers = []string{"openai", "deepgram"}
)

// Config holds all binary configuration.
type Config struct {
	Session   SessionConfig   `mapstructure:"session"`
	Audio     AudioConfig     `mapstructure:"audio"`
	STT       STTConfig       `mapstructure:"stt"`
	TTS       TTSConfig       `mapstructure:"tts"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type SessionConfig struct {
	BargeIn             bool          `mapstructure:"barge_in"`
	ResumeDelay         time.Duration `mapstructure:"resume_delay"`
	CaptureRestartDelay time.Duration `mapstructure:"capture_restart_delay"`
}

// AudioConfig configures the devices and the playback envelope.
type AudioConfig struct {
	Backend            string        `mapstructure:"backend"` // miniaudio, portaudio
	PlaybackSampleRate int           `mapstructure:"playback_sample_rate"`
	CaptureSampleRate  int           `mapstructure:"capture_sample_rate"`
	FramesPerBuffer    int           `mapstructure:"frames_per_buffer"`
	FadeIn             time.Duration `mapstructure:"fade_in"`
	FadeOut            time.Duration `mapstructure:"fade_out"`
}

type STTConfig struct {
	DeepgramAPIKey string `mapstructure:"deepgram_api_key"`
	Model          string `mapstructure:"model"`
	Language       string `mapstructure:"language"`
}

// TTSConfig configures the synthesis chain. Providers are tried in the
// listed order before the local voice.
type TTSConfig struct {
	Providers       []string      `mapstructure:"providers"`
	ProviderTimeout time.Duration `mapstructure:"provider_timeout"`
	OpenAIAPIKey    string        `mapstructure:"openai_api_key"`
	OpenAIModel     string        `mapstructure:"openai_model"`
	OpenAIVoice     string        `mapstructure:"openai_voice"`
	DeepgramAPIKey  string        `mapstructure:"deepgram_api_key"`
	DeepgramVoice   string        `mapstructure:"deepgram_voice"`
	LocalEnabled    bool          `mapstructure:"local_enabled"`
	LocalBinary     string        `mapstructure:"local_binary"`
	LocalVoice      string        `mapstructure:"local_voice"`
}

type LLMConfig struct {
	Provider     string `mapstructure:"provider"` // openai, groq
	// Model is empty to use the provider's default.
	Model        string `mapstructure:"model"`
	OpenAIAPIKey string `mapstructure:"openai_api_key"`
	GroqAPIKey   string `mapstructure:"groq_api_key"`
	Instructions string `mapstructure:"instructions"`
}

type TelemetryConfig struct {
	Stdout      bool   `mapstructure:"stdout"`
	ServiceName string `mapstructure:"service_name"`
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() *Config {
	return &Config{
		Session: SessionConfig{
			BargeIn:             false,
			ResumeDelay:         400 * time.Millisecond,
			CaptureRestartDelay: 300 * time.Millisecond,
		},
		Audio: AudioConfig{
			Backend:            BackendMiniaudio,
			PlaybackSampleRate: 24000,
			CaptureSampleRate:  16000,
			FramesPerBuffer:    320,
			FadeIn:             30 * time.Millisecond,
			FadeOut:            60 * time.Millisecond,
		},
		STT: STTConfig{
			Model:    "nova-3",
			Language: "en-US",
		},
		TTS: TTSConfig{
			Providers:       []string{"openai", "deepgram"},
			ProviderTimeout: 4 * time.Second,
			OpenAIModel:     "gpt-4o-mini-tts",
			OpenAIVoice:     "alloy",
			DeepgramVoice:   "aura-2-thalia-en",
			LocalEnabled:    true,
			LocalBinary:     "espeak-ng",
			LocalVoice:      "en-us",
		},
		LLM: LLMConfig{
			Provider:     "openai",
			Instructions: "You are a friendly voice assistant. Answer in one or two short spoken sentences.",
		},
		Telemetry: TelemetryConfig{
			Stdout:      false,
			ServiceName: "ema-voice",
		},
	}
}

// Load reads configuration from path, or from ema-voice.yaml in the working
// directory or the user config directory when path is empty. A missing
// default file is not an error. Environment variables override both, e.g.
// EMA_SESSION_BARGE_IN=true.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v, DefaultConfig())

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, configDirName))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// Decode into a zero value: decoding over the defaults would merge
	// slices element by element instead of replacing them.
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects unknown backends and providers.
func (c *Config) Validate() error {
	var errs []error
	if !slices.Contains(knownBackends, c.Audio.Backend) {
		errs = append(errs, fmt.Errorf("unknown audio backend %q", c.Audio.Backend))
	}
	if !slices.Contains(knownReplyEngines, c.LLM.Provider) {
		errs = append(errs, fmt.Errorf("unknown llm provider %q", c.LLM.Provider))
	}
	for _, provider := range c.TTS.Providers {
		if !slices.Contains(knownSynthesizers, provider) {
			errs = append(errs, fmt.Errorf("unknown tts provider %q", provider))
		}
	}
	if c.TTS.ProviderTimeout <= 0 {
		errs = append(errs, errors.New("tts provider timeout must be positive"))
	}
	return errors.Join(errs...)
}

// setDefaults registers every key so environment variables can override keys
// that are absent from the file.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("session.barge_in", cfg.Session.BargeIn)
	v.SetDefault("session.resume_delay", cfg.Session.ResumeDelay)
	v.SetDefault("session.capture_restart_delay", cfg.Session.CaptureRestartDelay)

	v.SetDefault("audio.backend", cfg.Audio.Backend)
	v.SetDefault("audio.playback_sample_rate", cfg.Audio.PlaybackSampleRate)
	v.SetDefault("audio.capture_sample_rate", cfg.Audio.CaptureSampleRate)
	v.SetDefault("audio.frames_per_buffer", cfg.Audio.FramesPerBuffer)
	v.SetDefault("audio.fade_in", cfg.Audio.FadeIn)
	v.SetDefault("audio.fade_out", cfg.Audio.FadeOut)

	v.SetDefault("stt.deepgram_api_key", cfg.STT.DeepgramAPIKey)
	v.SetDefault("stt.model", cfg.STT.Model)
	v.SetDefault("stt.language", cfg.STT.Language)

	v.SetDefault("tts.providers", cfg.TTS.Providers)
	v.SetDefault("tts.provider_timeout", cfg.TTS.ProviderTimeout)
	v.SetDefault("tts.openai_api_key", cfg.TTS.OpenAIAPIKey)
	v.SetDefault("tts.openai_model", cfg.TTS.OpenAIModel)
	v.SetDefault("tts.openai_voice", cfg.TTS.OpenAIVoice)
	v.SetDefault("tts.deepgram_api_key", cfg.TTS.DeepgramAPIKey)
	v.SetDefault("tts.deepgram_voice", cfg.TTS.DeepgramVoice)
	v.SetDefault("tts.local_enabled", cfg.TTS.LocalEnabled)
	v.SetDefault("tts.local_binary", cfg.TTS.LocalBinary)
	v.SetDefault("tts.local_voice", cfg.TTS.LocalVoice)

	v.SetDefault("llm.provider", cfg.LLM.Provider)
	v.SetDefault("llm.model", cfg.LLM.Model)
	v.SetDefault("llm.openai_api_key", cfg.LLM.OpenAIAPIKey)
	v.SetDefault("llm.groq_api_key", cfg.LLM.GroqAPIKey)
	v.SetDefault("llm.instructions", cfg.LLM.Instructions)

	v.SetDefault("telemetry.stdout", cfg.Telemetry.Stdout)
	v.SetDefault("telemetry.service_name", cfg.Telemetry.ServiceName)
}
