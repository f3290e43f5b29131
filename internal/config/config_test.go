package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "ema-voice.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadUsesDefaultsWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("expected defaults to load, got %v", err)
	}

	defaults := DefaultConfig()
	if cfg.Session.ResumeDelay != defaults.Session.ResumeDelay {
		t.Fatalf("expected resume delay %s, got %s", defaults.Session.ResumeDelay, cfg.Session.ResumeDelay)
	}
	if cfg.Audio.Backend != BackendMiniaudio {
		t.Fatalf("expected backend %q, got %q", BackendMiniaudio, cfg.Audio.Backend)
	}
	if !slices.Equal(cfg.TTS.Providers, []string{"openai", "deepgram"}) {
		t.Fatalf("expected default provider order, got %v", cfg.TTS.Providers)
	}
}

func TestLoadReadsFile(t *testing.T) {
	path := writeConfig(t, `
session:
  barge_in: true
  resume_delay: 250ms
audio:
  backend: portaudio
  fade_out: 80ms
tts:
  providers: [deepgram]
  provider_timeout: 2s
llm:
  provider: groq
  model: llama-3.3-70b-versatile
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("expected config to load, got %v", err)
	}

	if !cfg.Session.BargeIn {
		t.Fatalf("expected barge-in enabled")
	}
	if cfg.Session.ResumeDelay != 250*time.Millisecond {
		t.Fatalf("expected resume delay 250ms, got %s", cfg.Session.ResumeDelay)
	}
	if cfg.Audio.Backend != BackendPortaudio {
		t.Fatalf("expected portaudio backend, got %q", cfg.Audio.Backend)
	}
	if cfg.Audio.FadeOut != 80*time.Millisecond {
		t.Fatalf("expected fade out 80ms, got %s", cfg.Audio.FadeOut)
	}
	if !slices.Equal(cfg.TTS.Providers, []string{"deepgram"}) {
		t.Fatalf("expected only deepgram, got %v", cfg.TTS.Providers)
	}
	if cfg.TTS.ProviderTimeout != 2*time.Second {
		t.Fatalf("expected provider timeout 2s, got %s", cfg.TTS.ProviderTimeout)
	}
	if cfg.LLM.Provider != "groq" || cfg.LLM.Model != "llama-3.3-70b-versatile" {
		t.Fatalf("unexpected llm config %+v", cfg.LLM)
	}
	if cfg.Audio.FadeIn != DefaultConfig().Audio.FadeIn {
		t.Fatalf("expected unset keys to keep defaults, got fade in %s", cfg.Audio.FadeIn)
	}
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, "session:\n  barge_in: false\n")
	t.Setenv("EMA_SESSION_BARGE_IN", "true")
	t.Setenv("EMA_LLM_MODEL", "gpt-4.1-mini")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("expected config to load, got %v", err)
	}
	if !cfg.Session.BargeIn {
		t.Fatalf("expected environment to enable barge-in")
	}
	if cfg.LLM.Model != "gpt-4.1-mini" {
		t.Fatalf("expected model from environment, got %q", cfg.LLM.Model)
	}
}

func TestLoadFailsForMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected an error for a missing config file")
	}
}

func TestValidateRejectsUnknownValues(t *testing.T) {
	path := writeConfig(t, `
audio:
  backend: pulse
tts:
  providers: [openai, polly]
`)

	_, err := Load(path)
	if err == nil {
		t.Fatalf("expected validation to fail")
	}
	for _, expected := range []string{`unknown audio backend "pulse"`, `unknown tts provider "polly"`} {
		if !strings.Contains(err.Error(), expected) {
			t.Fatalf("expected error to contain %q, got %v", expected, err)
		}
	}
}

func TestLoadReplacesDefaultProviderList(t *testing.T) {
	path := writeConfig(t, "tts:\n  providers: [deepgram]\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("expected config to load, got %v", err)
	}
	if !slices.Equal(cfg.TTS.Providers, []string{"deepgram"}) {
		t.Fatalf("expected [deepgram], got %v", cfg.TTS.Providers)
	}
	if cfg.TTS.ProviderTimeout != DefaultConfig().TTS.ProviderTimeout {
		t.Fatalf("expected default provider timeout, got %s", cfg.TTS.ProviderTimeout)
	}
}
