package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/koscakluka/ema-voice/core/texttospeech"
)

func TestSynthesizeRequestsMP3Speech(t *testing.T) {
	requests := make(chan map[string]any, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/audio/speech") {
			http.NotFound(w, r)
			return
		}
		body := map[string]any{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		requests <- body
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ID3fake"))
	}))
	defer server.Close()

	client, err := NewTextToSpeechClient(WithAPIKey("key"), WithBaseURL(server.URL+"/v1/"))
	if err != nil {
		t.Fatalf("expected client, got %v", err)
	}

	result, err := client.Synthesize(context.Background(), "hello there")
	if err != nil {
		t.Fatalf("expected synthesis to succeed, got %v", err)
	}

	if string(result.Data) != "ID3fake" || result.Encoding != texttospeech.EncodingCompressed {
		t.Fatalf("expected compressed bytes from server, got %q (%s)", result.Data, result.Encoding)
	}

	body := <-requests
	if body["input"] != "hello there" || body["voice"] != defaultVoice || body["response_format"] != "mp3" {
		t.Fatalf("expected speech request for input, voice and mp3 format, got %v", body)
	}
}

func TestSynthesizeFailsOnServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, _ := NewTextToSpeechClient(WithAPIKey("key"), WithBaseURL(server.URL+"/v1/"))
	if _, err := client.Synthesize(context.Background(), "hello"); err == nil {
		t.Fatalf("expected server error to fail synthesis")
	}
}
