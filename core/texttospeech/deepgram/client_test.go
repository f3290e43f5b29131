package deepgram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-voice/core/texttospeech"
)

func newSpeakServer(t *testing.T, handle func(conn *websocket.Conn, r *http.Request)) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		handle(conn, r)
	}))
	t.Cleanup(server.Close)
	return server
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestSynthesizeCollectsAudioUntilFlushed(t *testing.T) {
	query := make(chan string, 1)
	server := newSpeakServer(t, func(conn *websocket.Conn, r *http.Request) {
		query <- r.URL.RawQuery
		var msg textMessage
		if err := conn.ReadJSON(&msg); err != nil || msg.Type != "Speak" || msg.Text != "hello" {
			return
		}
		if err := conn.ReadJSON(&msg); err != nil || msg.Type != "Flush" {
			return
		}
		_ = conn.WriteMessage(websocket.BinaryMessage, []byte{1, 2})
		_ = conn.WriteMessage(websocket.BinaryMessage, []byte{3, 4})
		_ = conn.WriteJSON(map[string]string{"type": "Flushed"})
		_ = conn.ReadJSON(&msg)
	})

	client, err := NewTextToSpeechClient(WithAPIKey("key"), WithEndpoint(wsURL(server)))
	if err != nil {
		t.Fatalf("expected client, got %v", err)
	}

	result, err := client.Synthesize(context.Background(), "hello")
	if err != nil {
		t.Fatalf("expected synthesis to succeed, got %v", err)
	}

	if string(result.Data) != string([]byte{1, 2, 3, 4}) {
		t.Fatalf("expected collected audio, got %v", result.Data)
	}
	if result.Encoding != texttospeech.EncodingPCM16Mono || result.SampleRateHz != defaultSampleRate {
		t.Fatalf("expected pcm16 mono at %d, got %s at %d", defaultSampleRate, result.Encoding, result.SampleRateHz)
	}
	if q := <-query; !strings.Contains(q, "container=none") || !strings.Contains(q, "model=aura-2-thalia-en") {
		t.Fatalf("expected raw container and default voice in query, got %q", q)
	}
}

func TestSynthesizeFailsOnServerError(t *testing.T) {
	server := newSpeakServer(t, func(conn *websocket.Conn, _ *http.Request) {
		var msg textMessage
		_ = conn.ReadJSON(&msg)
		_ = conn.WriteJSON(map[string]string{"type": "Error", "description": "bad text"})
	})

	client, _ := NewTextToSpeechClient(WithAPIKey("key"), WithEndpoint(wsURL(server)))
	if _, err := client.Synthesize(context.Background(), "hello"); err == nil {
		t.Fatalf("expected server error to fail synthesis")
	}
}

func TestSynthesizeStopsOnCancellation(t *testing.T) {
	server := newSpeakServer(t, func(conn *websocket.Conn, _ *http.Request) {
		time.Sleep(time.Second)
	})

	client, _ := NewTextToSpeechClient(WithAPIKey("key"), WithEndpoint(wsURL(server)))
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	start := time.Now()
	if _, err := client.Synthesize(ctx, "hello"); err == nil {
		t.Fatalf("expected cancellation error")
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("expected synthesis to stop promptly, took %s", elapsed)
	}
}

func TestNewTextToSpeechClientRejectsUnknownVoice(t *testing.T) {
	if _, err := NewTextToSpeechClient(WithAPIKey("key"), WithVoice(Voice("nope"))); err == nil {
		t.Fatalf("expected unknown voice to be rejected")
	}
}
