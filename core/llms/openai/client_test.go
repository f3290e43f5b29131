package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/koscakluka/ema-voice/core/llms"
)

func TestGenerateReplySendsHistoryWithContextNote(t *testing.T) {
	type chatRequest struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	requests := make(chan chatRequest, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		var body chatRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		requests <- body

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": " Around 6.5%. "}}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 4, "total_tokens": 14}
		}`))
	}))
	defer server.Close()

	client, err := NewClient(WithAPIKey("key"), WithBaseURL(server.URL+"/v1/"), WithInstructions("be brief"))
	if err != nil {
		t.Fatalf("expected client, got %v", err)
	}

	reply, err := client.GenerateReply(context.Background(), []llms.Turn{
		{Speaker: llms.SpeakerUser, Text: "hi", Ordinal: 1},
		{Speaker: llms.SpeakerAssistant, Text: "hello", Ordinal: 2},
		{Speaker: llms.SpeakerUser, Text: "what's my rate?", Ordinal: 3},
	}, "[view: rates]")
	if err != nil {
		t.Fatalf("expected reply, got %v", err)
	}

	if reply != "Around 6.5%." {
		t.Fatalf("expected trimmed reply, got %q", reply)
	}

	body := <-requests
	if len(body.Messages) != 4 {
		t.Fatalf("expected system and three history messages, got %+v", body.Messages)
	}
	expectedRoles := []string{"system", "user", "assistant", "user"}
	for i, role := range expectedRoles {
		if body.Messages[i].Role != role {
			t.Fatalf("expected role %s at %d, got %s", role, i, body.Messages[i].Role)
		}
	}
	if body.Messages[3].Content != "what's my rate?\n\n[view: rates]" {
		t.Fatalf("expected context note on the outgoing user message, got %q", body.Messages[3].Content)
	}
}
