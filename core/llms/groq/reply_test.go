package groq

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/koscakluka/ema-voice/core/llms"
)

func TestGenerateReplyCollectsStreamedContent(t *testing.T) {
	requests := make(chan requestBody, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body requestBody
		_ = json.NewDecoder(r.Body).Decode(&body)
		requests <- body

		for _, content := range []string{"Based on your profile,", " around 6.5%."} {
			chunk, _ := json.Marshal(map[string]any{
				"choices": []any{map[string]any{"delta": map[string]any{"content": content}}},
			})
			fmt.Fprintf(w, "data: %s\n\n", chunk)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	client, err := NewClient(WithAPIKey("key"), WithURL(server.URL), WithInstructions("be brief"))
	if err != nil {
		t.Fatalf("expected client, got %v", err)
	}

	reply, err := client.GenerateReply(context.Background(), []llms.Turn{
		{Speaker: llms.SpeakerUser, Text: "What's my rate?", Ordinal: 1},
	}, "[view: rates]")
	if err != nil {
		t.Fatalf("expected reply, got %v", err)
	}

	if reply != "Based on your profile, around 6.5%." {
		t.Fatalf("expected streamed reply, got %q", reply)
	}

	body := <-requests
	if !body.Stream || len(body.Messages) != 2 {
		t.Fatalf("expected streamed request with system and user messages, got %+v", body)
	}
	if body.Messages[0].Role != messageRoleSystem || body.Messages[1].Content != "What's my rate?\n\n[view: rates]" {
		t.Fatalf("expected system prompt and annotated user message, got %+v", body.Messages)
	}
}

func TestGenerateReplyFailsOnErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client, _ := NewClient(WithAPIKey("key"), WithURL(server.URL))
	if _, err := client.GenerateReply(context.Background(), []llms.Turn{{Speaker: llms.SpeakerUser, Text: "hi"}}, ""); err == nil {
		t.Fatalf("expected error status to fail")
	}
}
