package llms

import "testing"

func TestToMessagesAnnotatesOnlyTheLastUserMessage(t *testing.T) {
	history := []Turn{
		{Speaker: SpeakerUser, Text: "hi", Ordinal: 1},
		{Speaker: SpeakerAssistant, Text: "hello", Ordinal: 2},
		{Speaker: SpeakerUser, Text: "what's my rate?", Ordinal: 3},
	}

	messages := ToMessages(history, "[context: view=rates]")

	if len(messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(messages))
	}
	if messages[0].Content != "hi" {
		t.Fatalf("expected earlier user message untouched, got %q", messages[0].Content)
	}
	if messages[2].Content != "what's my rate?\n\n[context: view=rates]" {
		t.Fatalf("expected context note on last user message, got %q", messages[2].Content)
	}
	if history[2].Text != "what's my rate?" {
		t.Fatalf("expected history to stay clean, got %q", history[2].Text)
	}
}

func TestToMessagesSkipsEmptyTurns(t *testing.T) {
	messages := ToMessages([]Turn{
		{Speaker: SpeakerUser, Text: "hi"},
		{Speaker: SpeakerAssistant, Text: ""},
	}, "")

	if len(messages) != 1 {
		t.Fatalf("expected empty assistant turn to be skipped, got %d messages", len(messages))
	}
}
