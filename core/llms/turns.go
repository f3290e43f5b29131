package llms

import "context"

type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

// Turn is one entry of the conversation history. Ordinal is the position the
// turn was appended at, starting from 1.
type Turn struct {
	Speaker Speaker
	Text    string
	Ordinal int
}

// ReplyGenerator produces the assistant reply for a conversation.
type ReplyGenerator interface {
	// GenerateReply answers the last user turn in history. contextNote
	// carries situational hints that belong to this request only; it must
	// not be treated as part of any stored turn.
	GenerateReply(ctx context.Context, history []Turn, contextNote string) (string, error)
}

// ReplyGeneratorFunc adapts a function to ReplyGenerator.
type ReplyGeneratorFunc func(ctx context.Context, history []Turn, contextNote string) (string, error)

func (f ReplyGeneratorFunc) GenerateReply(ctx context.Context, history []Turn, contextNote string) (string, error) {
	return f(ctx, history, contextNote)
}

// Message is a role tagged chat message as sent to a model.
type Message struct {
	Role    Speaker
	Content string
}

// ToMessages converts history into chat messages, attaching contextNote to
// the content of the last user message only.
func ToMessages(history []Turn, contextNote string) []Message {
	messages := make([]Message, 0, len(history))
	lastUser := -1
	for _, turn := range history {
		if turn.Text == "" {
			continue
		}
		if turn.Speaker == SpeakerUser {
			lastUser = len(messages)
		}
		messages = append(messages, Message{Role: turn.Speaker, Content: turn.Text})
	}

	if contextNote != "" && lastUser >= 0 {
		messages[lastUser].Content += "\n\n" + contextNote
	}
	return messages
}
