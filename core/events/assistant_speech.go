package events

const (
	KindAssistantSpeechSynthesized Kind = "assistant_speech.synthesized"
	KindAssistantSpeechFailed      Kind = "assistant_speech.failed"
)

// AssistantSpeechSynthesized names the synthesizer whose audio will be played.
type AssistantSpeechSynthesized struct {
	Base
	Provider      string
	LocalFallback bool
}

func NewAssistantSpeechSynthesized(provider string, localFallback bool) AssistantSpeechSynthesized {
	return AssistantSpeechSynthesized{
		Base:          NewBase(KindAssistantSpeechSynthesized),
		Provider:      provider,
		LocalFallback: localFallback,
	}
}

// AssistantSpeechFailed reports that no synthesizer, local fallback included,
// produced playable audio.
type AssistantSpeechFailed struct {
	Base
	Err error
}

func NewAssistantSpeechFailed(err error) AssistantSpeechFailed {
	return AssistantSpeechFailed{Base: NewBase(KindAssistantSpeechFailed), Err: err}
}
