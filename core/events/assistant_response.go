package events

const (
	KindAssistantResponseFinal  Kind = "assistant_response.final"
	KindAssistantResponseFailed Kind = "assistant_response.failed"
)

type AssistantResponseFinal struct {
	Base
	Response string
}

func NewAssistantResponseFinal(response string) AssistantResponseFinal {
	return AssistantResponseFinal{Base: NewBase(KindAssistantResponseFinal), Response: response}
}

type AssistantResponseFailed struct {
	Base
	Err error
}

func NewAssistantResponseFailed(err error) AssistantResponseFailed {
	return AssistantResponseFailed{Base: NewBase(KindAssistantResponseFailed), Err: err}
}
