package orchestration

import (
	"github.com/koscakluka/ema-voice/core/events"
	"github.com/koscakluka/ema-voice/core/speechtotext"
)

type eventEmitter func(events.Event)

func noopEventEmitter(events.Event) {}

// EventCallbacks are typed hooks for the most common session events. Any of
// them may be nil.
type EventCallbacks struct {
	OnStateChanged        func(from, to State)
	OnTranscript          func(transcript string)
	OnInterimTranscript   func(transcript string)
	OnResponse            func(response string)
	OnPlaybackEnded       func()
	OnPlaybackInterrupted func()
	OnError               func(err *SessionError)
}

func newCallbackEventEmitter(callbacks EventCallbacks) eventEmitter {
	return func(event events.Event) {
		switch typedEvent := event.(type) {
		case events.SessionStateChanged:
			if callbacks.OnStateChanged != nil {
				callbacks.OnStateChanged(State(typedEvent.From), State(typedEvent.To))
			}
		case events.UserTranscriptFinal:
			if callbacks.OnTranscript != nil {
				callbacks.OnTranscript(typedEvent.Transcript)
			}
		case events.UserTranscriptInterimUpdated:
			if callbacks.OnInterimTranscript != nil {
				callbacks.OnInterimTranscript(typedEvent.Transcript)
			}
		case events.AssistantResponseFinal:
			if callbacks.OnResponse != nil {
				callbacks.OnResponse(typedEvent.Response)
			}
		case events.AssistantPlaybackEnded:
			if callbacks.OnPlaybackEnded != nil {
				callbacks.OnPlaybackEnded()
			}
		case events.AssistantPlaybackInterrupted:
			if callbacks.OnPlaybackInterrupted != nil {
				callbacks.OnPlaybackInterrupted()
			}
		case events.SessionFailed:
			if callbacks.OnError != nil {
				callbacks.OnError(&SessionError{Kind: ErrorKind(typedEvent.ErrorKind), Err: typedEvent.Err})
			}
		case events.AssistantSpeechFailed:
			if callbacks.OnError != nil {
				callbacks.OnError(&SessionError{Kind: ErrorKindSynthesis, Err: typedEvent.Err})
			}
		case events.UserCaptureFailed:
			if callbacks.OnError != nil {
				kind := errorKindForCapture(speechtotext.FailureKind(typedEvent.FailureKind))
				callbacks.OnError(&SessionError{Kind: kind, Err: typedEvent.Err})
			}
		}
	}
}

// chainEmitters calls every emitter in order.
func chainEmitters(emitters ...eventEmitter) eventEmitter {
	return func(event events.Event) {
		for _, emit := range emitters {
			emit(event)
		}
	}
}
