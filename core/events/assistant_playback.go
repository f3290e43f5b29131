package events

import "time"

const (
	// KindAssistantPlaybackStarted identifies playback start for the current reply.
	KindAssistantPlaybackStarted Kind = "assistant_playback.started"
	// KindAssistantPlaybackEnded identifies natural playback completion.
	KindAssistantPlaybackEnded Kind = "assistant_playback.ended"
	// KindAssistantPlaybackInterrupted identifies playback faded out early.
	KindAssistantPlaybackInterrupted Kind = "assistant_playback.interrupted"
)

// AssistantPlaybackStarted marks the start of assistant playback.
type AssistantPlaybackStarted struct {
	Base
	ClipID   string
	Duration time.Duration
}

// NewAssistantPlaybackStarted creates an assistant playback started event.
func NewAssistantPlaybackStarted(clipID string, duration time.Duration) AssistantPlaybackStarted {
	return AssistantPlaybackStarted{Base: NewBase(KindAssistantPlaybackStarted), ClipID: clipID, Duration: duration}
}

// AssistantPlaybackEnded marks the natural end of assistant playback.
type AssistantPlaybackEnded struct {
	Base
	ClipID string
}

// NewAssistantPlaybackEnded creates an assistant playback ended event.
func NewAssistantPlaybackEnded(clipID string) AssistantPlaybackEnded {
	return AssistantPlaybackEnded{Base: NewBase(KindAssistantPlaybackEnded), ClipID: clipID}
}

// AssistantPlaybackInterrupted marks playback that was faded out early.
type AssistantPlaybackInterrupted struct {
	Base
	ClipID string
}

// NewAssistantPlaybackInterrupted creates an assistant playback interrupted event.
func NewAssistantPlaybackInterrupted(clipID string) AssistantPlaybackInterrupted {
	return AssistantPlaybackInterrupted{Base: NewBase(KindAssistantPlaybackInterrupted), ClipID: clipID}
}
