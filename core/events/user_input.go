package events

const (
	// KindUserTranscriptInterimUpdated identifies mutable interim transcript snapshots.
	KindUserTranscriptInterimUpdated Kind = "user_input.transcript_interim_updated"
	// KindUserTranscriptFinal identifies a finalized utterance.
	KindUserTranscriptFinal Kind = "user_input.transcript_final"
	// KindUserCaptureFailed identifies surfaced recognition failures.
	KindUserCaptureFailed Kind = "user_input.capture_failed"
)

// UserTranscriptInterimUpdated carries the current interim transcript.
type UserTranscriptInterimUpdated struct {
	Base
	Transcript string
}

// NewUserTranscriptInterimUpdated creates an interim transcript event.
func NewUserTranscriptInterimUpdated(transcript string) UserTranscriptInterimUpdated {
	return UserTranscriptInterimUpdated{Base: NewBase(KindUserTranscriptInterimUpdated), Transcript: transcript}
}

// UserTranscriptFinal carries a final transcript.
type UserTranscriptFinal struct {
	Base
	Transcript string
}

// NewUserTranscriptFinal creates a final transcript event.
func NewUserTranscriptFinal(transcript string) UserTranscriptFinal {
	return UserTranscriptFinal{Base: NewBase(KindUserTranscriptFinal), Transcript: transcript}
}

// UserCaptureFailed carries a recognition failure kind.
type UserCaptureFailed struct {
	Base
	FailureKind string
	Err         error
}

// NewUserCaptureFailed creates a capture failed event.
func NewUserCaptureFailed(failureKind string, err error) UserCaptureFailed {
	return UserCaptureFailed{Base: NewBase(KindUserCaptureFailed), FailureKind: failureKind, Err: err}
}
