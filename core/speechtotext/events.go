package speechtotext

// Event is one of Started, FinalResult, InterimActivity, Failed or Ended.
type Event interface {
	isRecognitionEvent()
}

// Started is emitted once the recognition stream is live.
type Started struct{}

// FinalResult carries a stable transcript.
type FinalResult struct {
	Text string
}

// InterimActivity carries partial text that may still change.
type InterimActivity struct {
	Text string
}

type Failed struct {
	Kind FailureKind
	Err  error
}

// Ended is emitted once when the stream is gone, whatever the reason.
type Ended struct{}

func (Started) isRecognitionEvent()         {}
func (FinalResult) isRecognitionEvent()     {}
func (InterimActivity) isRecognitionEvent() {}
func (Failed) isRecognitionEvent()          {}
func (Ended) isRecognitionEvent()           {}
