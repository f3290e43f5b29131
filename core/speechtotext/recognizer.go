package speechtotext

import "context"

// Recognizer is a continuous speech recognition source.
type Recognizer interface {
	// Start opens a stream and delivers its events to emit until Ended. Each
	// call opens a new, independent stream.
	Start(ctx context.Context, emit func(Event)) error
	// Stop asks the current stream to finish. The stream still emits Ended.
	Stop() error
}

// AudioSink is implemented by recognizers that are fed raw audio rather than
// capturing it themselves.
type AudioSink interface {
	SendAudio(audio []byte) error
}
