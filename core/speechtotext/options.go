package speechtotext

import "time"

const DefaultRestartDelay = 300 * time.Millisecond

type AdapterOptions struct {
	OnFinalTranscript func(transcript string)
	OnInterimActivity func(transcript string)
	OnFailure         func(kind FailureKind, err error)
	// ShouldListen is asked before every automatic restart.
	ShouldListen func() bool
	RestartDelay time.Duration
}

type AdapterOption func(*AdapterOptions)

func WithFinalTranscriptCallback(callback func(transcript string)) AdapterOption {
	return func(o *AdapterOptions) {
		o.OnFinalTranscript = callback
	}
}

func WithInterimActivityCallback(callback func(transcript string)) AdapterOption {
	return func(o *AdapterOptions) {
		o.OnInterimActivity = callback
	}
}

func WithFailureCallback(callback func(kind FailureKind, err error)) AdapterOption {
	return func(o *AdapterOptions) {
		o.OnFailure = callback
	}
}

func WithShouldListen(shouldListen func() bool) AdapterOption {
	return func(o *AdapterOptions) {
		o.ShouldListen = shouldListen
	}
}

func WithRestartDelay(delay time.Duration) AdapterOption {
	return func(o *AdapterOptions) {
		if delay >= 0 {
			o.RestartDelay = delay
		}
	}
}
