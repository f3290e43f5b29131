package playback

import "time"

const (
	DefaultFadeIn        = 30 * time.Millisecond
	DefaultFadeOut       = 60 * time.Millisecond
	DefaultFrameDuration = 20 * time.Millisecond
	DefaultLead          = 60 * time.Millisecond
	// DefaultSilenceFloor is -60dB.
	DefaultSilenceFloor = 0.001
)

// GainSample is one point of a clip's volume trace.
type GainSample struct {
	ClipID string
	Gain   float64
	At     time.Time
}

type EngineOption func(*Engine)

func WithFadeIn(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d >= 0 {
			e.fadeIn = d
		}
	}
}

// WithFadeOut sets both the natural tail fade and the forced cancellation
// fade window.
func WithFadeOut(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d >= 0 {
			e.fadeOut = d
		}
	}
}

func WithFrameDuration(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.frame = d
		}
	}
}

// WithLead sets how far ahead of the playhead audio is written.
func WithLead(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d >= 0 {
			e.lead = d
		}
	}
}

func WithSilenceFloor(gain float64) EngineOption {
	return func(e *Engine) {
		if gain >= 0 && gain < 1 {
			e.floor = gain
		}
	}
}

// WithGainObserver receives the gain at every written frame and the final
// gain when a clip is torn down.
func WithGainObserver(observer func(GainSample)) EngineOption {
	return func(e *Engine) { e.observer = observer }
}
