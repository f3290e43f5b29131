package orchestration

import (
	"errors"
	"fmt"

	"github.com/koscakluka/ema-voice/core/audio"
	"github.com/koscakluka/ema-voice/core/speechtotext"
)

// State is the phase a session is in. Exactly one is active at a time.
type State string

const (
	StateIdle        State = "idle"
	StateAwaitingMic State = "awaiting_mic"
	StateListening   State = "listening"
	StateThinking    State = "thinking"
	StateSpeaking    State = "speaking"
	StateError       State = "error"
)

func (s State) String() string {
	return string(s)
}

// ErrorKind classifies the faults a session reports to its user.
type ErrorKind string

const (
	ErrorKindPermissionDenied ErrorKind = "permission_denied"
	ErrorKindDeviceNotFound   ErrorKind = "device_not_found"
	ErrorKindDeviceInUse      ErrorKind = "device_in_use"
	ErrorKindNetwork          ErrorKind = "network"
	ErrorKindSynthesis        ErrorKind = "synthesis"
	ErrorKindUnknown          ErrorKind = "unknown"
)

var (
	ErrSessionClosed   = errors.New("session is closed")
	ErrSessionEnded    = errors.New("session ended before the microphone was ready")
	ErrInvalidState    = errors.New("operation not allowed in the current state")
	ErrNoLocalVoice    = errors.New("no local synthesizer configured")
	ErrEmptyTranscript = errors.New("transcript is empty")
)

// SessionError is a classified fault. Errors that move the session to
// StateError are always of this type.
type SessionError struct {
	Kind ErrorKind
	Err  error
}

func (e *SessionError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

// classifyDeviceError maps a microphone error onto an ErrorKind. A device
// that disappears while capturing is reported as not found.
func classifyDeviceError(err error) ErrorKind {
	err = audio.ClassifyDeviceError(err)
	switch {
	case errors.Is(err, audio.ErrPermissionDenied):
		return ErrorKindPermissionDenied
	case errors.Is(err, audio.ErrDeviceNotFound), errors.Is(err, audio.ErrDeviceLost):
		return ErrorKindDeviceNotFound
	case errors.Is(err, audio.ErrDeviceInUse):
		return ErrorKindDeviceInUse
	}
	return ErrorKindUnknown
}

func errorKindForCapture(kind speechtotext.FailureKind) ErrorKind {
	switch kind {
	case speechtotext.FailurePermissionDenied:
		return ErrorKindPermissionDenied
	case speechtotext.FailureDeviceNotFound:
		return ErrorKindDeviceNotFound
	case speechtotext.FailureNetwork:
		return ErrorKindNetwork
	}
	return ErrorKindUnknown
}
