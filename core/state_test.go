package orchestration

import (
	"errors"
	"testing"

	"github.com/koscakluka/ema-voice/core/audio"
)

func TestSentinelErrorsAreDistinct(t *testing.T) {
	sentinels := []error{ErrSessionClosed, ErrSessionEnded, ErrInvalidState, ErrNoLocalVoice, ErrEmptyTranscript}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j && errors.Is(a, b) {
				t.Fatalf("expected %q and %q to be distinct", a, b)
			}
		}
	}
}

func TestSessionErrorUnwrapsToCause(t *testing.T) {
	err := error(&SessionError{Kind: classifyDeviceError(audio.ErrDeviceInUse), Err: audio.ErrDeviceInUse})

	var sessionErr *SessionError
	if !errors.As(err, &sessionErr) {
		t.Fatalf("expected a *SessionError, got %T", err)
	}
	if sessionErr.Kind != ErrorKindDeviceInUse {
		t.Fatalf("expected kind %q, got %q", ErrorKindDeviceInUse, sessionErr.Kind)
	}
	if !errors.Is(err, audio.ErrDeviceInUse) {
		t.Fatalf("expected error to wrap the device cause")
	}
}
