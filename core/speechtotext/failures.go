package speechtotext

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/koscakluka/ema-voice/core/audio"
)

type FailureKind string

const (
	FailureNoSpeech         FailureKind = "no-speech"
	FailureAborted          FailureKind = "aborted"
	FailurePermissionDenied FailureKind = "permission-denied"
	FailureDeviceNotFound   FailureKind = "device-not-found"
	FailureNetwork          FailureKind = "network"
	FailureUnknown          FailureKind = "unknown"
)

// IsBenign reports failures that are expected during normal operation and
// are absorbed without being surfaced.
func (k FailureKind) IsBenign() bool {
	return k == FailureNoSpeech || k == FailureAborted
}

// IsFatal reports failures that recognition cannot recover from by itself.
func (k FailureKind) IsFatal() bool {
	return k == FailurePermissionDenied || k == FailureDeviceNotFound
}

// Failure is an error tagged with its recognition failure kind.
type Failure struct {
	Kind FailureKind
	Err  error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return string(f.Kind)
	}
	return fmt.Sprintf("%s: %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// ClassifyError maps an error onto a failure kind.
func ClassifyError(err error) FailureKind {
	var failure *Failure
	var netErr net.Error
	switch {
	case err == nil:
		return FailureUnknown
	case errors.As(err, &failure):
		return failure.Kind
	case errors.Is(err, context.Canceled):
		return FailureAborted
	case errors.Is(err, audio.ErrPermissionDenied):
		return FailurePermissionDenied
	case errors.Is(err, audio.ErrDeviceNotFound):
		return FailureDeviceNotFound
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr):
		return FailureNetwork
	}
	return FailureUnknown
}
