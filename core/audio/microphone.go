package audio

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrPermissionDenied = errors.New("microphone permission denied")
	ErrDeviceNotFound   = errors.New("microphone not found")
	ErrDeviceInUse      = errors.New("microphone in use")
	ErrDeviceLost       = errors.New("audio device stopped unexpectedly")
)

// Microphone is a permission gated capture device.
type Microphone interface {
	// Acquire requests access to the device. Errors wrap one of the device
	// sentinels when the cause is known.
	Acquire(ctx context.Context) (CaptureStream, error)
}

// CaptureStream is an acquired microphone. It must be released exactly once.
type CaptureStream interface {
	// Start begins delivering audio. onFailure is called at most once if the
	// device dies while running.
	Start(onAudio func([]byte), onFailure func(error)) error
	Stop() error
	Release() error
	EncodingInfo() EncodingInfo
}

// ClassifyDeviceError maps backend error messages onto the device sentinels.
// Unknown errors are returned unchanged.
func ClassifyDeviceError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrPermissionDenied) || errors.Is(err, ErrDeviceNotFound) ||
		errors.Is(err, ErrDeviceInUse) {
		return err
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "permission"), strings.Contains(msg, "access denied"),
		strings.Contains(msg, "not allowed"):
		return errors.Join(ErrPermissionDenied, err)
	case strings.Contains(msg, "no device"), strings.Contains(msg, "does not exist"),
		strings.Contains(msg, "not found"), strings.Contains(msg, "invalid device"):
		return errors.Join(ErrDeviceNotFound, err)
	case strings.Contains(msg, "busy"), strings.Contains(msg, "in use"),
		strings.Contains(msg, "unavailable"):
		return errors.Join(ErrDeviceInUse, err)
	}
	return err
}
