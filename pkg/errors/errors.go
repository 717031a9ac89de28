package clipstream_errors

import (
	"errors"
	"fmt"
)

// Upload failure taxonomy. The controller converts every expected failure
// into one of these sentinels before it crosses a package boundary.
var (
	ErrOffline           = errors.New("no internet connection")
	ErrTimeout           = errors.New("upload timed out")
	ErrStalled           = errors.New("upload stalled")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrQuotaExceeded     = errors.New("storage quota exceeded")
	ErrNetwork           = errors.New("network error")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidInput      = errors.New("invalid input")
	ErrTooLarge          = errors.New("file too large")
	ErrNotFound          = errors.New("not found")
	ErrQueueFull         = errors.New("queue full")
)

// TransferError wraps a taxonomy sentinel with the operation and destination
// path it failed on, so logs stay useful without losing errors.Is matching.
type TransferError struct {
	Op   string
	Path string
	Err  error
}

func (e *TransferError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}
