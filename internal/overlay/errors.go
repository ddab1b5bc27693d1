package overlay

import (
	"errors"

	"github.com/jmylchreest/chatbubble/internal/model"
)

var (
	// ErrOverlayDenied means the platform refused to create an overlay
	// window. It is not retriable until the user grants the capability again.
	ErrOverlayDenied = errors.New("overlay permission denied")

	// ErrPlatformFailure is any other compositor or toolkit error.
	// The caller may retry.
	ErrPlatformFailure = errors.New("platform failure")
)

// Error represents a failed window controller operation.
// Kind is ErrOverlayDenied or ErrPlatformFailure.
type Error struct {
	Op       string
	Identity model.Identity
	Kind     error
	Cause    error
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Identity != "" {
		msg += " " + string(e.Identity)
	}
	msg += ": " + e.Kind.Error()
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap exposes both the kind sentinel and the underlying cause to errors.Is.
func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

// Denied builds an ErrOverlayDenied error.
func Denied(op string, id model.Identity, cause error) *Error {
	return &Error{Op: op, Identity: id, Kind: ErrOverlayDenied, Cause: cause}
}

// Failure builds an ErrPlatformFailure error.
func Failure(op string, id model.Identity, cause error) *Error {
	return &Error{Op: op, Identity: id, Kind: ErrPlatformFailure, Cause: cause}
}

// IsRetriable reports whether a failed Create may succeed if retried.
func IsRetriable(err error) bool {
	return errors.Is(err, ErrPlatformFailure) && !errors.Is(err, ErrOverlayDenied)
}
