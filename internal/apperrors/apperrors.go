// Package apperrors classifies collaborator failures.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind is the failure class of an error.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindNetwork
	KindValidation
	KindPermissionDenied
	KindDeviceUnavailable
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindNetwork:
		return "network error"
	case KindValidation:
		return "validation error"
	case KindPermissionDenied:
		return "permission denied"
	case KindDeviceUnavailable:
		return "device unavailable"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown error"
	}
}

// Sentinels for errors.Is checks.
var (
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrNetwork           = &Error{Kind: KindNetwork}
	ErrValidation        = &Error{Kind: KindValidation}
	ErrPermissionDenied  = &Error{Kind: KindPermissionDenied}
	ErrDeviceUnavailable = &Error{Kind: KindDeviceUnavailable}
	ErrTimeout           = &Error{Kind: KindTimeout}
)

// Error is a classified failure with the operation that produced it.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// New builds a classified error.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds a classified error from a formatted message.
func Errorf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first classified error in the chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Retryable reports whether the user can retry the failed action as-is.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindNetwork, KindTimeout, KindDeviceUnavailable, KindPermissionDenied, KindUnknown:
		return true
	default:
		return false
	}
}
