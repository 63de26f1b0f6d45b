// Package komodoerr defines the behavioral error kinds shared across Core
// components, per the error-handling design: callers branch on Kind, not on
// concrete types, via errors.Is/errors.As.
package komodoerr

import (
	"errors"
	"fmt"
)

// Kind is a behavioral error category.
type Kind string

const (
	ResourceBusy    Kind = "resource_busy"
	PermissionDenied Kind = "permission_denied"
	NotFound        Kind = "not_found"
	InvalidConfig   Kind = "invalid_config"
	Interpolation   Kind = "interpolation"
	RemoteTransport Kind = "remote_transport"
	ProviderError   Kind = "provider_error"
	Storage         Kind = "storage"
)

// Error wraps an underlying error with a behavioral Kind and the operation
// that produced it.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap constructs an *Error. If err is nil, Wrap still returns a non-nil
// *Error carrying just the Kind — used for errors raised without an
// underlying cause (e.g. ResourceBusy).
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Is reports whether err carries the given Kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
