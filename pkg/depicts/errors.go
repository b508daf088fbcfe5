package depicts

import (
	"errors"
	"fmt"
)

// Error kinds. Match with errors.Is.
var (
	// ErrInvalidArgument is returned for bad input before any external call.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrDirectoryUnavailable is returned when the Media Directory Service listing fails.
	ErrDirectoryUnavailable = errors.New("media directory unavailable")

	// ErrEnrichmentUnavailable is returned when the claims batch cannot be fetched.
	ErrEnrichmentUnavailable = errors.New("enrichment unavailable")

	// ErrNotFound is returned when a requested item does not exist.
	ErrNotFound = errors.New("not found")
)

// Error carries the failing operation and the error kind around a cause.
type Error struct {
	Op   string
	Kind error
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Kind)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the error's kind.
func (e *Error) Is(target error) bool {
	return e.Kind == target
}

// Wrap returns an *Error of the given kind, or nil when err is nil.
func Wrap(op string, kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Kind: kind, Err: err}
}

// Errorf builds an *Error of the given kind with a formatted cause.
func Errorf(op string, kind error, format string, args ...any) error {
	return &Error{Op: op, Kind: kind, Err: fmt.Errorf(format, args...)}
}
