package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned when an operation is attempted on a closed engine.
	ErrClosed = errors.New("engine closed")

	// ErrInvalidArgument is returned when a construction argument or option is invalid.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrCorrupt is returned when the backing file fails validation.
	ErrCorrupt = errors.New("corrupt filter file")
)

// ArgumentError describes an invalid construction argument.
// It matches ErrInvalidArgument with errors.Is.
type ArgumentError struct {
	Field  string
	Reason string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ArgumentError) Unwrap() error { return ErrInvalidArgument }

func corruptf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorrupt, fmt.Sprintf(format, args...))
}
