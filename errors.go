package scalebloom

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/hupe1980/scalebloom/internal/compress"
	"github.com/hupe1980/scalebloom/internal/engine"
)

// ErrClosed is returned by operations on a closed Filter.
var ErrClosed = errors.New("scalebloom: filter closed")

// ConfigurationError reports an invalid construction argument or option.
// It is raised before the filesystem is touched.
type ConfigurationError struct {
	Field  string
	Reason string
	cause  error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("scalebloom: invalid %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return e.cause }

// CorruptFileError reports a filter file or snapshot that failed validation.
type CorruptFileError struct {
	Path   string
	Reason string
	cause  error
}

func (e *CorruptFileError) Error() string {
	return fmt.Sprintf("scalebloom: corrupt file %s: %s", e.Path, e.Reason)
}

func (e *CorruptFileError) Unwrap() error { return e.cause }

// IOError reports a failed filesystem or mapping operation.
//
// The original error can be accessed via errors.Unwrap, so
// errors.Is(err, os.ErrNotExist) works for a missing file.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("scalebloom: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func configErr(field, reason string) error {
	return &ConfigurationError{Field: field, Reason: reason}
}

func translateError(path string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, engine.ErrClosed) {
		return fmt.Errorf("%w: %w", ErrClosed, err)
	}

	var ae *engine.ArgumentError
	if errors.As(err, &ae) {
		return &ConfigurationError{Field: ae.Field, Reason: ae.Reason, cause: err}
	}

	if errors.Is(err, engine.ErrCorrupt) || errors.Is(err, compress.ErrCorruptBlock) {
		reason := err.Error()
		reason = strings.TrimPrefix(reason, engine.ErrCorrupt.Error()+": ")
		reason = strings.TrimPrefix(reason, compress.ErrCorruptBlock.Error()+": ")
		return &CorruptFileError{Path: path, Reason: reason, cause: err}
	}

	var pe *os.PathError
	if errors.As(err, &pe) {
		return &IOError{Op: pe.Op, Path: pe.Path, Err: pe.Err}
	}

	return err
}

// ioErr builds an IOError, keeping the op and path of a wrapped *os.PathError.
func ioErr(op, path string, err error) error {
	var pe *os.PathError
	if errors.As(err, &pe) {
		return &IOError{Op: pe.Op, Path: pe.Path, Err: pe.Err}
	}
	return &IOError{Op: op, Path: path, Err: err}
}
