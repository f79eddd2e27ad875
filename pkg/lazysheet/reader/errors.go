package reader

import (
	"errors"
	"fmt"
)

// ErrUnsupportedFormat indicates that no decoder matches the requested or detected format.
var ErrUnsupportedFormat = errors.New("unsupported format")

// ErrIO indicates a read, open or close failure at the filesystem or decoder layer.
var ErrIO = errors.New("i/o failure")

// ErrDecoderState indicates an operation on a closed decoder or on a sheet
// the decoder cursor has already moved past.
var ErrDecoderState = errors.New("invalid decoder state")

// IOError records the operation and path of a failed read, open or close.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// Is reports ErrIO as a match so callers can test the error kind.
func (e *IOError) Is(target error) bool {
	return target == ErrIO
}

// FormatError describes a format that could not be bound to a decoder.
type FormatError struct {
	Format Format // requested format, empty when resolution found nothing
	Ext    string // file extension seen during resolution
	MIME   string // content probe result
}

func (e *FormatError) Error() string {
	switch {
	case e.Format != "":
		return fmt.Sprintf("unsupported format %q", string(e.Format))
	case e.MIME != "":
		return fmt.Sprintf("unsupported format: extension %q, content %s", e.Ext, e.MIME)
	default:
		return fmt.Sprintf("unsupported format: extension %q", e.Ext)
	}
}

// Is reports ErrUnsupportedFormat as a match.
func (e *FormatError) Is(target error) bool {
	return target == ErrUnsupportedFormat
}

func stateError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrDecoderState, fmt.Sprintf(format, args...))
}
