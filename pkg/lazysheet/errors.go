package lazysheet

import (
	"errors"

	"github.com/ukaji3/lazysheet-go/pkg/lazysheet/reader"
)

// ErrMissingSource indicates the input does not exist or is not a readable file.
var ErrMissingSource = errors.New("source not found")

// ErrInvalidOption indicates an option that cannot be applied.
var ErrInvalidOption = errors.New("invalid option")

// ErrSourceConsumed indicates a single-use reader source was already materialised.
var ErrSourceConsumed = errors.New("source reader already consumed")

// Decoder layer errors, re-exported so callers only import this package.
var (
	// ErrUnsupportedFormat indicates no decoder matches the type hint, extension or content.
	ErrUnsupportedFormat = reader.ErrUnsupportedFormat
	// ErrIO indicates a read, open or close failure.
	ErrIO = reader.ErrIO
	// ErrDecoderState indicates an operation on a closed decoder or an abandoned sheet.
	ErrDecoderState = reader.ErrDecoderState
)

// IOError records the failed operation and path; it matches ErrIO.
type IOError = reader.IOError

// FormatError describes an unresolvable format; it matches ErrUnsupportedFormat.
type FormatError = reader.FormatError
