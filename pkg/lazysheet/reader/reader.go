// Package reader is the boundary to the format-specific decoders. Each
// decoder exposes its sheets and rows as forward-only streams over a single
// shared cursor.
package reader

import (
	"io"

	"github.com/ukaji3/lazysheet-go/pkg/lazysheet/models"
	"golang.org/x/text/encoding"
)

// Stream is a forward-only, single-pass sequence.
//
// Next advances and reports whether Current holds a value. When Next returns
// false, Err reports why the stream ended (nil at a clean end).
type Stream[T any] interface {
	Next() bool
	Current() T
	Err() error
}

// Decoder is an open container. Sheets may be obtained once; Close must be
// called exactly once.
type Decoder interface {
	io.Closer
	Sheets() (Stream[SheetHandle], error)
}

// SheetHandle is one sheet in the decoder's native order. Rows is only valid
// while the sheet is the decoder's current sheet and may be called once.
type SheetHandle interface {
	Index() int
	Name() string
	Rows() (Stream[models.Row], error)
}

// Options configure a decoder at open time.
type Options struct {
	// Name is the display name of the source, used for single-sheet formats.
	Name string
	// Delimiter separates fields in delimited text. Zero means ','.
	Delimiter rune
	// Encoding decodes delimited text. Nil means UTF-8.
	Encoding encoding.Encoding
}

// OpenFunc opens path as one format.
type OpenFunc func(path string, opts Options) (Decoder, error)

var decoders = map[Format]OpenFunc{
	FormatXLSX: OpenXLSX,
	FormatCSV:  OpenCSV,
	FormatTSV:  OpenTSV,
	FormatODS:  OpenODS,
}

// Lookup returns the decoder constructor bound to f.
func Lookup(f Format) (OpenFunc, error) {
	open, ok := decoders[f]
	if !ok {
		return nil, &FormatError{Format: f}
	}
	return open, nil
}
