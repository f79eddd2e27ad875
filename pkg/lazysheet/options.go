package lazysheet

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/ukaji3/lazysheet-go/pkg/lazysheet/reader"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// Format is the container format bound to an import session.
type Format = reader.Format

// Supported formats.
const (
	FormatXLSX = reader.FormatXLSX
	FormatCSV  = reader.FormatCSV
	FormatTSV  = reader.FormatTSV
	FormatODS  = reader.FormatODS
)

// ParseFormat resolves a format name such as "xlsx" or ".csv".
func ParseFormat(s string) (Format, error) {
	return reader.ParseFormat(s)
}

var encodings = map[string]encoding.Encoding{
	"":             nil,
	"utf-8":        nil,
	"utf8":         nil,
	"iso-8859-1":   charmap.ISO8859_1,
	"latin1":       charmap.ISO8859_1,
	"iso-8859-2":   charmap.ISO8859_2,
	"iso-8859-15":  charmap.ISO8859_15,
	"windows-1250": charmap.Windows1250,
	"windows-1251": charmap.Windows1251,
	"windows-1252": charmap.Windows1252,
	"cp1252":       charmap.Windows1252,
	"koi8-r":       charmap.KOI8R,
	"macintosh":    charmap.Macintosh,
}

// Options holds configuration for the Importer.
type Options struct {
	format    Format
	tempDir   string
	storage   TempStorage
	logger    *slog.Logger
	delimiter rune
	encoding  string
	skipEmpty bool
	decoders  map[Format]reader.OpenFunc
}

func defaultOptions() *Options {
	return &Options{
		tempDir:   os.TempDir(),
		delimiter: ',',
	}
}

// Option configures the Importer.
type Option func(*Options)

// WithFormat forces the format instead of resolving it from extension or content.
func WithFormat(f Format) Option {
	return func(o *Options) { o.format = f }
}

// WithTempDir sets where non-local sources are materialised (default: os.TempDir()).
func WithTempDir(dir string) Option {
	return func(o *Options) { o.tempDir = dir }
}

// WithTempStorage replaces the directory-backed temp storage.
func WithTempStorage(s TempStorage) Option {
	return func(o *Options) { o.storage = s }
}

// WithLogger sets the logger (default: slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) { o.logger = l }
}

// WithDelimiter sets the field delimiter of CSV input (default: ',').
func WithDelimiter(r rune) Option {
	return func(o *Options) { o.delimiter = r }
}

// WithEncoding sets the charset of delimited text input (default: UTF-8).
func WithEncoding(name string) Option {
	return func(o *Options) { o.encoding = name }
}

// WithSkipEmptyRows drops rows whose cells are all empty.
func WithSkipEmptyRows(skip bool) Option {
	return func(o *Options) { o.skipEmpty = skip }
}

// WithDecoder binds f to a custom decoder constructor for this Importer.
func WithDecoder(f Format, open reader.OpenFunc) Option {
	return func(o *Options) {
		if o.decoders == nil {
			o.decoders = make(map[Format]reader.OpenFunc)
		}
		o.decoders[f] = open
	}
}

// validate rejects configuration errors before any I/O happens.
func (o *Options) validate() error {
	if o.format != "" {
		if _, err := o.openFunc(o.format); err != nil {
			return err
		}
	}
	if _, err := LookupEncoding(o.encoding); err != nil {
		return err
	}
	if o.delimiter == '"' || o.delimiter == '\r' || o.delimiter == '\n' ||
		o.delimiter == utf8.RuneError || !utf8.ValidRune(o.delimiter) {
		return fmt.Errorf("%w: delimiter %q", ErrInvalidOption, o.delimiter)
	}
	if o.storage == nil && o.tempDir == "" {
		return fmt.Errorf("%w: empty temp directory", ErrInvalidOption)
	}
	return nil
}

// openFunc consults the per-Importer overrides, then the package lookup
// table. Overrides replace a decoder; they cannot add a format.
func (o *Options) openFunc(f Format) (reader.OpenFunc, error) {
	if !f.Valid() {
		return nil, &FormatError{Format: f}
	}
	if open, ok := o.decoders[f]; ok && open != nil {
		return open, nil
	}
	return reader.Lookup(f)
}

func (o *Options) readerOptions(name string) reader.Options {
	enc, _ := LookupEncoding(o.encoding)
	return reader.Options{
		Name:      name,
		Delimiter: o.delimiter,
		Encoding:  enc,
	}
}

// LookupEncoding resolves a charset name; nil means UTF-8.
func LookupEncoding(name string) (encoding.Encoding, error) {
	enc, ok := encodings[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: unknown encoding %q", ErrInvalidOption, name)
	}
	return enc, nil
}
