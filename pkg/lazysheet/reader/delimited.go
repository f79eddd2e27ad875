package reader

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ukaji3/lazysheet-go/pkg/lazysheet/models"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// delimitedDecoder exposes a delimited text file as a workbook with exactly
// one sheet. Cells are returned as strings.
type delimitedDecoder struct {
	file    *os.File
	path    string
	name    string
	comma   rune
	opts    Options
	started bool
	closed  bool
}

// OpenCSV opens comma (or Options.Delimiter) separated text.
func OpenCSV(path string, opts Options) (Decoder, error) {
	comma := opts.Delimiter
	if comma == 0 {
		comma = ','
	}
	return openDelimited(path, comma, opts)
}

// OpenTSV opens tab separated text. Options.Delimiter is ignored.
func OpenTSV(path string, opts Options) (Decoder, error) {
	return openDelimited(path, '\t', opts)
}

func openDelimited(path string, comma rune, opts Options) (Decoder, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &IOError{Op: "open", Path: path, Err: err}
	}
	name := opts.Name
	if name == "" {
		name = filepath.Base(path)
	}
	name = strings.TrimSuffix(name, filepath.Ext(name))
	return &delimitedDecoder{file: file, path: path, name: name, comma: comma, opts: opts}, nil
}

func (d *delimitedDecoder) Sheets() (Stream[SheetHandle], error) {
	if d.closed {
		return nil, stateError("file %s is closed", d.path)
	}
	if d.started {
		return nil, stateError("sheets of %s already enumerated", d.path)
	}
	d.started = true
	return &delimitedSheets{d: d}, nil
}

func (d *delimitedDecoder) Close() error {
	if d.closed {
		return stateError("file %s is closed", d.path)
	}
	d.closed = true
	if err := d.file.Close(); err != nil {
		return &IOError{Op: "close", Path: d.path, Err: err}
	}
	return nil
}

// newReader builds the csv reader: BOM stripping for UTF-8 input, otherwise
// decoding from the configured charset.
func (d *delimitedDecoder) newReader() (*csv.Reader, error) {
	var src io.Reader
	if d.opts.Encoding == nil {
		br := bufio.NewReader(d.file)
		head, err := br.Peek(len(utf8BOM))
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, &IOError{Op: "read", Path: d.path, Err: err}
		}
		if bytes.Equal(head, utf8BOM) {
			if _, err := br.Discard(len(utf8BOM)); err != nil {
				return nil, &IOError{Op: "read", Path: d.path, Err: err}
			}
		}
		src = br
	} else {
		src = transform.NewReader(d.file, d.opts.Encoding.NewDecoder())
	}

	r := csv.NewReader(src)
	r.Comma = d.comma
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r, nil
}

type delimitedSheets struct {
	d       *delimitedDecoder
	cur     *delimitedSheet
	yielded bool
	err     error
}

func (s *delimitedSheets) Next() bool {
	if s.d.closed {
		s.err = stateError("file %s is closed", s.d.path)
		return false
	}
	if s.yielded {
		if s.cur != nil {
			s.cur.passed = true
			s.cur = nil
		}
		return false
	}
	s.yielded = true
	s.cur = &delimitedSheet{d: s.d}
	return true
}

func (s *delimitedSheets) Current() SheetHandle {
	if s.cur == nil {
		return nil
	}
	return s.cur
}

func (s *delimitedSheets) Err() error {
	return s.err
}

type delimitedSheet struct {
	d      *delimitedDecoder
	opened bool
	passed bool
}

func (s *delimitedSheet) Index() int   { return 0 }
func (s *delimitedSheet) Name() string { return s.d.name }

func (s *delimitedSheet) Rows() (Stream[models.Row], error) {
	if s.d.closed {
		return nil, stateError("file %s is closed", s.d.path)
	}
	if s.passed {
		return nil, stateError("sheet %q is no longer current", s.d.name)
	}
	if s.opened {
		return nil, stateError("rows of sheet %q already opened", s.d.name)
	}
	r, err := s.d.newReader()
	if err != nil {
		return nil, err
	}
	s.opened = true
	return &delimitedRows{sheet: s, r: r}, nil
}

type delimitedRows struct {
	sheet *delimitedSheet
	r     *csv.Reader
	cur   models.Row
	err   error
	done  bool
}

func (r *delimitedRows) Next() bool {
	if r.done {
		return false
	}
	d := r.sheet.d
	if d.closed || r.sheet.passed {
		return r.fail(stateError("sheet %q is no longer current", d.name))
	}
	rec, err := r.r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			r.done = true
			r.cur = nil
			return false
		}
		return r.fail(&IOError{Op: "read", Path: d.path, Err: err})
	}
	row := make(models.Row, len(rec))
	for i, v := range rec {
		row[i] = v
	}
	r.cur = row
	return true
}

func (r *delimitedRows) fail(err error) bool {
	r.done = true
	r.cur = nil
	r.err = err
	return false
}

func (r *delimitedRows) Current() models.Row {
	return r.cur
}

func (r *delimitedRows) Err() error {
	return r.err
}
