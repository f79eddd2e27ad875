package lazysheet

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ukaji3/lazysheet-go/pkg/lazysheet/models"
	"github.com/ukaji3/lazysheet-go/pkg/lazysheet/reader"
	"github.com/xuri/excelize/v2"
)

type stubSheet struct {
	name string
	rows []models.Row
}

// stubBook is a decoder factory that counts every open, close, sheet
// advance and row pull.
type stubBook struct {
	sheets    []stubSheet
	sheetsErr error
	closeErr  error

	opens    int
	closes   int
	advances int
	pulls    int
	paths    []string
	names    []string
}

func (b *stubBook) open(path string, opts reader.Options) (reader.Decoder, error) {
	b.opens++
	b.paths = append(b.paths, path)
	b.names = append(b.names, opts.Name)
	return &stubDecoder{book: b, pos: -1}, nil
}

type stubDecoder struct {
	book   *stubBook
	pos    int
	closed bool
}

func (d *stubDecoder) Sheets() (reader.Stream[reader.SheetHandle], error) {
	if d.book.sheetsErr != nil {
		return nil, d.book.sheetsErr
	}
	return &stubSheets{d: d}, nil
}

func (d *stubDecoder) Close() error {
	if d.closed {
		return errors.New("stub decoder closed twice")
	}
	d.closed = true
	d.book.closes++
	return d.book.closeErr
}

type stubSheets struct {
	d   *stubDecoder
	cur reader.SheetHandle
}

func (s *stubSheets) Next() bool {
	if s.d.pos+1 >= len(s.d.book.sheets) {
		s.cur = nil
		return false
	}
	s.d.pos++
	s.d.book.advances++
	s.cur = &stubHandle{d: s.d, index: s.d.pos}
	return true
}

func (s *stubSheets) Current() reader.SheetHandle { return s.cur }
func (s *stubSheets) Err() error                  { return nil }

type stubHandle struct {
	d     *stubDecoder
	index int
}

func (h *stubHandle) Index() int   { return h.index }
func (h *stubHandle) Name() string { return h.d.book.sheets[h.index].name }

func (h *stubHandle) Rows() (reader.Stream[models.Row], error) {
	return &stubRows{h: h, pos: -1}, nil
}

type stubRows struct {
	h   *stubHandle
	pos int
}

func (r *stubRows) Next() bool {
	rows := r.h.d.book.sheets[r.h.index].rows
	if r.pos+1 >= len(rows) {
		return false
	}
	r.pos++
	r.h.d.book.pulls++
	return true
}

func (r *stubRows) Current() models.Row {
	return r.h.d.book.sheets[r.h.index].rows[r.pos]
}

func (r *stubRows) Err() error { return nil }

// totalsBook has three sheets with "Totals" at position 1.
func totalsBook() *stubBook {
	return &stubBook{sheets: []stubSheet{
		{name: "Summary", rows: []models.Row{{"a", int64(1)}, {"b", int64(2)}}},
		{name: "Totals", rows: []models.Row{{"total", int64(3)}}},
		{name: "Notes", rows: []models.Row{{"x"}, {}, {"y"}}},
	}}
}

// stubImporter binds book to a placeholder .xlsx file on disk.
func stubImporter(t *testing.T, book *stubBook, opts ...Option) *Importer {
	t.Helper()
	path := filepath.Join(t.TempDir(), "book.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("placeholder"), 0o600))

	opts = append([]Option{WithDecoder(FormatXLSX, book.open), WithLogger(discardLogger())}, opts...)
	imp, err := New(FromPath(path), opts...)
	require.NoError(t, err)
	return imp
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// writeWorkbook saves an xlsx with the named sheets, one row per sheet.
func writeWorkbook(t *testing.T, names ...string) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, name := range names {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", name))
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		require.NoError(t, f.SetCellValue(name, "A1", name))
		require.NoError(t, f.SetCellValue(name, "B1", i))
	}
	path := filepath.Join(t.TempDir(), "book.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}
