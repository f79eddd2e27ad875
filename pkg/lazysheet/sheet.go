package lazysheet

import (
	"fmt"
	"strconv"

	"github.com/ukaji3/lazysheet-go/pkg/lazysheet/models"
	"github.com/ukaji3/lazysheet-go/pkg/lazysheet/reader"
)

// Sheet is the read contract shared by real sheets and NullSheet.
type Sheet interface {
	// Index is the zero-based position in the workbook, -1 for NullSheet.
	Index() int
	Name() string
	// Rows returns the sheet's single-pass row stream. Repeated calls return
	// the same stream.
	Rows() *RowStream
	// IsWorking reports whether this sheet's rows are being drained on the
	// decoder cursor right now.
	IsWorking() bool
	Each(fn func(models.Row) bool) error
	ToArray() ([]models.Row, error)
	Collect() (models.SheetData, error)
}

// SheetStream wraps one sheet handle of a live session.
type SheetStream struct {
	session   *session
	handle    reader.SheetHandle
	rows      *RowStream
	working   bool
	abandoned bool
}

func newSheetStream(s *session, h reader.SheetHandle) *SheetStream {
	return &SheetStream{session: s, handle: h}
}

func (s *SheetStream) Index() int   { return s.handle.Index() }
func (s *SheetStream) Name() string { return s.handle.Name() }

func (s *SheetStream) IsWorking() bool {
	return s.working
}

func (s *SheetStream) Rows() *RowStream {
	if s.rows == nil {
		s.rows = &RowStream{sheet: s}
	}
	return s.rows
}

// Each calls fn for the remaining rows until fn returns false.
func (s *SheetStream) Each(fn func(models.Row) bool) error {
	rows := s.Rows()
	for rows.Next() {
		if !fn(rows.Row()) {
			return nil
		}
	}
	return rows.Err()
}

// ToArray drains the remaining rows of this sheet only.
func (s *SheetStream) ToArray() ([]models.Row, error) {
	out := []models.Row{}
	err := s.Each(func(r models.Row) bool {
		out = append(out, r)
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Collect drains the remaining rows into SheetData.
func (s *SheetStream) Collect() (models.SheetData, error) {
	rows, err := s.ToArray()
	if err != nil {
		return models.SheetData{}, err
	}
	list := models.RowList(rows)
	return models.SheetData{
		Index:     s.Index(),
		Name:      s.Name(),
		Dimension: list.Dimension(),
		Rows:      list,
	}, nil
}

func (s *SheetStream) abandon() {
	s.abandoned = true
	s.session.deactivate(s)
}

// RowStream is a forward-only row sequence tied to the decoder cursor.
// Earlier rows cannot be revisited.
type RowStream struct {
	sheet *SheetStream
	src   reader.Stream[models.Row]
	cur   models.Row
	err   error
	done  bool
	count int
}

// Next pulls the next row from the decoder. The first pull makes the sheet
// the working sheet; the end of the sheet clears it.
func (r *RowStream) Next() bool {
	if r.done || r.sheet == nil {
		return false
	}
	s := r.sheet
	if s.abandoned || s.session.released {
		return r.finish(fmt.Errorf("%w: sheet %q is no longer active", ErrDecoderState, s.Name()))
	}
	if r.src == nil {
		src, err := s.handle.Rows()
		if err != nil {
			return r.finish(err)
		}
		r.src = src
	}

	s.session.activate(s)
	for r.src.Next() {
		row := r.src.Current()
		if s.session.skipEmpty && row.IsEmpty() {
			continue
		}
		r.cur = row
		r.count++
		return true
	}
	return r.finish(r.src.Err())
}

func (r *RowStream) finish(err error) bool {
	r.done = true
	r.cur = nil
	r.err = err
	if r.sheet != nil {
		r.sheet.session.deactivate(r.sheet)
	}
	return false
}

// Row returns the row Next advanced to.
func (r *RowStream) Row() models.Row {
	return r.cur
}

// Err reports why the stream ended, nil at a clean end.
func (r *RowStream) Err() error {
	return r.err
}

// Count returns the number of rows pulled so far.
func (r *RowStream) Count() int {
	return r.count
}

// NullSheet stands in for a sheet that does not exist: no rows, never
// working, empty realisations.
type NullSheet struct{}

func (NullSheet) Index() int       { return -1 }
func (NullSheet) Name() string     { return "" }
func (NullSheet) Rows() *RowStream { return &RowStream{done: true} }
func (NullSheet) IsWorking() bool  { return false }

func (NullSheet) Each(func(models.Row) bool) error {
	return nil
}

func (NullSheet) ToArray() ([]models.Row, error) {
	return []models.Row{}, nil
}

func (NullSheet) Collect() (models.SheetData, error) {
	return models.SheetData{Index: -1, Rows: models.RowList{}}, nil
}

// SheetKey selects a sheet by zero-based position or by name.
type SheetKey struct {
	index  int
	name   string
	byName bool
}

// ByIndex selects the sheet at zero-based position i.
func ByIndex(i int) SheetKey {
	return SheetKey{index: i}
}

// ByName selects the first sheet named name.
func ByName(name string) SheetKey {
	return SheetKey{name: name, byName: true}
}

// ParseSheetKey treats an unsigned integer as a position and anything else as a name.
func ParseSheetKey(s string) SheetKey {
	if i, err := strconv.ParseUint(s, 10, 31); err == nil {
		return ByIndex(int(i))
	}
	return ByName(s)
}

func (k SheetKey) matches(sh Sheet) bool {
	if k.byName {
		return sh.Name() == k.name
	}
	return sh.Index() == k.index
}

func (k SheetKey) String() string {
	if k.byName {
		return strconv.Quote(k.name)
	}
	return strconv.Itoa(k.index)
}
