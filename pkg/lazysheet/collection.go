package lazysheet

import (
	"fmt"

	"github.com/ukaji3/lazysheet-go/pkg/lazysheet/models"
	"github.com/ukaji3/lazysheet-go/pkg/lazysheet/reader"
)

// SheetCollection is the single-pass sheet sequence of one session. It
// cannot be rewound; call Importer.Sheets again for a fresh pass.
//
// Reaching the end releases the session. Stopping early (First, Index
// finding a match, an Each callback returning false) leaves it open until
// Release.
type SheetCollection struct {
	session *session
	sheets  reader.Stream[reader.SheetHandle]
	current *SheetStream
	err     error
	done    bool
}

func newSheetCollection(s *session, sheets reader.Stream[reader.SheetHandle]) *SheetCollection {
	return &SheetCollection{session: s, sheets: sheets}
}

// Next advances to the next sheet. The previous sheet is abandoned: it stops
// being the working sheet and its rows can no longer be pulled.
func (c *SheetCollection) Next() bool {
	if c.done {
		return false
	}
	if c.current != nil {
		c.current.abandon()
		c.current = nil
	}
	if c.session.released {
		c.done = true
		c.err = fmt.Errorf("%w: session already released", ErrDecoderState)
		return false
	}
	if !c.sheets.Next() {
		c.done = true
		if err := c.sheets.Err(); err != nil {
			c.err = err
			return false
		}
		c.err = c.session.release()
		return false
	}
	c.current = newSheetStream(c.session, c.sheets.Current())
	return true
}

// Sheet returns the sheet Next advanced to, NullSheet before the first Next
// or after the end.
func (c *SheetCollection) Sheet() Sheet {
	if c.current == nil {
		return NullSheet{}
	}
	return c.current
}

// Err reports the error that ended iteration, including a failed release.
func (c *SheetCollection) Err() error {
	return c.err
}

// Release closes the decoder and removes the temp copy. It is idempotent.
func (c *SheetCollection) Release() error {
	return c.session.release()
}

// Each calls fn for the remaining sheets in order until fn returns false.
// Sheets after the one that stopped iteration are never realised.
func (c *SheetCollection) Each(fn func(Sheet) bool) error {
	for c.Next() {
		if !fn(c.current) {
			return nil
		}
	}
	return c.Err()
}

// Index scans forward for the first sheet matching key. A miss drains the
// collection and returns NullSheet.
func (c *SheetCollection) Index(key SheetKey) (Sheet, bool, error) {
	for c.Next() {
		if key.matches(c.current) {
			return c.current, true, nil
		}
	}
	return NullSheet{}, false, c.Err()
}

// First returns the next sheet, or NullSheet when there is none. It does not
// drain the collection, so the session stays open until Release.
func (c *SheetCollection) First() (Sheet, error) {
	if c.Next() {
		return c.current, nil
	}
	return NullSheet{}, c.Err()
}

// Working returns the sheet currently holding the decoder cursor, or NullSheet.
func (c *SheetCollection) Working() Sheet {
	if w := c.session.working; w != nil {
		return w
	}
	return NullSheet{}
}

// ToArray drains every remaining sheet into sheet -> rows -> cells.
func (c *SheetCollection) ToArray() ([][]models.Row, error) {
	out := [][]models.Row{}
	for c.Next() {
		rows, err := c.current.ToArray()
		if err != nil {
			return nil, err
		}
		out = append(out, rows)
	}
	if err := c.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Collect drains every remaining sheet into a queryable list.
func (c *SheetCollection) Collect() (models.SheetList, error) {
	out := models.SheetList{}
	for c.Next() {
		data, err := c.current.Collect()
		if err != nil {
			return nil, err
		}
		out = append(out, data)
	}
	if err := c.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
