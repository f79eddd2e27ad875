// Package models defines the eager data structures produced when a lazy
// sheet or workbook is realised in memory.
package models

import "fmt"

// Row is an ordered sequence of cell values. Rows may be ragged: width can
// differ from row to row.
//
// A cell is one of nil (empty), string, int64, float64, bool or time.Time.
type Row []any

// Len returns the number of cells in the row.
func (r Row) Len() int {
	return len(r)
}

// Cell returns the value at the zero-based column, or nil past the row end.
func (r Row) Cell(col int) any {
	if col < 0 || col >= len(r) {
		return nil
	}
	return r[col]
}

// IsEmpty reports whether every cell is nil or an empty string.
func (r Row) IsEmpty() bool {
	for _, v := range r {
		switch c := v.(type) {
		case nil:
		case string:
			if c != "" {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// Strings renders every cell with fmt; nil cells become "".
func (r Row) Strings() []string {
	out := make([]string, len(r))
	for i, v := range r {
		if v == nil {
			continue
		}
		out[i] = fmt.Sprint(v)
	}
	return out
}

// Clone returns a copy that does not share the backing array.
func (r Row) Clone() Row {
	if r == nil {
		return nil
	}
	out := make(Row, len(r))
	copy(out, r)
	return out
}
