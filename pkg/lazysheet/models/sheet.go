package models

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// SheetData is one sheet realised in memory.
type SheetData struct {
	// Index is the zero-based position of the sheet in its workbook, -1 for
	// the null sheet.
	Index int `json:"index"`
	// Name is the sheet name. Delimited text files carry the file's base name.
	Name string `json:"name"`
	// Dimension is the used range (e.g. "A1:D10"), empty when the sheet has no data.
	Dimension string `json:"dimension,omitempty"`
	// Rows holds every row in source order.
	Rows RowList `json:"rows"`
}

// RowList is an ordered, queryable list of rows.
type RowList []Row

// Len returns the number of rows.
func (l RowList) Len() int {
	return len(l)
}

// At returns the row at the zero-based position.
func (l RowList) At(i int) (Row, bool) {
	if i < 0 || i >= len(l) {
		return nil, false
	}
	return l[i], true
}

// Filter returns the rows for which keep returns true.
func (l RowList) Filter(keep func(Row) bool) RowList {
	out := RowList{}
	for _, r := range l {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// Column returns the values of one zero-based column, nil where a row is short.
func (l RowList) Column(col int) []any {
	out := make([]any, len(l))
	for i, r := range l {
		out[i] = r.Cell(col)
	}
	return out
}

// Width returns the length of the widest row.
func (l RowList) Width() int {
	w := 0
	for _, r := range l {
		if len(r) > w {
			w = len(r)
		}
	}
	return w
}

// Dimension returns the bounding range of non-empty cells in A1 notation.
func (l RowList) Dimension() string {
	minRow, maxRow, minCol, maxCol := l.bounds()
	if minRow < 0 {
		return ""
	}
	start, err := excelize.CoordinatesToCellName(minCol+1, minRow+1)
	if err != nil {
		return ""
	}
	end, err := excelize.CoordinatesToCellName(maxCol+1, maxRow+1)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%s:%s", start, end)
}

// bounds finds the bounding box of non-empty cells, all -1 when there are none.
func (l RowList) bounds() (minRow, maxRow, minCol, maxCol int) {
	minRow, maxRow = -1, -1
	minCol, maxCol = -1, -1

	for rowIdx, row := range l {
		for colIdx, cell := range row {
			if cell == nil || cell == "" {
				continue
			}
			if minRow < 0 {
				minRow = rowIdx
			}
			maxRow = rowIdx
			if minCol < 0 || colIdx < minCol {
				minCol = colIdx
			}
			if colIdx > maxCol {
				maxCol = colIdx
			}
		}
	}

	return
}

// MapRows applies fn to every row in order.
func MapRows[T any](l RowList, fn func(Row) T) []T {
	out := make([]T, len(l))
	for i, r := range l {
		out[i] = fn(r)
	}
	return out
}
