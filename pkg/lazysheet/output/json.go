// Package output serialises realised and streamed sheets to JSON.
package output

import (
	"bufio"
	"encoding/json"
	"io"

	"github.com/ukaji3/lazysheet-go/pkg/lazysheet/models"
)

// RowIterator is the pull interface of a row stream.
type RowIterator interface {
	Next() bool
	Row() models.Row
	Err() error
}

// ToJSON serialises a realised workbook.
func ToJSON(wb *models.WorkbookData, pretty bool) ([]byte, error) {
	return marshal(wb, pretty)
}

// SheetToJSON serialises one realised sheet.
func SheetToJSON(sheet *models.SheetData, pretty bool) ([]byte, error) {
	return marshal(sheet, pretty)
}

// WriteRowsJSONL writes one JSON array per row as rows are pulled, so the
// sheet is never held in memory. It returns the number of rows written.
func WriteRowsJSONL(w io.Writer, rows RowIterator) (int, error) {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	n := 0
	for rows.Next() {
		row := rows.Row()
		if row == nil {
			row = models.Row{}
		}
		if err := enc.Encode(row); err != nil {
			return n, err
		}
		n++
	}
	if err := rows.Err(); err != nil {
		bw.Flush()
		return n, err
	}
	return n, bw.Flush()
}

func marshal(v any, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}
