package reader

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/ukaji3/lazysheet-go/pkg/lazysheet/models"
	"github.com/xuri/excelize/v2"
)

// xlsxDecoder walks worksheet parts token by token, so only the current row
// is held in memory. A cell's type comes from its t attribute and, for
// numbers, from whether its style's number format renders a date. Only one
// worksheet part is open at a time.
type xlsxDecoder struct {
	zr      *zip.ReadCloser
	path    string
	wb      *xlsxWorkbook
	sst     []string
	sstRead bool
	pos     int
	rows    *xlsxRows
	started bool
	closed  bool
}

// OpenXLSX opens an Office Open XML workbook.
func OpenXLSX(path string, _ Options) (Decoder, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, &IOError{Op: "open", Path: path, Err: err}
	}
	wb, err := readXLSXWorkbook(&zr.Reader)
	if err != nil {
		zr.Close()
		return nil, &IOError{Op: "open", Path: path, Err: err}
	}
	return &xlsxDecoder{zr: zr, path: path, wb: wb, pos: -1}, nil
}

func (d *xlsxDecoder) Sheets() (Stream[SheetHandle], error) {
	if d.closed {
		return nil, stateError("workbook %s is closed", d.path)
	}
	if d.started {
		return nil, stateError("sheets of %s already enumerated", d.path)
	}
	d.started = true
	return &xlsxSheets{d: d}, nil
}

func (d *xlsxDecoder) Close() error {
	if d.closed {
		return stateError("workbook %s is closed", d.path)
	}
	d.closed = true
	rowsErr := d.closeRows()
	if err := d.zr.Close(); err != nil {
		return &IOError{Op: "close", Path: d.path, Err: err}
	}
	return rowsErr
}

func (d *xlsxDecoder) closeRows() error {
	if d.rows == nil {
		return nil
	}
	rows := d.rows
	d.rows = nil
	if rows.rc == nil {
		return nil
	}
	if err := rows.rc.Close(); err != nil {
		return &IOError{Op: "close", Path: d.path, Err: err}
	}
	return nil
}

// sharedStrings loads the shared string table on the first string cell.
func (d *xlsxDecoder) sharedStrings() ([]string, error) {
	if !d.sstRead {
		sst, err := readSharedStrings(&d.zr.Reader, d.wb.sharedStrings)
		if err != nil {
			return nil, err
		}
		d.sst, d.sstRead = sst, true
	}
	return d.sst, nil
}

func (d *xlsxDecoder) isDateStyle(s string) bool {
	i, err := strconv.Atoi(s)
	return err == nil && i >= 0 && i < len(d.wb.dateStyles) && d.wb.dateStyles[i]
}

// cellValue types one cell from its t attribute, style and raw contents.
func (d *xlsxDecoder) cellValue(typ, style, raw, inline string) (any, error) {
	switch typ {
	case "s":
		if raw == "" {
			return nil, nil
		}
		i, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("shared string index %q: %w", raw, err)
		}
		sst, err := d.sharedStrings()
		if err != nil {
			return nil, err
		}
		if i < 0 || i >= len(sst) {
			return nil, fmt.Errorf("shared string index %d out of range", i)
		}
		return textValue(sst[i]), nil
	case "inlineStr":
		return textValue(inline), nil
	case "str", "e":
		return textValue(raw), nil
	case "b":
		if raw == "" {
			return nil, nil
		}
		return raw == "1" || strings.EqualFold(raw, "true"), nil
	case "d":
		for _, layout := range odsDateLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return t, nil
			}
		}
		return textValue(raw), nil
	}

	if raw == "" {
		return nil, nil
	}
	if d.isDateStyle(style) {
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			if t, err := excelize.ExcelDateToTime(f, d.wb.date1904); err == nil {
				return t, nil
			}
		}
	}
	return parseValue(raw), nil
}

func textValue(s string) any {
	if s == "" {
		return nil
	}
	return s
}

type xlsxSheets struct {
	d   *xlsxDecoder
	cur *xlsxSheet
	err error
}

func (s *xlsxSheets) Next() bool {
	d := s.d
	if d.closed {
		s.err = stateError("workbook %s is closed", d.path)
		return false
	}
	if err := d.closeRows(); err != nil {
		s.err = err
		return false
	}
	if d.pos+1 >= len(d.wb.sheets) {
		s.cur = nil
		return false
	}
	d.pos++
	ref := d.wb.sheets[d.pos]
	s.cur = &xlsxSheet{d: d, index: d.pos, name: ref.name, part: ref.part}
	return true
}

func (s *xlsxSheets) Current() SheetHandle {
	if s.cur == nil {
		return nil
	}
	return s.cur
}

func (s *xlsxSheets) Err() error {
	return s.err
}

type xlsxSheet struct {
	d      *xlsxDecoder
	index  int
	name   string
	part   string
	opened bool
}

func (s *xlsxSheet) Index() int   { return s.index }
func (s *xlsxSheet) Name() string { return s.name }

func (s *xlsxSheet) Rows() (Stream[models.Row], error) {
	d := s.d
	if d.closed {
		return nil, stateError("workbook %s is closed", d.path)
	}
	if d.pos != s.index {
		return nil, stateError("sheet %q is no longer current", s.name)
	}
	if s.opened {
		return nil, stateError("rows of sheet %q already opened", s.name)
	}
	s.opened = true

	r := &xlsxRows{d: d, sheet: s}
	if s.part == "" {
		// chart sheets have no cells
		r.ended = true
	} else {
		rc, err := openPart(&d.zr.Reader, s.part)
		if err != nil {
			return nil, &IOError{Op: "read", Path: d.path, Err: err}
		}
		if rc == nil {
			return nil, &IOError{Op: "read", Path: d.path, Err: fmt.Errorf("worksheet %s not found", s.part)}
		}
		r.rc = rc
		r.dec = xml.NewDecoder(rc)
	}
	d.rows = r
	return r, nil
}

// xlsxRows streams one worksheet's sheetData. Missing and empty rows are
// counted, not expanded, and dropped when no data row follows them.
type xlsxRows struct {
	d     *xlsxDecoder
	sheet *xlsxSheet
	rc    io.ReadCloser
	dec   *xml.Decoder
	cur   models.Row
	err   error
	done  bool
	ended bool

	lastRow      int
	pendingEmpty int
	queued       models.Row
}

func (r *xlsxRows) Next() bool {
	if r.done {
		return false
	}
	if r.d.closed || r.d.rows != r {
		return r.fail(stateError("sheet %q is no longer current", r.sheet.name))
	}
	for {
		if r.queued != nil {
			if r.pendingEmpty > 0 {
				r.pendingEmpty--
				r.cur = models.Row{}
				return true
			}
			r.cur, r.queued = r.queued, nil
			return true
		}
		if r.ended {
			r.done = true
			r.cur = nil
			return false
		}
		if err := r.advance(); err != nil {
			return r.fail(&IOError{Op: "read", Path: r.d.path, Err: err})
		}
	}
}

// advance reads up to and including the next row element.
func (r *xlsxRows) advance() error {
	for {
		tok, err := r.dec.Token()
		if errors.Is(err, io.EOF) {
			r.ended = true
			return nil
		}
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "row" {
				continue
			}
			num := r.lastRow + 1
			if v := attrLocal(t, "r"); v != "" {
				if num, err = strconv.Atoi(v); err != nil || num <= r.lastRow {
					return fmt.Errorf("invalid row number %q after row %d", v, r.lastRow)
				}
			}
			if num > excelize.TotalRows {
				return excelize.ErrMaxRows
			}
			row, err := r.readRow(num)
			if err != nil {
				return err
			}
			r.pendingEmpty += num - r.lastRow - 1
			r.lastRow = num
			if len(row) == 0 {
				r.pendingEmpty++
				continue
			}
			r.queued = row
			return nil
		case xml.EndElement:
			if t.Name.Local == "sheetData" {
				r.ended = true
				return nil
			}
		}
	}
}

func (r *xlsxRows) readRow(num int) (models.Row, error) {
	var row models.Row
	col := 0
	for {
		tok, err := r.dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "c" {
				if err := r.dec.Skip(); err != nil {
					return nil, err
				}
				continue
			}
			next := col + 1
			if ref := attrLocal(t, "r"); ref != "" {
				if next, _, err = excelize.CellNameToCoordinates(ref); err != nil {
					return nil, err
				}
			}
			if next <= col || next > excelize.MaxColumns {
				return nil, fmt.Errorf("invalid cell position %d in row %d", next, num)
			}
			col = next

			v, err := r.readCell(t)
			if err != nil {
				return nil, err
			}
			if v == nil {
				continue
			}
			for len(row) < col-1 {
				row = append(row, nil)
			}
			row = append(row, v)
		case xml.EndElement:
			return row, nil
		}
	}
}

func (r *xlsxRows) readCell(start xml.StartElement) (any, error) {
	var raw, inline string
	for {
		tok, err := r.dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "v":
				if raw, err = readElementText(r.dec); err != nil {
					return nil, err
				}
			case "is":
				if inline, err = readRichText(r.dec); err != nil {
					return nil, err
				}
			default:
				if err := r.dec.Skip(); err != nil {
					return nil, err
				}
			}
		case xml.EndElement:
			return r.d.cellValue(attrLocal(start, "t"), attrLocal(start, "s"), raw, inline)
		}
	}
}

// readElementText returns the character data up to the current element's end.
func readElementText(dec *xml.Decoder) (string, error) {
	var b strings.Builder
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.CharData:
			b.Write(t)
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return b.String(), nil
}

func (r *xlsxRows) fail(err error) bool {
	r.done = true
	r.cur = nil
	r.err = err
	return false
}

func (r *xlsxRows) Current() models.Row {
	return r.cur
}

func (r *xlsxRows) Err() error {
	return r.err
}
