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

// XML namespaces used in OpenDocument content.xml
const (
	nsTable  = "urn:oasis:names:tc:opendocument:xmlns:table:1.0"
	nsOffice = "urn:oasis:names:tc:opendocument:xmlns:office:1.0"
	nsText   = "urn:oasis:names:tc:opendocument:xmlns:text:1.0"
)

var odsDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// odsDecoder walks content.xml token by token, so only the current row is
// held in memory. Repeated empty rows and cells are counted, not expanded,
// and dropped when nothing follows them. Data past the worksheet limits of
// excelize.TotalRows rows or excelize.MaxColumns columns is an error.
type odsDecoder struct {
	zr      *zip.ReadCloser
	content io.ReadCloser
	xml     *xml.Decoder
	path    string

	index   int
	inTable bool
	depth   int
	started bool
	closed  bool

	rowPos       int
	pendingEmpty int
	queued       models.Row
	queuedLeft   int
}

// OpenODS opens an OpenDocument spreadsheet.
func OpenODS(path string, _ Options) (Decoder, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, &IOError{Op: "open", Path: path, Err: err}
	}

	var entry *zip.File
	for _, f := range zr.File {
		if f.Name == "content.xml" {
			entry = f
			break
		}
	}
	if entry == nil {
		zr.Close()
		return nil, &IOError{Op: "open", Path: path, Err: errors.New("content.xml not found")}
	}

	rc, err := entry.Open()
	if err != nil {
		zr.Close()
		return nil, &IOError{Op: "open", Path: path, Err: err}
	}

	return &odsDecoder{
		zr:      zr,
		content: rc,
		xml:     xml.NewDecoder(rc),
		path:    path,
		index:   -1,
	}, nil
}

func (d *odsDecoder) Sheets() (Stream[SheetHandle], error) {
	if d.closed {
		return nil, stateError("spreadsheet %s is closed", d.path)
	}
	if d.started {
		return nil, stateError("sheets of %s already enumerated", d.path)
	}
	d.started = true
	return &odsSheets{d: d}, nil
}

func (d *odsDecoder) Close() error {
	if d.closed {
		return stateError("spreadsheet %s is closed", d.path)
	}
	d.closed = true
	contentErr := d.content.Close()
	if err := d.zr.Close(); err != nil {
		return &IOError{Op: "close", Path: d.path, Err: err}
	}
	if contentErr != nil {
		return &IOError{Op: "close", Path: d.path, Err: contentErr}
	}
	return nil
}

func (d *odsDecoder) token() (xml.Token, error) {
	tok, err := d.xml.Token()
	if err != nil {
		return nil, &IOError{Op: "read", Path: d.path, Err: err}
	}
	return tok, nil
}

// nextTable advances to the next table:table start element.
func (d *odsDecoder) nextTable() (string, bool, error) {
	for {
		tok, err := d.xml.Token()
		if errors.Is(err, io.EOF) {
			return "", false, nil
		}
		if err != nil {
			return "", false, &IOError{Op: "read", Path: d.path, Err: err}
		}
		if se, ok := tok.(xml.StartElement); ok && isElem(se.Name, nsTable, "table") {
			d.inTable = true
			d.depth = 0
			d.rowPos = 0
			d.pendingEmpty = 0
			d.queued = nil
			d.queuedLeft = 0
			return attr(se, nsTable, "name"), true, nil
		}
	}
}

// skipTable consumes the rest of the current table.
func (d *odsDecoder) skipTable() error {
	for d.inTable {
		tok, err := d.token()
		if err != nil {
			return err
		}
		switch tok.(type) {
		case xml.StartElement:
			d.depth++
		case xml.EndElement:
			if d.depth == 0 {
				d.inTable = false
			} else {
				d.depth--
			}
		}
	}
	return nil
}

// nextRow returns the next row of the current table.
func (d *odsDecoder) nextRow() (models.Row, bool, error) {
	for {
		if d.queuedLeft > 0 {
			if d.pendingEmpty > 0 {
				d.pendingEmpty--
				return models.Row{}, true, nil
			}
			d.queuedLeft--
			return d.queued.Clone(), true, nil
		}
		if !d.inTable {
			return nil, false, nil
		}

		tok, err := d.token()
		if err != nil {
			return nil, false, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch {
			case isElem(t.Name, nsTable, "table-row"):
				row, repeat, err := d.readRow(t)
				if err != nil {
					return nil, false, err
				}
				if len(row) == 0 {
					d.pendingEmpty += repeat
				} else {
					if d.rowPos+repeat > excelize.TotalRows {
						return nil, false, &IOError{Op: "read", Path: d.path, Err: excelize.ErrMaxRows}
					}
					d.queued, d.queuedLeft = row, repeat
				}
				d.rowPos += repeat
			case isElem(t.Name, nsTable, "table-row-group"),
				isElem(t.Name, nsTable, "table-header-rows"),
				isElem(t.Name, nsTable, "table-rows"):
				d.depth++
			default:
				if err := d.xml.Skip(); err != nil {
					return nil, false, &IOError{Op: "read", Path: d.path, Err: err}
				}
			}
		case xml.EndElement:
			if d.depth > 0 {
				d.depth--
				continue
			}
			// trailing empty rows are padding, not data
			d.inTable = false
			d.pendingEmpty = 0
		}
	}
}

func (d *odsDecoder) readRow(start xml.StartElement) (models.Row, int, error) {
	repeat := min(attrInt(start, nsTable, "number-rows-repeated", 1), excelize.TotalRows+1)
	var row models.Row
	emptyRun := 0

	for {
		tok, err := d.token()
		if err != nil {
			return nil, 0, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if !isElem(t.Name, nsTable, "table-cell") && !isElem(t.Name, nsTable, "covered-table-cell") {
				if err := d.xml.Skip(); err != nil {
					return nil, 0, &IOError{Op: "read", Path: d.path, Err: err}
				}
				continue
			}
			v, n, err := d.readCell(t)
			if err != nil {
				return nil, 0, err
			}
			if v == nil {
				emptyRun += n
				continue
			}
			if len(row)+emptyRun+n > excelize.MaxColumns {
				return nil, 0, &IOError{Op: "read", Path: d.path,
					Err: fmt.Errorf("row has data past column %d", excelize.MaxColumns)}
			}
			for ; emptyRun > 0; emptyRun-- {
				row = append(row, nil)
			}
			for i := 0; i < n; i++ {
				row = append(row, v)
			}
		case xml.EndElement:
			return row, repeat, nil
		}
	}
}

func (d *odsDecoder) readCell(start xml.StartElement) (any, int, error) {
	n := min(attrInt(start, nsTable, "number-columns-repeated", 1), excelize.MaxColumns+1)

	var text strings.Builder
	paragraphs := 0
	depth := 1
	for depth > 0 {
		tok, err := d.token()
		if err != nil {
			return nil, 0, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch {
			case isElem(t.Name, nsOffice, "annotation"):
				if err := d.xml.Skip(); err != nil {
					return nil, 0, &IOError{Op: "read", Path: d.path, Err: err}
				}
				continue
			case isElem(t.Name, nsText, "p"), isElem(t.Name, nsText, "h"):
				if paragraphs > 0 {
					text.WriteByte('\n')
				}
				paragraphs++
			case isElem(t.Name, nsText, "s"):
				text.WriteString(strings.Repeat(" ", min(attrInt(t, nsText, "c", 1), excelize.TotalCellChars)))
			case isElem(t.Name, nsText, "tab"):
				text.WriteByte('\t')
			case isElem(t.Name, nsText, "line-break"):
				text.WriteByte('\n')
			}
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			if depth >= 2 {
				text.Write(t)
			}
		}
	}

	return odsValue(start, text.String()), n, nil
}

// odsValue picks the typed office:* attribute over the display text.
func odsValue(start xml.StartElement, text string) any {
	switch attr(start, nsOffice, "value-type") {
	case "float", "percentage", "currency":
		switch v := parseValue(attr(start, nsOffice, "value")).(type) {
		case int64, float64:
			return v
		}
	case "boolean":
		if b, err := strconv.ParseBool(attr(start, nsOffice, "boolean-value")); err == nil {
			return b
		}
	case "date":
		raw := attr(start, nsOffice, "date-value")
		for _, layout := range odsDateLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return t
			}
		}
	}
	if text == "" {
		return nil
	}
	return text
}

func isElem(name xml.Name, space, local string) bool {
	return name.Space == space && name.Local == local
}

func attr(se xml.StartElement, space, local string) string {
	for _, a := range se.Attr {
		if a.Name.Space == space && a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

func attrInt(se xml.StartElement, space, local string, def int) int {
	v, err := strconv.Atoi(attr(se, space, local))
	if err != nil || v < 1 {
		return def
	}
	return v
}

type odsSheets struct {
	d   *odsDecoder
	cur *odsSheet
	err error
}

func (s *odsSheets) Next() bool {
	d := s.d
	if d.closed {
		s.err = stateError("spreadsheet %s is closed", d.path)
		return false
	}
	if s.cur != nil {
		s.cur.passed = true
		s.cur = nil
	}
	if d.inTable {
		if err := d.skipTable(); err != nil {
			s.err = err
			return false
		}
	}
	name, ok, err := d.nextTable()
	if err != nil {
		s.err = err
		return false
	}
	if !ok {
		return false
	}
	d.index++
	s.cur = &odsSheet{d: d, index: d.index, name: name}
	return true
}

func (s *odsSheets) Current() SheetHandle {
	if s.cur == nil {
		return nil
	}
	return s.cur
}

func (s *odsSheets) Err() error {
	return s.err
}

type odsSheet struct {
	d      *odsDecoder
	index  int
	name   string
	opened bool
	passed bool
}

func (s *odsSheet) Index() int   { return s.index }
func (s *odsSheet) Name() string { return s.name }

func (s *odsSheet) Rows() (Stream[models.Row], error) {
	if s.d.closed {
		return nil, stateError("spreadsheet %s is closed", s.d.path)
	}
	if s.passed {
		return nil, stateError("sheet %q is no longer current", s.name)
	}
	if s.opened {
		return nil, stateError("rows of sheet %q already opened", s.name)
	}
	s.opened = true
	return &odsRows{sheet: s}, nil
}

type odsRows struct {
	sheet *odsSheet
	cur   models.Row
	err   error
	done  bool
}

func (r *odsRows) Next() bool {
	if r.done {
		return false
	}
	d := r.sheet.d
	if d.closed || r.sheet.passed {
		r.done = true
		r.cur = nil
		r.err = stateError("sheet %q is no longer current", r.sheet.name)
		return false
	}
	row, ok, err := d.nextRow()
	if err != nil || !ok {
		r.done = true
		r.cur = nil
		r.err = err
		return false
	}
	r.cur = row
	return true
}

func (r *odsRows) Current() models.Row {
	return r.cur
}

func (r *odsRows) Err() error {
	return r.err
}
