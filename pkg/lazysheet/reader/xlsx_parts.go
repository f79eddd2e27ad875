package reader

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
)

// Workbook relationship types, matched by suffix so strict OOXML works too.
const (
	relOfficeDocument = "/officeDocument"
	relWorksheet      = "/worksheet"
	relSharedStrings  = "/sharedStrings"
	relStyles         = "/styles"
)

type xlsxSheetRef struct {
	name string
	part string // empty for chart sheets and dangling references
}

// xlsxWorkbook is everything read up front: sheet order and parts, styles
// that render as dates, and the date system.
type xlsxWorkbook struct {
	sheets        []xlsxSheetRef
	sharedStrings string
	dateStyles    []bool
	date1904      bool
}

type xlsxRel struct {
	typ    string
	target string
}

func findZipFile(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// openPart opens a zip entry for token streaming. A missing entry returns nil, nil.
func openPart(zr *zip.Reader, name string) (io.ReadCloser, error) {
	f := findZipFile(zr, name)
	if f == nil {
		return nil, nil
	}
	return f.Open()
}

// resolveTarget turns a relationship target into a zip entry name.
func resolveTarget(base, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Join(path.Dir(base), target)
}

// relsPath names the relationships part of part; "" is the package itself.
func relsPath(part string) string {
	if part == "" {
		return "_rels/.rels"
	}
	return path.Join(path.Dir(part), "_rels", path.Base(part)+".rels")
}

// readRels maps relationship ids of part to their type and resolved target.
func readRels(zr *zip.Reader, part string) (map[string]xlsxRel, error) {
	rc, err := openPart(zr, relsPath(part))
	if err != nil || rc == nil {
		return map[string]xlsxRel{}, err
	}
	defer rc.Close()

	rels := make(map[string]xlsxRel)
	dec := xml.NewDecoder(rc)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return rels, nil
		}
		if err != nil {
			return nil, err
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "Relationship" {
			continue
		}
		var id string
		var rel xlsxRel
		for _, a := range se.Attr {
			switch a.Name.Local {
			case "Id":
				id = a.Value
			case "Type":
				rel.typ = a.Value
			case "Target":
				rel.target = a.Value
			}
		}
		if attrLocal(se, "TargetMode") == "External" {
			continue
		}
		rel.target = resolveTarget(part, rel.target)
		rels[id] = rel
	}
}

// workbookPart finds the main workbook part through the package relationships.
func workbookPart(zr *zip.Reader) (string, error) {
	rels, err := readRels(zr, "")
	if err != nil {
		return "", err
	}
	for _, rel := range rels {
		if strings.HasSuffix(rel.typ, relOfficeDocument) {
			return rel.target, nil
		}
	}
	return "xl/workbook.xml", nil
}

func readXLSXWorkbook(zr *zip.Reader) (*xlsxWorkbook, error) {
	wbPart, err := workbookPart(zr)
	if err != nil {
		return nil, err
	}
	rc, err := openPart(zr, wbPart)
	if err != nil {
		return nil, err
	}
	if rc == nil {
		return nil, fmt.Errorf("%s not found", wbPart)
	}
	defer rc.Close()

	rels, err := readRels(zr, wbPart)
	if err != nil {
		return nil, err
	}

	wb := &xlsxWorkbook{sharedStrings: "xl/sharedStrings.xml"}
	stylesPart := "xl/styles.xml"
	for _, rel := range rels {
		switch {
		case strings.HasSuffix(rel.typ, relSharedStrings):
			wb.sharedStrings = rel.target
		case strings.HasSuffix(rel.typ, relStyles):
			stylesPart = rel.target
		}
	}

	dec := xml.NewDecoder(rc)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch se.Name.Local {
		case "workbookPr":
			v := attrLocal(se, "date1904")
			wb.date1904 = v == "1" || v == "true"
		case "sheet":
			ref := xlsxSheetRef{name: attrLocal(se, "name")}
			if rel, ok := rels[attrLocal(se, "id")]; ok && strings.HasSuffix(rel.typ, relWorksheet) {
				ref.part = rel.target
			}
			wb.sheets = append(wb.sheets, ref)
		}
	}

	if wb.dateStyles, err = readDateStyles(zr, stylesPart); err != nil {
		return nil, err
	}
	return wb, nil
}

// readDateStyles reports, per cellXfs entry, whether the number format renders a date or time.
func readDateStyles(zr *zip.Reader, part string) ([]bool, error) {
	rc, err := openPart(zr, part)
	if err != nil || rc == nil {
		return nil, err
	}
	defer rc.Close()

	custom := make(map[int]string)
	var xfs []int
	inCellXfs := false

	dec := xml.NewDecoder(rc)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "numFmt":
				if id, err := strconv.Atoi(attrLocal(t, "numFmtId")); err == nil {
					custom[id] = attrLocal(t, "formatCode")
				}
			case "cellXfs":
				inCellXfs = true
			case "xf":
				if inCellXfs {
					id, _ := strconv.Atoi(attrLocal(t, "numFmtId"))
					xfs = append(xfs, id)
				}
			}
		case xml.EndElement:
			if t.Name.Local == "cellXfs" {
				inCellXfs = false
			}
		}
	}

	out := make([]bool, len(xfs))
	for i, id := range xfs {
		if code, ok := custom[id]; ok {
			out[i] = isDateFormatCode(code)
		} else {
			out[i] = isBuiltInDateFormat(id)
		}
	}
	return out, nil
}

// isBuiltInDateFormat covers the implicit date and time formats, including
// the locale specific ranges.
func isBuiltInDateFormat(id int) bool {
	switch {
	case 14 <= id && id <= 22,
		27 <= id && id <= 36,
		45 <= id && id <= 47,
		50 <= id && id <= 58,
		71 <= id && id <= 81:
		return true
	}
	return false
}

// isDateFormatCode looks for date or time tokens outside literals, escapes
// and bracketed sections. Elapsed time ([h], [mm], [ss]) counts as time.
func isDateFormatCode(code string) bool {
	code = strings.ToLower(code)
	if code == "general" {
		return false
	}
	for i := 0; i < len(code); i++ {
		switch c := code[i]; c {
		case '"':
			if j := strings.IndexByte(code[i+1:], '"'); j >= 0 {
				i += j + 1
			} else {
				return false
			}
		case '\\', '_', '*':
			i++
		case '[':
			j := strings.IndexByte(code[i:], ']')
			if j < 0 {
				return false
			}
			inner := code[i+1 : i+j]
			if inner != "" && strings.Trim(inner, "hms") == "" {
				return true
			}
			i += j
		case 'y', 'd', 'h', 's', 'm':
			return true
		}
	}
	return false
}

// readSharedStrings loads the shared string table. Worksheets index into it
// in any order, so it is held whole.
func readSharedStrings(zr *zip.Reader, part string) ([]string, error) {
	rc, err := openPart(zr, part)
	if err != nil || rc == nil {
		return nil, err
	}
	defer rc.Close()

	var out []string
	dec := xml.NewDecoder(rc)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		if se, ok := tok.(xml.StartElement); ok && se.Name.Local == "si" {
			s, err := readRichText(dec)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
	}
}

// readRichText collects the <t> runs of a string item up to its end element,
// skipping phonetic runs.
func readRichText(dec *xml.Decoder) (string, error) {
	var b strings.Builder
	depth := 1
	inText := 0
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "rPh" {
				if err := dec.Skip(); err != nil {
					return "", err
				}
				continue
			}
			if t.Name.Local == "t" {
				inText++
			}
			depth++
		case xml.EndElement:
			if t.Name.Local == "t" && inText > 0 {
				inText--
			}
			depth--
		case xml.CharData:
			if inText > 0 {
				b.Write(t)
			}
		}
	}
	return b.String(), nil
}

func attrLocal(se xml.StartElement, local string) string {
	for _, a := range se.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}
