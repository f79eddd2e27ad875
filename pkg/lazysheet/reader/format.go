package reader

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Format is the closed set of container formats a decoder exists for.
type Format string

const (
	// FormatXLSX is the Office Open XML workbook (.xlsx, .xlsm, .xltx, .xltm).
	FormatXLSX Format = "xlsx"
	// FormatCSV is comma (or custom) delimited text.
	FormatCSV Format = "csv"
	// FormatTSV is tab delimited text.
	FormatTSV Format = "tsv"
	// FormatODS is the OpenDocument spreadsheet.
	FormatODS Format = "ods"
)

// Formats lists every supported format.
var Formats = []Format{FormatXLSX, FormatCSV, FormatTSV, FormatODS}

var extFormats = map[string]Format{
	"xlsx": FormatXLSX,
	"xlsm": FormatXLSX,
	"xltx": FormatXLSX,
	"xltm": FormatXLSX,
	"csv":  FormatCSV,
	"tsv":  FormatTSV,
	"tab":  FormatTSV,
	"ods":  FormatODS,
}

// mimeFormats is checked in order; the more specific container types come first.
var mimeFormats = []struct {
	mime   string
	format Format
}{
	{"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", FormatXLSX},
	{"application/vnd.oasis.opendocument.spreadsheet", FormatODS},
	{"text/csv", FormatCSV},
	{"text/tab-separated-values", FormatTSV},
}

// Valid reports whether f is one of the supported formats.
func (f Format) Valid() bool {
	for _, known := range Formats {
		if f == known {
			return true
		}
	}
	return false
}

func (f Format) String() string {
	return string(f)
}

// ParseFormat accepts a format name or extension, with or without the leading dot.
func ParseFormat(s string) (Format, error) {
	if f, ok := FormatFromExt(s); ok {
		return f, nil
	}
	return "", &FormatError{Format: Format(s)}
}

// FormatFromExt maps a file extension to its format.
func FormatFromExt(ext string) (Format, bool) {
	ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	f, ok := extFormats[ext]
	return f, ok
}

// DetectFormat probes the file content when neither an override nor the
// extension settled the format.
func DetectFormat(path string) (Format, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return "", &IOError{Op: "probe", Path: path, Err: err}
	}
	for _, m := range mimeFormats {
		if mtype.Is(m.mime) {
			return m.format, nil
		}
	}
	return "", &FormatError{Ext: extOf(path), MIME: mtype.String()}
}

func extOf(path string) string {
	i := strings.LastIndexAny(path, `./\`)
	if i < 0 || path[i] != '.' {
		return ""
	}
	return path[i:]
}
