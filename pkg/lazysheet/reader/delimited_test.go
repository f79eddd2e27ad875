package reader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukaji3/lazysheet-go/pkg/lazysheet/models"
	"golang.org/x/text/encoding/charmap"
)

func TestCSVSingleSheet(t *testing.T) {
	path := writeFile(t, t.TempDir(), "upload-1234.csv", []byte("a,b,c\n1,2\nx\n"))
	d, err := OpenCSV(path, Options{Name: "report.csv"})
	require.NoError(t, err)
	defer d.Close()

	sheets, err := d.Sheets()
	require.NoError(t, err)
	require.True(t, sheets.Next())
	sh := sheets.Current()
	assert.Equal(t, 0, sh.Index())
	assert.Equal(t, "report", sh.Name())

	rows, err := sh.Rows()
	require.NoError(t, err)
	var got []models.Row
	for rows.Next() {
		got = append(got, rows.Current())
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []models.Row{{"a", "b", "c"}, {"1", "2"}, {"x"}}, got)

	assert.False(t, sheets.Next())
	assert.NoError(t, sheets.Err())
}

func TestCSVNameDefaultsToPath(t *testing.T) {
	path := writeFile(t, t.TempDir(), "orders.csv", []byte("a\n"))
	d, err := OpenCSV(path, Options{})
	require.NoError(t, err)
	defer d.Close()

	assert.Contains(t, drain(t, d), "orders")
}

func TestCSVStripsBOM(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bom.csv", []byte("\xEF\xBB\xBFh1,h2\nv1,v2\n"))
	d, err := OpenCSV(path, Options{})
	require.NoError(t, err)
	defer d.Close()

	assert.Equal(t, []models.Row{{"h1", "h2"}, {"v1", "v2"}}, drain(t, d)["bom"])
}

func TestCSVQuotedFields(t *testing.T) {
	path := writeFile(t, t.TempDir(), "q.csv", []byte("\"line one\nline two\",\"say \"\"hi\"\"\"\n"))
	d, err := OpenCSV(path, Options{})
	require.NoError(t, err)
	defer d.Close()

	assert.Equal(t, []models.Row{{"line one\nline two", `say "hi"`}}, drain(t, d)["q"])
}

func TestCSVCustomDelimiterAndEncoding(t *testing.T) {
	path := writeFile(t, t.TempDir(), "latin.csv", []byte("caf\xe9;ol\xe9\n"))
	d, err := OpenCSV(path, Options{Delimiter: ';', Encoding: charmap.ISO8859_1})
	require.NoError(t, err)
	defer d.Close()

	assert.Equal(t, []models.Row{{"café", "olé"}}, drain(t, d)["latin"])
}

func TestTSVIgnoresDelimiterOption(t *testing.T) {
	path := writeFile(t, t.TempDir(), "data.tsv", []byte("a\tb,c\n1\t2\n"))
	d, err := OpenTSV(path, Options{Delimiter: ','})
	require.NoError(t, err)
	defer d.Close()

	assert.Equal(t, []models.Row{{"a", "b,c"}, {"1", "2"}}, drain(t, d)["data"])
}

func TestDelimitedSheetPassed(t *testing.T) {
	path := writeFile(t, t.TempDir(), "a.csv", []byte("1\n2\n"))
	d, err := OpenCSV(path, Options{})
	require.NoError(t, err)
	defer d.Close()

	sheets, err := d.Sheets()
	require.NoError(t, err)
	require.True(t, sheets.Next())
	sh := sheets.Current()
	rows, err := sh.Rows()
	require.NoError(t, err)
	require.True(t, rows.Next())

	require.False(t, sheets.Next())
	assert.False(t, rows.Next())
	assert.ErrorIs(t, rows.Err(), ErrDecoderState)
	_, err = sh.Rows()
	assert.ErrorIs(t, err, ErrDecoderState)
}

func TestDelimitedClose(t *testing.T) {
	path := writeFile(t, t.TempDir(), "a.csv", []byte("1\n"))
	d, err := OpenCSV(path, Options{})
	require.NoError(t, err)

	require.NoError(t, d.Close())
	assert.ErrorIs(t, d.Close(), ErrDecoderState)
	_, err = d.Sheets()
	assert.ErrorIs(t, err, ErrDecoderState)
}

func TestOpenCSVMissingFile(t *testing.T) {
	_, err := OpenCSV(t.TempDir()+"/missing.csv", Options{})
	assert.ErrorIs(t, err, ErrIO)
}
