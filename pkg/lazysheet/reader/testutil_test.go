package reader

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ukaji3/lazysheet-go/pkg/lazysheet/models"
	"github.com/xuri/excelize/v2"
)

type fixtureSheet struct {
	name string
	rows [][]any
}

// writeXLSX saves sheets in order to dir/name and returns the path.
func writeXLSX(t *testing.T, dir, name string, sheets []fixtureSheet) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, s := range sheets {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", s.name))
		} else {
			_, err := f.NewSheet(s.name)
			require.NoError(t, err)
		}
		for r, row := range s.rows {
			for c, v := range row {
				if v == nil {
					continue
				}
				cell, err := excelize.CoordinatesToCellName(c+1, r+1)
				require.NoError(t, err)
				require.NoError(t, f.SetCellValue(s.name, cell, v))
			}
		}
	}

	path := filepath.Join(dir, name)
	require.NoError(t, f.SaveAs(path))
	return path
}

// writeODS builds a minimal OpenDocument spreadsheet around content.
func writeODS(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	out, err := os.Create(path)
	require.NoError(t, err)
	defer out.Close()

	zw := zip.NewWriter(out)
	w, err := zw.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	require.NoError(t, err)
	_, err = w.Write([]byte("application/vnd.oasis.opendocument.spreadsheet"))
	require.NoError(t, err)

	w, err = zw.Create("content.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return path
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

// drain reads every sheet and row of an open decoder.
func drain(t *testing.T, d Decoder) map[string][]models.Row {
	t.Helper()
	sheets, err := d.Sheets()
	require.NoError(t, err)

	out := make(map[string][]models.Row)
	for sheets.Next() {
		sh := sheets.Current()
		rows, err := sh.Rows()
		require.NoError(t, err)
		got := []models.Row{}
		for rows.Next() {
			got = append(got, rows.Current())
		}
		require.NoError(t, rows.Err())
		out[sh.Name()] = got
	}
	require.NoError(t, sheets.Err())
	return out
}
