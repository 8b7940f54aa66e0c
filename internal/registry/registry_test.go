package registry

import (
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
	"github.com/stretchr/testify/require"

	"github.com/ingestlab/ingest-harness/internal/catalog"
)

func writeWorkbook(t *testing.T, rows [][]string) string {
	t.Helper()
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", sheetName))
	for r, row := range rows {
		for c, v := range row {
			cellRef, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheetName, cellRef, v))
		}
	}
	path := filepath.Join(t.TempDir(), "registry.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestLoadXLSX_ParsesRows(t *testing.T) {
	path := writeWorkbook(t, [][]string{
		headers,
		{"TEST-SCOPE-001", "text", "a private note", "", ""},
		{"TEST-ARC-001", "document", "archive this receipt", "receipt.pdf", "active"},
		{"TEST-OLD-001", "text", "deprecated", "", "skip"},
	})

	rows, err := LoadXLSX(path)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	require.Equal(t, "TEST-SCOPE-001", rows[0].TestID)
	require.Equal(t, catalog.InputType("text"), rows[0].InputType)
	require.Equal(t, StatusActive, rows[0].Status)

	require.Equal(t, "receipt.pdf", rows[1].LocalAsset)

	require.Equal(t, StatusSkip, rows[2].Status)
}

func TestLoadXLSX_SkipsBlankRows(t *testing.T) {
	path := writeWorkbook(t, [][]string{
		headers,
		{"", "", "", "", ""},
		{"TEST-SCOPE-002", "text", "ok", "", ""},
	})

	rows, err := LoadXLSX(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "TEST-SCOPE-002", rows[0].TestID)
}

func TestLoadXLSX_RejectsMissingTestIDColumn(t *testing.T) {
	path := writeWorkbook(t, [][]string{
		{"inputType", "caption"},
		{"text", "ok"},
	})

	_, err := LoadXLSX(path)
	require.Error(t, err)
}
