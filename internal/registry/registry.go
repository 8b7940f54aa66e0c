// Package registry parses the Fixture Populator's declarative registry: a
// tabular spec of desired test-case inputs, authored as an .xlsx workbook so
// operators can maintain it without touching Go or JSON.
package registry

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ingestlab/ingest-harness/internal/catalog"
)

// Status closes the per-row disposition a registry row can carry.
type Status string

const (
	StatusActive Status = "active"
	StatusSkip   Status = "skip"
)

// Row is one registry entry: the desired fixture input for a catalog test.
type Row struct {
	TestID     string
	InputType  catalog.InputType
	Caption    string
	LocalAsset string
	Status     Status
}

const sheetName = "registry"

var headers = []string{"testId", "inputType", "caption", "localAsset", "status"}

// LoadXLSX reads the registry workbook at path: the sheet literally named
// "registry" when present, otherwise the first sheet. Its first row is the
// header; only the testId column is required, the other columns named in
// headers are optional, and column order is not significant.
func LoadXLSX(path string) ([]Row, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("registry: open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	sheet := sheetName
	if idx, err := f.GetSheetIndex(sheetName); err != nil || idx == -1 {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("registry: %s has no sheets", path)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("registry: read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	colIndex, err := indexHeader(rows[0])
	if err != nil {
		return nil, fmt.Errorf("registry: %s: %w", path, err)
	}

	var out []Row
	for i, raw := range rows[1:] {
		if allBlank(raw) {
			continue
		}
		row, err := parseRow(colIndex, raw)
		if err != nil {
			return nil, fmt.Errorf("registry: %s: row %d: %w", path, i+2, err)
		}
		out = append(out, row)
	}
	return out, nil
}

func indexHeader(header []string) (map[string]int, error) {
	idx := map[string]int{}
	for i, h := range header {
		idx[strings.TrimSpace(strings.ToLower(h))] = i
	}
	if _, ok := idx["testid"]; !ok {
		return nil, fmt.Errorf("missing required column %q", "testId")
	}
	return idx, nil
}

func cell(colIndex map[string]int, raw []string, name string) string {
	i, ok := colIndex[name]
	if !ok || i >= len(raw) {
		return ""
	}
	return strings.TrimSpace(raw[i])
}

func parseRow(colIndex map[string]int, raw []string) (Row, error) {
	testID := cell(colIndex, raw, "testid")
	if testID == "" {
		return Row{}, fmt.Errorf("empty testId")
	}
	status := Status(strings.ToLower(cell(colIndex, raw, "status")))
	if status == "" {
		status = StatusActive
	}
	return Row{
		TestID:     testID,
		InputType:  catalog.InputType(strings.ToLower(cell(colIndex, raw, "inputtype"))),
		Caption:    cell(colIndex, raw, "caption"),
		LocalAsset: cell(colIndex, raw, "localasset"),
		Status:     status,
	}, nil
}

func allBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
