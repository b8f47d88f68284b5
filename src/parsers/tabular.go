package parsers

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/username/brokerecon/backend/src/models"
)

// ReadTable parses CSV content into a RawTable. The first non-blank row is
// taken as the header; fully blank data rows are dropped. A UTF-8 BOM is
// stripped so files exported from spreadsheet tools read cleanly.
func ReadTable(r io.Reader) (*models.RawTable, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing tabular content: %w", err)
	}

	var table models.RawTable
	for _, rec := range records {
		if models.IsBlankRow(rec) {
			continue
		}
		if table.Headers == nil {
			headers := make([]string, len(rec))
			for i, h := range rec {
				headers[i] = strings.TrimSpace(h)
			}
			table.Headers = headers
			continue
		}
		table.Rows = append(table.Rows, rec)
	}
	if table.Headers == nil {
		return nil, fmt.Errorf("file contains no rows")
	}
	return &table, nil
}

// Sample returns a copy of the table truncated to at most n data rows.
// Classification only needs the schema and a representative slice of content,
// not every row.
func Sample(table *models.RawTable, n int) *models.RawTable {
	if len(table.Rows) <= n {
		return table
	}
	return &models.RawTable{Headers: table.Headers, Rows: table.Rows[:n]}
}

// LocateHeader rebuilds a table whose real header row is buried below banner
// rows, identified as the first row containing every one of the given
// markers. Returns nil when no such row exists.
func LocateHeader(table *models.RawTable, markers ...string) *models.RawTable {
	if containsAll(table.Headers, markers) {
		return table
	}
	for i, row := range table.Rows {
		if containsAll(row, markers) {
			headers := make([]string, len(row))
			for j, h := range row {
				headers[j] = strings.TrimSpace(h)
			}
			rebuilt := &models.RawTable{Headers: headers}
			for _, r := range table.Rows[i+1:] {
				if !models.IsBlankRow(r) {
					rebuilt.Rows = append(rebuilt.Rows, r)
				}
			}
			return rebuilt
		}
	}
	return nil
}

func containsAll(row []string, markers []string) bool {
	for _, m := range markers {
		found := false
		for _, cell := range row {
			if strings.Contains(cell, m) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
