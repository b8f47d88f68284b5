package models

import "strings"

// RawTable is a parsed tabular file: one header row plus data rows. Rows are
// not guaranteed rectangular; cell access is bounds-checked.
type RawTable struct {
	Headers []string
	Rows    [][]string
}

// Col returns the index of the exactly named column, or -1.
func (t *RawTable) Col(name string) int {
	for i, h := range t.Headers {
		if strings.TrimSpace(h) == name {
			return i
		}
	}
	return -1
}

// AnyCol returns the index of the first column matching any of the given
// names, tried in order. The fallback chains per broker are enumerated at the
// call sites, not probed dynamically.
func (t *RawTable) AnyCol(names ...string) int {
	for _, name := range names {
		if i := t.Col(name); i >= 0 {
			return i
		}
	}
	return -1
}

// HasCols reports whether every named column is present.
func (t *RawTable) HasCols(names ...string) bool {
	for _, name := range names {
		if t.Col(name) < 0 {
			return false
		}
	}
	return true
}

// MissingCols returns the subset of names not present in the header.
func (t *RawTable) MissingCols(names ...string) []string {
	var missing []string
	for _, name := range names {
		if t.Col(name) < 0 {
			missing = append(missing, name)
		}
	}
	return missing
}

// Cell returns the trimmed cell at idx in row, or "" when idx is out of range.
func Cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// IsBlankRow reports whether every cell in the row is empty after trimming.
func IsBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
