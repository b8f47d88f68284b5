package ticker

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// SymbolMap is the external symbol-to-ticker reference table. It is loaded
// once at startup and shared read-only by every normalizer.
type SymbolMap struct {
	symbolToTicker map[string]string
	underlying     map[string]string
}

// preambleLines is the number of banner lines before the header row in the
// mapping file.
const preambleLines = 3

// LoadSymbolMap reads the mapping CSV. The file carries a three-line preamble
// before the header; the Symbol and Ticker columns are required, the Cash
// (underlying) column is optional.
func LoadSymbolMap(path string) (*SymbolMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening symbol mapping %s: %w", path, err)
	}
	defer f.Close()
	return ReadSymbolMap(f)
}

// ReadSymbolMap parses mapping content from a reader.
func ReadSymbolMap(r io.Reader) (*SymbolMap, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	for i := 0; i < preambleLines; i++ {
		if _, err := reader.Read(); err != nil {
			return nil, fmt.Errorf("reading mapping preamble: %w", err)
		}
	}
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading mapping header: %w", err)
	}

	symbolIdx, tickerIdx, cashIdx := -1, -1, -1
	for i, h := range header {
		switch strings.TrimSpace(h) {
		case "Symbol":
			symbolIdx = i
		case "Ticker":
			tickerIdx = i
		case "Cash":
			cashIdx = i
		}
	}
	if symbolIdx < 0 || tickerIdx < 0 {
		return nil, fmt.Errorf("mapping file missing Symbol/Ticker columns, got %v", header)
	}

	m := &SymbolMap{
		symbolToTicker: make(map[string]string),
		underlying:     make(map[string]string),
	}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading mapping row: %w", err)
		}
		symbol := cell(row, symbolIdx)
		tick := cell(row, tickerIdx)
		if symbol != "" && tick != "" {
			m.symbolToTicker[strings.ToUpper(symbol)] = tick
		}
		if tick != "" {
			// A ticker always maps to itself so already-converted files
			// resolve cleanly.
			m.symbolToTicker[strings.ToUpper(tick)] = tick
			if cashIdx >= 0 {
				if cash := cell(row, cashIdx); cash != "" {
					m.underlying[tick] = cash
				}
			}
		}
	}
	return m, nil
}

// EmptySymbolMap returns a map with no entries; Resolve then passes symbols
// through unchanged.
func EmptySymbolMap() *SymbolMap {
	return &SymbolMap{
		symbolToTicker: map[string]string{},
		underlying:     map[string]string{},
	}
}

// Resolve maps an exchange symbol to its ticker, or returns the upper-cased
// symbol unchanged when no mapping exists.
func (m *SymbolMap) Resolve(symbol string) string {
	upper := strings.ToUpper(strings.TrimSpace(symbol))
	if t, ok := m.symbolToTicker[upper]; ok {
		return t
	}
	return upper
}

// Underlying returns the cash underlying for a ticker, when known.
func (m *SymbolMap) Underlying(tick string) (string, bool) {
	u, ok := m.underlying[tick]
	return u, ok
}

// Len reports the number of distinct symbol mappings.
func (m *SymbolMap) Len() int {
	return len(m.symbolToTicker)
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
