package parsers

import (
	"fmt"
	"sort"
	"strings"

	"github.com/username/brokerecon/backend/src/logger"
	"github.com/username/brokerecon/backend/src/models"
	"github.com/username/brokerecon/backend/src/registry"
)

// classifierSampleRows bounds how much of a file classification looks at.
// Identity is a property of the schema and content shape, not of every row.
const classifierSampleRows = 100

// plausibleCodeMin/Max bound the member-code magnitude; values outside are
// row numbers, totals, or garbage and are excluded from the vote.
const (
	plausibleCodeMin = 1000
	plausibleCodeMax = 99999
)

// ClassifyFailure carries the diagnostic context for a file whose broker
// identity could not be determined: the columns seen, a sample row for human
// triage, and the underlying read error when the file was not even tabular.
type ClassifyFailure struct {
	Reason    string   `json:"reason"`
	Columns   []string `json:"columns,omitempty"`
	SampleRow []string `json:"sample_row,omitempty"`
	ReadError string   `json:"read_error,omitempty"`
}

func (f *ClassifyFailure) Error() string {
	if len(f.Columns) > 0 {
		return fmt.Sprintf("%s (columns: %s)", f.Reason, strings.Join(f.Columns, ", "))
	}
	return f.Reason
}

// ambiguousStructures lists broker pairs whose exported schemas are
// byte-identical. A filename hint for one of these is re-validated against
// content instead of being trusted blindly.
var ambiguousBrokerIDs = map[string]bool{"EQUIRUS": true, "ANTIQUE": true}

// Classify determines which executing broker produced the file. Signals are
// tried in strict priority order: filename hint, explicit broker-code column
// (majority vote), explicit broker-name column (majority vote), then column
// structure. Structure matching refuses to resolve the Equirus/Antique
// ambiguity and reports a classification failure instead of guessing.
func Classify(filename string, table *models.RawTable) (registry.Broker, *ClassifyFailure) {
	sample := Sample(table, classifierSampleRows)

	if b, ok := registry.BrokerByFilename(filename); ok {
		if !ambiguousBrokerIDs[b.ID] {
			logger.L.Debug("classified by filename", "file", filename, "broker", b.ID)
			return b, nil
		}
		// Two real brokers export identical schemas; the filename alone is
		// not proof for those, so cross-check the content.
		if cb, ok := classifyByContent(sample); ok {
			logger.L.Info("ambiguous filename hint re-validated from content",
				"file", filename, "hinted", b.ID, "resolved", cb.ID)
			return cb, nil
		}
		return b, nil
	}

	if b, ok := classifyByContent(sample); ok {
		return b, nil
	}
	return classifyByStructure(sample)
}

// classifyByContent applies the explicit-identity signals: a broker-code
// column, then a broker-name column.
func classifyByContent(table *models.RawTable) (registry.Broker, bool) {
	if code, ok := majorityBrokerCode(table); ok {
		if b, found := registry.BrokerByCode(code); found {
			logger.L.Debug("classified by broker-code column", "code", code, "broker", b.ID)
			return b, true
		}
		logger.L.Warn("most frequent broker code not in registry", "code", code)
	}
	if code, ok := majorityBrokerName(table); ok {
		if b, found := registry.BrokerByCode(code); found {
			logger.L.Debug("classified by broker-name column", "broker", b.ID)
			return b, true
		}
	}
	return registry.Broker{}, false
}

// majorityBrokerCode scans every column whose header resembles a member-code
// field and takes the most frequent plausible code across all sampled rows.
// Any single row could be a corrupt or total row, so no single row is
// trusted.
func majorityBrokerCode(table *models.RawTable) (int, bool) {
	var cols []int
	for _, name := range brokerCodeColumns {
		if idx := table.Col(name); idx >= 0 {
			cols = append(cols, idx)
		}
	}
	if len(cols) == 0 {
		for i, h := range table.Headers {
			lower := strings.ToLower(h)
			if strings.Contains(lower, "broker") || strings.Contains(lower, "member") ||
				strings.Contains(lower, "tm code") || strings.Contains(lower, "tm_code") {
				cols = append(cols, i)
			}
		}
	}
	if len(cols) == 0 {
		return 0, false
	}

	counts := map[int]int{}
	for _, row := range table.Rows {
		for _, idx := range cols {
			code, err := ParseBrokerCode(models.Cell(row, idx))
			if err != nil {
				continue
			}
			if code >= plausibleCodeMin && code <= plausibleCodeMax {
				counts[code]++
			}
		}
	}
	return mostFrequent(counts)
}

// majorityBrokerName votes over a Broker Name column using known name
// substrings.
func majorityBrokerName(table *models.RawTable) (int, bool) {
	idx := table.Col("Broker Name")
	if idx < 0 {
		return 0, false
	}
	counts := map[int]int{}
	for _, row := range table.Rows {
		if code := registry.BrokerCodeForName(models.Cell(row, idx)); code != 0 {
			counts[code]++
		}
	}
	return mostFrequent(counts)
}

// mostFrequent returns the key with the highest count; ties break on the
// smaller code so classification stays deterministic.
func mostFrequent(counts map[int]int) (int, bool) {
	if len(counts) == 0 {
		return 0, false
	}
	codes := make([]int, 0, len(counts))
	for c := range counts {
		codes = append(codes, c)
	}
	sort.Ints(codes)
	best, bestCount := 0, 0
	for _, c := range codes {
		if counts[c] > bestCount {
			best, bestCount = c, counts[c]
		}
	}
	return best, true
}

// structural signatures, only consulted when no explicit identity signal
// exists in the data.
var structuralSignatures = []struct {
	code int
	cols []string
}{
	{10542, []string{"Commission (Taxable Value)", "Central GST*", "State GST**", "WAP"}},
	{8081, []string{"Scrip", "Lots traded", "Traded Price", "Brokerage"}},
	{10975, []string{"CustodianCode", "OptionType", "BuySellStatus", "ConfPrice", "BrokValue"}},
	{13872, []string{"CP Code", "Buy/Sell", "OptType", "Mkt Price", "STT"}},
	{11933, []string{"CP Code", "Buy/Sell", "OptType", "Mkt. Price", "STT"}},
}

// equirusAntiqueSignature is shared verbatim by two different brokers and can
// never resolve on structure alone.
var equirusAntiqueSignature = []string{"Scrip Code", "Call / Put", "Pure Brokerage AMT", "CP Code"}

func classifyByStructure(table *models.RawTable) (registry.Broker, *ClassifyFailure) {
	candidate := table
	// Morgan Stanley files bury the header below banner rows.
	if relocated := LocateHeader(table, "Trade Date", "CP Code"); relocated != nil {
		candidate = relocated
	}

	for _, sig := range structuralSignatures {
		if candidate.HasCols(sig.cols...) {
			b, _ := registry.BrokerByCode(sig.code)
			logger.L.Warn("classified from column structure only; no broker code found in data",
				"broker", b.ID)
			return b, nil
		}
	}

	if candidate.HasCols(equirusAntiqueSignature...) {
		return registry.Broker{}, &ClassifyFailure{
			Reason:    "Equirus/Antique format detected but file carries no broker code or name to distinguish them",
			Columns:   candidate.Headers,
			SampleRow: firstRow(candidate),
		}
	}

	return registry.Broker{}, &ClassifyFailure{
		Reason:    "no known broker signature matches the file",
		Columns:   candidate.Headers,
		SampleRow: firstRow(candidate),
	}
}

func firstRow(table *models.RawTable) []string {
	if len(table.Rows) > 0 {
		return table.Rows[0]
	}
	return nil
}
