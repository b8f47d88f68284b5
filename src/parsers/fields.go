package parsers

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/username/brokerecon/backend/src/models"
)

// brokerCodeColumns is the finite fallback chain of headers that may carry
// the executing-member code.
var brokerCodeColumns = []string{
	"Broker Code", "BrokerNSECode", "Broker NSE Code", "TM Code", "TM_Code",
}

// lotColumns is the finite fallback chain of headers that may carry a lot
// count.
var lotColumns = []string{
	"Lots traded", "Lots Traded", "Lots", "lots", "Contract Lot",
	"Contract Lots", "No Of Traded Lots", "No. of Contracts", "No of Contracts",
}

// ParseNumber parses a numeric cell, tolerating thousands separators.
func ParseNumber(s string) (float64, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if cleaned == "" {
		return 0, fmt.Errorf("empty numeric value")
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return v, nil
}

// ParseQuantity parses a traded quantity as an absolute integer.
func ParseQuantity(s string) (int, error) {
	v, err := ParseNumber(s)
	if err != nil {
		return 0, err
	}
	return int(math.Abs(v)), nil
}

// ParseBrokerCode parses a member code, tolerating leading zeros, a sign, and
// float renderings ("07730", "-7730", "7730.0").
func ParseBrokerCode(s string) (int, error) {
	v, err := ParseNumber(s)
	if err != nil {
		return 0, err
	}
	code := int(math.Abs(v))
	if code == 0 {
		return 0, fmt.Errorf("zero broker code")
	}
	return code, nil
}

// NormalizeSide maps the many side encodings ("B", "BUY", "Buy", "S", …) onto
// the canonical enum.
func NormalizeSide(s string) (models.Side, bool) {
	upper := strings.ToUpper(strings.TrimSpace(s))
	switch {
	case strings.HasPrefix(upper, "B"):
		return models.SideBuy, true
	case strings.HasPrefix(upper, "S"):
		return models.SideSell, true
	default:
		return "", false
	}
}

// BrokerCodeFromRow reads the member code from whichever code column the file
// carries, falling back to the broker's registered default. Files re-exported
// through an aggregator occasionally carry another member's code, which must
// win over the filename-derived default.
func BrokerCodeFromRow(table *models.RawTable, row []string, defaultCode int) int {
	for _, col := range brokerCodeColumns {
		idx := table.Col(col)
		if idx < 0 {
			continue
		}
		if code, err := ParseBrokerCode(models.Cell(row, idx)); err == nil {
			return code
		}
	}
	return defaultCode
}

// LotsFromRow extracts an absolute lot count when the file exposes one.
func LotsFromRow(table *models.RawTable, row []string) (float64, bool) {
	for _, col := range lotColumns {
		idx := table.Col(col)
		if idx < 0 {
			continue
		}
		if v, err := ParseNumber(models.Cell(row, idx)); err == nil {
			return math.Abs(v), true
		}
	}
	return 0, false
}

// FormatDate renders dates the way every canonical record carries them.
func FormatDate(t time.Time) string {
	return t.Format("02/01/2006")
}

// dayFirstFormats, monthFirstFormats, and textualFormats are the tolerant
// date fallback chain, tried in that order. Day-first is the dominant
// convention in these files, so it wins for ambiguous values.
var dayFirstFormats = []string{
	"02/01/2006", "02-01-2006", "02.01.2006",
	"02/01/06", "02-01-06", "02.01.06",
}

var monthFirstFormats = []string{
	"01/02/2006", "01-02-2006", "01.02.2006",
	"01/02/06", "01-02-06", "01.02.06",
}

var isoFormats = []string{
	"2006-01-02", "2006/01/02", "2006.01.02",
}

var textualFormats = []string{
	"02-Jan-2006", "02-Jan-06", "2-Jan-2006", "2-Jan-06",
	"02 Jan 2006", "2 Jan 06", "02-January-2006", "02-January-06",
}

// ParseDate tries the full fallback chain and reports failure rather than
// guessing when nothing matches.
func ParseDate(s string) (time.Time, error) {
	return parseWith(s, dayFirstFormats, monthFirstFormats, isoFormats, textualFormats)
}

// ParseDateMonthFirst is the same chain with the US numeric order preferred,
// for the broker files that export American-style dates.
func ParseDateMonthFirst(s string) (time.Time, error) {
	return parseWith(s, monthFirstFormats, dayFirstFormats, isoFormats, textualFormats)
}

// ParseDateTextual prefers abbreviated-month forms ("29-Sep-23") before the
// numeric chains.
func ParseDateTextual(s string) (time.Time, error) {
	return parseWith(s, textualFormats, dayFirstFormats, monthFirstFormats, isoFormats)
}

func parseWith(s string, chains ...[]string) (time.Time, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, chain := range chains {
		for _, layout := range chain {
			if t, err := time.Parse(layout, trimmed); err == nil {
				return t, nil
			}
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

// LastThursday returns the conventional monthly derivatives expiry for a
// contract month.
func LastThursday(year int, month time.Month) time.Time {
	d := time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	for d.Weekday() != time.Thursday {
		d = d.AddDate(0, 0, -1)
	}
	return d
}
