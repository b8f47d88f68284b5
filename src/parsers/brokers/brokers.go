// Package brokers holds one normalizer per supported executing-broker
// format. Each normalizer isolates its broker's column names, date formats,
// and sign conventions; everything they share (instrument classification,
// ticker synthesis, date parsing) lives in the parsers and ticker packages so
// the rules cannot drift apart.
package brokers

import (
	"fmt"

	"github.com/username/brokerecon/backend/src/models"
	"github.com/username/brokerecon/backend/src/parsers"
	"github.com/username/brokerecon/backend/src/registry"
	"github.com/username/brokerecon/backend/src/ticker"
	"github.com/username/brokerecon/backend/src/utils"
)

// ForBroker returns the normalizer for a classified broker. NUVAMA is the
// renamed Edelweiss and shares its format.
func ForBroker(b registry.Broker, symbols *ticker.SymbolMap) (parsers.Normalizer, error) {
	switch b.ID {
	case "ICICI":
		return NewICICI(b, symbols), nil
	case "KOTAK":
		return NewKotak(b, symbols), nil
	case "IIFL":
		return NewIIFL(b, symbols), nil
	case "AXIS":
		return NewAxis(b, symbols), nil
	case "EQUIRUS":
		return NewEquirus(b, symbols), nil
	case "EDELWEISS", "NUVAMA":
		return NewEdelweiss(b, symbols), nil
	case "MORGAN":
		return NewMorgan(b, symbols), nil
	case "ANTIQUE":
		return NewAntique(b, symbols), nil
	default:
		return nil, fmt.Errorf("no normalizer available for broker: %s", b.ID)
	}
}

// round2 rounds a tax/brokerage aggregate once, at the end, to avoid
// compounding rounding error across line items.
func round2(v float64) float64 {
	return utils.RoundFloat(v, 2)
}

// tradeDate normalizes a trade-date cell to dd/mm/yyyy when it parses,
// otherwise passes the raw value through for the analyst to see.
func tradeDate(s string) string {
	if t, err := parsers.ParseDate(s); err == nil {
		return parsers.FormatDate(t)
	}
	return s
}

// optionalNumber treats a blank cell as zero but still rejects junk.
func optionalNumber(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return parsers.ParseNumber(s)
}

// rowErr records a skipped row. Bad rows are counted, never coerced into
// values that could masquerade as valid match keys.
func rowErr(res *parsers.Result, row int, field string, err error) {
	res.RowErrors = append(res.RowErrors, models.RowError{
		Row:    row,
		Reason: fmt.Sprintf("%s: %v", field, err),
	})
}

func rowErrf(res *parsers.Result, row int, format string, args ...any) {
	res.RowErrors = append(res.RowErrors, models.RowError{
		Row:    row,
		Reason: fmt.Sprintf(format, args...),
	})
}
