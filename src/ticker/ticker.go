// Package ticker synthesizes the normalized market-identifier strings used as
// the primary join key during reconciliation. Every normalizer goes through
// Generate so that the same economic instrument always yields a byte-identical
// ticker; a single stray space here would silently break every match for that
// instrument.
package ticker

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/username/brokerecon/backend/src/models"
)

// monthCode is the futures month-letter convention.
var monthCode = map[time.Month]string{
	time.January: "F", time.February: "G", time.March: "H",
	time.April: "J", time.May: "K", time.June: "M",
	time.July: "N", time.August: "Q", time.September: "U",
	time.October: "V", time.November: "X", time.December: "Z",
}

// indexRule maps an index symbol to the tickers used in the futures and
// options renditions. Several aliases map to the same underlying index.
type indexRule struct {
	Futures string
	Options string
}

var indexRules = map[string]indexRule{
	"NIFTY":      {Futures: "NZ", Options: "NIFTY"},
	"NZ":         {Futures: "NZ", Options: "NIFTY"},
	"BANKNIFTY":  {Futures: "AF1", Options: "NSEBANK"},
	"AF1":        {Futures: "AF1", Options: "NSEBANK"},
	"AF":         {Futures: "AF1", Options: "NSEBANK"},
	"NSEBANK":    {Futures: "AF1", Options: "NSEBANK"},
	"FINNIFTY":   {Futures: "FNF", Options: "FINNIFTY"},
	"FNF":        {Futures: "FNF", Options: "FINNIFTY"},
	"MIDCPNIFTY": {Futures: "RNS", Options: "NMIDSELP"},
	"RNS":        {Futures: "RNS", Options: "NMIDSELP"},
	"NMIDSELP":   {Futures: "RNS", Options: "NMIDSELP"},
	"MCN":        {Futures: "RNS", Options: "NMIDSELP"},
}

// indexTickers is the allow-list of symbols known to be indices even when the
// instrument-type field gives no hint.
var indexTickers = map[string]bool{
	"NZ": true, "NBZ": true, "NIFTY": true, "BANKNIFTY": true,
	"NF": true, "NBF": true, "FNF": true, "FINNIFTY": true,
	"MCN": true, "MIDCPNIFTY": true, "AF": true, "AF1": true,
	"NSEBANK": true, "RNS": true, "NMIDSELP": true,
}

// IsIndex decides index vs single-stock. The instrument/series field is the
// most reliable signal (FUTIDX, OPTIDX); the symbol allow-list and NIFTY
// substring cover files that omit it.
func IsIndex(symbol, instrument string) bool {
	if instrument != "" {
		upper := strings.ToUpper(instrument)
		if strings.Contains(upper, "IDX") || strings.Contains(upper, "INDEX") {
			return true
		}
	}
	upper := strings.ToUpper(strings.TrimSpace(symbol))
	if indexTickers[upper] {
		return true
	}
	if strings.Contains(upper, "NIFTY") || strings.HasSuffix(upper, "INDEX") {
		return true
	}
	_, ok := indexRules[upper]
	return ok
}

// resolve picks the ticker to render for the symbol, applying the index
// aliases. Non-index symbols pass through unchanged.
func resolve(symbol string, secType models.SecurityType) string {
	upper := strings.ToUpper(strings.TrimSpace(symbol))
	if rule, ok := indexRules[upper]; ok {
		if secType == models.SecurityFutures {
			return rule.Futures
		}
		return rule.Options
	}
	return symbol
}

// Generate builds the canonical ticker for one instrument.
//
// Futures: "{root}{month}{year} Index" for indices,
// "{root}={month}{year} IS Equity" for single stocks. Options:
// "{root} {mm/dd/yy} {C|P}{strike} Index" and
// "{root} IS {mm/dd/yy} {C|P}{strike} Equity", with integral strikes rendered
// without a decimal point.
func Generate(symbol string, expiry time.Time, secType models.SecurityType, strike float64, instrument string) string {
	if strings.TrimSpace(symbol) == "" {
		return ""
	}
	root := resolve(strings.ToUpper(strings.TrimSpace(symbol)), secType)
	isIndex := IsIndex(root, instrument)

	if secType == models.SecurityFutures {
		mc := monthCode[expiry.Month()]
		yc := strconv.Itoa(expiry.Year() % 10)
		if isIndex {
			return fmt.Sprintf("%s%s%s Index", root, mc, yc)
		}
		return fmt.Sprintf("%s=%s%s IS Equity", root, mc, yc)
	}

	dateStr := expiry.Format("01/02/06")
	optType := "C"
	if secType == models.SecurityPut {
		optType = "P"
	}
	strikeStr := FormatStrike(strike)
	if isIndex {
		return fmt.Sprintf("%s %s %s%s Index", root, dateStr, optType, strikeStr)
	}
	return fmt.Sprintf("%s IS %s %s%s Equity", root, dateStr, optType, strikeStr)
}

// FormatStrike renders an integral strike without a decimal point and any
// other strike with its minimal decimal representation.
func FormatStrike(strike float64) string {
	if strike == float64(int64(strike)) {
		return strconv.FormatInt(int64(strike), 10)
	}
	return strconv.FormatFloat(strike, 'f', -1, 64)
}

// NormalizeKey upper-cases, trims, and collapses internal whitespace. Ticker
// equality during matching is always on the normalized form.
func NormalizeKey(t string) string {
	return strings.Join(strings.Fields(strings.ToUpper(t)), " ")
}

// SecurityTypeOf classifies the option-type encoding used across broker
// files: FF/FUT/blank mean futures, CE/CALL/C mean calls, PE/PUT/P mean puts.
// The boolean is false for encodings the engine does not recognize.
func SecurityTypeOf(optionType string) (models.SecurityType, bool) {
	switch strings.ToUpper(strings.TrimSpace(optionType)) {
	case "", "FF", "FUT", "FUTURE", "NAN", "XX":
		return models.SecurityFutures, true
	case "CE", "CALL", "C":
		return models.SecurityCall, true
	case "PE", "PUT", "P":
		return models.SecurityPut, true
	default:
		return "", false
	}
}
