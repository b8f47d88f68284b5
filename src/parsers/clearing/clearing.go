// Package clearing normalizes the clearing broker's trade blotter. It is the
// authoritative side of a reconciliation: the whole run aborts if this file
// cannot be read, where a bad executing-broker file is merely skipped.
package clearing

import (
	"fmt"
	"strings"

	"github.com/username/brokerecon/backend/src/models"
	"github.com/username/brokerecon/backend/src/parsers"
	"github.com/username/brokerecon/backend/src/ticker"
)

// Required are the columns the clearing blotter must carry. Lots Traded is
// optional; older blotters omit it and lot matching degrades gracefully.
var Required = []string{
	"CP Code", "TM Code", "B/S", "Qty", "Avg Price",
	"Symbol", "Expiry Dt", "Strike Price", "Instr", "Option Type",
}

// Normalizer converts clearing blotter rows into canonical trades. Ticker
// synthesis goes through the same generator as the executing-broker side so
// the two sides can never disagree on format.
type Normalizer struct {
	symbols *ticker.SymbolMap
}

func NewNormalizer(symbols *ticker.SymbolMap) *Normalizer {
	return &Normalizer{symbols: symbols}
}

// Normalize converts every parseable row. Rows whose instrument cannot be
// classified are recorded and skipped, never guessed at.
func (n *Normalizer) Normalize(table *models.RawTable) (*parsers.Result, error) {
	if missing := table.MissingCols(Required...); len(missing) > 0 {
		return nil, fmt.Errorf("clearing file missing columns: %s", strings.Join(missing, ", "))
	}

	result := &parsers.Result{}
	for i, row := range table.Rows {
		symbol := strings.ToUpper(models.Cell(row, table.Col("Symbol")))
		if symbol == "" {
			rowErrf(result, i, "blank symbol")
			continue
		}
		instrument := strings.ToUpper(models.Cell(row, table.Col("Instr")))

		secType, ok := securityType(instrument, models.Cell(row, table.Col("Option Type")))
		if !ok {
			rowErrf(result, i, "cannot classify instrument %q / option type %q",
				instrument, models.Cell(row, table.Col("Option Type")))
			continue
		}
		strike := 0.0
		var err error
		if secType != models.SecurityFutures {
			if strike, err = optionalNumber(models.Cell(row, table.Col("Strike Price"))); err != nil {
				rowErr(result, i, "strike", err)
				continue
			}
		}
		expiry, err := parsers.ParseDate(models.Cell(row, table.Col("Expiry Dt")))
		if err != nil {
			rowErr(result, i, "expiry", err)
			continue
		}
		side, ok := parsers.NormalizeSide(models.Cell(row, table.Col("B/S")))
		if !ok {
			rowErrf(result, i, "unrecognized side %q", models.Cell(row, table.Col("B/S")))
			continue
		}
		qty, err := parsers.ParseQuantity(models.Cell(row, table.Col("Qty")))
		if err != nil {
			rowErr(result, i, "quantity", err)
			continue
		}
		price, err := parsers.ParseNumber(models.Cell(row, table.Col("Avg Price")))
		if err != nil {
			rowErr(result, i, "price", err)
			continue
		}
		brokerCode, err := parsers.ParseBrokerCode(models.Cell(row, table.Col("TM Code")))
		if err != nil {
			rowErr(result, i, "TM code", err)
			continue
		}

		trade := models.CanonicalTrade{
			BloombergTicker: ticker.Generate(n.symbols.Resolve(symbol), expiry, secType, strike, instrument),
			CPCode:          strings.ToUpper(models.Cell(row, table.Col("CP Code"))),
			BrokerCode:      brokerCode,
			Side:            side,
			Quantity:        qty,
			Price:           price,
			Symbol:          symbol,
			Instrument:      instrument,
			SecurityType:    secType,
			Strike:          strike,
			ExpiryDate:      parsers.FormatDate(expiry),
			RowIndex:        i,
		}
		if idx := table.Col("Trade Date"); idx >= 0 {
			if t, err := parsers.ParseDate(models.Cell(row, idx)); err == nil {
				trade.TradeDate = parsers.FormatDate(t)
			}
		}
		if lots, ok := parsers.LotsFromRow(table, row); ok {
			trade.Lots, trade.HasLots = lots, true
		}
		result.Trades = append(result.Trades, trade)
	}
	return result, nil
}

// securityType classifies a clearing row. The Instr series wins for futures
// (any FUT series); otherwise the Option Type must name a call or a put.
func securityType(instrument, optionType string) (models.SecurityType, bool) {
	if strings.Contains(instrument, "FUT") {
		return models.SecurityFutures, true
	}
	switch strings.ToUpper(strings.TrimSpace(optionType)) {
	case "CE", "C", "CALL":
		return models.SecurityCall, true
	case "PE", "P", "PUT":
		return models.SecurityPut, true
	}
	return "", false
}

func optionalNumber(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return parsers.ParseNumber(s)
}

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
