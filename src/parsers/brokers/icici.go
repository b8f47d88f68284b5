package brokers

import (
	"fmt"
	"strings"

	"github.com/username/brokerecon/backend/src/models"
	"github.com/username/brokerecon/backend/src/parsers"
	"github.com/username/brokerecon/backend/src/registry"
	"github.com/username/brokerecon/backend/src/ticker"
)

// ICICI normalizes ICICI Securities contract files. The format spells the
// instrument out in a Segment Type column ("Stock Futures", "Index Options")
// and carries brokerage and taxes pre-aggregated.
type ICICI struct {
	broker  registry.Broker
	symbols *ticker.SymbolMap
}

func NewICICI(b registry.Broker, symbols *ticker.SymbolMap) *ICICI {
	return &ICICI{broker: b, symbols: symbols}
}

func (p *ICICI) BrokerID() string { return p.broker.ID }

var iciciRequired = []string{
	"CP Code", "Broker Code", "Scrip Code", "Segment Type", "Expiry",
	"Strike Price", "Call / Put", "Buy / Sell", "Qty", "Mkt. Rate",
	"Pure Brokerage AMT", "Total Taxes", "Trade Date",
}

func (p *ICICI) Normalize(table *models.RawTable) (*parsers.Result, error) {
	if missing := table.MissingCols(iciciRequired...); len(missing) > 0 {
		return nil, fmt.Errorf("ICICI file missing columns: %s", strings.Join(missing, ", "))
	}

	result := &parsers.Result{}
	for i, row := range table.Rows {
		scrip := strings.ToUpper(models.Cell(row, table.Col("Scrip Code")))
		if scrip == "" {
			rowErrf(result, i, "blank symbol")
			continue
		}
		segment := strings.ToUpper(models.Cell(row, table.Col("Segment Type")))

		var instrument string
		var secType models.SecurityType
		switch {
		case strings.Contains(segment, "STOCK") && strings.Contains(segment, "FUTURE"):
			instrument, secType = "FUTSTK", models.SecurityFutures
		case strings.Contains(segment, "INDEX") && strings.Contains(segment, "FUTURE"):
			instrument, secType = "FUTIDX", models.SecurityFutures
		case strings.Contains(segment, "STOCK") && strings.Contains(segment, "OPTION"):
			instrument = "OPTSTK"
			secType = callPut(models.Cell(row, table.Col("Call / Put")))
		case strings.Contains(segment, "INDEX") && strings.Contains(segment, "OPTION"):
			instrument = "OPTIDX"
			secType = callPut(models.Cell(row, table.Col("Call / Put")))
		default:
			rowErrf(result, i, "unknown segment type %q", segment)
			continue
		}

		expiry, err := parsers.ParseDate(models.Cell(row, table.Col("Expiry")))
		if err != nil {
			rowErr(result, i, "expiry", err)
			continue
		}
		strike := 0.0
		if secType != models.SecurityFutures {
			if strike, err = optionalNumber(models.Cell(row, table.Col("Strike Price"))); err != nil {
				rowErr(result, i, "strike", err)
				continue
			}
		}
		side, ok := parsers.NormalizeSide(models.Cell(row, table.Col("Buy / Sell")))
		if !ok {
			rowErrf(result, i, "unrecognized side %q", models.Cell(row, table.Col("Buy / Sell")))
			continue
		}
		qty, err := parsers.ParseQuantity(models.Cell(row, table.Col("Qty")))
		if err != nil {
			rowErr(result, i, "quantity", err)
			continue
		}
		price, err := parsers.ParseNumber(models.Cell(row, table.Col("Mkt. Rate")))
		if err != nil {
			rowErr(result, i, "price", err)
			continue
		}
		brokerage, err := optionalNumber(models.Cell(row, table.Col("Pure Brokerage AMT")))
		if err != nil {
			rowErr(result, i, "brokerage", err)
			continue
		}
		taxes, err := optionalNumber(models.Cell(row, table.Col("Total Taxes")))
		if err != nil {
			rowErr(result, i, "taxes", err)
			continue
		}

		symbol := p.symbols.Resolve(scrip)
		trade := models.CanonicalTrade{
			BloombergTicker: ticker.Generate(symbol, expiry, secType, strike, instrument),
			CPCode:          strings.ToUpper(models.Cell(row, table.Col("CP Code"))),
			BrokerCode:      parsers.BrokerCodeFromRow(table, row, p.broker.Code),
			Side:            side,
			Quantity:        qty,
			Price:           price,
			PureBrokerage:   brokerage,
			TotalTaxes:      round2(taxes),
			TradeDate:       tradeDate(models.Cell(row, table.Col("Trade Date"))),
			Symbol:          scrip,
			Instrument:      instrument,
			SecurityType:    secType,
			Strike:          strike,
			ExpiryDate:      parsers.FormatDate(expiry),
			BrokerID:        p.broker.ID,
			BrokerName:      p.broker.Name,
			RowIndex:        i,
		}
		if lots, ok := parsers.LotsFromRow(table, row); ok {
			trade.Lots, trade.HasLots = lots, true
		}
		result.Trades = append(result.Trades, trade)
	}
	return result, nil
}

// callPut reads an explicit CALL/PUT column; anything that is not a call is
// treated as a put, matching the source system's behavior.
func callPut(v string) models.SecurityType {
	upper := strings.ToUpper(strings.TrimSpace(v))
	if strings.Contains(upper, "CALL") || upper == "C" || upper == "CE" {
		return models.SecurityCall
	}
	return models.SecurityPut
}
