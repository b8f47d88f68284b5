package brokers

import (
	"fmt"
	"strings"

	"github.com/username/brokerecon/backend/src/models"
	"github.com/username/brokerecon/backend/src/parsers"
	"github.com/username/brokerecon/backend/src/registry"
	"github.com/username/brokerecon/backend/src/ticker"
)

// Equirus normalizes Equirus Securities files. The schema is byte-identical
// to Antique's (the classifier resolves the two from explicit identity
// signals only); expiries prefer the American numeric order.
type Equirus struct {
	broker  registry.Broker
	symbols *ticker.SymbolMap
}

func NewEquirus(b registry.Broker, symbols *ticker.SymbolMap) *Equirus {
	return &Equirus{broker: b, symbols: symbols}
}

func (p *Equirus) BrokerID() string { return p.broker.ID }

var equirusRequired = []string{
	"CP Code", "Scrip Code", "Expiry", "Buy / Sell",
	"Qty", "Mkt. Rate", "Pure Brokerage AMT", "Total Taxes", "Trade Date",
}

func (p *Equirus) Normalize(table *models.RawTable) (*parsers.Result, error) {
	if missing := table.MissingCols(equirusRequired...); len(missing) > 0 {
		return nil, fmt.Errorf("Equirus file missing columns: %s", strings.Join(missing, ", "))
	}
	return normalizeContractSlip(table, p.broker, p.symbols)
}

// normalizeContractSlip handles the shared Equirus/Antique contract-slip
// shape: a Scrip Code symbol, an optional Call / Put column whose blank (or
// XX) value means futures, and pre-aggregated brokerage/taxes.
func normalizeContractSlip(table *models.RawTable, broker registry.Broker, symbols *ticker.SymbolMap) (*parsers.Result, error) {
	result := &parsers.Result{}
	for i, row := range table.Rows {
		symbol := strings.ToUpper(models.Cell(row, table.Col("Scrip Code")))
		if symbol == "" {
			rowErrf(result, i, "blank symbol")
			continue
		}

		callPutVal := ""
		if idx := table.Col("Call / Put"); idx >= 0 {
			callPutVal = models.Cell(row, idx)
		}
		secType, ok := ticker.SecurityTypeOf(callPutVal)
		if !ok {
			rowErrf(result, i, "unknown Call / Put value %q", callPutVal)
			continue
		}
		instrument := instrumentFor(symbol, secType)

		strike := 0.0
		var err error
		if secType != models.SecurityFutures {
			if idx := table.Col("Strike Price"); idx >= 0 {
				if strike, err = optionalNumber(models.Cell(row, idx)); err != nil {
					rowErr(result, i, "strike", err)
					continue
				}
			}
		}
		expiry, err := parsers.ParseDateMonthFirst(models.Cell(row, table.Col("Expiry")))
		if err != nil {
			rowErr(result, i, "expiry", err)
			continue
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

		trade := models.CanonicalTrade{
			BloombergTicker: ticker.Generate(symbols.Resolve(symbol), expiry, secType, strike, instrument),
			CPCode:          strings.ToUpper(models.Cell(row, table.Col("CP Code"))),
			BrokerCode:      parsers.BrokerCodeFromRow(table, row, broker.Code),
			Side:            side,
			Quantity:        qty,
			Price:           price,
			PureBrokerage:   brokerage,
			TotalTaxes:      round2(taxes),
			TradeDate:       tradeDate(models.Cell(row, table.Col("Trade Date"))),
			Symbol:          symbol,
			Instrument:      instrument,
			SecurityType:    secType,
			Strike:          strike,
			ExpiryDate:      parsers.FormatDate(expiry),
			BrokerID:        broker.ID,
			BrokerName:      broker.Name,
			RowIndex:        i,
		}
		if lots, ok := parsers.LotsFromRow(table, row); ok {
			trade.Lots, trade.HasLots = lots, true
		}
		result.Trades = append(result.Trades, trade)
	}
	return result, nil
}
