package brokers

import (
	"fmt"
	"strings"

	"github.com/username/brokerecon/backend/src/models"
	"github.com/username/brokerecon/backend/src/parsers"
	"github.com/username/brokerecon/backend/src/registry"
	"github.com/username/brokerecon/backend/src/ticker"
)

// Axis normalizes Axis Securities files. Taxes arrive as separate GST and
// STT line items that are summed into the canonical total, rounded once.
type Axis struct {
	broker  registry.Broker
	symbols *ticker.SymbolMap
}

func NewAxis(b registry.Broker, symbols *ticker.SymbolMap) *Axis {
	return &Axis{broker: b, symbols: symbols}
}

func (p *Axis) BrokerID() string { return p.broker.ID }

var axisRequired = []string{
	"CP Code", "Buy/Sell", "Qty", "Instrument", "Scrip", "OptType",
	"Expiry", "Mkt Price", "Brokerage", "GST", "STT", "Trade Date",
}

func (p *Axis) Normalize(table *models.RawTable) (*parsers.Result, error) {
	if missing := table.MissingCols(axisRequired...); len(missing) > 0 {
		return nil, fmt.Errorf("Axis file missing columns: %s", strings.Join(missing, ", "))
	}
	return normalizeGSTFormat(table, p.broker, p.symbols, "Mkt Price")
}

// normalizeGSTFormat handles the shared Axis/Edelweiss shape: Scrip +
// Instrument + OptType columns, an optional Strike column, and GST/STT tax
// line items. Only the price header differs between the two brokers.
func normalizeGSTFormat(table *models.RawTable, broker registry.Broker, symbols *ticker.SymbolMap, priceCol string) (*parsers.Result, error) {
	result := &parsers.Result{}
	for i, row := range table.Rows {
		symbol := strings.ToUpper(models.Cell(row, table.Col("Scrip")))
		if symbol == "" {
			rowErrf(result, i, "blank symbol")
			continue
		}
		instrument := strings.ToUpper(models.Cell(row, table.Col("Instrument")))

		secType, ok := ticker.SecurityTypeOf(models.Cell(row, table.Col("OptType")))
		if !ok {
			rowErrf(result, i, "unknown option type %q", models.Cell(row, table.Col("OptType")))
			continue
		}
		strike := 0.0
		var err error
		if secType != models.SecurityFutures {
			if idx := table.Col("Strike"); idx >= 0 {
				if strike, err = optionalNumber(models.Cell(row, idx)); err != nil {
					rowErr(result, i, "strike", err)
					continue
				}
			}
		}
		expiry, err := parsers.ParseDate(models.Cell(row, table.Col("Expiry")))
		if err != nil {
			rowErr(result, i, "expiry", err)
			continue
		}
		side, ok := parsers.NormalizeSide(models.Cell(row, table.Col("Buy/Sell")))
		if !ok {
			rowErrf(result, i, "unrecognized side %q", models.Cell(row, table.Col("Buy/Sell")))
			continue
		}
		qty, err := parsers.ParseQuantity(models.Cell(row, table.Col("Qty")))
		if err != nil {
			rowErr(result, i, "quantity", err)
			continue
		}
		price, err := parsers.ParseNumber(models.Cell(row, table.Col(priceCol)))
		if err != nil {
			rowErr(result, i, "price", err)
			continue
		}
		brokerage, err := optionalNumber(models.Cell(row, table.Col("Brokerage")))
		if err != nil {
			rowErr(result, i, "brokerage", err)
			continue
		}
		gst, err := optionalNumber(models.Cell(row, table.Col("GST")))
		if err != nil {
			rowErr(result, i, "GST", err)
			continue
		}
		stt, err := optionalNumber(models.Cell(row, table.Col("STT")))
		if err != nil {
			rowErr(result, i, "STT", err)
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
			TotalTaxes:      round2(gst + stt),
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
