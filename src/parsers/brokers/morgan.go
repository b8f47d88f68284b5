package brokers

import (
	"fmt"
	"strings"

	"github.com/username/brokerecon/backend/src/models"
	"github.com/username/brokerecon/backend/src/parsers"
	"github.com/username/brokerecon/backend/src/registry"
	"github.com/username/brokerecon/backend/src/ticker"
)

// Morgan normalizes Morgan Stanley files. The export buries the real header
// under a multi-line report preamble, splits GST into Central and State
// components, and carries no member-code column, so every row gets the
// registry code.
type Morgan struct {
	broker  registry.Broker
	symbols *ticker.SymbolMap
}

func NewMorgan(b registry.Broker, symbols *ticker.SymbolMap) *Morgan {
	return &Morgan{broker: b, symbols: symbols}
}

func (p *Morgan) BrokerID() string { return p.broker.ID }

var morganRequired = []string{
	"Trade Date", "CP Code", "Symbol", "Expiry Date", "Strike Price",
	"Option Type", "Instrument Type", "Buy/Sell", "Qty", "WAP",
	"Commission (Taxable Value)", "Central GST*", "State GST**", "STT", "Stamp Duty",
}

func (p *Morgan) Normalize(table *models.RawTable) (*parsers.Result, error) {
	located := parsers.LocateHeader(table, "Trade Date", "CP Code")
	if located == nil {
		return nil, fmt.Errorf("Morgan Stanley file: trade header row not found")
	}
	if missing := located.MissingCols(morganRequired...); len(missing) > 0 {
		return nil, fmt.Errorf("Morgan Stanley file missing columns: %s", strings.Join(missing, ", "))
	}

	result := &parsers.Result{}
	for i, row := range located.Rows {
		symbol := strings.ToUpper(models.Cell(row, located.Col("Symbol")))
		if symbol == "" {
			rowErrf(result, i, "blank symbol")
			continue
		}
		instrument := strings.ToUpper(models.Cell(row, located.Col("Instrument Type")))

		secType, ok := ticker.SecurityTypeOf(models.Cell(row, located.Col("Option Type")))
		if !ok {
			rowErrf(result, i, "unknown option type %q", models.Cell(row, located.Col("Option Type")))
			continue
		}
		strike := 0.0
		var err error
		if secType != models.SecurityFutures {
			if strike, err = optionalNumber(models.Cell(row, located.Col("Strike Price"))); err != nil {
				rowErr(result, i, "strike", err)
				continue
			}
		}
		expiry, err := parsers.ParseDateTextual(models.Cell(row, located.Col("Expiry Date")))
		if err != nil {
			rowErr(result, i, "expiry", err)
			continue
		}
		side, ok := parsers.NormalizeSide(models.Cell(row, located.Col("Buy/Sell")))
		if !ok {
			rowErrf(result, i, "unrecognized side %q", models.Cell(row, located.Col("Buy/Sell")))
			continue
		}
		qty, err := parsers.ParseQuantity(models.Cell(row, located.Col("Qty")))
		if err != nil {
			rowErr(result, i, "quantity", err)
			continue
		}
		price, err := parsers.ParseNumber(models.Cell(row, located.Col("WAP")))
		if err != nil {
			rowErr(result, i, "price", err)
			continue
		}
		brokerage, err := optionalNumber(models.Cell(row, located.Col("Commission (Taxable Value)")))
		if err != nil {
			rowErr(result, i, "brokerage", err)
			continue
		}
		cgst, err := optionalNumber(models.Cell(row, located.Col("Central GST*")))
		if err != nil {
			rowErr(result, i, "central GST", err)
			continue
		}
		sgst, err := optionalNumber(models.Cell(row, located.Col("State GST**")))
		if err != nil {
			rowErr(result, i, "state GST", err)
			continue
		}
		stt, err := optionalNumber(models.Cell(row, located.Col("STT")))
		if err != nil {
			rowErr(result, i, "STT", err)
			continue
		}
		stamp, err := optionalNumber(models.Cell(row, located.Col("Stamp Duty")))
		if err != nil {
			rowErr(result, i, "stamp duty", err)
			continue
		}

		trade := models.CanonicalTrade{
			BloombergTicker: ticker.Generate(p.symbols.Resolve(symbol), expiry, secType, strike, instrument),
			CPCode:          strings.ToUpper(models.Cell(row, located.Col("CP Code"))),
			BrokerCode:      p.broker.Code,
			Side:            side,
			Quantity:        qty,
			Price:           price,
			PureBrokerage:   brokerage,
			TotalTaxes:      round2(cgst + sgst + stt + stamp),
			TradeDate:       tradeDate(models.Cell(row, located.Col("Trade Date"))),
			Symbol:          symbol,
			Instrument:      instrument,
			SecurityType:    secType,
			Strike:          strike,
			ExpiryDate:      parsers.FormatDate(expiry),
			BrokerID:        p.broker.ID,
			BrokerName:      p.broker.Name,
			RowIndex:        i,
		}
		if lots, ok := parsers.LotsFromRow(located, row); ok {
			trade.Lots, trade.HasLots = lots, true
		}
		result.Trades = append(result.Trades, trade)
	}
	return result, nil
}
