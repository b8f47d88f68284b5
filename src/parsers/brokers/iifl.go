package brokers

import (
	"fmt"
	"strings"

	"github.com/username/brokerecon/backend/src/models"
	"github.com/username/brokerecon/backend/src/parsers"
	"github.com/username/brokerecon/backend/src/registry"
	"github.com/username/brokerecon/backend/src/ticker"
)

// IIFL normalizes IIFL Securities files. Sides arrive pre-spelled
// ("Buy"/"Sell"), expiries are textual ("29-Sep-23"), and the CP code lives
// in a CustodianCode column.
type IIFL struct {
	broker  registry.Broker
	symbols *ticker.SymbolMap
}

func NewIIFL(b registry.Broker, symbols *ticker.SymbolMap) *IIFL {
	return &IIFL{broker: b, symbols: symbols}
}

func (p *IIFL) BrokerID() string { return p.broker.ID }

var iiflRequired = []string{
	"Symbol", "ExpiryDate", "OptionType", "BuySellStatus",
	"Quantity", "ConfPrice", "BrokValue", "Total Tax", "Trade Date",
}

func (p *IIFL) Normalize(table *models.RawTable) (*parsers.Result, error) {
	if missing := table.MissingCols(iiflRequired...); len(missing) > 0 {
		return nil, fmt.Errorf("IIFL file missing columns: %s", strings.Join(missing, ", "))
	}

	result := &parsers.Result{}
	for i, row := range table.Rows {
		symbol := strings.ToUpper(models.Cell(row, table.Col("Symbol")))
		if symbol == "" {
			rowErrf(result, i, "blank symbol")
			continue
		}

		secType, ok := ticker.SecurityTypeOf(models.Cell(row, table.Col("OptionType")))
		if !ok {
			rowErrf(result, i, "unknown option type %q", models.Cell(row, table.Col("OptionType")))
			continue
		}
		instrument := instrumentFor(symbol, secType)

		strike := 0.0
		var err error
		if secType != models.SecurityFutures {
			if idx := table.Col("StrikePrice"); idx >= 0 {
				if strike, err = optionalNumber(models.Cell(row, idx)); err != nil {
					rowErr(result, i, "strike", err)
					continue
				}
			}
		}
		expiry, err := parsers.ParseDateTextual(models.Cell(row, table.Col("ExpiryDate")))
		if err != nil {
			rowErr(result, i, "expiry", err)
			continue
		}
		side, ok := parsers.NormalizeSide(models.Cell(row, table.Col("BuySellStatus")))
		if !ok {
			rowErrf(result, i, "unrecognized side %q", models.Cell(row, table.Col("BuySellStatus")))
			continue
		}
		qty, err := parsers.ParseQuantity(models.Cell(row, table.Col("Quantity")))
		if err != nil {
			rowErr(result, i, "quantity", err)
			continue
		}
		price, err := parsers.ParseNumber(models.Cell(row, table.Col("ConfPrice")))
		if err != nil {
			rowErr(result, i, "price", err)
			continue
		}
		brokerage, err := optionalNumber(models.Cell(row, table.Col("BrokValue")))
		if err != nil {
			rowErr(result, i, "brokerage", err)
			continue
		}
		taxes, err := optionalNumber(models.Cell(row, table.Col("Total Tax")))
		if err != nil {
			rowErr(result, i, "taxes", err)
			continue
		}

		cpCode := ""
		if idx := table.Col("CustodianCode"); idx >= 0 {
			cpCode = strings.ToUpper(models.Cell(row, idx))
		}
		trade := models.CanonicalTrade{
			BloombergTicker: ticker.Generate(p.symbols.Resolve(symbol), expiry, secType, strike, instrument),
			CPCode:          cpCode,
			BrokerCode:      parsers.BrokerCodeFromRow(table, row, p.broker.Code),
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

// instrumentFor synthesizes the instrument series for files that omit it,
// from the index allow-list and the security type.
func instrumentFor(symbol string, secType models.SecurityType) string {
	isIndex := ticker.IsIndex(symbol, "")
	if secType == models.SecurityFutures {
		if isIndex {
			return "FUTIDX"
		}
		return "FUTSTK"
	}
	if isIndex {
		return "OPTIDX"
	}
	return "OPTSTK"
}
