package brokers

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/username/brokerecon/backend/src/models"
	"github.com/username/brokerecon/backend/src/parsers"
	"github.com/username/brokerecon/backend/src/registry"
	"github.com/username/brokerecon/backend/src/ticker"
)

// Kotak normalizes Kotak Securities files. Two generations of the export
// exist: the new one carries separate Symbol/Expiry Date/Strike Price/Option
// Type columns, the old one packs everything into a combined scrip like
// "ACC23OCT1800PE" whose expiry is the last Thursday of the contract month.
type Kotak struct {
	broker  registry.Broker
	symbols *ticker.SymbolMap
}

func NewKotak(b registry.Broker, symbols *ticker.SymbolMap) *Kotak {
	return &Kotak{broker: b, symbols: symbols}
}

func (p *Kotak) BrokerID() string { return p.broker.ID }

var kotakNewFormatCols = []string{"Symbol", "Expiry Date", "Strike Price", "Option Type"}

var kotakNewRequired = []string{
	"Symbol", "Expiry Date", "Strike Price", "Option Type", "Instrument",
	"Buy/Sell", "Quantity", "Traded Price", "Brokerage", "Total Taxes",
}

var kotakOldRequired = []string{
	"Scrip", "Instrument", "Buy/Sell", "Quantity", "Traded Price", "Brokerage", "Total Taxes",
}

func (p *Kotak) Normalize(table *models.RawTable) (*parsers.Result, error) {
	if table.HasCols(kotakNewFormatCols...) {
		return p.normalizeNew(table)
	}
	return p.normalizeOld(table)
}

func (p *Kotak) normalizeNew(table *models.RawTable) (*parsers.Result, error) {
	if missing := table.MissingCols(kotakNewRequired...); len(missing) > 0 {
		return nil, fmt.Errorf("Kotak file (new format) missing columns: %s", strings.Join(missing, ", "))
	}

	result := &parsers.Result{}
	for i, row := range table.Rows {
		symbol := strings.ToUpper(models.Cell(row, table.Col("Symbol")))
		if symbol == "" {
			rowErrf(result, i, "blank symbol")
			continue
		}
		instrument := strings.ToUpper(models.Cell(row, table.Col("Instrument")))

		secType, ok := ticker.SecurityTypeOf(models.Cell(row, table.Col("Option Type")))
		if !ok {
			rowErrf(result, i, "unknown option type %q", models.Cell(row, table.Col("Option Type")))
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
		expiry, err := parsers.ParseDate(models.Cell(row, table.Col("Expiry Date")))
		if err != nil {
			rowErr(result, i, "expiry", err)
			continue
		}
		side, ok := parsers.NormalizeSide(models.Cell(row, table.Col("Buy/Sell")))
		if !ok {
			rowErrf(result, i, "unrecognized side %q", models.Cell(row, table.Col("Buy/Sell")))
			continue
		}
		qty, err := parsers.ParseQuantity(models.Cell(row, table.Col("Quantity")))
		if err != nil {
			rowErr(result, i, "quantity", err)
			continue
		}
		price, err := parsers.ParseNumber(models.Cell(row, table.Col("Traded Price")))
		if err != nil {
			rowErr(result, i, "price", err)
			continue
		}
		brokerage, err := optionalNumber(models.Cell(row, table.Col("Brokerage")))
		if err != nil {
			rowErr(result, i, "brokerage", err)
			continue
		}
		taxes, err := optionalNumber(models.Cell(row, table.Col("Total Taxes")))
		if err != nil {
			rowErr(result, i, "taxes", err)
			continue
		}

		cpCode := ""
		if idx := table.Col("CPCode"); idx >= 0 {
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
			TradeDate:       kotakTradeDate(table, row),
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

var (
	kotakFutScrip = regexp.MustCompile(`^([A-Z]+)(\d{2})([A-Z]{3})FUT$`)
	kotakOptScrip = regexp.MustCompile(`^([A-Z]+)(\d{2})([A-Z]{3})(\d+)(CE|PE)$`)
)

var monthAbbrev = map[string]time.Month{
	"JAN": time.January, "FEB": time.February, "MAR": time.March,
	"APR": time.April, "MAY": time.May, "JUN": time.June,
	"JUL": time.July, "AUG": time.August, "SEP": time.September,
	"OCT": time.October, "NOV": time.November, "DEC": time.December,
}

func (p *Kotak) normalizeOld(table *models.RawTable) (*parsers.Result, error) {
	if missing := table.MissingCols(kotakOldRequired...); len(missing) > 0 {
		return nil, fmt.Errorf("Kotak file (old format) missing columns: %s", strings.Join(missing, ", "))
	}

	result := &parsers.Result{}
	for i, row := range table.Rows {
		scrip := strings.ToUpper(models.Cell(row, table.Col("Scrip")))
		symbol, expiry, strike, secType, err := parseKotakScrip(scrip)
		if err != nil {
			rowErr(result, i, "scrip", err)
			continue
		}
		instrument := strings.ToUpper(models.Cell(row, table.Col("Instrument")))

		side, ok := parsers.NormalizeSide(models.Cell(row, table.Col("Buy/Sell")))
		if !ok {
			rowErrf(result, i, "unrecognized side %q", models.Cell(row, table.Col("Buy/Sell")))
			continue
		}
		qty, err := parsers.ParseQuantity(models.Cell(row, table.Col("Quantity")))
		if err != nil {
			rowErr(result, i, "quantity", err)
			continue
		}
		price, err := parsers.ParseNumber(models.Cell(row, table.Col("Traded Price")))
		if err != nil {
			rowErr(result, i, "price", err)
			continue
		}
		brokerage, err := optionalNumber(models.Cell(row, table.Col("Brokerage")))
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
			BloombergTicker: ticker.Generate(p.symbols.Resolve(symbol), expiry, secType, strike, instrument),
			CPCode:          "", // the old export carries no CP code
			BrokerCode:      parsers.BrokerCodeFromRow(table, row, p.broker.Code),
			Side:            side,
			Quantity:        qty,
			Price:           price,
			PureBrokerage:   brokerage,
			TotalTaxes:      round2(taxes),
			TradeDate:       kotakTradeDate(table, row),
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

// parseKotakScrip decodes the combined scrip: SYMBOL + YY + MMM + FUT, or
// SYMBOL + YY + MMM + STRIKE + CE|PE. The monthly expiry is the last Thursday
// of the contract month.
func parseKotakScrip(scrip string) (string, time.Time, float64, models.SecurityType, error) {
	if m := kotakFutScrip.FindStringSubmatch(scrip); m != nil {
		expiry, err := kotakExpiry(m[2], m[3])
		if err != nil {
			return "", time.Time{}, 0, "", err
		}
		return m[1], expiry, 0, models.SecurityFutures, nil
	}
	if m := kotakOptScrip.FindStringSubmatch(scrip); m != nil {
		expiry, err := kotakExpiry(m[2], m[3])
		if err != nil {
			return "", time.Time{}, 0, "", err
		}
		strike, _ := strconv.ParseFloat(m[4], 64)
		secType := models.SecurityCall
		if m[5] == "PE" {
			secType = models.SecurityPut
		}
		return m[1], expiry, strike, secType, nil
	}
	return "", time.Time{}, 0, "", fmt.Errorf("unrecognized scrip %q", scrip)
}

func kotakExpiry(yy, mmm string) (time.Time, error) {
	month, ok := monthAbbrev[mmm]
	if !ok {
		return time.Time{}, fmt.Errorf("unknown contract month %q", mmm)
	}
	year, err := strconv.Atoi(yy)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid contract year %q", yy)
	}
	return parsers.LastThursday(2000+year, month), nil
}

func kotakTradeDate(table *models.RawTable, row []string) string {
	if idx := table.Col("Trade Date"); idx >= 0 {
		return tradeDate(models.Cell(row, idx))
	}
	return ""
}
