package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/username/brokerecon/backend/src/security/validation"
)

var unmatchedHeader = []string{
	"Bloomberg Ticker", "CP Code", "Broker Code", "Side", "Quantity", "Lots",
	"Price", "Comms", "Taxes", "TD", "Broker Name",
	"DIAGNOSTIC_Failed", "DIAGNOSTIC_Value", "DIAGNOSTIC_Competing",
	"DIAGNOSTIC_Match_Failure_Reason",
}

// WriteUnmatchedCSV renders one unmatched section for analysts. Free-text
// diagnostic cells are sanitized because the file is routinely opened in
// spreadsheet software.
func WriteUnmatchedCSV(w io.Writer, rows []UnmatchedRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(unmatchedHeader); err != nil {
		return fmt.Errorf("write unmatched header: %w", err)
	}
	for _, row := range rows {
		t := row.Trade
		lots := ""
		if t.HasLots {
			lots = strconv.FormatFloat(t.Lots, 'f', -1, 64)
		}
		competing := ""
		for i, v := range row.Diagnostic.Competing {
			if i > 0 {
				competing += "; "
			}
			competing += v
		}
		record := []string{
			t.BloombergTicker,
			t.CPCode,
			strconv.Itoa(t.BrokerCode),
			string(t.Side),
			strconv.Itoa(t.Quantity),
			lots,
			strconv.FormatFloat(t.Price, 'f', -1, 64),
			formatAmount(t.PureBrokerage),
			formatAmount(t.TotalTaxes),
			t.TradeDate,
			t.BrokerName,
			string(row.Diagnostic.Failed),
			validation.SanitizeForFormulaInjection(row.Diagnostic.Value),
			validation.SanitizeForFormulaInjection(competing),
			validation.SanitizeForFormulaInjection(validation.StripUnprintable(row.Diagnostic.Reason)),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write unmatched row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
