package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/username/brokerecon/backend/src/models"
)

// WriteEnhancedClearing writes the clearing table back out with every
// original column unchanged and three appended columns (Comms, Taxes, TD)
// populated only on matched rows. Downstream systems key on the original
// columns, so nothing is reordered or reformatted.
func WriteEnhancedClearing(w io.Writer, table *models.RawTable, clearing, broker []models.CanonicalTrade, pairs []models.MatchPair) error {
	// Source-row index of each matched clearing trade to its broker payload.
	payload := make(map[int]models.CanonicalTrade, len(pairs))
	for _, p := range pairs {
		payload[clearing[p.ClearingIdx].RowIndex] = broker[p.BrokerIdx]
	}

	cw := csv.NewWriter(w)
	header := append(append([]string{}, table.Headers...), "Comms", "Taxes", "TD")
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write enhanced clearing header: %w", err)
	}
	for i, row := range table.Rows {
		out := make([]string, len(table.Headers), len(table.Headers)+3)
		copy(out, row)
		if b, ok := payload[i]; ok {
			out = append(out, formatAmount(b.PureBrokerage), formatAmount(b.TotalTaxes), b.TradeDate)
		} else {
			out = append(out, "", "", "")
		}
		if err := cw.Write(out); err != nil {
			return fmt.Errorf("write enhanced clearing row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// formatAmount keeps full precision so transplanted brokerage survives a
// round trip through the file unchanged.
func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
