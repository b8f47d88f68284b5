package brokers

import (
	"fmt"
	"strings"

	"github.com/username/brokerecon/backend/src/models"
	"github.com/username/brokerecon/backend/src/parsers"
	"github.com/username/brokerecon/backend/src/registry"
	"github.com/username/brokerecon/backend/src/ticker"
)

// Antique normalizes Antique Stock Broking files. The layout is the same
// contract-slip shape as Equirus, with the Call / Put and Strike Price
// columns always present (futures rows carry "XX").
type Antique struct {
	broker  registry.Broker
	symbols *ticker.SymbolMap
}

func NewAntique(b registry.Broker, symbols *ticker.SymbolMap) *Antique {
	return &Antique{broker: b, symbols: symbols}
}

func (p *Antique) BrokerID() string { return p.broker.ID }

var antiqueRequired = []string{
	"CP Code", "Scrip Code", "Expiry", "Call / Put", "Strike Price", "Buy / Sell",
	"Qty", "Mkt. Rate", "Pure Brokerage AMT", "Total Taxes", "Trade Date",
}

func (p *Antique) Normalize(table *models.RawTable) (*parsers.Result, error) {
	if missing := table.MissingCols(antiqueRequired...); len(missing) > 0 {
		return nil, fmt.Errorf("Antique file missing columns: %s", strings.Join(missing, ", "))
	}
	return normalizeContractSlip(table, p.broker, p.symbols)
}
