package brokers

import (
	"fmt"
	"strings"

	"github.com/username/brokerecon/backend/src/models"
	"github.com/username/brokerecon/backend/src/parsers"
	"github.com/username/brokerecon/backend/src/registry"
	"github.com/username/brokerecon/backend/src/ticker"
)

// Edelweiss normalizes Edelweiss Securities files, and by extension Nuvama's,
// which kept the export format after the rename. The shape matches Axis
// except for the price header ("Mkt. Price").
type Edelweiss struct {
	broker  registry.Broker
	symbols *ticker.SymbolMap
}

func NewEdelweiss(b registry.Broker, symbols *ticker.SymbolMap) *Edelweiss {
	return &Edelweiss{broker: b, symbols: symbols}
}

func (p *Edelweiss) BrokerID() string { return p.broker.ID }

var edelweissRequired = []string{
	"CP Code", "Buy/Sell", "Qty", "Instrument", "Scrip", "OptType",
	"Expiry", "Mkt. Price", "Brokerage", "GST", "STT", "Trade Date",
}

func (p *Edelweiss) Normalize(table *models.RawTable) (*parsers.Result, error) {
	if missing := table.MissingCols(edelweissRequired...); len(missing) > 0 {
		return nil, fmt.Errorf("Edelweiss file missing columns: %s", strings.Join(missing, ", "))
	}
	return normalizeGSTFormat(table, p.broker, p.symbols, "Mkt. Price")
}
