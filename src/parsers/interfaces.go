package parsers

import (
	"github.com/username/brokerecon/backend/src/models"
)

// Result is the outcome of normalizing one file. Rows that could not be
// converted are reported as RowErrors, never silently defaulted; a file-level
// problem (wrong schema) is an error from Normalize instead.
type Result struct {
	Trades    []models.CanonicalTrade
	RowErrors []models.RowError
}

// Normalizer converts one broker format's raw rows into canonical trades.
// Implementations are pure: they hold only frozen reference data and may be
// used concurrently.
type Normalizer interface {
	BrokerID() string
	Normalize(table *models.RawTable) (*Result, error)
}
