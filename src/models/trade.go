package models

// Side is the normalized direction of a trade.
type Side string

const (
	SideBuy  Side = "Buy"
	SideSell Side = "Sell"
)

// SecurityType distinguishes the three instrument classes the engine handles.
type SecurityType string

const (
	SecurityFutures SecurityType = "Futures"
	SecurityCall    SecurityType = "Call"
	SecurityPut     SecurityType = "Put"
)

// CanonicalTrade is the unified representation every broker format is
// normalized into. Records are immutable once built; matching only associates
// indices, it never mutates a record.
type CanonicalTrade struct {
	// Matching key fields.
	BloombergTicker string  `json:"bloomberg_ticker"`
	CPCode          string  `json:"cp_code"`     // upper-cased, trimmed
	BrokerCode      int     `json:"broker_code"` // sign-normalized counterparty member code
	Side            Side    `json:"side"`
	Quantity        int     `json:"quantity"` // absolute, in the file's native unit
	Lots            float64 `json:"lots,omitempty"`
	HasLots         bool    `json:"has_lots,omitempty"`
	Price           float64 `json:"price"`

	// Payload fields the clearing side lacks.
	PureBrokerage float64 `json:"pure_brokerage"`
	TotalTaxes    float64 `json:"total_taxes"`
	TradeDate     string  `json:"trade_date"` // dd/mm/yyyy

	// Descriptive fields carried through to the report.
	Symbol       string       `json:"symbol"`
	Instrument   string       `json:"instrument"` // FUTSTK / FUTIDX / OPTSTK / OPTIDX
	SecurityType SecurityType `json:"security_type"`
	Strike       float64      `json:"strike"`
	ExpiryDate   string       `json:"expiry_date"` // dd/mm/yyyy

	// Provenance.
	BrokerID   string `json:"broker_id,omitempty"`   // registry key, empty on the clearing side
	BrokerName string `json:"broker_name,omitempty"` // display name, empty on the clearing side
	RowIndex   int    `json:"row_index"`             // data-row index in the source table
}

// NotionalValue is price times quantity, the denominator for ad-valorem rates.
func (t *CanonicalTrade) NotionalValue() float64 {
	return t.Price * float64(t.Quantity)
}

// MatchPair associates one clearing record with one broker record by index
// into the respective canonical sets.
type MatchPair struct {
	ClearingIdx int `json:"clearing_idx"`
	BrokerIdx   int `json:"broker_idx"`
}

// RowError records one source row that could not be normalized. Parse
// failures are counted separately from match failures and never conflated.
type RowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}
