package models

import "fmt"

// Predicate names one stage of the matching chain. The declaration order is
// the filtering order, and therefore the diagnostic order.
type Predicate string

const (
	PredicateTicker     Predicate = "Ticker"
	PredicateCPCode     Predicate = "CP Code"
	PredicateBrokerCode Predicate = "Broker Code"
	PredicateSide       Predicate = "Side"
	PredicateQuantity   Predicate = "Quantity"
	PredicateLots       Predicate = "Lots"
	PredicatePrice      Predicate = "Price"
)

// Diagnostic explains why a record did not match: the first predicate whose
// candidate set became empty, the record's own value for it, and the distinct
// competing values seen on the other side at that stage.
type Diagnostic struct {
	Failed    Predicate `json:"failed_predicate"`
	Value     string    `json:"value"`
	Competing []string  `json:"competing_values"`
	Reason    string    `json:"reason"`
}

// NoCandidates reports whether the record failed at the very first stage,
// i.e. nothing on the other side even shared its ticker.
func (d Diagnostic) NoCandidates() bool {
	return d.Failed == PredicateTicker
}

// Summary is the scalar outcome of a reconciliation run, consumed by the
// orchestration layer to decide whether downstream stages may proceed.
type Summary struct {
	MatchedCount           int     `json:"matched_count"`
	UnmatchedClearingCount int     `json:"unmatched_clearing_count"`
	UnmatchedBrokerCount   int     `json:"unmatched_broker_count"`
	TotalClearing          int     `json:"total_clearing"`
	TotalBroker            int     `json:"total_broker"`
	MatchRate              float64 `json:"match_rate"` // percent of clearing trades matched
	TotalBrokerage         float64 `json:"total_brokerage"`
	TotalTaxes             float64 `json:"total_taxes"`
}

// FullyMatched reports the business gate downstream processing keys on. The
// engine exposes it but does not enforce it.
func (s Summary) FullyMatched() bool {
	return s.TotalClearing > 0 && s.MatchedCount == s.TotalClearing
}

func (s Summary) String() string {
	return fmt.Sprintf("matched %d/%d clearing (%.2f%%), %d broker unmatched",
		s.MatchedCount, s.TotalClearing, s.MatchRate, s.UnmatchedBrokerCount)
}
