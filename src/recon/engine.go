// Package recon is the trade-matching engine: it pairs canonical clearing
// trades with canonical executing-broker trades on a composite key with a
// price tolerance, and explains every record it cannot pair.
package recon

import (
	"math"

	"github.com/username/brokerecon/backend/src/models"
	"github.com/username/brokerecon/backend/src/ticker"
)

// PriceTolerance is the relative price difference under which two prices are
// considered equal (0.001%). Clearing and broker systems round independently,
// so exact equality would reject genuine matches.
const PriceTolerance = 0.00001

// chain is the predicate order applied both when matching and when
// diagnosing. Keeping it in one place guarantees the diagnostic for an
// unmatched record describes the same filtering the matcher actually ran.
var chain = []models.Predicate{
	models.PredicateTicker,
	models.PredicateCPCode,
	models.PredicateBrokerCode,
	models.PredicateSide,
	models.PredicateQuantity,
	models.PredicateLots,
	models.PredicatePrice,
}

// Match produces a one-to-one pairing between the clearing set and the broker
// set. Clearing records are processed in input order; each takes the first
// surviving candidate, which is then removed from the pool. Zero matches is a
// valid outcome, not an error. The normalizers never emit a record without a
// ticker, so every record participates.
func Match(clearing, broker []models.CanonicalTrade) (pairs []models.MatchPair, unmatchedClearing, unmatchedBroker []int) {
	consumed := make([]bool, len(broker))

	for ci := range clearing {
		subject := &clearing[ci]
		candidates := make([]int, 0, len(broker))
		for bi := range broker {
			if !consumed[bi] {
				candidates = append(candidates, bi)
			}
		}
		for _, pred := range chain {
			candidates = filterStage(subject, broker, candidates, pred)
			if len(candidates) == 0 {
				break
			}
		}
		if len(candidates) > 0 {
			bi := candidates[0]
			consumed[bi] = true
			pairs = append(pairs, models.MatchPair{ClearingIdx: ci, BrokerIdx: bi})
		}
	}

	matchedClearing := make([]bool, len(clearing))
	for _, p := range pairs {
		matchedClearing[p.ClearingIdx] = true
	}
	for ci := range clearing {
		if !matchedClearing[ci] {
			unmatchedClearing = append(unmatchedClearing, ci)
		}
	}
	for bi := range broker {
		if !consumed[bi] {
			unmatchedBroker = append(unmatchedBroker, bi)
		}
	}
	return pairs, unmatchedClearing, unmatchedBroker
}

// filterStage keeps the candidates that survive one predicate against the
// subject. The subject's side of each comparison is fixed; in particular the
// price tolerance denominator is always the subject's price.
func filterStage(subject *models.CanonicalTrade, pool []models.CanonicalTrade, candidates []int, pred models.Predicate) []int {
	out := candidates[:0]
	for _, idx := range candidates {
		if stageMatches(subject, &pool[idx], pred) {
			out = append(out, idx)
		}
	}
	return out
}

func stageMatches(subject, candidate *models.CanonicalTrade, pred models.Predicate) bool {
	switch pred {
	case models.PredicateTicker:
		return ticker.NormalizeKey(candidate.BloombergTicker) == ticker.NormalizeKey(subject.BloombergTicker)
	case models.PredicateCPCode:
		return candidate.CPCode == subject.CPCode
	case models.PredicateBrokerCode:
		return candidate.BrokerCode == subject.BrokerCode
	case models.PredicateSide:
		return candidate.Side == subject.Side
	case models.PredicateQuantity:
		return candidate.Quantity == subject.Quantity
	case models.PredicateLots:
		// Lots are advisory: filtered only when the subject carries a
		// positive lot count and the candidate carries lots at all.
		if !subject.HasLots || subject.Lots <= 0 {
			return true
		}
		if !candidate.HasLots {
			return true
		}
		return math.Abs(candidate.Lots) == math.Abs(subject.Lots)
	case models.PredicatePrice:
		return math.Abs(candidate.Price-subject.Price)/subject.Price < PriceTolerance
	}
	return false
}
