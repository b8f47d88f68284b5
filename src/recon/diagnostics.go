package recon

import (
	"fmt"
	"math"
	"strings"

	"github.com/username/brokerecon/backend/src/models"
	"github.com/username/brokerecon/backend/src/ticker"
)

// Explain re-runs the predicate chain for one unmatched record against the
// opposite side's FULL set (ignoring consumption) and reports the first stage
// at which the candidate pool went empty, together with the distinct values
// the survivors carried at that stage. subjectLabel and poolLabel name the
// two sides ("clearing"/"broker") in the rendered reason.
func Explain(subject *models.CanonicalTrade, pool []models.CanonicalTrade, subjectLabel, poolLabel string) models.Diagnostic {
	candidates := make([]int, len(pool))
	for i := range pool {
		candidates[i] = i
	}

	for _, pred := range chain {
		survivors := filterStage(subject, pool, candidates, pred)
		if len(survivors) == 0 {
			return failedAt(subject, pool, candidates, pred, subjectLabel, poolLabel)
		}
		candidates = survivors
	}

	// Every predicate passed against the full set, so the only way this
	// record is unmatched is that its counterpart was consumed by an
	// earlier record (a duplicate fill on one side).
	return models.Diagnostic{
		Reason: fmt.Sprintf("all criteria match a %s trade already paired with another %s trade", poolLabel, subjectLabel),
	}
}

// failedAt builds the diagnostic for the stage that emptied the pool.
// candidates are the survivors of the previous stage, so their values at this
// predicate are exactly the competing values the subject failed against.
func failedAt(subject *models.CanonicalTrade, pool []models.CanonicalTrade, candidates []int, pred models.Predicate, subjectLabel, poolLabel string) models.Diagnostic {
	value := predicateValue(subject, pred)
	competing := distinctValues(pool, candidates, pred)

	d := models.Diagnostic{
		Failed:    pred,
		Value:     value,
		Competing: competing,
	}
	switch pred {
	case models.PredicateTicker:
		d.Reason = fmt.Sprintf("No %s trade with ticker %s", poolLabel, value)
	case models.PredicatePrice:
		d.Reason = fmt.Sprintf("Price mismatch (%s=%s, %s=[%s], diff%%=[%s])",
			subjectLabel, value, poolLabel,
			strings.Join(competing, ", "),
			strings.Join(priceDiffs(subject, pool, candidates), ", "))
	default:
		d.Reason = fmt.Sprintf("%s mismatch (%s=%s, %s=[%s])",
			pred, subjectLabel, value, poolLabel, strings.Join(competing, ", "))
	}
	return d
}

func predicateValue(t *models.CanonicalTrade, pred models.Predicate) string {
	switch pred {
	case models.PredicateTicker:
		return ticker.NormalizeKey(t.BloombergTicker)
	case models.PredicateCPCode:
		return t.CPCode
	case models.PredicateBrokerCode:
		return fmt.Sprintf("%d", t.BrokerCode)
	case models.PredicateSide:
		return string(t.Side)
	case models.PredicateQuantity:
		return fmt.Sprintf("%d", t.Quantity)
	case models.PredicateLots:
		return fmt.Sprintf("%g", math.Abs(t.Lots))
	case models.PredicatePrice:
		return fmt.Sprintf("%.4f", t.Price)
	}
	return ""
}

// distinctValues lists each competing value once, in first-seen order, so a
// diagnostic is stable across runs.
func distinctValues(pool []models.CanonicalTrade, candidates []int, pred models.Predicate) []string {
	seen := make(map[string]bool, len(candidates))
	var out []string
	for _, idx := range candidates {
		v := predicateValue(&pool[idx], pred)
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func priceDiffs(subject *models.CanonicalTrade, pool []models.CanonicalTrade, candidates []int) []string {
	var out []string
	for _, idx := range candidates {
		diff := (pool[idx].Price - subject.Price) / subject.Price * 100
		out = append(out, fmt.Sprintf("%.4f%%", diff))
	}
	return out
}
