package recon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/brokerecon/backend/src/models"
)

func trade(mod ...func(*models.CanonicalTrade)) models.CanonicalTrade {
	t := models.CanonicalTrade{
		BloombergTicker: "NZV3 Index",
		CPCode:          "ECASL0000094",
		BrokerCode:      7730,
		Side:            models.SideBuy,
		Quantity:        100,
		Price:           2500.00,
	}
	for _, m := range mod {
		m(&t)
	}
	return t
}

func TestMatchExact(t *testing.T) {
	clearing := []models.CanonicalTrade{trade()}
	broker := []models.CanonicalTrade{trade()}

	pairs, uc, ub := Match(clearing, broker)
	require.Len(t, pairs, 1)
	assert.Equal(t, models.MatchPair{ClearingIdx: 0, BrokerIdx: 0}, pairs[0])
	assert.Empty(t, uc)
	assert.Empty(t, ub)
}

func TestMatchPriceWithinTolerance(t *testing.T) {
	clearing := []models.CanonicalTrade{trade()}
	// 0.0008% difference, inside the 0.001% tolerance.
	broker := []models.CanonicalTrade{trade(func(x *models.CanonicalTrade) { x.Price = 2500.02 })}

	pairs, _, _ := Match(clearing, broker)
	assert.Len(t, pairs, 1)
}

func TestMatchPriceOutsideTolerance(t *testing.T) {
	clearing := []models.CanonicalTrade{trade()}
	broker := []models.CanonicalTrade{trade(func(x *models.CanonicalTrade) { x.Price = 2525.00 })}

	pairs, uc, ub := Match(clearing, broker)
	assert.Empty(t, pairs)
	assert.Equal(t, []int{0}, uc)
	assert.Equal(t, []int{0}, ub)
}

func TestMatchPriceToleranceIsStrict(t *testing.T) {
	// Exactly at the boundary: 1/100000 == the tolerance, and the
	// comparison is strict less-than.
	clearing := []models.CanonicalTrade{trade(func(x *models.CanonicalTrade) { x.Price = 100000 })}
	broker := []models.CanonicalTrade{trade(func(x *models.CanonicalTrade) { x.Price = 100001 })}

	pairs, _, _ := Match(clearing, broker)
	assert.Empty(t, pairs)

	// Just under the boundary must still match.
	broker = []models.CanonicalTrade{trade(func(x *models.CanonicalTrade) { x.Price = 100000.99999 })}
	pairs, _, _ = Match(clearing, broker)
	assert.Len(t, pairs, 1)
}

func TestMatchTickerNormalization(t *testing.T) {
	clearing := []models.CanonicalTrade{trade()}
	broker := []models.CanonicalTrade{trade(func(x *models.CanonicalTrade) { x.BloombergTicker = "  nzv3   INDEX " })}

	pairs, _, _ := Match(clearing, broker)
	assert.Len(t, pairs, 1)
}

func TestMatchFirstCandidateWins(t *testing.T) {
	clearing := []models.CanonicalTrade{trade()}
	broker := []models.CanonicalTrade{trade(), trade()}

	pairs, _, ub := Match(clearing, broker)
	require.Len(t, pairs, 1)
	assert.Equal(t, 0, pairs[0].BrokerIdx)
	assert.Equal(t, []int{1}, ub)
}

func TestMatchOneToOneConsumption(t *testing.T) {
	// Two identical clearing trades against one broker trade: the broker
	// record must be consumed exactly once.
	clearing := []models.CanonicalTrade{trade(), trade()}
	broker := []models.CanonicalTrade{trade()}

	pairs, uc, ub := Match(clearing, broker)
	require.Len(t, pairs, 1)
	assert.Equal(t, []int{1}, uc)
	assert.Empty(t, ub)

	// Partial injection: no index appears twice.
	seenC, seenB := map[int]bool{}, map[int]bool{}
	for _, p := range pairs {
		assert.False(t, seenC[p.ClearingIdx])
		assert.False(t, seenB[p.BrokerIdx])
		seenC[p.ClearingIdx] = true
		seenB[p.BrokerIdx] = true
	}
}

func TestMatchConservation(t *testing.T) {
	clearing := []models.CanonicalTrade{
		trade(),
		trade(func(x *models.CanonicalTrade) { x.Quantity = 50 }),
		trade(func(x *models.CanonicalTrade) { x.Side = models.SideSell }),
	}
	broker := []models.CanonicalTrade{
		trade(),
		trade(func(x *models.CanonicalTrade) { x.Quantity = 75 }),
	}

	pairs, uc, ub := Match(clearing, broker)
	assert.Equal(t, len(clearing), len(pairs)+len(uc))
	assert.Equal(t, len(broker), len(pairs)+len(ub))
}

func TestMatchDeterminism(t *testing.T) {
	clearing := []models.CanonicalTrade{
		trade(),
		trade(func(x *models.CanonicalTrade) { x.Quantity = 50 }),
	}
	broker := []models.CanonicalTrade{
		trade(func(x *models.CanonicalTrade) { x.Quantity = 50 }),
		trade(),
		trade(),
	}

	p1, uc1, ub1 := Match(clearing, broker)
	p2, uc2, ub2 := Match(clearing, broker)
	assert.Equal(t, p1, p2)
	assert.Equal(t, uc1, uc2)
	assert.Equal(t, ub1, ub2)
}

func TestMatchZeroMatchesIsValid(t *testing.T) {
	pairs, uc, ub := Match(nil, nil)
	assert.Empty(t, pairs)
	assert.Empty(t, uc)
	assert.Empty(t, ub)
}

func TestMatchLotsOnlyWhenBothCarryLots(t *testing.T) {
	withLots := func(l float64) func(*models.CanonicalTrade) {
		return func(x *models.CanonicalTrade) { x.Lots, x.HasLots = l, true }
	}

	// Subject has lots, candidate differs: no match.
	pairs, _, _ := Match(
		[]models.CanonicalTrade{trade(withLots(2))},
		[]models.CanonicalTrade{trade(withLots(3))},
	)
	assert.Empty(t, pairs)

	// Candidate without lots passes the filter.
	pairs, _, _ = Match(
		[]models.CanonicalTrade{trade(withLots(2))},
		[]models.CanonicalTrade{trade()},
	)
	assert.Len(t, pairs, 1)

	// Sign is ignored.
	pairs, _, _ = Match(
		[]models.CanonicalTrade{trade(withLots(2))},
		[]models.CanonicalTrade{trade(withLots(-2))},
	)
	assert.Len(t, pairs, 1)

	// Subject without lots never filters on them.
	pairs, _, _ = Match(
		[]models.CanonicalTrade{trade()},
		[]models.CanonicalTrade{trade(withLots(5))},
	)
	assert.Len(t, pairs, 1)
}

func TestValidateAccountCodes(t *testing.T) {
	clearing := []models.CanonicalTrade{
		trade(),
		trade(func(x *models.CanonicalTrade) { x.CPCode = "CITI00007707" }),
	}
	broker := []models.CanonicalTrade{trade()}

	err := ValidateAccountCodes(clearing, broker)
	require.Error(t, err)

	var mismatch *AccountMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, []string{"CITI00007707"}, mismatch.ClearingOnly)
	assert.Empty(t, mismatch.BrokerOnly)
	assert.Contains(t, err.Error(), "CITI00007707")

	assert.NoError(t, ValidateAccountCodes(clearing, append(broker,
		trade(func(x *models.CanonicalTrade) { x.CPCode = "CITI00007707" }))))
}

func TestValidateAccountCodesIgnoresBlank(t *testing.T) {
	clearing := []models.CanonicalTrade{trade()}
	broker := []models.CanonicalTrade{
		trade(),
		trade(func(x *models.CanonicalTrade) { x.CPCode = "" }),
	}
	assert.NoError(t, ValidateAccountCodes(clearing, broker))
}
