package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/brokerecon/backend/src/models"
	"github.com/username/brokerecon/backend/src/recon"
)

func clearingTrade(mod ...func(*models.CanonicalTrade)) models.CanonicalTrade {
	t := models.CanonicalTrade{
		BloombergTicker: "NZV3 Index",
		CPCode:          "ECASL0000094",
		BrokerCode:      7730,
		Side:            models.SideBuy,
		Quantity:        100,
		Price:           19480.5,
		SecurityType:    models.SecurityFutures,
		RowIndex:        0,
	}
	for _, m := range mod {
		m(&t)
	}
	return t
}

func brokerTrade(mod ...func(*models.CanonicalTrade)) models.CanonicalTrade {
	t := clearingTrade()
	t.PureBrokerage = 20
	t.TotalTaxes = 5.5
	t.TradeDate = "20/10/2023"
	t.BrokerID = "ICICI"
	t.BrokerName = "ICICI Securities Limited"
	for _, m := range mod {
		m(&t)
	}
	return t
}

func TestBuildTransplantsPayload(t *testing.T) {
	clearing := []models.CanonicalTrade{clearingTrade()}
	broker := []models.CanonicalTrade{brokerTrade()}
	pairs, uc, ub := recon.Match(clearing, broker)

	r := Build(clearing, broker, pairs, uc, ub)
	require.Len(t, r.Matched, 1)
	assert.Equal(t, 20.0, r.Matched[0].Comms)
	assert.Equal(t, 5.5, r.Matched[0].Taxes)
	assert.Equal(t, "20/10/2023", r.Matched[0].TD)
	assert.Empty(t, r.UnmatchedClearing)
	assert.Empty(t, r.UnmatchedBroker)

	s := r.Summary
	assert.Equal(t, 1, s.MatchedCount)
	assert.Equal(t, 100.0, s.MatchRate)
	assert.Equal(t, 20.0, s.TotalBrokerage)
	assert.Equal(t, 5.5, s.TotalTaxes)
	assert.True(t, s.FullyMatched())
}

func TestBuildDiagnosesUnmatched(t *testing.T) {
	clearing := []models.CanonicalTrade{
		clearingTrade(),
		clearingTrade(func(x *models.CanonicalTrade) { x.Quantity = 50; x.RowIndex = 1 }),
		clearingTrade(func(x *models.CanonicalTrade) { x.Quantity = 75; x.RowIndex = 2 }),
	}
	broker := []models.CanonicalTrade{brokerTrade()}
	pairs, uc, ub := recon.Match(clearing, broker)

	r := Build(clearing, broker, pairs, uc, ub)
	require.Len(t, r.UnmatchedClearing, 2)
	assert.Equal(t, models.PredicateQuantity, r.UnmatchedClearing[0].Diagnostic.Failed)

	require.Len(t, r.ClearingReasons, 1)
	assert.Equal(t, ReasonCount{Reason: "Quantity", Count: 2}, r.ClearingReasons[0])
	assert.Empty(t, r.BrokerReasons)
	assert.False(t, r.Summary.FullyMatched())
	assert.Equal(t, 33.33, r.Summary.MatchRate)
}

func TestBuildConsumedCounterpartReason(t *testing.T) {
	clearing := []models.CanonicalTrade{
		clearingTrade(),
		clearingTrade(func(x *models.CanonicalTrade) { x.RowIndex = 1 }),
	}
	broker := []models.CanonicalTrade{brokerTrade()}
	pairs, uc, ub := recon.Match(clearing, broker)

	r := Build(clearing, broker, pairs, uc, ub)
	require.Len(t, r.UnmatchedClearing, 1)
	assert.Empty(t, r.UnmatchedClearing[0].Diagnostic.Failed)
	require.Len(t, r.ClearingReasons, 1)
	assert.Equal(t, "Already matched", r.ClearingReasons[0].Reason)
}

func TestBuildEmptyRun(t *testing.T) {
	r := Build(nil, nil, nil, nil, nil)
	assert.Empty(t, r.Matched)
	assert.Zero(t, r.Summary.MatchRate)
	assert.False(t, r.Summary.FullyMatched())
}

func TestCommissionAnalysisFutures(t *testing.T) {
	broker := []models.CanonicalTrade{brokerTrade()}
	rows, summaries := commissionAnalysis(broker, []models.MatchPair{{ClearingIdx: 0, BrokerIdx: 0}})

	require.Len(t, rows, 1)
	// 20 / (19480.5 * 100) * 100 = 0.001027%
	assert.Equal(t, "0.0010%", rows[0].CommRate)
	assert.Equal(t, 1948050.0, rows[0].TradeValue)
	assert.InDelta(t, 0.000282, rows[0].TaxRatePct, 0.000001)

	require.Len(t, summaries, 1)
	assert.Equal(t, "Futures", summaries[0].Instrument)
	assert.Equal(t, "ICICI Securities Limited", summaries[0].BrokerName)
	assert.Equal(t, 1, summaries[0].TradeCount)
}

func TestCommissionAnalysisOptionsPerLot(t *testing.T) {
	broker := []models.CanonicalTrade{
		brokerTrade(func(x *models.CanonicalTrade) {
			x.SecurityType = models.SecurityCall
			x.Lots, x.HasLots = 4, true
			x.PureBrokerage = 10
		}),
	}
	rows, summaries := commissionAnalysis(broker, []models.MatchPair{{ClearingIdx: 0, BrokerIdx: 0}})

	require.Len(t, rows, 1)
	assert.Equal(t, "₹2.50/lot", rows[0].CommRate)
	assert.Equal(t, 4.0, rows[0].Lots)

	require.Len(t, summaries, 1)
	assert.Equal(t, "Options", summaries[0].Instrument)
	assert.Equal(t, "₹2.50/lot", summaries[0].CommRate)
}

func TestCommissionAnalysisZeroDenominators(t *testing.T) {
	broker := []models.CanonicalTrade{
		brokerTrade(func(x *models.CanonicalTrade) { x.Price = 0; x.Quantity = 0 }),
		brokerTrade(func(x *models.CanonicalTrade) { x.SecurityType = models.SecurityPut }),
	}
	rows, _ := commissionAnalysis(broker, []models.MatchPair{
		{ClearingIdx: 0, BrokerIdx: 0},
		{ClearingIdx: 1, BrokerIdx: 1},
	})

	require.Len(t, rows, 2)
	assert.Equal(t, "0.0000%", rows[0].CommRate)
	assert.Zero(t, rows[0].TaxRatePct)
	// Option without lot information falls back to a zero per-lot rate.
	assert.Equal(t, "₹0.00/lot", rows[1].CommRate)
}

func TestSummarizeCommissionOrderedByBroker(t *testing.T) {
	broker := []models.CanonicalTrade{
		brokerTrade(func(x *models.CanonicalTrade) { x.BrokerName = "Kotak Securities"; x.BrokerCode = 8081 }),
		brokerTrade(),
		brokerTrade(func(x *models.CanonicalTrade) { x.SecurityType = models.SecurityCall; x.Lots, x.HasLots = 1, true }),
	}
	_, summaries := commissionAnalysis(broker, []models.MatchPair{
		{ClearingIdx: 0, BrokerIdx: 0},
		{ClearingIdx: 1, BrokerIdx: 1},
		{ClearingIdx: 2, BrokerIdx: 2},
	})

	require.Len(t, summaries, 3)
	assert.Equal(t, "ICICI Securities Limited", summaries[0].BrokerName)
	assert.Equal(t, "Futures", summaries[0].Instrument)
	assert.Equal(t, "Options", summaries[1].Instrument)
	assert.Equal(t, "Kotak Securities", summaries[2].BrokerName)
}
