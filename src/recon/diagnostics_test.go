package recon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/username/brokerecon/backend/src/models"
)

func TestExplainNoTickerCandidates(t *testing.T) {
	subject := trade()
	pool := []models.CanonicalTrade{trade(func(x *models.CanonicalTrade) { x.BloombergTicker = "AF1U3 Index" })}

	d := Explain(&subject, pool, "clearing", "broker")
	assert.Equal(t, models.PredicateTicker, d.Failed)
	assert.True(t, d.NoCandidates())
	assert.Equal(t, "No broker trade with ticker NZV3 INDEX", d.Reason)
}

func TestExplainCPCodeMismatch(t *testing.T) {
	subject := trade()
	pool := []models.CanonicalTrade{
		trade(func(x *models.CanonicalTrade) { x.CPCode = "CITI00007707" }),
		trade(func(x *models.CanonicalTrade) { x.CPCode = "CITI00007707" }),
		trade(func(x *models.CanonicalTrade) { x.CPCode = "WAFRA0000001" }),
	}

	d := Explain(&subject, pool, "clearing", "broker")
	assert.Equal(t, models.PredicateCPCode, d.Failed)
	assert.Equal(t, "ECASL0000094", d.Value)
	// Distinct, first-seen order.
	assert.Equal(t, []string{"CITI00007707", "WAFRA0000001"}, d.Competing)
	assert.Equal(t, "CP Code mismatch (clearing=ECASL0000094, broker=[CITI00007707, WAFRA0000001])", d.Reason)
}

func TestExplainQuantityMismatch(t *testing.T) {
	subject := trade()
	pool := []models.CanonicalTrade{trade(func(x *models.CanonicalTrade) { x.Quantity = 50 })}

	d := Explain(&subject, pool, "clearing", "broker")
	assert.Equal(t, models.PredicateQuantity, d.Failed)
	assert.Equal(t, "Quantity mismatch (clearing=100, broker=[50])", d.Reason)
}

func TestExplainPriceMismatchCarriesDiffs(t *testing.T) {
	subject := trade()
	pool := []models.CanonicalTrade{trade(func(x *models.CanonicalTrade) { x.Price = 2525.00 })}

	d := Explain(&subject, pool, "clearing", "broker")
	assert.Equal(t, models.PredicatePrice, d.Failed)
	assert.Equal(t, "2500.0000", d.Value)
	assert.Equal(t, []string{"2525.0000"}, d.Competing)
	assert.Equal(t, "Price mismatch (clearing=2500.0000, broker=[2525.0000], diff%=[1.0000%])", d.Reason)
}

func TestExplainAllCriteriaPass(t *testing.T) {
	// Both clearing records match the single broker fill; the second one's
	// diagnostic must say the counterpart is already taken.
	subject := trade()
	pool := []models.CanonicalTrade{trade()}

	d := Explain(&subject, pool, "clearing", "broker")
	assert.Empty(t, d.Failed)
	assert.Equal(t, "all criteria match a broker trade already paired with another clearing trade", d.Reason)
}

func TestExplainBrokerSideUsesLabels(t *testing.T) {
	subject := trade(func(x *models.CanonicalTrade) { x.Side = models.SideSell })
	pool := []models.CanonicalTrade{trade()}

	d := Explain(&subject, pool, "broker", "clearing")
	assert.Equal(t, models.PredicateSide, d.Failed)
	assert.Equal(t, "Side mismatch (broker=Sell, clearing=[Buy])", d.Reason)
}
