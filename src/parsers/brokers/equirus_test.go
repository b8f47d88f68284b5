package brokers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/brokerecon/backend/src/models"
	"github.com/username/brokerecon/backend/src/ticker"
)

func TestEquirusNormalizeFuturesOnlyFile(t *testing.T) {
	// Equirus futures exports omit the Call / Put column entirely.
	table := &models.RawTable{
		Headers: []string{
			"CP Code", "Scrip Code", "Expiry", "Buy / Sell", "Qty",
			"Mkt. Rate", "Pure Brokerage AMT", "Total Taxes", "Trade Date", "Broker Code",
		},
		Rows: [][]string{
			{"ecasl0000094", "NIFTY", "10/26/2023", "B", "100", "19480.50", "18", "6.789", "2023-10-20", "13017"},
		},
	}
	p := NewEquirus(mustBroker(t, "EQUIRUS"), ticker.EmptySymbolMap())

	result, err := p.Normalize(table)
	require.NoError(t, err)
	require.Len(t, result.Trades, 1)

	tr := result.Trades[0]
	assert.Equal(t, "NZV3 Index", tr.BloombergTicker)
	assert.Equal(t, "ECASL0000094", tr.CPCode)
	assert.Equal(t, 13017, tr.BrokerCode)
	assert.Equal(t, models.SecurityFutures, tr.SecurityType)
	assert.Equal(t, "FUTIDX", tr.Instrument)
	assert.Equal(t, 6.79, tr.TotalTaxes)
	// Expiry reads month-first, trade date normalizes to dd/mm/yyyy.
	assert.Equal(t, "26/10/2023", tr.ExpiryDate)
	assert.Equal(t, "20/10/2023", tr.TradeDate)
}

func TestAntiqueNormalizeOptions(t *testing.T) {
	table := &models.RawTable{
		Headers: []string{
			"CP Code", "Scrip Code", "Expiry", "Call / Put", "Strike Price", "Buy / Sell",
			"Qty", "Mkt. Rate", "Pure Brokerage AMT", "Total Taxes", "Trade Date",
		},
		Rows: [][]string{
			{"ECASL0000094", "ACC", "10/26/2023", "PE", "1800", "S", "250", "12.50", "10", "3.456", "20/10/2023"},
			// Futures rows mark the option column with XX.
			{"ECASL0000094", "BANKNIFTY", "09/28/2023", "XX", "", "B", "30", "44510", "8", "2", "20/10/2023"},
			{"ECASL0000094", "ACC", "10/26/2023", "STRADDLE", "1800", "S", "250", "12.50", "10", "3.456", "20/10/2023"},
		},
	}
	p := NewAntique(mustBroker(t, "ANTIQUE"), ticker.EmptySymbolMap())

	result, err := p.Normalize(table)
	require.NoError(t, err)
	require.Len(t, result.Trades, 2)
	require.Len(t, result.RowErrors, 1)
	assert.Equal(t, 2, result.RowErrors[0].Row)

	put := result.Trades[0]
	assert.Equal(t, "ACC IS 10/26/23 P1800 Equity", put.BloombergTicker)
	assert.Equal(t, models.SecurityPut, put.SecurityType)
	assert.Equal(t, "OPTSTK", put.Instrument)
	assert.Equal(t, models.SideSell, put.Side)
	assert.Equal(t, 12987, put.BrokerCode)

	fut := result.Trades[1]
	assert.Equal(t, "AF1U3 Index", fut.BloombergTicker)
	assert.Equal(t, models.SecurityFutures, fut.SecurityType)
	assert.Equal(t, "FUTIDX", fut.Instrument)
}

func TestAntiqueMissingColumns(t *testing.T) {
	table := &models.RawTable{
		Headers: []string{"CP Code", "Scrip Code", "Expiry"},
		Rows:    [][]string{{"X", "NIFTY", "10/26/2023"}},
	}
	p := NewAntique(mustBroker(t, "ANTIQUE"), ticker.EmptySymbolMap())
	_, err := p.Normalize(table)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing columns")
}
