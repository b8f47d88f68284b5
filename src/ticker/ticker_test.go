package ticker

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/brokerecon/backend/src/models"
)

func expiry(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestGenerateFutures(t *testing.T) {
	tests := []struct {
		name       string
		symbol     string
		expiry     time.Time
		instrument string
		want       string
	}{
		{"index alias resolves to futures root", "NIFTY", expiry(2023, time.October, 26), "FUTIDX", "NZV3 Index"},
		{"bank nifty alias", "BANKNIFTY", expiry(2023, time.September, 28), "FUTIDX", "AF1U3 Index"},
		{"single stock", "RELIANCE", expiry(2023, time.October, 26), "FUTSTK", "RELIANCE=V3 IS Equity"},
		{"stock without instrument hint", "ACC", expiry(2024, time.January, 25), "", "ACC=F4 IS Equity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Generate(tt.symbol, tt.expiry, models.SecurityFutures, 0, tt.instrument)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGenerateOptions(t *testing.T) {
	tests := []struct {
		name       string
		symbol     string
		expiry     time.Time
		secType    models.SecurityType
		strike     float64
		instrument string
		want       string
	}{
		{"index call", "NIFTY", expiry(2023, time.October, 26), models.SecurityCall, 19500, "OPTIDX", "NIFTY 10/26/23 C19500 Index"},
		{"index put via options alias", "BANKNIFTY", expiry(2023, time.September, 28), models.SecurityPut, 44500, "OPTIDX", "NSEBANK 09/28/23 P44500 Index"},
		{"stock put", "ACC", expiry(2023, time.October, 26), models.SecurityPut, 1800, "OPTSTK", "ACC IS 10/26/23 P1800 Equity"},
		{"fractional strike keeps decimals", "TCS", expiry(2023, time.October, 26), models.SecurityCall, 3522.5, "OPTSTK", "TCS IS 10/26/23 C3522.5 Equity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Generate(tt.symbol, tt.expiry, tt.secType, tt.strike, tt.instrument)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGenerateEmptySymbol(t *testing.T) {
	assert.Equal(t, "", Generate("  ", expiry(2023, time.October, 26), models.SecurityFutures, 0, "FUTIDX"))
}

func TestMonthCodesCoverAllMonths(t *testing.T) {
	want := []string{"F", "G", "H", "J", "K", "M", "N", "Q", "U", "V", "X", "Z"}
	for i, code := range want {
		assert.Equal(t, code, monthCode[time.Month(i+1)])
	}
}

func TestFormatStrike(t *testing.T) {
	assert.Equal(t, "19500", FormatStrike(19500.0))
	assert.Equal(t, "1822.5", FormatStrike(1822.5))
	assert.Equal(t, "0", FormatStrike(0))
}

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t, "NIFTY 10/26/23 C19500 INDEX", NormalizeKey("  nifty  10/26/23   C19500 Index "))
	assert.Equal(t, NormalizeKey("NZV3 Index"), NormalizeKey("nzv3  index"))
}

func TestSecurityTypeOf(t *testing.T) {
	futures := []string{"", "FF", "FUT", "FUTURE", "NAN", "XX", "fut"}
	for _, s := range futures {
		got, ok := SecurityTypeOf(s)
		assert.True(t, ok, s)
		assert.Equal(t, models.SecurityFutures, got, s)
	}
	for _, s := range []string{"CE", "CALL", "c"} {
		got, ok := SecurityTypeOf(s)
		assert.True(t, ok)
		assert.Equal(t, models.SecurityCall, got)
	}
	for _, s := range []string{"PE", "PUT", "p"} {
		got, ok := SecurityTypeOf(s)
		assert.True(t, ok)
		assert.Equal(t, models.SecurityPut, got)
	}
	_, ok := SecurityTypeOf("STRADDLE")
	assert.False(t, ok)
}

func TestIsIndex(t *testing.T) {
	assert.True(t, IsIndex("NIFTY", ""))
	assert.True(t, IsIndex("RELIANCE", "FUTIDX"))
	assert.True(t, IsIndex("FINNIFTY", ""))
	assert.True(t, IsIndex("MIDCPNIFTY", "OPTIDX"))
	assert.False(t, IsIndex("RELIANCE", "FUTSTK"))
	assert.False(t, IsIndex("ACC", ""))
}

func TestReadSymbolMap(t *testing.T) {
	content := strings.Join([]string{
		"Futures Mapping File",
		"Generated 01/10/2023",
		"",
		"Symbol,Ticker,Cash",
		"NIFTY,NZ,NIFTY Index",
		"RELIANCE,RIL,RIL IS Equity",
		",ORPHAN,",
	}, "\n")

	m, err := ReadSymbolMap(strings.NewReader(content))
	require.NoError(t, err)

	assert.Equal(t, "RIL", m.Resolve("reliance"))
	assert.Equal(t, "NZ", m.Resolve("NIFTY"))
	// Tickers self-map so already-converted files resolve cleanly.
	assert.Equal(t, "RIL", m.Resolve("RIL"))
	assert.Equal(t, "ORPHAN", m.Resolve("ORPHAN"))
	// Unknown symbols pass through upper-cased.
	assert.Equal(t, "TCS", m.Resolve("tcs"))

	cash, ok := m.Underlying("RIL")
	assert.True(t, ok)
	assert.Equal(t, "RIL IS Equity", cash)
}

func TestReadSymbolMapMissingColumns(t *testing.T) {
	content := "a\nb\nc\nFoo,Bar\n1,2\n"
	_, err := ReadSymbolMap(strings.NewReader(content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Symbol/Ticker")
}
