package parsers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/brokerecon/backend/src/models"
)

func TestParseNumber(t *testing.T) {
	v, err := ParseNumber("1,23,456.78")
	require.NoError(t, err)
	assert.Equal(t, 123456.78, v)

	v, err = ParseNumber(" -42.5 ")
	require.NoError(t, err)
	assert.Equal(t, -42.5, v)

	_, err = ParseNumber("")
	assert.Error(t, err)
	_, err = ParseNumber("12x")
	assert.Error(t, err)
}

func TestParseQuantity(t *testing.T) {
	q, err := ParseQuantity("-1,500")
	require.NoError(t, err)
	assert.Equal(t, 1500, q)
}

func TestParseBrokerCode(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"07730", 7730},
		{"-7730", 7730},
		{"8081.0", 8081},
	}
	for _, tt := range tests {
		got, err := ParseBrokerCode(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
	_, err := ParseBrokerCode("0")
	assert.Error(t, err)
	_, err = ParseBrokerCode("n/a")
	assert.Error(t, err)
}

func TestNormalizeSide(t *testing.T) {
	for _, s := range []string{"B", "Buy", "BUY", "b"} {
		side, ok := NormalizeSide(s)
		assert.True(t, ok, s)
		assert.Equal(t, models.SideBuy, side, s)
	}
	for _, s := range []string{"S", "Sell", "SELL"} {
		side, ok := NormalizeSide(s)
		assert.True(t, ok, s)
		assert.Equal(t, models.SideSell, side, s)
	}
	_, ok := NormalizeSide("X")
	assert.False(t, ok)
}

func TestParseDateChains(t *testing.T) {
	want := time.Date(2023, time.October, 26, 0, 0, 0, 0, time.UTC)

	for _, s := range []string{"26/10/2023", "26-10-2023", "26.10.23", "2023-10-26", "26-Oct-2023", "26-Oct-23"} {
		got, err := ParseDate(s)
		require.NoError(t, err, s)
		assert.Equal(t, want, got, s)
	}

	// Day-first wins for ambiguous values.
	got, err := ParseDate("05/10/2023")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, time.October, 5, 0, 0, 0, 0, time.UTC), got)

	// Month-first preference flips the same value.
	got, err = ParseDateMonthFirst("05/10/2023")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, time.May, 10, 0, 0, 0, 0, time.UTC), got)

	got, err = ParseDateTextual("29-Sep-23")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, time.September, 29, 0, 0, 0, 0, time.UTC), got)

	_, err = ParseDate("not a date")
	assert.Error(t, err)
	_, err = ParseDate("")
	assert.Error(t, err)
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "26/10/2023", FormatDate(time.Date(2023, time.October, 26, 0, 0, 0, 0, time.UTC)))
}

func TestLastThursday(t *testing.T) {
	tests := []struct {
		year  int
		month time.Month
		day   int
	}{
		{2023, time.October, 26},
		{2023, time.September, 28},
		{2023, time.November, 30},
		{2024, time.February, 29},
	}
	for _, tt := range tests {
		got := LastThursday(tt.year, tt.month)
		assert.Equal(t, time.Thursday, got.Weekday())
		assert.Equal(t, tt.day, got.Day(), "%d-%s", tt.year, tt.month)
	}
}

func TestBrokerCodeFromRow(t *testing.T) {
	table := &models.RawTable{
		Headers: []string{"Symbol", "Broker Code"},
		Rows:    [][]string{{"NIFTY", "-08081"}, {"NIFTY", "garbage"}},
	}
	assert.Equal(t, 8081, BrokerCodeFromRow(table, table.Rows[0], 7730))
	// Unparseable code falls back to the registered default.
	assert.Equal(t, 7730, BrokerCodeFromRow(table, table.Rows[1], 7730))
}

func TestLotsFromRow(t *testing.T) {
	table := &models.RawTable{
		Headers: []string{"Symbol", "Lots Traded"},
		Rows:    [][]string{{"NIFTY", "-4"}, {"NIFTY", ""}},
	}
	lots, ok := LotsFromRow(table, table.Rows[0])
	assert.True(t, ok)
	assert.Equal(t, 4.0, lots)

	_, ok = LotsFromRow(table, table.Rows[1])
	assert.False(t, ok)
}
