package backfolio

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRateTable(t *testing.T, f *fakeMarket, cfg *Config) (*RateTable, *Calendar) {
	t.Helper()
	log := zerolog.Nop()
	cal, err := FetchCalendar(f, cfg.Markets, day(2), day(31).Add(1), log)
	require.NoError(t, err)
	ms, err := Prefetch(f, cfg, NewRange(cal.First(), cal.Last()), log)
	require.NoError(t, err)
	return NewRateTable(cal, cfg.ReportingCurrency, ms, log), cal
}

func TestRateTableIdentityForReportingCurrency(t *testing.T) {
	rt, _ := testRateTable(t, testMarket(), crossConfig())

	rate, err := rt.Rate("CAD", 0)
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.NewFromInt(1)))
}

func TestRateTableForwardFillsGaps(t *testing.T) {
	f := testMarket()
	// Rates only on two days; everything between carries the first one.
	f.rates["USD/CAD"] = map[Date]decimal.Decimal{
		day(2):  decimal.NewFromFloat(1.25),
		day(20): decimal.NewFromFloat(1.30),
	}
	rt, cal := testRateTable(t, f, crossConfig())

	rate, err := rt.Rate("USD", cal.Index(day(10)))
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.NewFromFloat(1.25)))

	rate, err = rt.Rate("USD", cal.Index(day(20)))
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.NewFromFloat(1.30)))
}

func TestRateTableUnknownLeadingDaysAreErrors(t *testing.T) {
	f := testMarket()
	f.rates["USD/CAD"] = map[Date]decimal.Decimal{
		day(13): decimal.NewFromFloat(1.25),
	}
	rt, cal := testRateTable(t, f, crossConfig())

	_, err := rt.Rate("USD", cal.Index(day(6)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "USD")
	assert.Contains(t, err.Error(), "2025-01-06")
}

func TestRateTableConvert(t *testing.T) {
	rt, _ := testRateTable(t, testMarket(), crossConfig())

	got, err := rt.Convert(M(100, "USD"), 0)
	require.NoError(t, err)
	assertMoney(t, 125, "CAD", got, "converted")

	// Reporting currency passes through untouched.
	got, err = rt.Convert(M(100, "CAD"), 0)
	require.NoError(t, err)
	assertMoney(t, 100, "CAD", got, "identity")
}

func TestRateTableCrossRate(t *testing.T) {
	rt, _ := testRateTable(t, testMarket(), crossConfig())

	// One USD buys 1.25 CAD.
	rate, err := rt.CrossRate("USD", "CAD", 0)
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.NewFromFloat(1.25)))

	// One CAD buys 0.8 USD.
	rate, err = rt.CrossRate("CAD", "USD", 0)
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.NewFromFloat(0.8)))
}

func TestRateTableCrossRateRejectsOtherPairs(t *testing.T) {
	rt, _ := testRateTable(t, testMarket(), crossConfig())

	_, err := rt.CrossRate("EUR", "CAD", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported currency pair EUR/CAD")

	_, err = rt.CrossRate("USD", "EUR", 0)
	require.Error(t, err)
}
