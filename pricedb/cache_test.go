package pricedb

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jfmartel/backfolio"
)

// countingSource records how often each method hits the wrapped provider.
type countingSource struct {
	closes map[backfolio.Date]decimal.Decimal
	days   []backfolio.Date
	splits map[backfolio.Date]backfolio.SplitRatio
	calls  map[string]int
}

func newCountingSource() *countingSource {
	return &countingSource{
		closes: map[backfolio.Date]decimal.Decimal{
			jan(2): decimal.NewFromInt(50),
			jan(3): decimal.NewFromFloat(51.5),
		},
		days: []backfolio.Date{jan(2), jan(3), jan(6)},
		splits: map[backfolio.Date]backfolio.SplitRatio{
			jan(6): {Numerator: 2, Denominator: 1},
		},
		calls: map[string]int{},
	}
}

func jan(d int) backfolio.Date { return backfolio.NewDate(2025, 1, d) }

func (s *countingSource) TradingDays(market string, r backfolio.Range) ([]backfolio.Date, error) {
	s.calls["days"]++
	return s.days, nil
}

func (s *countingSource) DailyCloses(ticker string, r backfolio.Range) (map[backfolio.Date]decimal.Decimal, error) {
	s.calls["closes"]++
	return s.closes, nil
}

func (s *countingSource) Dividends(ticker string, r backfolio.Range) (map[backfolio.Date]decimal.Decimal, error) {
	s.calls["dividends"]++
	return nil, nil
}

func (s *countingSource) Splits(ticker string, r backfolio.Range) (map[backfolio.Date]backfolio.SplitRatio, error) {
	s.calls["splits"]++
	return s.splits, nil
}

func (s *countingSource) ExchangeRates(base, quote string, r backfolio.Range) (map[backfolio.Date]decimal.Decimal, error) {
	s.calls["rates"]++
	return s.closes, nil
}

func openTestCache(t *testing.T, source backfolio.MarketData) *Cache {
	t.Helper()
	cache, err := Open(":memory:", source, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })
	return cache
}

func TestCacheServesSecondReadFromDisk(t *testing.T) {
	source := newCountingSource()
	cache := openTestCache(t, source)
	r := backfolio.NewRange(jan(2), jan(10))

	first, err := cache.DailyCloses("RY.TO", r)
	require.NoError(t, err)
	second, err := cache.DailyCloses("RY.TO", r)
	require.NoError(t, err)

	assert.Equal(t, 1, source.calls["closes"], "second read must not hit the source")
	require.Len(t, second, 2)
	assert.True(t, first[jan(3)].Equal(second[jan(3)]))
	assert.True(t, second[jan(2)].Equal(decimal.NewFromInt(50)))
}

func TestCacheRefreshesWiderRange(t *testing.T) {
	source := newCountingSource()
	cache := openTestCache(t, source)

	_, err := cache.DailyCloses("RY.TO", backfolio.NewRange(jan(2), jan(10)))
	require.NoError(t, err)
	_, err = cache.DailyCloses("RY.TO", backfolio.NewRange(jan(2), jan(20)))
	require.NoError(t, err)

	assert.Equal(t, 2, source.calls["closes"], "a wider range must refresh")

	// A narrower range afterwards is covered.
	_, err = cache.DailyCloses("RY.TO", backfolio.NewRange(jan(3), jan(6)))
	require.NoError(t, err)
	assert.Equal(t, 2, source.calls["closes"])
}

func TestCacheKeepsTickersSeparate(t *testing.T) {
	source := newCountingSource()
	cache := openTestCache(t, source)
	r := backfolio.NewRange(jan(2), jan(10))

	_, err := cache.DailyCloses("RY.TO", r)
	require.NoError(t, err)
	_, err = cache.DailyCloses("TD.TO", r)
	require.NoError(t, err)

	assert.Equal(t, 2, source.calls["closes"])
}

func TestCacheRemembersEmptyHistories(t *testing.T) {
	source := newCountingSource()
	cache := openTestCache(t, source)
	r := backfolio.NewRange(jan(2), jan(10))

	divs, err := cache.Dividends("RY.TO", r)
	require.NoError(t, err)
	assert.Empty(t, divs)

	_, err = cache.Dividends("RY.TO", r)
	require.NoError(t, err)
	assert.Equal(t, 1, source.calls["dividends"], "an empty answer is still an answer")
}

func TestCacheTradingDaysSortedAndFiltered(t *testing.T) {
	source := newCountingSource()
	cache := openTestCache(t, source)

	days, err := cache.TradingDays("XTSE", backfolio.NewRange(jan(2), jan(10)))
	require.NoError(t, err)
	assert.Equal(t, []backfolio.Date{jan(2), jan(3), jan(6)}, days)

	// Served from disk, restricted to the narrower range.
	days, err = cache.TradingDays("XTSE", backfolio.NewRange(jan(3), jan(6)))
	require.NoError(t, err)
	assert.Equal(t, []backfolio.Date{jan(3), jan(6)}, days)
	assert.Equal(t, 1, source.calls["days"])
}

func TestCacheSplits(t *testing.T) {
	source := newCountingSource()
	cache := openTestCache(t, source)
	r := backfolio.NewRange(jan(2), jan(10))

	splits, err := cache.Splits("RY.TO", r)
	require.NoError(t, err)
	require.Len(t, splits, 1)
	assert.Equal(t, backfolio.SplitRatio{Numerator: 2, Denominator: 1}, splits[jan(6)])

	_, err = cache.Splits("RY.TO", r)
	require.NoError(t, err)
	assert.Equal(t, 1, source.calls["splits"])
}
