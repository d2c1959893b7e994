package backfolio

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrefetchDegradesOnDividendAndSplitFailures(t *testing.T) {
	f := testMarket()
	f.fail["dividends/RY.TO"] = errors.New("endpoint down")
	f.fail["splits/RY.TO"] = errors.New("endpoint down")

	ms, err := Prefetch(f, crossConfig(), NewRange(day(2), day(31)), zerolog.Nop())
	require.NoError(t, err, "dividend and split failures must not abort the fetch")
	assert.Empty(t, ms.Splits("RY.TO"))
	assert.NotNil(t, ms.Prices("RY.TO"))
}

func TestPrefetchSortsSplitEvents(t *testing.T) {
	f := testMarket()
	f.splits["RY.TO"] = map[Date]SplitRatio{
		day(20): {Numerator: 3, Denominator: 1},
		day(6):  {Numerator: 2, Denominator: 1},
	}

	ms, err := Prefetch(f, crossConfig(), NewRange(day(2), day(31)), zerolog.Nop())
	require.NoError(t, err)

	splits := ms.Splits("RY.TO")
	require.Len(t, splits, 2)
	assert.Equal(t, day(6), splits[0].Date)
	assert.Equal(t, day(20), splits[1].Date)
}

func TestDividendEventsCarryTickerCurrency(t *testing.T) {
	f := testMarket()
	f.dividends["AAPL.US"] = map[Date]decimal.Decimal{
		day(14): decimal.NewFromFloat(0.25),
	}

	cfg := crossConfig()
	ms, err := Prefetch(f, cfg, NewRange(day(2), day(31)), zerolog.Nop())
	require.NoError(t, err)

	events := ms.DividendEvents(cfg.Currency)
	require.Len(t, events, 1)
	assert.Equal(t, "AAPL.US", events[0].Ticker)
	assert.Equal(t, "USD", events[0].Currency)
	assert.Equal(t, day(14), events[0].Date)
}

func TestDividendEventsDropZeroAmountRows(t *testing.T) {
	f := testMarket()
	f.dividends["RY.TO"] = map[Date]decimal.Decimal{
		day(10): decimal.Zero,
		day(17): decimal.NewFromInt(2),
	}

	cfg := testConfig()
	ms, err := Prefetch(f, cfg, NewRange(day(2), day(31)), zerolog.Nop())
	require.NoError(t, err)

	events := ms.DividendEvents(cfg.Currency)
	require.Len(t, events, 1)
	assert.Equal(t, day(17), events[0].Date)

	// The surviving events must merge cleanly into a build.
	log, err := NewEventLog(buy(6, "RY.TO", "CAD", 10, 50))
	require.NoError(t, err)
	require.NoError(t, log.MergeDividends(events))
}
