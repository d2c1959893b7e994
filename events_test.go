package backfolio

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEventLogRejectsZeroQuantityTrade(t *testing.T) {
	trade := buy(6, "RY.TO", "CAD", 0, 50)
	_, err := NewEventLog(trade)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quantity must be non-zero")
}

func TestNewEventLogRejectsNonPositivePrice(t *testing.T) {
	trade := buy(6, "RY.TO", "CAD", 10, 0)
	_, err := NewEventLog(trade)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "price must be positive")

	trade = buy(6, "RY.TO", "CAD", 10, -50)
	_, err = NewEventLog(trade)
	require.Error(t, err)
}

func TestNewEventLogRejectsSelfConversion(t *testing.T) {
	_, err := NewEventLog(CurrencyConversion{
		Date: day(6), From: "CAD", To: "CAD", Amount: decimal.NewFromInt(100),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "itself")
}

func TestEventLogSortsByDateKeepingSameDayOrder(t *testing.T) {
	log, err := NewEventLog(
		buy(10, "RY.TO", "CAD", 1, 50),
		buy(6, "RY.TO", "CAD", 2, 50),
		buy(6, "RY.TO", "CAD", 3, 50),
	)
	require.NoError(t, err)

	trades := log.Trades()
	require.Len(t, trades, 3)
	assert.Equal(t, day(6), trades[0].Date)
	assert.True(t, trades[0].Quantity.Equal(Q(2)))
	assert.True(t, trades[1].Quantity.Equal(Q(3)))
	assert.Equal(t, day(10), trades[2].Date)
}

func TestEventLogEventsOn(t *testing.T) {
	log, err := NewEventLog(
		buy(6, "RY.TO", "CAD", 1, 50),
		buy(10, "RY.TO", "CAD", 2, 50),
		buy(10, "RY.TO", "CAD", 3, 50),
		DividendPayment{Date: day(10), Ticker: "RY.TO", Currency: "CAD", Amount: decimal.NewFromInt(1)},
	)
	require.NoError(t, err)

	assert.Len(t, log.TradesOn(day(10)), 2)
	assert.Len(t, log.TradesOn(day(7)), 0)
	assert.Len(t, log.DividendsOn(day(10)), 1)
	assert.Len(t, log.ConversionsOn(day(10)), 0)
}

func TestEventLogCheckRejectsUndeclaredTicker(t *testing.T) {
	log, err := NewEventLog(buy(6, "TYPO.TO", "CAD", 1, 50))
	require.NoError(t, err)

	err = log.Check(testConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `undeclared ticker "TYPO.TO"`)
}

func TestEventLogCheckRejectsCurrencyMismatch(t *testing.T) {
	log, err := NewEventLog(buy(6, "RY.TO", "USD", 1, 50))
	require.NoError(t, err)

	err = log.Check(crossConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trades in CAD")
}

func TestEventLogCheckRejectsUnsupportedConversionPair(t *testing.T) {
	log, err := NewEventLog(CurrencyConversion{
		Date: day(6), From: "EUR", To: "CAD", Amount: decimal.NewFromInt(100),
	})
	require.NoError(t, err)

	err = log.Check(crossConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EUR")
}

func TestEventLogSpan(t *testing.T) {
	log, err := NewEventLog(
		buy(10, "RY.TO", "CAD", 1, 50),
		DividendPayment{Date: day(3), Ticker: "RY.TO", Currency: "CAD", Amount: decimal.NewFromInt(1)},
	)
	require.NoError(t, err)

	span, ok := log.Span()
	require.True(t, ok)
	assert.Equal(t, NewRange(day(3), day(10)), span)

	_, ok = (&EventLog{}).Span()
	assert.False(t, ok)
}

func TestMergeDividendsExplicitWins(t *testing.T) {
	explicit := DividendPayment{Date: day(10), Ticker: "RY.TO", Currency: "CAD", Amount: decimal.NewFromInt(2)}
	log, err := NewEventLog(explicit)
	require.NoError(t, err)

	fetched := []DividendPayment{
		{Date: day(10), Ticker: "RY.TO", Currency: "CAD", Amount: decimal.NewFromInt(9)},
		{Date: day(20), Ticker: "RY.TO", Currency: "CAD", Amount: decimal.NewFromInt(3)},
	}
	require.NoError(t, log.MergeDividends(fetched))

	divs := log.Dividends()
	require.Len(t, divs, 2)
	assert.True(t, divs[0].Amount.Equal(decimal.NewFromInt(2)), "hand-entered payment must win")
	assert.Equal(t, day(20), divs[1].Date)
}
