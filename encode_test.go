package backfolio

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleLog = `{"kind":"convert","date":"2025-01-03","from":"CAD","to":"USD","amount":500,"rate":0.8}
{"kind":"trade","date":"2025-01-06","ticker":"AAPL.US","currency":"USD","quantity":4,"price":100}

{"kind":"dividend","date":"2025-01-14","ticker":"AAPL.US","currency":"USD","amount":0.25}
`

func TestDecodeEvents(t *testing.T) {
	log, err := DecodeEvents(strings.NewReader(sampleLog))
	require.NoError(t, err)

	require.Len(t, log.Conversions(), 1)
	require.Len(t, log.Trades(), 1)
	require.Len(t, log.Dividends(), 1)

	c := log.Conversions()[0]
	assert.Equal(t, "CAD", c.From)
	assert.True(t, c.Rate.Equal(decimal.NewFromFloat(0.8)))

	trade := log.Trades()[0]
	assert.Equal(t, day(6), trade.Date)
	assert.True(t, trade.Quantity.Equal(Q(4)))

	d := log.Dividends()[0]
	assert.True(t, d.Amount.Equal(decimal.NewFromFloat(0.25)))
}

func TestDecodeEventsAcceptsLinesOverScannerDefault(t *testing.T) {
	// Longer than bufio.Scanner's default 64 KiB token limit.
	ticker := strings.Repeat("X", 80*1024)
	line := `{"kind":"trade","date":"2025-01-06","ticker":"` + ticker + `","currency":"USD","quantity":1,"price":100}` + "\n"

	log, err := DecodeEvents(strings.NewReader(line))
	require.NoError(t, err)
	require.Len(t, log.Trades(), 1)
	assert.Equal(t, ticker, log.Trades()[0].Ticker)
}

func TestDecodeEventsReportsLineNumbers(t *testing.T) {
	bad := `{"kind":"trade","date":"2025-01-06","ticker":"A","currency":"USD","quantity":1,"price":100}
{"kind":"warp","date":"2025-01-07"}`

	_, err := DecodeEvents(strings.NewReader(bad))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
	assert.Contains(t, err.Error(), `"warp"`)
}

func TestDecodeEventsRejectsInvalidEvent(t *testing.T) {
	bad := `{"kind":"trade","date":"2025-01-06","ticker":"A","currency":"USD","quantity":0,"price":100}`

	_, err := DecodeEvents(strings.NewReader(bad))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1")
	assert.Contains(t, err.Error(), "quantity")
}

func TestEncodeEventWritesDiscriminator(t *testing.T) {
	var buf strings.Builder
	err := EncodeEvent(&buf, buy(6, "RY.TO", "CAD", 10, 50))
	require.NoError(t, err)

	line := buf.String()
	assert.Contains(t, line, `"kind":"trade"`)
	assert.Contains(t, line, `"ticker":"RY.TO"`)
	assert.Contains(t, line, `"quantity":10`)
	assert.True(t, strings.HasSuffix(line, "\n"))
}

func TestEncodeOmitsZeroConversionRate(t *testing.T) {
	var buf strings.Builder
	err := EncodeEvent(&buf, CurrencyConversion{
		Date: day(3), From: "CAD", To: "USD", Amount: decimal.NewFromInt(100),
	})
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), "rate")
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	original, err := DecodeEvents(strings.NewReader(sampleLog))
	require.NoError(t, err)

	var buf strings.Builder
	require.NoError(t, EncodeEvents(&buf, original))

	decoded, err := DecodeEvents(strings.NewReader(buf.String()))
	require.NoError(t, err)
	assert.Equal(t, original.Trades(), decoded.Trades())
	assert.Equal(t, original.Dividends(), decoded.Dividends())
	assert.Equal(t, original.Conversions(), decoded.Conversions())
}

func TestEncodeEventsOrdersWithinDay(t *testing.T) {
	log, err := NewEventLog(
		DividendPayment{Date: day(6), Ticker: "RY.TO", Currency: "CAD", Amount: decimal.NewFromInt(1)},
		buy(6, "RY.TO", "CAD", 10, 50),
		CurrencyConversion{Date: day(6), From: "CAD", To: "USD", Amount: decimal.NewFromInt(100)},
	)
	require.NoError(t, err)

	var buf strings.Builder
	require.NoError(t, EncodeEvents(&buf, log))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], `"kind":"convert"`)
	assert.Contains(t, lines[1], `"kind":"trade"`)
	assert.Contains(t, lines[2], `"kind":"dividend"`)
}
