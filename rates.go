package backfolio

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// The event log's conversions may omit their rate, and purchases may
// trigger implicit conversion; both derive the rate from the series, which
// is only supported for this pair. Any other pair is a hard error rather
// than a guessed fallback.
const (
	pairDomestic = "CAD"
	pairForeign  = "USD"
)

// RateTable holds, for each configured currency, its exchange rate against
// the reporting currency on every calendar day, forward-filled over gaps
// (never backward, never interpolated).
type RateTable struct {
	reporting string
	days      []Date
	rates     map[string][]decimal.Decimal
	known     map[string][]bool
}

// NewRateTable reindexes the fetched rate histories onto the calendar.
// Days before a currency's first known rate stay explicitly unknown; using
// one fails the build at lookup time rather than assuming a rate.
func NewRateTable(cal *Calendar, reporting string, ms *MarketSet, log zerolog.Logger) *RateTable {
	log = log.With().Str("component", "rates").Logger()
	rt := &RateTable{
		reporting: reporting,
		days:      cal.Days(),
		rates:     make(map[string][]decimal.Decimal),
		known:     make(map[string][]bool),
	}
	for currency, series := range ms.rates {
		values, known := series.Reindex(rt.days)
		rt.rates[currency] = values
		rt.known[currency] = known
		leading := 0
		for _, ok := range known {
			if ok {
				break
			}
			leading++
		}
		if leading > 0 {
			log.Warn().Str("currency", currency).Int("days", leading).
				Msg("rate history starts after the calendar; leading days have no rate")
		}
	}
	return rt
}

// Rate returns the value of one unit of currency in the reporting currency
// on the i-th calendar day.
func (rt *RateTable) Rate(currency string, i int) (decimal.Decimal, error) {
	if currency == rt.reporting {
		return decimal.NewFromInt(1), nil
	}
	values, ok := rt.rates[currency]
	if !ok {
		return decimal.Zero, fmt.Errorf("no exchange-rate series for %s", currency)
	}
	if !rt.known[currency][i] {
		return decimal.Zero, fmt.Errorf("no %s%s rate on or before %s", currency, rt.reporting, rt.days[i])
	}
	return values[i], nil
}

// Convert expresses a monetary amount in the reporting currency using the
// i-th calendar day's rate.
func (rt *RateTable) Convert(m Money, i int) (Money, error) {
	if m.Currency() == rt.reporting || m.Currency() == "" {
		return M(m.Decimal(), rt.reporting), nil
	}
	rate, err := rt.Rate(m.Currency(), i)
	if err != nil {
		return Money{}, err
	}
	return M(m.Decimal().Mul(rate), rt.reporting), nil
}

// CrossRate returns the number of 'to' units one 'from' unit buys on the
// i-th calendar day. Only the CAD/USD pair is supported; any other pair is
// a fatal, reported condition.
func (rt *RateTable) CrossRate(from, to string, i int) (decimal.Decimal, error) {
	supported := (from == pairDomestic && to == pairForeign) || (from == pairForeign && to == pairDomestic)
	if !supported {
		return decimal.Zero, fmt.Errorf("unsupported currency pair %s/%s: only %s/%s conversions can derive a rate", from, to, pairDomestic, pairForeign)
	}
	fromRate, err := rt.Rate(from, i)
	if err != nil {
		return decimal.Zero, err
	}
	toRate, err := rt.Rate(to, i)
	if err != nil {
		return decimal.Zero, err
	}
	if toRate.IsZero() {
		return decimal.Zero, fmt.Errorf("zero %s%s rate on %s", to, rt.reporting, rt.days[i])
	}
	return fromRate.Div(toRate), nil
}
