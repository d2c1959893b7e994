package backfolio

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// PriceTable holds, for each configured ticker, its closing price in the
// ticker's native currency on every calendar day. A day with no quote (the
// ticker's home market was closed while another reference market traded)
// carries the last known price forward; days before the first known quote
// stay explicitly unknown rather than silently zero.
type PriceTable struct {
	days       []Date
	currencies map[string]string
	prices     map[string][]decimal.Decimal
	known      map[string][]bool
}

// NewPriceTable reindexes the fetched close histories onto the calendar.
// Prefetch has already ruled out tickers with no history at all, so every
// configured ticker is present here.
func NewPriceTable(cal *Calendar, cfg *Config, ms *MarketSet, log zerolog.Logger) (*PriceTable, error) {
	log = log.With().Str("component", "prices").Logger()
	pt := &PriceTable{
		days:       cal.Days(),
		currencies: make(map[string]string),
		prices:     make(map[string][]decimal.Decimal),
		known:      make(map[string][]bool),
	}
	for _, ticker := range cfg.Tickers() {
		series := ms.Prices(ticker)
		if series == nil || series.Len() == 0 {
			return nil, fmt.Errorf("no price history for %q: cannot value the position", ticker)
		}
		values, known := series.Reindex(pt.days)
		pt.prices[ticker] = values
		pt.known[ticker] = known
		pt.currencies[ticker] = cfg.Currency(ticker)

		filled := 0
		for i, day := range pt.days {
			if known[i] {
				if _, exact := series.Get(day); !exact {
					filled++
				}
			}
		}
		if filled > 0 {
			log.Debug().Str("ticker", ticker).Int("days", filled).Msg("forward-filled price gaps")
		}
	}
	return pt, nil
}

// Price returns the ticker's price on the i-th calendar day in its native
// currency. The second result is false while the price is still unknown
// (no quote on or before that day).
func (pt *PriceTable) Price(ticker string, i int) (Money, bool) {
	values, ok := pt.prices[ticker]
	if !ok || !pt.known[ticker][i] {
		return Money{}, false
	}
	return M(values[i], pt.currencies[ticker]), true
}

// Currency returns the ticker's native currency.
func (pt *PriceTable) Currency(ticker string) string { return pt.currencies[ticker] }
