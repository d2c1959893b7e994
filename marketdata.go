package backfolio

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// SplitRatio holds the terms of a stock split: a 2-for-1 split is
// {Numerator: 2, Denominator: 1}.
type SplitRatio struct {
	Numerator   int64
	Denominator int64
}

func (r SplitRatio) String() string { return fmt.Sprintf("%d:%d", r.Numerator, r.Denominator) }

// SplitEvent is a split ratio effective on a specific date.
type SplitEvent struct {
	Date  Date
	Ratio SplitRatio
}

// MarketData is the external market-data collaborator. Implementations may
// be HTTP providers, local caches, or in-memory fixtures; the build only
// requires these five query shapes.
//
// All histories are keyed by date and may be sparse: reindexing and
// forward-filling onto the trading calendar is the caller's business, not
// the provider's.
type MarketData interface {
	// TradingDays returns the dates on which the given reference market
	// traded within the range.
	TradingDays(market string, r Range) ([]Date, error)
	// DailyCloses returns the closing price per date in the security's
	// native currency.
	DailyCloses(ticker string, r Range) (map[Date]decimal.Decimal, error)
	// Dividends returns the dividend amount per share per payment date.
	Dividends(ticker string, r Range) (map[Date]decimal.Decimal, error)
	// Splits returns the split ratio per effective date.
	Splits(ticker string, r Range) (map[Date]SplitRatio, error)
	// ExchangeRates returns, per date, the price of one unit of base
	// expressed in quote.
	ExchangeRates(base, quote string, r Range) (map[Date]decimal.Decimal, error)
}

// MarketSet is the joined result of the preparatory fetch phase: every
// history the sequential pass needs, fetched up front so the pass itself
// never blocks.
type MarketSet struct {
	prices    map[string]*Series[decimal.Decimal] // per ticker, native currency
	dividends map[string]*Series[decimal.Decimal] // per ticker, amount per share
	splits    map[string][]SplitEvent             // per ticker, sorted by date
	rates     map[string]*Series[decimal.Decimal] // per foreign currency, vs reporting
}

// Prices returns the raw (unfilled) close history for a ticker.
func (ms *MarketSet) Prices(ticker string) *Series[decimal.Decimal] { return ms.prices[ticker] }

// Splits returns the split events for a ticker in chronological order.
func (ms *MarketSet) Splits(ticker string) []SplitEvent { return ms.splits[ticker] }

// Rates returns the raw rate history for a foreign currency vs the
// reporting currency.
func (ms *MarketSet) Rates(currency string) *Series[decimal.Decimal] { return ms.rates[currency] }

// DividendEvents converts the fetched dividend histories into payment
// events, one per (ticker, date), denominated in each ticker's currency.
// Providers occasionally report zero-amount rows; those carry no income
// and are dropped rather than turned into invalid events.
func (ms *MarketSet) DividendEvents(currencyOf func(ticker string) string) []DividendPayment {
	var events []DividendPayment
	for ticker, series := range ms.dividends {
		for on, amount := range series.Values() {
			if !amount.IsPositive() {
				continue
			}
			events = append(events, DividendPayment{
				Date:     on,
				Ticker:   ticker,
				Currency: currencyOf(ticker),
				Amount:   amount,
			})
		}
	}
	return events
}

// fetchJob carries one ticker's histories back from the concurrent fetch.
type fetchJob struct {
	ticker    string
	prices    map[Date]decimal.Decimal
	dividends map[Date]decimal.Decimal
	splits    map[Date]SplitRatio
	err       error
}

// Prefetch gathers every history the build needs from the market-data
// collaborator. Per-ticker fetches are independent and issued concurrently;
// results are joined before the sequential pass begins.
//
// A ticker with no retrievable price history anywhere in the range is fatal:
// the build cannot safely value that position. A failed dividend or split
// fetch is degraded, not fatal: it is logged with ticker and reason and
// treated as zero events, since those are additive rather than structural.
func Prefetch(md MarketData, cfg *Config, r Range, log zerolog.Logger) (*MarketSet, error) {
	log = log.With().Str("component", "prefetch").Logger()

	tickers := cfg.Tickers()
	jobs := make([]fetchJob, len(tickers))

	var wg sync.WaitGroup
	for i, ticker := range tickers {
		wg.Add(1)
		go func(i int, ticker string) {
			defer wg.Done()
			job := fetchJob{ticker: ticker}

			job.prices, job.err = md.DailyCloses(ticker, r)
			if job.err == nil && len(job.prices) == 0 {
				job.err = fmt.Errorf("no price history for %q in %s: mistyped ticker, delisting, or wrong market suffix", ticker, r)
			}
			if job.err != nil {
				jobs[i] = job
				return
			}

			var err error
			job.dividends, err = md.Dividends(ticker, r)
			if err != nil {
				log.Warn().Str("ticker", ticker).Err(err).Msg("dividend history unavailable, assuming no dividends")
				job.dividends = nil
			}
			job.splits, err = md.Splits(ticker, r)
			if err != nil {
				log.Warn().Str("ticker", ticker).Err(err).Msg("split history unavailable, assuming no splits")
				job.splits = nil
			}
			jobs[i] = job
		}(i, ticker)
	}
	wg.Wait()

	ms := &MarketSet{
		prices:    make(map[string]*Series[decimal.Decimal]),
		dividends: make(map[string]*Series[decimal.Decimal]),
		splits:    make(map[string][]SplitEvent),
		rates:     make(map[string]*Series[decimal.Decimal]),
	}
	for _, job := range jobs {
		if job.err != nil {
			return nil, fmt.Errorf("fetching %q: %w", job.ticker, job.err)
		}
		prices := &Series[decimal.Decimal]{}
		for on, p := range job.prices {
			prices.Append(on, p)
		}
		ms.prices[job.ticker] = prices

		if len(job.dividends) > 0 {
			divs := &Series[decimal.Decimal]{}
			for on, d := range job.dividends {
				divs.Append(on, d)
			}
			ms.dividends[job.ticker] = divs
		}
		if len(job.splits) > 0 {
			events := &Series[SplitRatio]{}
			for on, ratio := range job.splits {
				events.Append(on, ratio)
			}
			for on, ratio := range events.Values() {
				ms.splits[job.ticker] = append(ms.splits[job.ticker], SplitEvent{Date: on, Ratio: ratio})
			}
		}
	}

	// Exchange rates are structural: without a rate series no foreign
	// position or cash bucket can be valued, so failure here is fatal.
	for _, currency := range cfg.ForeignCurrencies() {
		history, err := md.ExchangeRates(currency, cfg.ReportingCurrency, r)
		if err != nil {
			return nil, fmt.Errorf("fetching %s%s rates: %w", currency, cfg.ReportingCurrency, err)
		}
		if len(history) == 0 {
			return nil, fmt.Errorf("no %s%s rate history in %s", currency, cfg.ReportingCurrency, r)
		}
		rates := &Series[decimal.Decimal]{}
		for on, rate := range history {
			rates.Append(on, rate)
		}
		ms.rates[currency] = rates
	}
	return ms, nil
}
