package backfolio

import (
	"fmt"
	"maps"
	"regexp"
	"slices"

	"github.com/shopspring/decimal"
)

var currencyCodeRE = regexp.MustCompile(`^[A-Z]{3}$`)

// ValidateCurrency checks that a string is a plausible ISO 4217 code.
func ValidateCurrency(code string) error {
	if !currencyCodeRE.MatchString(code) {
		return fmt.Errorf("invalid currency code %q: must be 3 uppercase letters", code)
	}
	return nil
}

// SecurityInfo describes one held security: its native trading currency and
// the market it is listed on.
type SecurityInfo struct {
	Currency string `json:"currency"`
	Market   string `json:"market"`
}

// Config is the validated configuration surface a build consumes. It is
// constructor-injected into every component; there is no package-level
// state.
type Config struct {
	// ReportingCurrency is the single currency in which market values and
	// the portfolio total are expressed.
	ReportingCurrency string `json:"reporting_currency"`
	// StartingCash seeds its currency bucket on the first calendar date.
	StartingCash Money `json:"starting_cash"`
	// Securities maps each held ticker to its currency and home market.
	Securities map[string]SecurityInfo `json:"securities"`
	// Markets are the reference markets whose trading days, unioned,
	// define the calendar.
	Markets []string `json:"markets"`
	// BenchmarkWeights are target weights per benchmark ticker, summing
	// to one. Empty when no benchmark is built.
	BenchmarkWeights map[string]decimal.Decimal `json:"benchmark_weights,omitempty"`
	// BenchmarkCapital is the notional starting amount the benchmark
	// invests on day zero, in the reporting currency.
	BenchmarkCapital Money `json:"benchmark_capital,omitzero"`
}

// Validate checks the configuration for internal consistency. The cash
// model is two buckets, domestic plus one foreign currency, so at most two
// distinct currencies may appear across the whole configuration.
func (c *Config) Validate() error {
	if err := ValidateCurrency(c.ReportingCurrency); err != nil {
		return fmt.Errorf("reporting currency: %w", err)
	}
	if len(c.Markets) == 0 {
		return fmt.Errorf("at least one reference market is required to build a calendar")
	}
	for ticker, info := range c.Securities {
		if ticker == "" {
			return fmt.Errorf("empty ticker in securities map")
		}
		if err := ValidateCurrency(info.Currency); err != nil {
			return fmt.Errorf("security %q: %w", ticker, err)
		}
	}
	if len(c.Currencies()) > 2 {
		return fmt.Errorf("at most two currencies are supported (domestic and one foreign), got %v", c.Currencies())
	}
	if !c.StartingCash.IsZero() {
		if err := ValidateCurrency(c.StartingCash.Currency()); err != nil {
			return fmt.Errorf("starting cash: %w", err)
		}
		if !slices.Contains(c.Currencies(), c.StartingCash.Currency()) {
			return fmt.Errorf("starting cash currency %s is not a configured currency", c.StartingCash.Currency())
		}
	}
	if len(c.BenchmarkWeights) > 0 {
		total := decimal.Zero
		for ticker, w := range c.BenchmarkWeights {
			if w.IsNegative() || w.IsZero() {
				return fmt.Errorf("benchmark weight for %q must be positive, got %s", ticker, w)
			}
			if _, ok := c.Securities[ticker]; !ok {
				return fmt.Errorf("benchmark ticker %q has no security declaration", ticker)
			}
			total = total.Add(w)
		}
		if !total.Equal(decimal.NewFromInt(1)) {
			return fmt.Errorf("benchmark weights must sum to 1, got %s", total)
		}
		if !c.BenchmarkCapital.IsPositive() {
			return fmt.Errorf("benchmark capital must be positive, got %v", c.BenchmarkCapital)
		}
	}
	return nil
}

// Tickers returns the configured tickers in stable sorted order.
func (c *Config) Tickers() []string {
	tickers := slices.Collect(maps.Keys(c.Securities))
	slices.Sort(tickers)
	return tickers
}

// Currency returns a ticker's native currency, or "" when undeclared.
func (c *Config) Currency(ticker string) string {
	return c.Securities[ticker].Currency
}

// Currencies returns every currency in the configuration, reporting
// currency first, in stable order.
func (c *Config) Currencies() []string {
	seen := map[string]struct{}{c.ReportingCurrency: {}}
	currencies := []string{c.ReportingCurrency}
	var rest []string
	for _, info := range c.Securities {
		if _, ok := seen[info.Currency]; !ok {
			seen[info.Currency] = struct{}{}
			rest = append(rest, info.Currency)
		}
	}
	if cur := c.StartingCash.Currency(); cur != "" {
		if _, ok := seen[cur]; !ok {
			seen[cur] = struct{}{}
			rest = append(rest, cur)
		}
	}
	slices.Sort(rest)
	return append(currencies, rest...)
}

// ForeignCurrencies returns the configured currencies other than the
// reporting currency.
func (c *Config) ForeignCurrencies() []string {
	return c.Currencies()[1:]
}
