package backfolio

import (
	"fmt"
	"math"
	"slices"
)

// Ledger is the immutable artifact of one build: four aligned daily series
// over the trading calendar. It is written once by the Builder and only
// read afterwards; every value is derived from the per-day simulation, and
// the total is the sum of the other series by construction.
type Ledger struct {
	reporting  string
	days       []Date
	tickers    []string
	currencies []string

	holdings map[string][]Quantity // per ticker, shares held
	cash     map[string][]Money    // per currency, native amount
	values   map[string][]Money    // per ticker, reporting currency
	totals   []Money               // reporting currency
}

// Len returns the number of days in the ledger.
func (l *Ledger) Len() int { return len(l.days) }

// Days returns the ledger's date axis, identical to the build calendar.
func (l *Ledger) Days() []Date { return l.days }

// ReportingCurrency returns the currency totals are expressed in.
func (l *Ledger) ReportingCurrency() string { return l.reporting }

// Tickers returns the tickers tracked by the ledger, sorted.
func (l *Ledger) Tickers() []string { return l.tickers }

// Currencies returns the cash bucket currencies, reporting currency first.
func (l *Ledger) Currencies() []string { return l.currencies }

// index resolves a date on the ledger axis.
func (l *Ledger) index(day Date) (int, error) {
	if i, found := slices.BinarySearchFunc(l.days, day, compareDates); found {
		return i, nil
	}
	return 0, fmt.Errorf("%s is not a ledger date", day)
}

// HoldingAt returns the shares held on the i-th day.
func (l *Ledger) HoldingAt(ticker string, i int) Quantity {
	series, ok := l.holdings[ticker]
	if !ok {
		return Quantity{}
	}
	return series[i]
}

// HoldingOn returns the shares held on a specific date.
func (l *Ledger) HoldingOn(ticker string, day Date) (Quantity, error) {
	i, err := l.index(day)
	if err != nil {
		return Quantity{}, err
	}
	return l.HoldingAt(ticker, i), nil
}

// CashAt returns the balance of a currency bucket on the i-th day.
func (l *Ledger) CashAt(currency string, i int) Money {
	series, ok := l.cash[currency]
	if !ok {
		return M(0, currency)
	}
	return series[i]
}

// CashOn returns the balance of a currency bucket on a specific date.
func (l *Ledger) CashOn(currency string, day Date) (Money, error) {
	i, err := l.index(day)
	if err != nil {
		return Money{}, err
	}
	return l.CashAt(currency, i), nil
}

// MarketValueAt returns a position's value in the reporting currency on the
// i-th day.
func (l *Ledger) MarketValueAt(ticker string, i int) Money {
	series, ok := l.values[ticker]
	if !ok {
		return M(0, l.reporting)
	}
	return series[i]
}

// MarketValueOn returns a position's value on a specific date.
func (l *Ledger) MarketValueOn(ticker string, day Date) (Money, error) {
	i, err := l.index(day)
	if err != nil {
		return Money{}, err
	}
	return l.MarketValueAt(ticker, i), nil
}

// TotalAt returns the portfolio total on the i-th day.
func (l *Ledger) TotalAt(i int) Money { return l.totals[i] }

// TotalOn returns the portfolio total on a specific date.
func (l *Ledger) TotalOn(day Date) (Money, error) {
	i, err := l.index(day)
	if err != nil {
		return Money{}, err
	}
	return l.totals[i], nil
}

// DayChangeAt returns the percent change of the total between day i-1 and
// day i. The first day, and any change from a zero base, is NaN.
func (l *Ledger) DayChangeAt(i int) Percent {
	if i == 0 {
		return Percent(math.NaN())
	}
	prev := l.totals[i-1].AsFloat()
	if prev == 0 {
		return Percent(math.NaN())
	}
	return Percent(100 * (l.totals[i].AsFloat()/prev - 1))
}

// Returns extracts the daily fractional returns of the portfolio total,
// one entry per day after the first. Days with a zero base contribute a
// zero return rather than poisoning downstream statistics with NaN.
func (l *Ledger) Returns() []float64 {
	if len(l.totals) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(l.totals)-1)
	for i := 1; i < len(l.totals); i++ {
		prev := l.totals[i-1].AsFloat()
		if prev == 0 {
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, l.totals[i].AsFloat()/prev-1)
	}
	return returns
}
