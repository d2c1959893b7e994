package backfolio

import (
	"fmt"
	"math"
	"slices"
)

// HoldingReport is a detailed view of the portfolio on a single day.
type HoldingReport struct {
	Date              Date
	ReportingCurrency string
	Securities        []SecurityHolding
	Cash              []CashHolding
	Total             Money
	DayChange         Percent
}

// SecurityHolding is one position within a HoldingReport.
type SecurityHolding struct {
	Ticker      string
	Currency    string
	Quantity    Quantity
	MarketValue Money // in reporting currency
	Weight      Percent
}

// CashHolding is one currency bucket within a HoldingReport.
type CashHolding struct {
	Currency string
	Balance  Money
}

// Holdings builds the holding report for a ledger date.
func (l *Ledger) Holdings(cfg *Config, day Date) (*HoldingReport, error) {
	i, err := l.index(day)
	if err != nil {
		return nil, err
	}
	report := &HoldingReport{
		Date:              day,
		ReportingCurrency: l.reporting,
		Total:             l.totals[i],
		DayChange:         l.DayChangeAt(i),
	}
	total := report.Total.AsFloat()
	for _, ticker := range l.tickers {
		value := l.values[ticker][i]
		weight := Percent(math.NaN())
		if total != 0 {
			weight = Percent(100 * value.AsFloat() / total)
		}
		report.Securities = append(report.Securities, SecurityHolding{
			Ticker:      ticker,
			Currency:    cfg.Currency(ticker),
			Quantity:    l.holdings[ticker][i],
			MarketValue: value,
			Weight:      weight,
		})
	}
	for _, cur := range l.currencies {
		report.Cash = append(report.Cash, CashHolding{
			Currency: cur,
			Balance:  l.cash[cur][i],
		})
	}
	return report, nil
}

// PeriodReturn is the change of the portfolio total over one calendar
// period, measured between the last ledger days on or before each boundary.
type PeriodReturn struct {
	Range  Range
	Open   Money
	Close  Money
	Change Percent
}

// PeriodReturns aggregates the daily totals into per-period changes. A
// period opens at the close of the last ledger day before it starts, so
// the ledger's first period opens at the first day's total.
func (l *Ledger) PeriodReturns(p Period) ([]PeriodReturn, error) {
	if len(l.days) == 0 {
		return nil, fmt.Errorf("empty ledger")
	}
	span := NewRange(l.days[0], l.days[len(l.days)-1])

	var out []PeriodReturn
	for r := range span.Periods(p) {
		closeIdx := l.lastIndexOnOrBefore(r.To)
		if closeIdx < 0 {
			continue
		}
		openIdx := l.lastIndexOnOrBefore(r.From.Add(-1))
		if openIdx < 0 {
			openIdx = 0
		}
		open, close := l.totals[openIdx], l.totals[closeIdx]
		change := Percent(math.NaN())
		if open.AsFloat() != 0 {
			change = Percent(100 * (close.AsFloat()/open.AsFloat() - 1))
		}
		out = append(out, PeriodReturn{Range: r, Open: open, Close: close, Change: change})
	}
	return out, nil
}

// lastIndexOnOrBefore returns the index of the latest ledger day not after
// day, or -1 when day precedes the ledger.
func (l *Ledger) lastIndexOnOrBefore(day Date) int {
	i, found := slices.BinarySearchFunc(l.days, day, compareDates)
	if found {
		return i
	}
	return i - 1
}
