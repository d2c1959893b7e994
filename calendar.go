package backfolio

import (
	"errors"
	"fmt"
	"iter"
	"slices"

	"github.com/rs/zerolog"
)

// Calendar is the ordered, deduplicated union of trading days across the
// portfolio's reference markets. The simulation advances on the union, not
// the intersection, so holdings and cash evolve on every day any held
// security might trade; holidays are simply absent dates.
type Calendar struct {
	days []Date
}

// NewCalendar builds a calendar from an explicit list of days. Duplicates
// are removed and the result is strictly increasing.
func NewCalendar(days []Date) *Calendar {
	sorted := slices.Clone(days)
	slices.SortFunc(sorted, func(a, b Date) int {
		switch {
		case a.Before(b):
			return -1
		case a.After(b):
			return 1
		default:
			return 0
		}
	})
	return &Calendar{days: slices.Compact(sorted)}
}

// FetchCalendar queries each reference market's trading days over
// [from, until) and returns their union. A single market failing or
// returning no rows degrades the calendar to the remaining markets; when no
// market yields any day the build cannot proceed and an error naming every
// failure is returned.
func FetchCalendar(md MarketData, markets []string, from, until Date, log zerolog.Logger) (*Calendar, error) {
	log = log.With().Str("component", "calendar").Logger()
	r := NewRange(from, until.Add(-1))

	var union []Date
	var errs error
	for _, market := range markets {
		days, err := md.TradingDays(market, r)
		if err != nil {
			log.Warn().Str("market", market).Err(err).Msg("trading days unavailable, degrading to remaining markets")
			errs = errors.Join(errs, fmt.Errorf("market %q: %w", market, err))
			continue
		}
		if len(days) == 0 {
			log.Warn().Str("market", market).Stringer("range", r).Msg("market returned no trading days")
			errs = errors.Join(errs, fmt.Errorf("market %q: no trading days in %s", market, r))
			continue
		}
		union = append(union, days...)
	}
	if len(union) == 0 {
		return nil, fmt.Errorf("no reference market produced trading days: %w", errs)
	}
	cal := NewCalendar(union)
	// Trading days outside the requested range would desynchronize every
	// output series, so clamp defensively against sloppy providers.
	cal.days = slices.DeleteFunc(cal.days, func(d Date) bool { return !r.Contains(d) })
	return cal, nil
}

// Len returns the number of trading days.
func (c *Calendar) Len() int { return len(c.days) }

// Days returns the trading days in increasing order. The returned slice is
// shared; callers must not mutate it.
func (c *Calendar) Days() []Date { return c.days }

// All returns an iterator over (index, date) pairs in increasing order.
func (c *Calendar) All() iter.Seq2[int, Date] {
	return func(yield func(int, Date) bool) {
		for i, d := range c.days {
			if !yield(i, d) {
				return
			}
		}
	}
}

// First returns the first trading day, or a zero Date for an empty calendar.
func (c *Calendar) First() Date {
	if len(c.days) == 0 {
		return Date{}
	}
	return c.days[0]
}

// Last returns the last trading day, or a zero Date for an empty calendar.
func (c *Calendar) Last() Date {
	if len(c.days) == 0 {
		return Date{}
	}
	return c.days[len(c.days)-1]
}

// Contains reports whether day is a trading day of this calendar.
func (c *Calendar) Contains(day Date) bool {
	_, found := slices.BinarySearchFunc(c.days, day, compareDates)
	return found
}

// Index returns the position of day in the calendar, or -1 when day is not
// a trading day.
func (c *Calendar) Index(day Date) int {
	i, found := slices.BinarySearchFunc(c.days, day, compareDates)
	if !found {
		return -1
	}
	return i
}

func compareDates(a, b Date) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}
