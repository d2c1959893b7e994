package backfolio

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCalendarSortsAndDeduplicates(t *testing.T) {
	cal := NewCalendar([]Date{day(6), day(2), day(6), day(3)})

	assert.Equal(t, []Date{day(2), day(3), day(6)}, cal.Days())
	assert.Equal(t, day(2), cal.First())
	assert.Equal(t, day(6), cal.Last())
}

func TestFetchCalendarUnionsMarkets(t *testing.T) {
	f := newFakeMarket()
	f.calendars["XTSE"] = []Date{day(2), day(3), day(7)}
	f.calendars["XNYS"] = []Date{day(3), day(6)}

	cal, err := FetchCalendar(f, []string{"XTSE", "XNYS"}, day(2), day(8), zerolog.Nop())
	require.NoError(t, err)

	// Union, not intersection: the 6th and 7th each trade on one market
	// only and both appear.
	assert.Equal(t, []Date{day(2), day(3), day(6), day(7)}, cal.Days())
}

func TestFetchCalendarDegradesWhenOneMarketFails(t *testing.T) {
	f := newFakeMarket()
	f.calendars["XTSE"] = []Date{day(2), day(3)}
	f.fail["calendar/XNYS"] = errors.New("boom")

	cal, err := FetchCalendar(f, []string{"XTSE", "XNYS"}, day(2), day(8), zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 2, cal.Len())
}

func TestFetchCalendarFailsWhenNoMarketResponds(t *testing.T) {
	f := newFakeMarket()
	f.fail["calendar/XTSE"] = errors.New("boom")
	f.fail["calendar/XNYS"] = errors.New("also down")

	_, err := FetchCalendar(f, []string{"XTSE", "XNYS"}, day(2), day(8), zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "XTSE")
	assert.Contains(t, err.Error(), "XNYS")
}

func TestFetchCalendarClampsStrayDates(t *testing.T) {
	f := newFakeMarket()
	// A provider ignoring the range must not widen the calendar.
	f.calendars["XTSE"] = []Date{day(2), day(3), day(20)}

	cal, err := FetchCalendar(f, []string{"XTSE"}, day(2), day(8), zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, []Date{day(2), day(3)}, cal.Days())
}

func TestCalendarContainsAndIndex(t *testing.T) {
	cal := NewCalendar([]Date{day(2), day(3), day(6)})

	assert.True(t, cal.Contains(day(3)))
	assert.False(t, cal.Contains(day(4)))
	assert.Equal(t, 2, cal.Index(day(6)))
	assert.Equal(t, -1, cal.Index(day(4)))
}
