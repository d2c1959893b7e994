package backfolio

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// fakeMarket is an in-memory MarketData for tests. Histories are declared
// as date/value maps; range filtering mimics a real provider.
type fakeMarket struct {
	calendars map[string][]Date
	closes    map[string]map[Date]decimal.Decimal
	dividends map[string]map[Date]decimal.Decimal
	splits    map[string]map[Date]SplitRatio
	rates     map[string]map[Date]decimal.Decimal // keyed "base/quote"
	fail      map[string]error                    // keyed "kind/name"
}

func newFakeMarket() *fakeMarket {
	return &fakeMarket{
		calendars: make(map[string][]Date),
		closes:    make(map[string]map[Date]decimal.Decimal),
		dividends: make(map[string]map[Date]decimal.Decimal),
		splits:    make(map[string]map[Date]SplitRatio),
		rates:     make(map[string]map[Date]decimal.Decimal),
		fail:      make(map[string]error),
	}
}

func (f *fakeMarket) TradingDays(market string, r Range) ([]Date, error) {
	if err := f.fail["calendar/"+market]; err != nil {
		return nil, err
	}
	var days []Date
	for _, d := range f.calendars[market] {
		if r.Contains(d) {
			days = append(days, d)
		}
	}
	return days, nil
}

func (f *fakeMarket) DailyCloses(ticker string, r Range) (map[Date]decimal.Decimal, error) {
	if err := f.fail["closes/"+ticker]; err != nil {
		return nil, err
	}
	return filterDates(f.closes[ticker], r), nil
}

func (f *fakeMarket) Dividends(ticker string, r Range) (map[Date]decimal.Decimal, error) {
	if err := f.fail["dividends/"+ticker]; err != nil {
		return nil, err
	}
	return filterDates(f.dividends[ticker], r), nil
}

func (f *fakeMarket) Splits(ticker string, r Range) (map[Date]SplitRatio, error) {
	if err := f.fail["splits/"+ticker]; err != nil {
		return nil, err
	}
	return filterDates(f.splits[ticker], r), nil
}

func (f *fakeMarket) ExchangeRates(base, quote string, r Range) (map[Date]decimal.Decimal, error) {
	key := base + "/" + quote
	if err := f.fail["rates/"+key]; err != nil {
		return nil, err
	}
	return filterDates(f.rates[key], r), nil
}

func filterDates[V any](history map[Date]V, r Range) map[Date]V {
	out := make(map[Date]V)
	for d, v := range history {
		if r.Contains(d) {
			out[d] = v
		}
	}
	return out
}

// day is shorthand for fixture dates in January 2025.
func day(d int) Date { return NewDate(2025, 1, d) }

// weekdays fills a market calendar with the business days of January 2025
// (Jan 1 is a Wednesday; fixtures start on Jan 2).
func weekdays(from, to int) []Date {
	var days []Date
	for d := from; d <= to; d++ {
		date := day(d)
		if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		days = append(days, date)
	}
	return days
}

// flatCloses is a constant price on every given day.
func flatCloses(price float64, days []Date) map[Date]decimal.Decimal {
	out := make(map[Date]decimal.Decimal, len(days))
	for _, d := range days {
		out[d] = decimal.NewFromFloat(price)
	}
	return out
}

// testConfig is a single-currency CAD portfolio holding one Toronto stock.
func testConfig() *Config {
	return &Config{
		ReportingCurrency: "CAD",
		StartingCash:      M(1000, "CAD"),
		Securities: map[string]SecurityInfo{
			"RY.TO": {Currency: "CAD", Market: "XTSE"},
		},
		Markets: []string{"XTSE"},
	}
}

// crossConfig adds a USD NYSE stock to testConfig, exercising the
// two-bucket cash model and the exchange-rate series.
func crossConfig() *Config {
	cfg := testConfig()
	cfg.Securities["AAPL.US"] = SecurityInfo{Currency: "USD", Market: "XNYS"}
	cfg.Markets = []string{"XTSE", "XNYS"}
	return cfg
}

// testMarket populates a fakeMarket consistent with crossConfig: both
// markets trade every business day of January 2025, RY.TO closes at 50
// CAD, AAPL.US at 100 USD, and USD/CAD is a constant 1.25.
func testMarket() *fakeMarket {
	f := newFakeMarket()
	days := weekdays(2, 31)
	f.calendars["XTSE"] = days
	f.calendars["XNYS"] = days
	f.closes["RY.TO"] = flatCloses(50, days)
	f.closes["AAPL.US"] = flatCloses(100, days)
	f.rates["USD/CAD"] = flatCloses(1.25, days)
	return f
}

// buildWith runs the whole pipeline over the fixture range and returns the
// builder, failing the test on any setup error.
type testingT interface {
	Helper()
	Fatalf(format string, args ...any)
}

func buildWith(t testingT, cfg *Config, f *fakeMarket, events ...Event) *Builder {
	t.Helper()
	log := zerolog.Nop()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config: %v", err)
	}
	cal, err := FetchCalendar(f, cfg.Markets, day(2), day(31).Add(1), log)
	if err != nil {
		t.Fatalf("calendar: %v", err)
	}
	ms, err := Prefetch(f, cfg, NewRange(cal.First(), cal.Last()), log)
	if err != nil {
		t.Fatalf("prefetch: %v", err)
	}
	eventLog, err := NewEventLog(events...)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if err := eventLog.Check(cfg); err != nil {
		t.Fatalf("events: %v", err)
	}
	b, err := NewBuilder(cfg, cal, eventLog, ms, log)
	if err != nil {
		t.Fatalf("builder: %v", err)
	}
	return b
}

// mustBuild is buildWith plus Build.
func mustBuild(t testingT, cfg *Config, f *fakeMarket, events ...Event) *Ledger {
	t.Helper()
	ledger, err := buildWith(t, cfg, f, events...).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return ledger
}

// buy and sell are fixture trade constructors.
func buy(d int, ticker, currency string, qty, price float64) Trade {
	return Trade{Date: day(d), Ticker: ticker, Currency: currency,
		Quantity: Q(qty), Price: decimal.NewFromFloat(price)}
}

func sell(d int, ticker, currency string, qty, price float64) Trade {
	t := buy(d, ticker, currency, qty, price)
	t.Quantity = t.Quantity.Neg()
	return t
}

// assertMoney reports a mismatch between a Money and an expected float in
// the given currency.
func assertMoney(t testingT, want float64, cur string, got Money, what string) {
	t.Helper()
	if !got.Equal(M(want, cur)) {
		t.Fatalf("%s: want %s, got %s", what, M(want, cur), got)
	}
}
