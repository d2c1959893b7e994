package backfolio

import (
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/shopspring/decimal"
)

// EventKind discriminates the event variants of the log.
type EventKind string

const (
	KindTrade      EventKind = "trade"
	KindDividend   EventKind = "dividend"
	KindConversion EventKind = "convert"
)

// Event is the common interface of the three event variants recorded in an
// EventLog. The builder matches exhaustively on the concrete type.
type Event interface {
	Kind() EventKind
	When() Date
}

// Trade is a buy (positive quantity) or sell (negative quantity) of a
// security, priced per share in the trade's native currency.
type Trade struct {
	Date     Date            `json:"date"`
	Ticker   string          `json:"ticker"`
	Currency string          `json:"currency"`
	Quantity Quantity        `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

func (t Trade) Kind() EventKind { return KindTrade }
func (t Trade) When() Date      { return t.Date }

// IsBuy reports whether the trade adds to the position.
func (t Trade) IsBuy() bool { return t.Quantity.IsPositive() }

// Notional is the trade's cash effect |quantity| x price in the trade's
// native currency.
func (t Trade) Notional() Money {
	return M(t.Price, t.Currency).Mul(t.Quantity.Abs())
}

// Validate checks the trade's own fields; cross-checks against the
// configuration happen in EventLog.Check.
func (t Trade) Validate() error {
	if t.Date.IsZero() {
		return errors.New("trade date is missing")
	}
	if t.Ticker == "" {
		return errors.New("trade ticker is missing")
	}
	if err := ValidateCurrency(t.Currency); err != nil {
		return err
	}
	if t.Quantity.IsZero() {
		return fmt.Errorf("trade quantity must be non-zero on %s for %s", t.Date, t.Ticker)
	}
	if !t.Price.IsPositive() {
		return fmt.Errorf("trade price must be positive, got %s on %s for %s", t.Price, t.Date, t.Ticker)
	}
	return nil
}

// DividendPayment is a per-share dividend paid on a date, denominated in
// the security's native currency. Income is derived from the holdings on
// that date, not recorded in the event.
type DividendPayment struct {
	Date     Date            `json:"date"`
	Ticker   string          `json:"ticker"`
	Currency string          `json:"currency"`
	Amount   decimal.Decimal `json:"amount"`
}

func (d DividendPayment) Kind() EventKind { return KindDividend }
func (d DividendPayment) When() Date      { return d.Date }

// PerShare is the dividend amount per share as Money.
func (d DividendPayment) PerShare() Money { return M(d.Amount, d.Currency) }

func (d DividendPayment) Validate() error {
	if d.Date.IsZero() {
		return errors.New("dividend date is missing")
	}
	if d.Ticker == "" {
		return errors.New("dividend ticker is missing")
	}
	if err := ValidateCurrency(d.Currency); err != nil {
		return err
	}
	if !d.Amount.IsPositive() {
		return fmt.Errorf("dividend per share must be positive, got %s on %s for %s", d.Amount, d.Date, d.Ticker)
	}
	return nil
}

// CurrencyConversion is an explicit, manual conversion of Amount units of
// the From currency into the To currency. Rate is the number of To units
// per From unit; a zero Rate means "derive from the exchange-rate series on
// that date", which is only supported for the CAD/USD pair.
type CurrencyConversion struct {
	Date   Date            `json:"date"`
	From   string          `json:"from"`
	To     string          `json:"to"`
	Amount decimal.Decimal `json:"amount"`
	Rate   decimal.Decimal `json:"rate,omitzero"`
}

func (c CurrencyConversion) Kind() EventKind { return KindConversion }
func (c CurrencyConversion) When() Date      { return c.Date }

// FromMoney is the amount leaving the From bucket.
func (c CurrencyConversion) FromMoney() Money { return M(c.Amount, c.From) }

func (c CurrencyConversion) Validate() error {
	if c.Date.IsZero() {
		return errors.New("conversion date is missing")
	}
	if err := ValidateCurrency(c.From); err != nil {
		return fmt.Errorf("conversion 'from': %w", err)
	}
	if err := ValidateCurrency(c.To); err != nil {
		return fmt.Errorf("conversion 'to': %w", err)
	}
	if c.From == c.To {
		return fmt.Errorf("cannot convert %s to itself on %s", c.From, c.Date)
	}
	if !c.Amount.IsPositive() {
		return fmt.Errorf("conversion amount must be positive, got %s on %s", c.Amount, c.Date)
	}
	if c.Rate.IsNegative() {
		return fmt.Errorf("conversion rate must be positive when given, got %s on %s", c.Rate, c.Date)
	}
	return nil
}

// EventLog holds the normalized, date-sorted event streams of one
// portfolio. Events of the same kind on the same day keep their original
// order; across kinds the builder applies conversions, then trades, then
// dividends. The log is immutable once a build starts.
type EventLog struct {
	trades      []Trade
	dividends   []DividendPayment
	conversions []CurrencyConversion
}

// NewEventLog normalizes a mixed stream of events into a log. Every event
// is validated; the first malformed event aborts with a descriptive error,
// since a single corrupt event would silently skew every later balance.
func NewEventLog(events ...Event) (*EventLog, error) {
	log := &EventLog{}
	if err := log.Append(events...); err != nil {
		return nil, err
	}
	return log, nil
}

// Append validates and adds events, maintaining chronological order.
func (l *EventLog) Append(events ...Event) error {
	for _, e := range events {
		switch v := e.(type) {
		case Trade:
			if err := v.Validate(); err != nil {
				return fmt.Errorf("invalid trade: %w", err)
			}
			l.trades = append(l.trades, v)
		case DividendPayment:
			if err := v.Validate(); err != nil {
				return fmt.Errorf("invalid dividend: %w", err)
			}
			l.dividends = append(l.dividends, v)
		case CurrencyConversion:
			if err := v.Validate(); err != nil {
				return fmt.Errorf("invalid conversion: %w", err)
			}
			l.conversions = append(l.conversions, v)
		default:
			return fmt.Errorf("unsupported event type %T", e)
		}
	}
	l.stableSort()
	return nil
}

// stableSort keeps same-day events of a kind in their original order.
func (l *EventLog) stableSort() {
	sort.SliceStable(l.trades, func(i, j int) bool { return l.trades[i].Date.Before(l.trades[j].Date) })
	sort.SliceStable(l.dividends, func(i, j int) bool { return l.dividends[i].Date.Before(l.dividends[j].Date) })
	sort.SliceStable(l.conversions, func(i, j int) bool { return l.conversions[i].Date.Before(l.conversions[j].Date) })
}

// Check cross-validates the log against the configuration: every traded or
// dividend-paying ticker must be declared, and event currencies must match
// the declaration. This catches the mistyped-ticker class of errors before
// any market data is fetched.
func (l *EventLog) Check(cfg *Config) error {
	for _, t := range l.trades {
		info, ok := cfg.Securities[t.Ticker]
		if !ok {
			return fmt.Errorf("trade on %s references undeclared ticker %q", t.Date, t.Ticker)
		}
		if info.Currency != t.Currency {
			return fmt.Errorf("trade on %s for %s is in %s but the security trades in %s", t.Date, t.Ticker, t.Currency, info.Currency)
		}
	}
	for _, d := range l.dividends {
		info, ok := cfg.Securities[d.Ticker]
		if !ok {
			return fmt.Errorf("dividend on %s references undeclared ticker %q", d.Date, d.Ticker)
		}
		if info.Currency != d.Currency {
			return fmt.Errorf("dividend on %s for %s is in %s but the security trades in %s", d.Date, d.Ticker, d.Currency, info.Currency)
		}
	}
	currencies := cfg.Currencies()
	for _, c := range l.conversions {
		if !slices.Contains(currencies, c.From) || !slices.Contains(currencies, c.To) {
			return fmt.Errorf("conversion on %s uses unsupported pair %s/%s, configured currencies are %v", c.Date, c.From, c.To, currencies)
		}
	}
	return nil
}

// Trades returns all trades in chronological order.
func (l *EventLog) Trades() []Trade { return l.trades }

// Dividends returns all dividend payments in chronological order.
func (l *EventLog) Dividends() []DividendPayment { return l.dividends }

// Conversions returns all explicit conversions in chronological order.
func (l *EventLog) Conversions() []CurrencyConversion { return l.conversions }

// TradesOn returns the trades dated exactly 'day', in log order.
func (l *EventLog) TradesOn(day Date) []Trade {
	return eventsOn(l.trades, day, func(t Trade) Date { return t.Date })
}

// DividendsOn returns the dividend payments dated exactly 'day'.
func (l *EventLog) DividendsOn(day Date) []DividendPayment {
	return eventsOn(l.dividends, day, func(d DividendPayment) Date { return d.Date })
}

// ConversionsOn returns the explicit conversions dated exactly 'day'.
func (l *EventLog) ConversionsOn(day Date) []CurrencyConversion {
	return eventsOn(l.conversions, day, func(c CurrencyConversion) Date { return c.Date })
}

// eventsOn slices the run of events dated 'day' out of a sorted stream.
func eventsOn[E any](events []E, day Date, dateOf func(E) Date) []E {
	lo := sort.Search(len(events), func(i int) bool { return !dateOf(events[i]).Before(day) })
	hi := sort.Search(len(events), func(i int) bool { return dateOf(events[i]).After(day) })
	return events[lo:hi]
}

// Span returns the date range covered by the log, or false when empty.
func (l *EventLog) Span() (Range, bool) {
	var first, last Date
	consider := func(d Date) {
		if first.IsZero() || d.Before(first) {
			first = d
		}
		if last.IsZero() || d.After(last) {
			last = d
		}
	}
	for _, t := range l.trades {
		consider(t.Date)
	}
	for _, d := range l.dividends {
		consider(d.Date)
	}
	for _, c := range l.conversions {
		consider(c.Date)
	}
	if first.IsZero() {
		return Range{}, false
	}
	return NewRange(first, last), true
}

// Tickers returns every ticker referenced by a trade or dividend, sorted.
func (l *EventLog) Tickers() []string {
	seen := make(map[string]struct{})
	for _, t := range l.trades {
		seen[t.Ticker] = struct{}{}
	}
	for _, d := range l.dividends {
		seen[d.Ticker] = struct{}{}
	}
	tickers := make([]string, 0, len(seen))
	for ticker := range seen {
		tickers = append(tickers, ticker)
	}
	slices.Sort(tickers)
	return tickers
}

// MergeDividends adds provider-fetched dividend payments, skipping any
// (ticker, date) pair already recorded explicitly: a hand-entered payment
// wins over fetched history.
func (l *EventLog) MergeDividends(payments []DividendPayment) error {
	existing := make(map[string]struct{}, len(l.dividends))
	for _, d := range l.dividends {
		existing[d.Date.String()+"/"+d.Ticker] = struct{}{}
	}
	var fresh []Event
	for _, p := range payments {
		if _, ok := existing[p.Date.String()+"/"+p.Ticker]; ok {
			continue
		}
		fresh = append(fresh, p)
	}
	return l.Append(fresh...)
}
