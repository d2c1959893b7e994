package backfolio

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Builder replays an event log over a trading calendar and produces a
// Ledger. Construction of each day is strictly sequential: the previous
// day's state is carried forward, then splits, explicit conversions,
// trades and dividends are applied in that order, and the day is valued
// and frozen before the next one starts.
type Builder struct {
	cfg    *Config
	cal    *Calendar
	events *EventLog
	prices *PriceTable
	rates  *RateTable
	market *MarketSet
	log    zerolog.Logger
}

// NewBuilder assembles a Builder from validated configuration, a fetched
// calendar, a checked event log and prefetched market data. It fails if
// any configured ticker has no usable price history.
func NewBuilder(cfg *Config, cal *Calendar, events *EventLog, ms *MarketSet, log zerolog.Logger) (*Builder, error) {
	log = log.With().Str("component", "builder").Logger()
	prices, err := NewPriceTable(cal, cfg, ms, log)
	if err != nil {
		return nil, err
	}
	return &Builder{
		cfg:    cfg,
		cal:    cal,
		events: events,
		prices: prices,
		rates:  NewRateTable(cal, cfg.ReportingCurrency, ms, log),
		market: ms,
		log:    log,
	}, nil
}

// dayState is the mutable working set for a single day. It becomes
// immutable once copied into the ledger columns.
type dayState struct {
	holdings map[string]Quantity
	cash     map[string]Money
}

// Build runs the full reconstruction and returns the ledger.
func (b *Builder) Build() (*Ledger, error) {
	n := b.cal.Len()
	if n == 0 {
		return nil, fmt.Errorf("empty trading calendar")
	}

	ledger := &Ledger{
		reporting:  b.cfg.ReportingCurrency,
		days:       b.cal.Days(),
		tickers:    b.cfg.Tickers(),
		currencies: b.cfg.Currencies(),
		holdings:   make(map[string][]Quantity, len(b.cfg.Securities)),
		cash:       make(map[string][]Money),
		values:     make(map[string][]Money, len(b.cfg.Securities)),
		totals:     make([]Money, n),
	}
	for _, t := range ledger.tickers {
		ledger.holdings[t] = make([]Quantity, n)
		ledger.values[t] = make([]Money, n)
	}
	for _, cur := range ledger.currencies {
		ledger.cash[cur] = make([]Money, n)
	}

	state := dayState{
		holdings: make(map[string]Quantity, len(ledger.tickers)),
		cash:     make(map[string]Money, len(ledger.currencies)),
	}
	for _, cur := range ledger.currencies {
		state.cash[cur] = M(0, cur)
	}
	state.cash[b.cfg.StartingCash.Currency()] = b.cfg.StartingCash

	for i, day := range b.cal.All() {
		b.applySplits(state, day)
		if err := b.applyConversions(state, day, i); err != nil {
			return nil, err
		}
		if err := b.applyTrades(state, day, i); err != nil {
			return nil, err
		}
		b.applyDividends(state, day)
		if err := b.finalize(ledger, state, day, i); err != nil {
			return nil, err
		}
	}
	return ledger, nil
}

// applySplits rescales holdings for every split effective on this day.
// Splits touch share counts only, never cash, and run before trades so
// that same-day trades are expressed in post-split shares.
func (b *Builder) applySplits(state dayState, day Date) {
	for ticker, held := range state.holdings {
		if held.IsZero() {
			continue
		}
		for _, split := range b.market.Splits(ticker) {
			if split.Date != day {
				continue
			}
			rescaled := held.Mul(Q(split.Ratio.Numerator)).Div(Q(split.Ratio.Denominator))
			b.log.Info().
				Stringer("date", day).
				Str("ticker", ticker).
				Str("ratio", split.Ratio.String()).
				Str("before", held.String()).
				Str("after", rescaled.String()).
				Msg("applying split")
			held = rescaled
			state.holdings[ticker] = rescaled
		}
	}
}

// applyConversions moves cash between buckets for explicit conversion
// events. A conversion without a recorded rate uses the market rate of
// its own day. The source bucket may dip negative here; the day-end
// check in finalize reports it.
func (b *Builder) applyConversions(state dayState, day Date, i int) error {
	for _, c := range b.events.ConversionsOn(day) {
		rate := c.Rate
		if rate.IsZero() {
			var err error
			rate, err = b.rates.CrossRate(c.From, c.To, i)
			if err != nil {
				return fmt.Errorf("conversion on %s: %w", day, err)
			}
		}
		state.cash[c.From] = state.cash[c.From].Sub(c.FromMoney())
		state.cash[c.To] = state.cash[c.To].Add(M(c.Amount.Mul(rate), c.To))
	}
	return nil
}

// applyTrades settles the day's trades against the cash buckets.
//
// A purchase draws from the bucket matching the trade currency. When that
// bucket cannot cover the cost it is drained to zero and only the
// shortfall is converted from the other bucket at the day's rate. A sale
// credits the matching bucket and never converts.
func (b *Builder) applyTrades(state dayState, day Date, i int) error {
	for _, t := range b.events.TradesOn(day) {
		if t.IsBuy() {
			if err := b.settleBuy(state, t, i); err != nil {
				return err
			}
		} else {
			if err := b.settleSell(state, t); err != nil {
				return err
			}
		}
		state.holdings[t.Ticker] = state.holdings[t.Ticker].Add(t.Quantity)
	}
	return nil
}

func (b *Builder) settleBuy(state dayState, t Trade, i int) error {
	cost := t.Notional()
	bucket := state.cash[t.Currency]
	if !bucket.LessThan(cost) {
		state.cash[t.Currency] = bucket.Sub(cost)
		return nil
	}

	shortfall := cost.Sub(bucket)
	other, ok := b.otherCurrency(t.Currency)
	if !ok {
		// Single-bucket portfolio: nothing to convert from, the
		// bucket runs negative and finalize flags it.
		state.cash[t.Currency] = bucket.Sub(cost)
		b.log.Warn().
			Stringer("date", t.Date).
			Str("ticker", t.Ticker).
			Str("shortfall", shortfall.String()).
			Msg("purchase exceeds cash, no second bucket to convert from")
		return nil
	}

	cross, err := b.rates.CrossRate(t.Currency, other, i)
	if err != nil {
		return fmt.Errorf("funding %s purchase of %s: %w", t.Ticker, t.Date, err)
	}
	converted := M(shortfall.Decimal().Mul(cross), other)
	state.cash[t.Currency] = M(0, t.Currency)
	state.cash[other] = state.cash[other].Sub(converted)
	b.log.Debug().
		Stringer("date", t.Date).
		Str("ticker", t.Ticker).
		Str("shortfall", shortfall.String()).
		Str("converted", converted.String()).
		Msg("converted shortfall to settle purchase")
	return nil
}

func (b *Builder) settleSell(state dayState, t Trade) error {
	sold := t.Quantity.Abs()
	if state.holdings[t.Ticker].LessThan(sold) {
		return fmt.Errorf("selling %s %s on %s: only %s held",
			sold, t.Ticker, t.Date, state.holdings[t.Ticker])
	}
	proceeds := t.Notional()
	state.cash[t.Currency] = state.cash[t.Currency].Add(proceeds)
	return nil
}

// applyDividends credits cash for the day's dividend payments using the
// end-of-day share counts, after all trades have settled.
func (b *Builder) applyDividends(state dayState, day Date) {
	for _, d := range b.events.DividendsOn(day) {
		held := state.holdings[d.Ticker]
		if held.IsZero() {
			continue
		}
		payout := d.PerShare().Mul(held)
		state.cash[d.Currency] = state.cash[d.Currency].Add(payout)
		b.log.Debug().
			Stringer("date", day).
			Str("ticker", d.Ticker).
			Str("payout", payout.String()).
			Msg("dividend credited")
	}
}

// finalize values the day in the reporting currency and freezes it into
// the ledger. A position without a known price is fatal unless it is
// empty; the total is the sum of position values and converted cash.
func (b *Builder) finalize(ledger *Ledger, state dayState, day Date, i int) error {
	total := M(0, b.cfg.ReportingCurrency)

	for _, ticker := range ledger.tickers {
		held := state.holdings[ticker]
		ledger.holdings[ticker][i] = held

		price, known := b.prices.Price(ticker, i)
		if !known {
			if !held.IsZero() {
				return fmt.Errorf("no price for %s held on %s", ticker, day)
			}
			ledger.values[ticker][i] = M(0, b.cfg.ReportingCurrency)
			continue
		}
		value, err := b.rates.Convert(price.Mul(held), i)
		if err != nil {
			return fmt.Errorf("valuing %s on %s: %w", ticker, day, err)
		}
		ledger.values[ticker][i] = value
		total = total.Add(value)
	}

	for _, cur := range ledger.currencies {
		balance := state.cash[cur]
		ledger.cash[cur][i] = balance
		if balance.IsNegative() {
			b.log.Warn().
				Stringer("date", day).
				Str("currency", cur).
				Str("balance", balance.String()).
				Msg("negative cash balance at end of day")
		}
		converted, err := b.rates.Convert(balance, i)
		if err != nil {
			return fmt.Errorf("valuing %s cash on %s: %w", cur, day, err)
		}
		total = total.Add(converted)
	}

	ledger.totals[i] = total
	return nil
}

// otherCurrency returns the configured bucket that is not cur, when the
// portfolio carries exactly two currencies.
func (b *Builder) otherCurrency(cur string) (string, bool) {
	for _, c := range b.cfg.Currencies() {
		if c != cur {
			return c, true
		}
	}
	return "", false
}
