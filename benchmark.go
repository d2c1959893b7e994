package backfolio

import "fmt"

// BuildBenchmark reconstructs a passive reference portfolio over the same
// calendar and market data as Build. The benchmark invests its capital on
// the first trading day according to the configured target weights, buying
// fractional shares at that day's closing prices, and then holds. The rest
// of the pipeline is identical, so benchmark and portfolio ledgers are
// directly comparable day by day.
func (b *Builder) BuildBenchmark() (*Ledger, error) {
	if len(b.cfg.BenchmarkWeights) == 0 {
		return nil, fmt.Errorf("no benchmark weights configured")
	}
	events, err := b.benchmarkEvents()
	if err != nil {
		return nil, err
	}

	cfg := *b.cfg
	cfg.StartingCash = b.cfg.BenchmarkCapital

	bench := *b
	bench.cfg = &cfg
	bench.events = events
	bench.log = b.log.With().Str("component", "benchmark").Logger()
	return bench.Build()
}

// benchmarkEvents synthesizes the day-zero purchases implied by the target
// weights: each ticker's slice of the capital divided by its first closing
// price, converted into the ticker's own currency when it differs from the
// reporting one.
func (b *Builder) benchmarkEvents() (*EventLog, error) {
	day := b.cal.First()
	capital := b.cfg.BenchmarkCapital

	var trades []Event
	for _, ticker := range b.cfg.Tickers() {
		weight, ok := b.cfg.BenchmarkWeights[ticker]
		if !ok || weight.IsZero() {
			continue
		}
		price, known := b.prices.Price(ticker, 0)
		if !known {
			return nil, fmt.Errorf("benchmark: no %s price on %s", ticker, day)
		}

		allocation := M(capital.Decimal().Mul(weight), capital.Currency())
		if price.Currency() != allocation.Currency() {
			cross, err := b.rates.CrossRate(allocation.Currency(), price.Currency(), 0)
			if err != nil {
				return nil, fmt.Errorf("benchmark allocation for %s: %w", ticker, err)
			}
			allocation = M(allocation.Decimal().Mul(cross), price.Currency())
		}

		trades = append(trades, Trade{
			Date:     day,
			Ticker:   ticker,
			Currency: price.Currency(),
			Quantity: allocation.DivPrice(price),
			Price:    price.Decimal(),
		})
	}
	return NewEventLog(trades...)
}
