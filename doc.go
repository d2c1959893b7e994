// Package backfolio reconstructs the full daily history of an investment
// portfolio from a sparse event log of trades, dividend payments and
// currency conversions.
//
// The centre of the package is the Builder: a deterministic, single-pass
// simulation that walks a trading calendar and, for each day, carries the
// previous day's balance sheet forward and applies that day's events in a
// fixed order (splits, explicit conversions, trades, dividends). The result
// is a Ledger of four aligned daily series:
//   - Holdings: shares held per ticker,
//   - Cash: balances per currency bucket,
//   - Market Values: per-ticker value in the reporting currency,
//   - Portfolio Total: the aggregate value with day-over-day change.
//
// Market data (closing prices, dividends, splits, exchange rates, trading
// days) comes from a MarketData collaborator; the eodhd subpackage provides
// an HTTP implementation and pricedb a local read-mostly cache. The builder
// itself performs no I/O and no retries: it either produces a fully
// consistent ledger or fails with an error naming the offending ticker,
// date or currency pair.
//
// This package serves as the foundational logic for the `bf` command-line
// tool.
package backfolio
