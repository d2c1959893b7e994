// Package pricedb persists fetched market histories in a local SQLite
// database. It wraps any backfolio.MarketData and serves repeated builds
// over already-covered ranges without touching the remote provider.
package pricedb

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jfmartel/backfolio"
)

// Cache is a write-through cache in front of a MarketData source. Each
// history kind tracks the contiguous date range it has stored; a request
// inside that range is answered from disk, anything wider refreshes the
// union of the old and new ranges from the source.
type Cache struct {
	db     *sql.DB
	source backfolio.MarketData
	log    zerolog.Logger
}

var _ backfolio.MarketData = (*Cache)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS coverage (
	kind TEXT NOT NULL,
	name TEXT NOT NULL,
	from_date TEXT NOT NULL,
	to_date TEXT NOT NULL,
	PRIMARY KEY (kind, name)
);
CREATE TABLE IF NOT EXISTS closes (
	ticker TEXT NOT NULL,
	date TEXT NOT NULL,
	close TEXT NOT NULL,
	PRIMARY KEY (ticker, date)
);
CREATE TABLE IF NOT EXISTS dividends (
	ticker TEXT NOT NULL,
	date TEXT NOT NULL,
	amount TEXT NOT NULL,
	PRIMARY KEY (ticker, date)
);
CREATE TABLE IF NOT EXISTS splits (
	ticker TEXT NOT NULL,
	date TEXT NOT NULL,
	numerator INTEGER NOT NULL,
	denominator INTEGER NOT NULL,
	PRIMARY KEY (ticker, date)
);
CREATE TABLE IF NOT EXISTS rates (
	pair TEXT NOT NULL,
	date TEXT NOT NULL,
	rate TEXT NOT NULL,
	PRIMARY KEY (pair, date)
);
CREATE TABLE IF NOT EXISTS trading_days (
	market TEXT NOT NULL,
	date TEXT NOT NULL,
	PRIMARY KEY (market, date)
);`

// Open creates or opens the cache database at path ("file::memory:" works
// for throwaway caches) and wraps the given source.
func Open(path string, source backfolio.MarketData, log zerolog.Logger) (*Cache, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening price cache %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing price cache schema: %w", err)
	}
	return &Cache{
		db:     db,
		source: source,
		log:    log.With().Str("component", "pricedb").Logger(),
	}, nil
}

// Close releases the underlying database.
func (c *Cache) Close() error { return c.db.Close() }

// covered reports whether the stored range for (kind, name) contains r,
// and returns the union of the stored range and r for refreshes.
func (c *Cache) covered(kind, name string, r backfolio.Range) (bool, backfolio.Range, error) {
	var fromStr, toStr string
	err := c.db.QueryRow(
		`SELECT from_date, to_date FROM coverage WHERE kind = ? AND name = ?`,
		kind, name).Scan(&fromStr, &toStr)
	if err == sql.ErrNoRows {
		return false, r, nil
	}
	if err != nil {
		return false, r, fmt.Errorf("reading coverage for %s %s: %w", kind, name, err)
	}
	from, err := backfolio.ParseDate(fromStr)
	if err != nil {
		return false, r, err
	}
	to, err := backfolio.ParseDate(toStr)
	if err != nil {
		return false, r, err
	}
	stored := backfolio.Range{From: from, To: to}
	if stored.Contains(r.From) && stored.Contains(r.To) {
		return true, stored, nil
	}
	union := stored
	if r.From.Before(union.From) {
		union.From = r.From
	}
	if r.To.After(union.To) {
		union.To = r.To
	}
	return false, union, nil
}

func (c *Cache) setCoverage(tx *sql.Tx, kind, name string, r backfolio.Range) error {
	_, err := tx.Exec(
		`INSERT OR REPLACE INTO coverage (kind, name, from_date, to_date) VALUES (?, ?, ?, ?)`,
		kind, name, r.From.String(), r.To.String())
	return err
}

// DailyCloses serves closing prices, refreshing from the source when the
// request is not fully covered.
func (c *Cache) DailyCloses(ticker string, r backfolio.Range) (map[backfolio.Date]decimal.Decimal, error) {
	hit, fetch, err := c.covered("closes", ticker, r)
	if err != nil {
		return nil, err
	}
	if !hit {
		history, err := c.source.DailyCloses(ticker, fetch)
		if err != nil {
			return nil, err
		}
		if err := c.storeDecimals("closes", "ticker", "close", ticker, fetch, history); err != nil {
			return nil, err
		}
	}
	return c.loadDecimals("closes", "ticker", "close", ticker, r)
}

// Dividends serves per-share dividend history.
func (c *Cache) Dividends(ticker string, r backfolio.Range) (map[backfolio.Date]decimal.Decimal, error) {
	hit, fetch, err := c.covered("dividends", ticker, r)
	if err != nil {
		return nil, err
	}
	if !hit {
		history, err := c.source.Dividends(ticker, fetch)
		if err != nil {
			return nil, err
		}
		if err := c.storeDecimals("dividends", "ticker", "amount", ticker, fetch, history); err != nil {
			return nil, err
		}
	}
	return c.loadDecimals("dividends", "ticker", "amount", ticker, r)
}

// ExchangeRates serves the daily rate history for a currency pair.
func (c *Cache) ExchangeRates(base, quote string, r backfolio.Range) (map[backfolio.Date]decimal.Decimal, error) {
	pair := base + quote
	hit, fetch, err := c.covered("rates", pair, r)
	if err != nil {
		return nil, err
	}
	if !hit {
		history, err := c.source.ExchangeRates(base, quote, fetch)
		if err != nil {
			return nil, err
		}
		if err := c.storeDecimals("rates", "pair", "rate", pair, fetch, history); err != nil {
			return nil, err
		}
	}
	return c.loadDecimals("rates", "pair", "rate", pair, r)
}

// Splits serves the split history for a ticker.
func (c *Cache) Splits(ticker string, r backfolio.Range) (map[backfolio.Date]backfolio.SplitRatio, error) {
	hit, fetch, err := c.covered("splits", ticker, r)
	if err != nil {
		return nil, err
	}
	if !hit {
		history, err := c.source.Splits(ticker, fetch)
		if err != nil {
			return nil, err
		}
		tx, err := c.db.Begin()
		if err != nil {
			return nil, err
		}
		for on, ratio := range history {
			if _, err := tx.Exec(
				`INSERT OR REPLACE INTO splits (ticker, date, numerator, denominator) VALUES (?, ?, ?, ?)`,
				ticker, on.String(), ratio.Numerator, ratio.Denominator); err != nil {
				tx.Rollback()
				return nil, fmt.Errorf("storing split for %s: %w", ticker, err)
			}
		}
		if err := c.setCoverage(tx, "splits", ticker, fetch); err != nil {
			tx.Rollback()
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		c.log.Debug().Str("ticker", ticker).Int("rows", len(history)).Msg("cached split history")
	}

	rows, err := c.db.Query(
		`SELECT date, numerator, denominator FROM splits WHERE ticker = ? AND date BETWEEN ? AND ?`,
		ticker, r.From.String(), r.To.String())
	if err != nil {
		return nil, fmt.Errorf("querying cached splits for %s: %w", ticker, err)
	}
	defer rows.Close()

	splits := make(map[backfolio.Date]backfolio.SplitRatio)
	for rows.Next() {
		var dateStr string
		var ratio backfolio.SplitRatio
		if err := rows.Scan(&dateStr, &ratio.Numerator, &ratio.Denominator); err != nil {
			return nil, fmt.Errorf("scanning cached split for %s: %w", ticker, err)
		}
		on, err := backfolio.ParseDate(dateStr)
		if err != nil {
			return nil, err
		}
		splits[on] = ratio
	}
	return splits, rows.Err()
}

// TradingDays serves a market's trading days.
func (c *Cache) TradingDays(market string, r backfolio.Range) ([]backfolio.Date, error) {
	hit, fetch, err := c.covered("trading_days", market, r)
	if err != nil {
		return nil, err
	}
	if !hit {
		days, err := c.source.TradingDays(market, fetch)
		if err != nil {
			return nil, err
		}
		tx, err := c.db.Begin()
		if err != nil {
			return nil, err
		}
		for _, on := range days {
			if _, err := tx.Exec(
				`INSERT OR REPLACE INTO trading_days (market, date) VALUES (?, ?)`,
				market, on.String()); err != nil {
				tx.Rollback()
				return nil, fmt.Errorf("storing trading day for %s: %w", market, err)
			}
		}
		if err := c.setCoverage(tx, "trading_days", market, fetch); err != nil {
			tx.Rollback()
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		c.log.Debug().Str("market", market).Int("rows", len(days)).Msg("cached trading days")
	}

	rows, err := c.db.Query(
		`SELECT date FROM trading_days WHERE market = ? AND date BETWEEN ? AND ? ORDER BY date`,
		market, r.From.String(), r.To.String())
	if err != nil {
		return nil, fmt.Errorf("querying cached trading days for %s: %w", market, err)
	}
	defer rows.Close()

	var days []backfolio.Date
	for rows.Next() {
		var dateStr string
		if err := rows.Scan(&dateStr); err != nil {
			return nil, fmt.Errorf("scanning cached trading day for %s: %w", market, err)
		}
		on, err := backfolio.ParseDate(dateStr)
		if err != nil {
			return nil, err
		}
		days = append(days, on)
	}
	return days, rows.Err()
}

// storeDecimals upserts a date/decimal history into one of the two-column
// value tables and records its coverage.
func (c *Cache) storeDecimals(table, keyCol, valCol, key string, r backfolio.Range, history map[backfolio.Date]decimal.Decimal) error {
	tx, err := c.db.Begin()
	if err != nil {
		return err
	}
	stmt := fmt.Sprintf(`INSERT OR REPLACE INTO %s (%s, date, %s) VALUES (?, ?, ?)`, table, keyCol, valCol)
	for on, v := range history {
		if _, err := tx.Exec(stmt, key, on.String(), v.String()); err != nil {
			tx.Rollback()
			return fmt.Errorf("storing %s for %s: %w", table, key, err)
		}
	}
	if err := c.setCoverage(tx, table, key, r); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	c.log.Debug().Str(keyCol, key).Int("rows", len(history)).Str("table", table).Msg("cached history")
	return nil
}

// loadDecimals reads a date/decimal history back from a value table.
func (c *Cache) loadDecimals(table, keyCol, valCol, key string, r backfolio.Range) (map[backfolio.Date]decimal.Decimal, error) {
	query := fmt.Sprintf(`SELECT date, %s FROM %s WHERE %s = ? AND date BETWEEN ? AND ?`, valCol, table, keyCol)
	rows, err := c.db.Query(query, key, r.From.String(), r.To.String())
	if err != nil {
		return nil, fmt.Errorf("querying cached %s for %s: %w", table, key, err)
	}
	defer rows.Close()

	history := make(map[backfolio.Date]decimal.Decimal)
	for rows.Next() {
		var dateStr, valStr string
		if err := rows.Scan(&dateStr, &valStr); err != nil {
			return nil, fmt.Errorf("scanning cached %s for %s: %w", table, key, err)
		}
		on, err := backfolio.ParseDate(dateStr)
		if err != nil {
			return nil, err
		}
		v, err := decimal.NewFromString(valStr)
		if err != nil {
			return nil, fmt.Errorf("corrupt %s value %q for %s on %s: %w", table, valStr, key, dateStr, err)
		}
		history[on] = v
	}
	return history, rows.Err()
}
