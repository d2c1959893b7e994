// Package cmd implements the bf CLI to record portfolio events and rebuild
// daily portfolio history.
package cmd

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/google/subcommands"
	"github.com/rs/zerolog"

	"github.com/jfmartel/backfolio"
	"github.com/jfmartel/backfolio/eodhd"
	"github.com/jfmartel/backfolio/pricedb"
)

// Register wires every subcommand into the commander.
func Register(c *subcommands.Commander) {
	c.Register(&buildCmd{}, "reports")
	c.Register(&holdingsCmd{}, "reports")
	c.Register(&returnsCmd{}, "reports")
	c.Register(&benchmarkCmd{}, "reports")

	c.Register(&buyCmd{}, "events")
	c.Register(&sellCmd{}, "events")
	c.Register(&dividendCmd{}, "events")
	c.Register(&convertCmd{}, "events")
}

// As a short-lived CLI the shared flags live in package globals.
var (
	configFile = flag.String("config", "backfolio.json", "path to the portfolio configuration (JSON)")
	eventsFile = flag.String("events", "events.jsonl", "path to the event log (JSONL)")
	cacheFile  = flag.String("cache", ".backfolio.db", "path to the local market-data cache, empty to disable")
	fromFlag   = flag.String("from", "", "first day of the rebuild, default is the first recorded event")
	untilFlag  = flag.String("until", "", "day after the last rebuilt day, default is tomorrow")
	verbose    = flag.Bool("v", false, "verbose logging")
)

// Logger builds the CLI logger: human-readable console output, info level
// unless -v is given.
func Logger() zerolog.Logger {
	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(level).With().Timestamp().Logger()
}

// LoadConfig reads and validates the portfolio configuration file.
func LoadConfig() (*backfolio.Config, error) {
	raw, err := os.ReadFile(*configFile)
	if err != nil {
		return nil, fmt.Errorf("reading configuration: %w", err)
	}
	var cfg backfolio.Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration %s: %w", *configFile, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration %s: %w", *configFile, err)
	}
	return &cfg, nil
}

// LoadEvents reads the event log. A missing file is an empty log, so that
// report commands work on a fresh portfolio.
func LoadEvents() (*backfolio.EventLog, error) {
	f, err := os.Open(*eventsFile)
	if errors.Is(err, fs.ErrNotExist) {
		return backfolio.NewEventLog()
	}
	if err != nil {
		return nil, fmt.Errorf("opening event log: %w", err)
	}
	defer f.Close()
	events, err := backfolio.DecodeEvents(f)
	if err != nil {
		return nil, fmt.Errorf("reading event log %s: %w", *eventsFile, err)
	}
	return events, nil
}

// OpenMarketData builds the provider stack: the EODHD client, wrapped in
// the SQLite cache unless caching is disabled. The returned closer must be
// called when done.
func OpenMarketData(log zerolog.Logger) (backfolio.MarketData, func(), error) {
	apiKey := os.Getenv("EODHD_API_KEY")
	if apiKey == "" {
		return nil, nil, fmt.Errorf("EODHD_API_KEY is not set; get a key at https://eodhd.com and export it or add it to .env")
	}
	var md backfolio.MarketData = eodhd.New(apiKey, log)
	if *cacheFile == "" {
		return md, func() {}, nil
	}
	cache, err := pricedb.Open(*cacheFile, md, log)
	if err != nil {
		return nil, nil, err
	}
	return cache, func() { cache.Close() }, nil
}

// buildSpan resolves the rebuild window from flags and the event log.
func buildSpan(events *backfolio.EventLog) (from, until backfolio.Date, err error) {
	if *fromFlag != "" {
		from, err = backfolio.ParseDate(*fromFlag)
		if err != nil {
			return from, until, fmt.Errorf("-from: %w", err)
		}
	} else {
		span, ok := events.Span()
		if !ok {
			return from, until, fmt.Errorf("no events recorded and no -from given: nothing to rebuild")
		}
		from = span.From
	}
	if *untilFlag != "" {
		until, err = backfolio.ParseDate(*untilFlag)
		if err != nil {
			return from, until, fmt.Errorf("-until: %w", err)
		}
	} else {
		until = backfolio.Today().Add(1)
	}
	if !from.Before(until) {
		return from, until, fmt.Errorf("-from %s is not before -until %s", from, until)
	}
	return from, until, nil
}

// MakeBuilder assembles the full pipeline: configuration, calendar, market
// data and events, with provider dividends merged under explicit ones.
func MakeBuilder(log zerolog.Logger) (*backfolio.Builder, func(), error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	events, err := LoadEvents()
	if err != nil {
		return nil, nil, err
	}
	if err := events.Check(cfg); err != nil {
		return nil, nil, fmt.Errorf("event log %s: %w", *eventsFile, err)
	}
	from, until, err := buildSpan(events)
	if err != nil {
		return nil, nil, err
	}

	md, closer, err := OpenMarketData(log)
	if err != nil {
		return nil, nil, err
	}
	cal, err := backfolio.FetchCalendar(md, cfg.Markets, from, until, log)
	if err != nil {
		closer()
		return nil, nil, err
	}
	ms, err := backfolio.Prefetch(md, cfg, backfolio.NewRange(cal.First(), cal.Last()), log)
	if err != nil {
		closer()
		return nil, nil, err
	}
	if err := events.MergeDividends(ms.DividendEvents(cfg.Currency)); err != nil {
		closer()
		return nil, nil, fmt.Errorf("merging provider dividends: %w", err)
	}
	b, err := backfolio.NewBuilder(cfg, cal, events, ms, log)
	if err != nil {
		closer()
		return nil, nil, err
	}
	return b, closer, nil
}

// AppendEvent writes one event to the end of the event log file.
func AppendEvent(e backfolio.Event) subcommands.ExitStatus {
	f, err := os.OpenFile(*eventsFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening event log %q: %v\n", *eventsFile, err)
		return subcommands.ExitFailure
	}
	defer f.Close()

	if err := backfolio.EncodeEvent(f, e); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing event log %q: %v\n", *eventsFile, err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Recorded %s on %s in %s\n", e.Kind(), e.When(), *eventsFile)
	return subcommands.ExitSuccess
}
