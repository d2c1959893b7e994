package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/shopspring/decimal"

	"github.com/jfmartel/backfolio"
)

// The event-recording subcommands append one JSONL line to the event log.
// They validate the event in isolation; cross-checks against the
// configuration happen on the next build.

// tradeFlags are the flags shared by buy and sell.
type tradeFlags struct {
	date     string
	ticker   string
	currency string
	quantity string
	price    string
}

func (c *tradeFlags) setFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", backfolio.Today().String(), "trade date")
	f.StringVar(&c.ticker, "s", "", "security ticker")
	f.StringVar(&c.currency, "c", "", "trade currency")
	f.StringVar(&c.quantity, "q", "", "number of shares")
	f.StringVar(&c.price, "p", "", "price per share")
}

func (c *tradeFlags) trade(sell bool) (backfolio.Trade, error) {
	var t backfolio.Trade
	on, err := backfolio.ParseDate(c.date)
	if err != nil {
		return t, err
	}
	quantity, err := decimal.NewFromString(c.quantity)
	if err != nil {
		return t, fmt.Errorf("-q: %w", err)
	}
	price, err := decimal.NewFromString(c.price)
	if err != nil {
		return t, fmt.Errorf("-p: %w", err)
	}
	if sell {
		quantity = quantity.Neg()
	}
	t = backfolio.Trade{
		Date:     on,
		Ticker:   c.ticker,
		Currency: c.currency,
		Quantity: backfolio.Q(quantity),
		Price:    price,
	}
	return t, t.Validate()
}

type buyCmd struct{ tradeFlags }

func (*buyCmd) Name() string     { return "buy" }
func (*buyCmd) Synopsis() string { return "record a purchase" }
func (*buyCmd) Usage() string {
	return `bf buy -s <ticker> -c <currency> -q <quantity> -p <price> [-d <date>]

  Records a purchase in the event log.
`
}
func (c *buyCmd) SetFlags(f *flag.FlagSet) { c.setFlags(f) }

func (c *buyCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	t, err := c.trade(false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	return AppendEvent(t)
}

type sellCmd struct{ tradeFlags }

func (*sellCmd) Name() string     { return "sell" }
func (*sellCmd) Synopsis() string { return "record a sale" }
func (*sellCmd) Usage() string {
	return `bf sell -s <ticker> -c <currency> -q <quantity> -p <price> [-d <date>]

  Records a sale in the event log. The quantity is given positive.
`
}
func (c *sellCmd) SetFlags(f *flag.FlagSet) { c.setFlags(f) }

func (c *sellCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	t, err := c.trade(true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	return AppendEvent(t)
}

// dividendCmd records an explicit per-share dividend. Explicit payments
// take precedence over provider history on the same ticker and date.
type dividendCmd struct {
	date     string
	ticker   string
	currency string
	amount   string
}

func (*dividendCmd) Name() string     { return "dividend" }
func (*dividendCmd) Synopsis() string { return "record a per-share dividend payment" }
func (*dividendCmd) Usage() string {
	return `bf dividend -s <ticker> -c <currency> -a <amount-per-share> [-d <date>]

  Records a dividend payment in the event log. The cash credited is the
  per-share amount times the shares held at the end of that day.
`
}

func (c *dividendCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", backfolio.Today().String(), "payment date")
	f.StringVar(&c.ticker, "s", "", "security ticker")
	f.StringVar(&c.currency, "c", "", "payment currency")
	f.StringVar(&c.amount, "a", "", "amount per share")
}

func (c *dividendCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	on, err := backfolio.ParseDate(c.date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	amount, err := decimal.NewFromString(c.amount)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: -a: %v\n", err)
		return subcommands.ExitUsageError
	}
	d := backfolio.DividendPayment{Date: on, Ticker: c.ticker, Currency: c.currency, Amount: amount}
	if err := d.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	return AppendEvent(d)
}

// convertCmd records an explicit cash conversion between the two buckets.
type convertCmd struct {
	date   string
	from   string
	to     string
	amount string
	rate   string
}

func (*convertCmd) Name() string     { return "convert" }
func (*convertCmd) Synopsis() string { return "record a cash conversion between currencies" }
func (*convertCmd) Usage() string {
	return `bf convert -f <currency> -t <currency> -a <amount> [-r <rate>] [-d <date>]

  Records a conversion of cash from one bucket to the other. Without -r
  the market rate of that day is used at build time.
`
}

func (c *convertCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", backfolio.Today().String(), "conversion date")
	f.StringVar(&c.from, "f", "", "source currency")
	f.StringVar(&c.to, "t", "", "target currency")
	f.StringVar(&c.amount, "a", "", "amount in the source currency")
	f.StringVar(&c.rate, "r", "", "target units per source unit, empty to use the market rate")
}

func (c *convertCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	on, err := backfolio.ParseDate(c.date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	amount, err := decimal.NewFromString(c.amount)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: -a: %v\n", err)
		return subcommands.ExitUsageError
	}
	conv := backfolio.CurrencyConversion{Date: on, From: c.from, To: c.to, Amount: amount}
	if c.rate != "" {
		if conv.Rate, err = decimal.NewFromString(c.rate); err != nil {
			fmt.Fprintf(os.Stderr, "Error: -r: %v\n", err)
			return subcommands.ExitUsageError
		}
	}
	if err := conv.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	return AppendEvent(conv)
}
