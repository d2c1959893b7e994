package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/subcommands"

	"github.com/jfmartel/backfolio"
)

// holdingsCmd prints the detailed holdings for one rebuilt day.
type holdingsCmd struct {
	date string
}

func (*holdingsCmd) Name() string     { return "holdings" }
func (*holdingsCmd) Synopsis() string { return "display holdings for a specific date" }
func (*holdingsCmd) Usage() string {
	return `bf holdings [-d <date>]

  Displays positions, cash balances and the portfolio total on a given
  rebuilt day (default: the last one).
`
}

func (c *holdingsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", "", "date of the report, default is the last rebuilt day")
}

func (c *holdingsCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	log := Logger()
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	b, closer, err := MakeBuilder(log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer closer()

	ledger, err := b.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	on := ledger.Days()[ledger.Len()-1]
	if c.date != "" {
		on, err = backfolio.ParseDate(c.date)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitUsageError
		}
	}

	report, err := ledger.Holdings(cfg, on)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	fmt.Printf("Holdings on %s (%s)\n\n", report.Date, report.ReportingCurrency)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TICKER\tQUANTITY\tVALUE\tWEIGHT")
	for _, sec := range report.Securities {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", sec.Ticker, sec.Quantity, sec.MarketValue, sec.Weight)
	}
	fmt.Fprintln(w, "\t\t\t")
	for _, cash := range report.Cash {
		fmt.Fprintf(w, "Cash %s\t\t%s\t\n", cash.Currency, cash.Balance)
	}
	fmt.Fprintf(w, "Total\t\t%s\t%s\n", report.Total, report.DayChange)
	return flush(w)
}
