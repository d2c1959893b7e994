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

// buildCmd rebuilds the full daily history and prints the portfolio total
// per day.
type buildCmd struct {
	period string
}

func (*buildCmd) Name() string     { return "build" }
func (*buildCmd) Synopsis() string { return "rebuild the daily portfolio history" }
func (*buildCmd) Usage() string {
	return `bf build [-period <daily|weekly|monthly|quarterly|yearly>]

  Replays the event log over market data and prints the portfolio total
  for each period of the rebuilt history.
`
}

func (c *buildCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.period, "period", "daily", "aggregation period for the printed totals")
}

func (c *buildCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	log := Logger()
	period, err := backfolio.ParsePeriod(c.period)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
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

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if period == backfolio.Daily {
		fmt.Fprintln(w, "DATE\tTOTAL\tCHANGE")
		for i, day := range ledger.Days() {
			fmt.Fprintf(w, "%s\t%s\t%s\n", day, ledger.TotalAt(i), ledger.DayChangeAt(i))
		}
		return flush(w)
	}

	periods, err := ledger.PeriodReturns(period)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Fprintln(w, "PERIOD\tOPEN\tCLOSE\tCHANGE")
	for _, p := range periods {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.Range, p.Open, p.Close, p.Change)
	}
	return flush(w)
}

func flush(w *tabwriter.Writer) subcommands.ExitStatus {
	if err := w.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
