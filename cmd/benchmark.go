package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/subcommands"
)

// benchmarkCmd rebuilds both the portfolio and its passive benchmark and
// prints their totals side by side.
type benchmarkCmd struct{}

func (*benchmarkCmd) Name() string     { return "benchmark" }
func (*benchmarkCmd) Synopsis() string { return "compare the portfolio against its benchmark" }
func (*benchmarkCmd) Usage() string {
	return `bf benchmark

  Rebuilds the portfolio and a buy-and-hold benchmark from the configured
  target weights over the same calendar, and prints both totals per day.
`
}

func (*benchmarkCmd) SetFlags(*flag.FlagSet) {}

func (c *benchmarkCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	log := Logger()
	b, closer, err := MakeBuilder(log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer closer()

	portfolio, err := b.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	bench, err := b.BuildBenchmark()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tPORTFOLIO\tBENCHMARK")
	for i, day := range portfolio.Days() {
		fmt.Fprintf(w, "%s\t%s\t%s\n", day, portfolio.TotalAt(i), bench.TotalAt(i))
	}
	return flush(w)
}
