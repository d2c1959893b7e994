package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/jfmartel/backfolio"
)

// returnsCmd computes risk statistics for the rebuilt history, measured
// against the configured benchmark when one exists.
type returnsCmd struct {
	riskFree float64
}

func (*returnsCmd) Name() string     { return "returns" }
func (*returnsCmd) Synopsis() string { return "compute return and risk statistics" }
func (*returnsCmd) Usage() string {
	return `bf returns [-riskfree <rate>]

  Rebuilds the history and prints annualized return, volatility, Sharpe,
  Sortino and max drawdown. With benchmark weights configured, beta and
  alpha against the benchmark are included.
`
}

func (c *returnsCmd) SetFlags(f *flag.FlagSet) {
	f.Float64Var(&c.riskFree, "riskfree", 0, "annual risk-free rate, e.g. 0.03")
}

func (c *returnsCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	log := Logger()
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

	var benchReturns []float64
	if bench, err := b.BuildBenchmark(); err == nil {
		benchReturns = bench.Returns()
	} else {
		log.Debug().Err(err).Msg("no benchmark, skipping beta and alpha")
	}

	metrics, err := backfolio.ComputeRiskMetrics(ledger.Returns(), benchReturns, c.riskFree)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	fmt.Printf("Period            %s .. %s (%d trading days)\n",
		ledger.Days()[0], ledger.Days()[ledger.Len()-1], ledger.Len())
	fmt.Printf("Annualized return %8.2f%%\n", 100*metrics.AnnualizedReturn)
	fmt.Printf("Volatility        %8.2f%%\n", 100*metrics.Volatility)
	fmt.Printf("Sharpe            %8.2f\n", metrics.Sharpe)
	fmt.Printf("Sortino           %8.2f\n", metrics.Sortino)
	fmt.Printf("Max drawdown      %8.2f%%\n", 100*metrics.MaxDrawdown)
	if benchReturns != nil {
		fmt.Printf("Beta              %8.2f\n", metrics.Beta)
		fmt.Printf("Alpha             %8.2f%%\n", 100*metrics.Alpha)
	}
	return subcommands.ExitSuccess
}
