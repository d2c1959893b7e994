package backfolio

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// tradingDaysPerYear is the conventional annualization factor for daily
// return statistics.
const tradingDaysPerYear = 252

// RiskMetrics summarizes a ledger's daily return stream, optionally
// measured against a benchmark built over the same calendar.
type RiskMetrics struct {
	AnnualizedReturn float64
	Volatility       float64
	Sharpe           float64
	Sortino          float64
	MaxDrawdown      float64

	// Beta and Alpha are zero when no benchmark returns were supplied.
	Beta  float64
	Alpha float64
}

// ComputeRiskMetrics derives risk statistics from daily fractional
// returns. benchmark may be nil; when present it must cover the same days.
// riskFree is the annual risk-free rate, e.g. 0.03.
func ComputeRiskMetrics(returns, benchmark []float64, riskFree float64) (RiskMetrics, error) {
	if len(returns) < 2 {
		return RiskMetrics{}, fmt.Errorf("need at least two daily returns, got %d", len(returns))
	}
	if benchmark != nil && len(benchmark) != len(returns) {
		return RiskMetrics{}, fmt.Errorf("benchmark has %d returns, portfolio has %d", len(benchmark), len(returns))
	}

	mean := stat.Mean(returns, nil)
	dailyVol := stat.StdDev(returns, nil)
	dailyRF := riskFree / tradingDaysPerYear

	m := RiskMetrics{
		AnnualizedReturn: mean * tradingDaysPerYear,
		Volatility:       dailyVol * math.Sqrt(tradingDaysPerYear),
		MaxDrawdown:      maxDrawdown(returns),
	}
	if dailyVol > 0 {
		m.Sharpe = (mean - dailyRF) / dailyVol * math.Sqrt(tradingDaysPerYear)
	}
	if dd := downsideDeviation(returns, dailyRF); dd > 0 {
		m.Sortino = (mean - dailyRF) / dd * math.Sqrt(tradingDaysPerYear)
	}

	if benchmark != nil {
		benchVar := stat.Variance(benchmark, nil)
		if benchVar > 0 {
			m.Beta = stat.Covariance(returns, benchmark, nil) / benchVar
			benchMean := stat.Mean(benchmark, nil)
			m.Alpha = (mean - dailyRF - m.Beta*(benchMean-dailyRF)) * tradingDaysPerYear
		}
	}
	return m, nil
}

// downsideDeviation is the root mean square of returns below the target,
// over all observations.
func downsideDeviation(returns []float64, target float64) float64 {
	var sum float64
	for _, r := range returns {
		if r < target {
			d := r - target
			sum += d * d
		}
	}
	return math.Sqrt(sum / float64(len(returns)))
}

// maxDrawdown is the largest peak-to-trough loss of the compounded return
// path, as a positive fraction.
func maxDrawdown(returns []float64) float64 {
	value, peak := 1.0, 1.0
	var worst float64
	for _, r := range returns {
		value *= 1 + r
		if value > peak {
			peak = value
		}
		if dd := 1 - value/peak; dd > worst {
			worst = dd
		}
	}
	return worst
}
