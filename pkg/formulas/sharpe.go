package formulas

import (
	"math"
)

// SharpeRatio returns the annualized Sharpe ratio for a series of periodic
// returns, or nil when fewer than two returns exist or volatility is zero.
//
//	Sharpe = (Mean Return - Periodic Risk-free Rate) / StdDev of Returns
//	Annualized by multiplying with sqrt(periodsPerYear).
func SharpeRatio(returns []float64, riskFreeRate float64, periodsPerYear int) *float64 {
	if len(returns) < 2 {
		return nil
	}

	stdDev := StdDev(returns)
	if stdDev == 0 {
		return nil
	}

	periodicRiskFree := riskFreeRate / float64(periodsPerYear)
	sharpe := (Mean(returns) - periodicRiskFree) / stdDev
	annualized := sharpe * math.Sqrt(float64(periodsPerYear))
	return &annualized
}

// SharpeFromValues computes the Sharpe ratio directly from a portfolio value
// series, treating each sample as one trading day.
func SharpeFromValues(values []float64, riskFreeRate float64) *float64 {
	if len(values) < 2 {
		return nil
	}
	return SharpeRatio(Returns(values), riskFreeRate, 252)
}
