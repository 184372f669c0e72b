package formulas

import "math"

// SharpeRatio calculates the annualized Sharpe ratio from periodic returns.
//
// Sharpe = (Mean Return - Periodic Risk-free Rate) / Std Dev of Returns,
// annualized by sqrt(periodsPerYear). Returns nil when the series is too
// short or has zero variance.
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

// SharpeFromPrices calculates the Sharpe ratio directly from a daily price
// series, assuming 252 trading days per year
func SharpeFromPrices(prices []float64, riskFreeRate float64) *float64 {
	if len(prices) < 2 {
		return nil
	}
	return SharpeRatio(Returns(prices), riskFreeRate, 252)
}
