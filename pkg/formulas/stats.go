package formulas

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// StdDev calculates the standard deviation of a slice of float64 values
func StdDev(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.StdDev(data, nil)
}

// Returns converts a price series to periodic percentage returns
// Returns[i] = (Price[i] - Price[i-1]) / Price[i-1]
func Returns(prices []float64) []float64 {
	if len(prices) < 2 {
		return []float64{}
	}

	returns := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] != 0 {
			returns[i-1] = (prices[i] - prices[i-1]) / prices[i-1]
		}
	}
	return returns
}

// TotalReturn calculates the overall percentage return of a price series
// (0.25 = +25%). Returns nil for series too short to measure.
func TotalReturn(prices []float64) *float64 {
	if len(prices) < 2 || prices[0] == 0 {
		return nil
	}
	r := (prices[len(prices)-1] - prices[0]) / prices[0]
	return &r
}

// AnnualizedVolatility calculates annualized volatility from daily returns
// Formula: Std Dev of Daily Returns × sqrt(252 trading days)
func AnnualizedVolatility(dailyReturns []float64) float64 {
	if len(dailyReturns) == 0 {
		return 0
	}
	return StdDev(dailyReturns) * math.Sqrt(252)
}

// VolatilityFromPrices calculates annualized volatility directly from a
// daily price series
func VolatilityFromPrices(prices []float64) *float64 {
	if len(prices) < 2 {
		return nil
	}
	v := AnnualizedVolatility(Returns(prices))
	return &v
}
