package formulas

// MaxDrawdown calculates the maximum peak-to-trough decline of a price
// series as a positive fraction (0.25 = 25% loss from peak). Returns nil
// for series too short to measure.
func MaxDrawdown(prices []float64) *float64 {
	if len(prices) < 2 {
		return nil
	}

	maxDrawdown := 0.0
	peak := prices[0]

	for _, price := range prices {
		if price > peak {
			peak = price
		}
		if peak > 0 {
			drawdown := (peak - price) / peak
			if drawdown > maxDrawdown {
				maxDrawdown = drawdown
			}
		}
	}

	return &maxDrawdown
}

// High52Week finds the highest price of the last 252 trading days
func High52Week(prices []float64) *float64 {
	return windowExtreme(prices, func(a, b float64) bool { return a > b })
}

// Low52Week finds the lowest price of the last 252 trading days
func Low52Week(prices []float64) *float64 {
	return windowExtreme(prices, func(a, b float64) bool { return a < b })
}

func windowExtreme(prices []float64, better func(a, b float64) bool) *float64 {
	if len(prices) == 0 {
		return nil
	}

	startIdx := 0
	if len(prices) > 252 {
		startIdx = len(prices) - 252
	}

	extreme := prices[startIdx]
	for _, price := range prices[startIdx:] {
		if better(price, extreme) {
			extreme = price
		}
	}
	return &extreme
}
