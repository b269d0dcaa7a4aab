package formulas

// MaxDrawdown returns the largest peak-to-trough loss in a value series as a
// positive fraction (0.25 means a 25% fall from the peak), or nil when the
// series is too short.
func MaxDrawdown(values []float64) *float64 {
	if len(values) < 2 {
		return nil
	}

	maxDrawdown := 0.0
	peak := values[0]

	for _, value := range values {
		if value > peak {
			peak = value
		}
		if peak > 0 {
			drawdown := (peak - value) / peak
			if drawdown > maxDrawdown {
				maxDrawdown = drawdown
			}
		}
	}

	return &maxDrawdown
}

// Momentum returns the fractional change over the trailing window, or nil
// when the series does not cover it.
func Momentum(values []float64, periods int) *float64 {
	if len(values) < periods+1 {
		return nil
	}

	start := values[len(values)-periods-1]
	if start == 0 {
		return nil
	}

	momentum := (values[len(values)-1] - start) / start
	return &momentum
}
