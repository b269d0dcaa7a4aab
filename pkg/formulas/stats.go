package formulas

import (
	"gonum.org/v1/gonum/stat"
)

// Mean returns the arithmetic mean of the values, or 0 for an empty slice.
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// StdDev returns the sample standard deviation, or 0 for an empty slice.
func StdDev(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.StdDev(data, nil)
}

// Returns converts a value series to period-over-period percentage returns.
// Returns[i] = (Value[i+1] - Value[i]) / Value[i]. Zero previous values
// produce a zero return instead of a division blowup.
func Returns(values []float64) []float64 {
	if len(values) < 2 {
		return []float64{}
	}

	returns := make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		if values[i-1] != 0 {
			returns[i-1] = (values[i] - values[i-1]) / values[i-1]
		}
	}
	return returns
}
