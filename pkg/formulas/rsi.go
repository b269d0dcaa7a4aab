package formulas

import (
	"github.com/markcheno/go-talib"
)

// RSI returns the latest Relative Strength Index value over the given
// period, or nil when the series is too short to compute one.
//
//	RSI = 100 - (100 / (1 + RS))
//	RS  = Average Gain / Average Loss over N periods
func RSI(closes []float64, period int) *float64 {
	if len(closes) < period+1 {
		return nil
	}

	values := talib.Rsi(closes, period)
	if len(values) == 0 {
		return nil
	}

	last := values[len(values)-1]
	if isNaN(last) {
		return nil
	}
	return &last
}

func isNaN(f float64) bool {
	return f != f
}
