package formulas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRSI(t *testing.T) {
	t.Run("insufficient data", func(t *testing.T) {
		assert.Nil(t, RSI([]float64{100, 101, 102}, 14))
	})

	t.Run("uptrend reads high", func(t *testing.T) {
		closes := make([]float64, 30)
		for i := range closes {
			closes[i] = 100 + float64(i)
		}
		rsi := RSI(closes, 14)
		require.NotNil(t, rsi)
		assert.Greater(t, *rsi, 70.0)
	})

	t.Run("downtrend reads low", func(t *testing.T) {
		closes := make([]float64, 30)
		for i := range closes {
			closes[i] = 130 - float64(i)
		}
		rsi := RSI(closes, 14)
		require.NotNil(t, rsi)
		assert.Less(t, *rsi, 30.0)
	})
}

func TestReturns(t *testing.T) {
	returns := Returns([]float64{100, 110, 99})
	require.Len(t, returns, 2)
	assert.InDelta(t, 0.10, returns[0], 1e-9)
	assert.InDelta(t, -0.10, returns[1], 1e-9)

	assert.Empty(t, Returns([]float64{100}))
}

func TestSharpeRatio(t *testing.T) {
	t.Run("insufficient data", func(t *testing.T) {
		assert.Nil(t, SharpeRatio([]float64{0.01}, 0.02, 252))
	})

	t.Run("zero volatility", func(t *testing.T) {
		assert.Nil(t, SharpeRatio([]float64{0.01, 0.01, 0.01}, 0.02, 252))
	})

	t.Run("positive returns beat negative", func(t *testing.T) {
		up := SharpeRatio([]float64{0.01, 0.02, 0.015, 0.01}, 0.0, 252)
		down := SharpeRatio([]float64{-0.01, -0.02, -0.015, -0.01}, 0.0, 252)
		require.NotNil(t, up)
		require.NotNil(t, down)
		assert.Greater(t, *up, 0.0)
		assert.Less(t, *down, 0.0)
	})
}

func TestMaxDrawdown(t *testing.T) {
	t.Run("insufficient data", func(t *testing.T) {
		assert.Nil(t, MaxDrawdown([]float64{100}))
	})

	t.Run("monotonic rise has no drawdown", func(t *testing.T) {
		dd := MaxDrawdown([]float64{100, 110, 120})
		require.NotNil(t, dd)
		assert.Equal(t, 0.0, *dd)
	})

	t.Run("peak to trough", func(t *testing.T) {
		dd := MaxDrawdown([]float64{100, 120, 90, 110})
		require.NotNil(t, dd)
		assert.InDelta(t, 0.25, *dd, 1e-9)
	})
}

func TestMomentum(t *testing.T) {
	m := Momentum([]float64{100, 105, 110}, 2)
	require.NotNil(t, m)
	assert.InDelta(t, 0.10, *m, 1e-9)

	assert.Nil(t, Momentum([]float64{100, 110}, 5))
}
