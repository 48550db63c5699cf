package knn

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegressor_ExactRecoveryOnRepeatingPattern(t *testing.T) {
	// A strictly periodic series: with k=1 the nearest window is an exact
	// earlier copy, so one-step predictions are perfect.
	series := make([]float64, 60)
	pattern := []float64{1, 3, 2, 5, 4}
	for i := range series {
		series[i] = pattern[i%len(pattern)]
	}

	reg, err := New(Config{Lags: 5, K: 1})
	require.NoError(t, err)
	require.NoError(t, reg.Fit(series[:50]))

	forecast, err := reg.Forecast(series[:50], series[50:])
	require.NoError(t, err)
	for i, p := range forecast {
		assert.InDelta(t, series[50+i], p, 1e-12, "step %d", i)
	}
}

func TestRegressor_PredictWindowSizeMismatch(t *testing.T) {
	reg, err := New(Config{Lags: 3, K: 2})
	require.NoError(t, err)
	require.NoError(t, reg.Fit([]float64{1, 2, 3, 4, 5, 6, 7, 8}))

	_, err = reg.Predict([]float64{1, 2})
	assert.Error(t, err)
}

func TestRegressor_FitTooShort(t *testing.T) {
	reg, err := New(Config{Lags: 5, K: 10})
	require.NoError(t, err)
	assert.Error(t, reg.Fit([]float64{1, 2, 3, 4, 5, 6}))
}

func TestGridSearch_SkipsLeadingCandidates(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	series := make([]float64, 140)
	for i := range series {
		series[i] = math.Sin(float64(i)/4) + 0.05*rng.NormFloat64()
	}

	res, err := GridSearch(series[:120], series[120:], GridConfig{Lags: 5, KMax: 40, Skip: 5}, nil)
	require.NoError(t, err)
	assert.Greater(t, res.BestK, 5, "arg-min must exclude the first five candidates")
	assert.Len(t, res.SSEByK, 40)
	assert.Len(t, res.Forecast, 20)
	assert.InDelta(t, res.BestSSE/20, res.BestMSE, 1e-12)
}

func TestGridSearch_ClampsKMaxToTrainingWindows(t *testing.T) {
	series := []float64{1, 2, 1, 3, 1, 4, 1, 5, 1, 6, 1, 7, 1, 8, 1, 9, 2, 3, 2, 4}

	res, err := GridSearch(series[:16], series[16:], GridConfig{Lags: 4, KMax: 300, Skip: 5}, nil)
	require.NoError(t, err)
	assert.Equal(t, 12, res.Searched, "kMax clamps to len(train)-lags")
	assert.LessOrEqual(t, res.BestK, 12)
}

func TestGridSearch_BestSSEIsMinimumOfEligible(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	series := make([]float64, 100)
	for i := range series {
		series[i] = float64(i%9) + 0.1*rng.NormFloat64()
	}

	res, err := GridSearch(series[:85], series[85:], GridConfig{Lags: 3, KMax: 30, Skip: 5}, nil)
	require.NoError(t, err)
	for k := res.BestK; k <= res.Searched; k++ {
		assert.GreaterOrEqual(t, res.SSEByK[k-1], res.BestSSE, "k=%d", k)
	}
	for k := 6; k <= res.Searched; k++ {
		assert.GreaterOrEqual(t, res.SSEByK[k-1], res.BestSSE, "eligible k=%d cannot beat the winner", k)
	}
}

func TestGridSearch_ProgressCallback(t *testing.T) {
	series := make([]float64, 60)
	for i := range series {
		series[i] = math.Cos(float64(i) / 3)
	}

	var calls int
	_, err := GridSearch(series[:50], series[50:], GridConfig{Lags: 4, KMax: 20, Skip: 5}, func(done, total int) {
		calls++
		assert.Equal(t, 20, total)
	})
	require.NoError(t, err)
	assert.Equal(t, 20, calls)
}

func TestGridSearch_SkipLeavesNoCandidates(t *testing.T) {
	series := make([]float64, 40)
	_, err := GridSearch(series[:30], series[30:], GridConfig{Lags: 3, KMax: 5, Skip: 5}, nil)
	assert.Error(t, err)
}
