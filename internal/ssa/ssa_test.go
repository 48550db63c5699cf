package ssa

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sine(n int, period, amp float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*float64(i)/period)
	}
	return out
}

func TestForecaster_ReconstructsPureSinusoid(t *testing.T) {
	series := sine(120, 16, 2.0)

	f, err := New(Config{Window: 24, Components: 2})
	require.NoError(t, err)

	res, err := f.Forecast([][]float64{series}, 0, 8)
	require.NoError(t, err)
	require.Len(t, res.Reconstructed, 120)

	// A pure sinusoid lives in a rank-2 trajectory space, so two eigentriples
	// reproduce it almost exactly.
	for i, v := range res.Reconstructed {
		assert.InDelta(t, series[i], v, 1e-6, "index %d", i)
	}
	var share float64
	for _, s := range res.ComponentShare {
		share += s
	}
	assert.InDelta(t, 1.0, share, 1e-9)
}

func TestForecaster_ForecastContinuesSinusoid(t *testing.T) {
	full := sine(140, 16, 1.5)

	f, err := New(Config{Window: 24, Components: 2})
	require.NoError(t, err)

	res, err := f.Forecast([][]float64{full[:120]}, 0, 20)
	require.NoError(t, err)
	require.Len(t, res.Forecast, 20)

	for i, v := range res.Forecast {
		assert.InDelta(t, full[120+i], v, 1e-4, "horizon step %d", i)
	}
}

func TestForecaster_MultichannelTargetSelection(t *testing.T) {
	n := 100
	a := sine(n, 20, 1.0)
	b := sine(n, 10, 3.0)

	f, err := New(Config{Window: 20, Components: 4})
	require.NoError(t, err)

	res, err := f.Forecast([][]float64{a, b}, 1, 5)
	require.NoError(t, err)

	// The reconstruction must track the selected channel, not the other one.
	for i := 10; i < n-10; i++ {
		assert.InDelta(t, b[i], res.Reconstructed[i], 0.05, "index %d", i)
	}
}

func TestForecaster_SingularValuesDescending(t *testing.T) {
	series := sine(90, 12, 1.0)
	for i := range series {
		series[i] += 0.3 * math.Sin(2*math.Pi*float64(i)/5)
	}

	f, err := New(Config{Window: 18, Components: 4})
	require.NoError(t, err)
	res, err := f.Forecast([][]float64{series}, 0, 3)
	require.NoError(t, err)

	for i := 1; i < len(res.SingularValues); i++ {
		assert.LessOrEqual(t, res.SingularValues[i], res.SingularValues[i-1])
	}
}

func TestForecaster_Validation(t *testing.T) {
	_, err := New(Config{Window: 1, Components: 2})
	assert.Error(t, err)

	f, err := New(Config{Window: 10, Components: 2})
	require.NoError(t, err)

	_, err = f.Forecast(nil, 0, 5)
	assert.Error(t, err, "no channels")

	_, err = f.Forecast([][]float64{sine(8, 4, 1)}, 0, 5)
	assert.Error(t, err, "series shorter than window")

	_, err = f.Forecast([][]float64{sine(40, 8, 1), sine(30, 8, 1)}, 0, 5)
	assert.Error(t, err, "ragged channels")

	_, err = f.Forecast([][]float64{sine(40, 8, 1)}, 2, 5)
	assert.Error(t, err, "target out of range")

	_, err = f.Forecast([][]float64{sine(40, 8, 1)}, 0, 0)
	assert.Error(t, err, "non-positive horizon")
}
