package permtest

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noisyTrend(n int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i) + 2*rng.NormFloat64()
	}
	return out
}

func TestCompare_AccurateForecastBeatsNull(t *testing.T) {
	actual := noisyTrend(40, 1)

	// A forecast that tracks the realized path closely versus one that is an
	// unrelated flat line.
	good := make([]float64, len(actual))
	for i := range good {
		good[i] = actual[i] + 0.5
	}
	flat := make([]float64, len(actual))
	for i := range flat {
		flat[i] = 20
	}

	res, err := Compare(actual, map[string][]float64{"good": good, "flat": flat}, Config{
		Permutations: 200, Bootstrap: 200, Confidence: 0.95, Window: 10,
	}, 42, nil)
	require.NoError(t, err)
	require.Len(t, res.Scores, 2)

	// Scores come back name-sorted.
	assert.Equal(t, "flat", res.Scores[0].Name)
	assert.Equal(t, "good", res.Scores[1].Name)

	good0 := res.Scores[1]
	assert.Less(t, good0.SummedFrechet, res.Null.CILower,
		"a tracking forecast should land below the null interval")
	assert.Less(t, good0.PValue, 0.05)
	assert.Negative(t, good0.ZScore)
}

func TestCompare_Deterministic(t *testing.T) {
	actual := noisyTrend(30, 2)
	fc := map[string][]float64{"m": noisyTrend(30, 3)}
	cfg := Config{Permutations: 100, Bootstrap: 100, Confidence: 0.9, Window: 8}

	a, err := Compare(actual, fc, cfg, 7, nil)
	require.NoError(t, err)
	b, err := Compare(actual, fc, cfg, 7, nil)
	require.NoError(t, err)

	assert.Equal(t, a.Null, b.Null)
	assert.Equal(t, a.Scores, b.Scores)
}

func TestCompare_NullIntervalOrdering(t *testing.T) {
	actual := noisyTrend(30, 4)

	res, err := Compare(actual, map[string][]float64{"m": noisyTrend(30, 5)}, Config{
		Permutations: 150, Bootstrap: 150, Confidence: 0.95, Window: 6,
	}, 11, nil)
	require.NoError(t, err)

	assert.Less(t, res.Null.CILower, res.Null.CIUpper)
	assert.Less(t, res.Null.MeanCILower, res.Null.MeanCIUpper)
	assert.Positive(t, res.Null.StdDev)
	// The bootstrap interval on the mean is tighter than the draw interval.
	assert.Greater(t, res.Null.MeanCILower, res.Null.CILower)
	assert.Less(t, res.Null.MeanCIUpper, res.Null.CIUpper)
}

func TestCompare_PermutedForecastWithinNull(t *testing.T) {
	actual := noisyTrend(40, 6)

	// A shuffled copy of the realized series is exactly a draw from the null,
	// so it should not be flagged as better than chance.
	rng := rand.New(rand.NewSource(99))
	perm := append([]float64(nil), actual...)
	rng.Shuffle(len(perm), func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })

	res, err := Compare(actual, map[string][]float64{"perm": perm}, Config{
		Permutations: 300, Bootstrap: 100, Confidence: 0.99, Window: 10,
	}, 13, nil)
	require.NoError(t, err)

	assert.Greater(t, res.Scores[0].PValue, 0.005)
	assert.True(t, res.Scores[0].WithinNullCI || res.Scores[0].PValue > 0.01)
}

func TestCompare_Validation(t *testing.T) {
	cfg := DefaultConfig()

	_, err := Compare([]float64{1}, map[string][]float64{"m": {1}}, cfg, 1, nil)
	assert.Error(t, err, "too few samples")

	_, err = Compare(noisyTrend(20, 1), nil, cfg, 1, nil)
	assert.Error(t, err, "no forecasts")

	_, err = Compare(noisyTrend(20, 1), map[string][]float64{"m": noisyTrend(19, 2)}, cfg, 1, nil)
	assert.Error(t, err, "length mismatch")

	bad := cfg
	bad.Confidence = 1.2
	_, err = Compare(noisyTrend(20, 1), map[string][]float64{"m": noisyTrend(20, 2)}, bad, 1, nil)
	assert.Error(t, err)
}

func TestCompare_ProgressCallback(t *testing.T) {
	actual := noisyTrend(20, 8)
	var calls int
	_, err := Compare(actual, map[string][]float64{"m": noisyTrend(20, 9)}, Config{
		Permutations: 50, Bootstrap: 50, Confidence: 0.9, Window: 5,
	}, 21, func(done, total int) {
		calls++
		assert.Equal(t, 50, total)
	})
	require.NoError(t, err)
	assert.Equal(t, 50, calls)
}
