package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestTableWriter_AlignsColumns(t *testing.T) {
	var buf bytes.Buffer
	tw := NewTableWriter(&buf, true)

	tw.Render("Crystals", []string{"id", "size", "mean"}, [][]string{
		{"0", "120", "4.1523"},
		{"1", "7", "3.9000"},
	})

	out := buf.String()
	assert.Contains(t, out, "Crystals")
	assert.Contains(t, out, "id  size  mean")
	assert.Contains(t, out, "0   120   4.1523")
	assert.Contains(t, out, "1   7     3.9000")
}

func TestTableWriter_BufferHasNoWidthLimit(t *testing.T) {
	var buf bytes.Buffer
	tw := NewTableWriter(&buf, false)
	assert.Equal(t, 0, tw.width, "non-file writers never truncate")
}

func TestF(t *testing.T) {
	assert.Equal(t, "3.5000", F(3.5))
}

func TestArtifacts_WriteJSONRoundTrip(t *testing.T) {
	root := t.TempDir()
	a, err := NewArtifacts(root, time.Date(2023, 9, 1, 10, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, a.RunID, 8)
	assert.Contains(t, a.Dir, "20230901_103000_")

	require.NoError(t, a.WriteJSON("results.json", map[string]int{"best_k": 12}))
	b, err := os.ReadFile(a.Path("results.json"))
	require.NoError(t, err)
	assert.Contains(t, string(b), `"best_k": 12`)
}

func TestArtifacts_DistinctRuns(t *testing.T) {
	root := t.TempDir()
	now := time.Now()
	a1, err := NewArtifacts(root, now)
	require.NoError(t, err)
	a2, err := NewArtifacts(root, now)
	require.NoError(t, err)
	assert.NotEqual(t, a1.Dir, a2.Dir, "same timestamp still yields separate run dirs")
}

func TestSaveForecastPlot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forecast.png")
	actual := []float64{1, 2, 3, 4, 5}
	forecasts := map[string][]float64{
		"knn": {1.1, 2.2, 2.9, 4.2, 5.1},
		"ssa": {0.5, 1.9, 3.5, 3.8, 5.6},
	}

	require.NoError(t, SaveForecastPlot(path, actual, forecasts))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestSaveClusterPlot(t *testing.T) {
	data := mat.NewDense(6, 3, []float64{
		1, 2, 0.1,
		1.1, 2.1, 0.2,
		1.2, 2.0, 0.3,
		5, 6, 0.4,
		5.1, 6.1, 0.5,
		5.2, 6.0, 0.6,
	})
	path := filepath.Join(t.TempDir(), "crystals.png")

	require.NoError(t, SaveClusterPlot(path, data, []int{0, 0, 0, 1, 1, 1}))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	assert.Error(t, SaveClusterPlot(path, data, []int{0, 0}), "assignment length mismatch")
	assert.Error(t, SaveClusterPlot(path, mat.NewDense(2, 1, []float64{1, 2}), []int{0, 0}))
}
