// Package frechet computes the discrete Fréchet distance between ordered
// curves, used to score how closely a forecast path tracks the realized path.
package frechet

import (
	"fmt"
	"math"
)

// Point is a 2D sample on a curve.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// CurveFromSeries lifts a time series into a curve with the sample index as
// the X coordinate, matching how the comparison stage treats forecasts.
func CurveFromSeries(values []float64) []Point {
	curve := make([]Point, len(values))
	for i, v := range values {
		curve[i] = Point{X: float64(i), Y: v}
	}
	return curve
}

// Distance returns the discrete Fréchet distance between two ordered curves.
// Both curves must be non-empty.
func Distance(p, q []Point) (float64, error) {
	if len(p) == 0 || len(q) == 0 {
		return 0, fmt.Errorf("frechet: empty curve (|p|=%d, |q|=%d)", len(p), len(q))
	}

	// Coupling table: ca[i][j] is the Fréchet distance of the prefix pair
	// (p[0..i], q[0..j]).
	ca := make([][]float64, len(p))
	for i := range ca {
		ca[i] = make([]float64, len(q))
	}

	ca[0][0] = euclid(p[0], q[0])
	for i := 1; i < len(p); i++ {
		ca[i][0] = math.Max(ca[i-1][0], euclid(p[i], q[0]))
	}
	for j := 1; j < len(q); j++ {
		ca[0][j] = math.Max(ca[0][j-1], euclid(p[0], q[j]))
	}
	for i := 1; i < len(p); i++ {
		for j := 1; j < len(q); j++ {
			best := math.Min(ca[i-1][j], math.Min(ca[i-1][j-1], ca[i][j-1]))
			ca[i][j] = math.Max(best, euclid(p[i], q[j]))
		}
	}

	return ca[len(p)-1][len(q)-1], nil
}

// SummedDistance splits both series into consecutive windows of the given
// length and sums the per-window Fréchet distances. A trailing partial window
// shorter than two samples is folded into the previous one.
func SummedDistance(a, b []float64, window int) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("frechet: series length mismatch (%d vs %d)", len(a), len(b))
	}
	if window < 2 {
		return 0, fmt.Errorf("frechet: window must be >= 2, got %d", window)
	}
	if len(a) == 0 {
		return 0, fmt.Errorf("frechet: empty series")
	}

	var total float64
	for start := 0; start < len(a); start += window {
		end := start + window
		if end > len(a) || len(a)-end < 2 {
			end = len(a)
		}
		d, err := Distance(CurveFromSeries(a[start:end]), CurveFromSeries(b[start:end]))
		if err != nil {
			return 0, err
		}
		total += d
		if end == len(a) {
			break
		}
	}
	return total, nil
}

func euclid(a, b Point) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}
