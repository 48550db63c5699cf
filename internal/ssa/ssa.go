// Package ssa implements multichannel singular spectrum analysis: a block
// Hankel embedding of the input channels, SVD decomposition, reconstruction
// of the target channel from the leading eigentriples, and a recurrent
// forecast driven by the fitted linear recurrence.
package ssa

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Config contains the decomposition hyperparameters.
type Config struct {
	Window     int `yaml:"window"`     // embedding window L, default 30
	Components int `yaml:"components"` // leading eigentriples kept, default 4
}

// DefaultConfig returns the hand-tuned SSA configuration.
func DefaultConfig() Config {
	return Config{Window: 30, Components: 4}
}

// Result contains the decomposition and forecast of the target channel.
type Result struct {
	SingularValues []float64 `json:"singular_values"`
	ComponentShare []float64 `json:"component_share"` // squared-value share of the kept triples
	Reconstructed  []float64 `json:"reconstructed"`   // denoised target channel
	Forecast       []float64 `json:"forecast"`
}

// Forecaster runs multichannel SSA over a fixed set of channels.
type Forecaster struct {
	cfg Config
}

// New creates a forecaster with the given configuration.
func New(cfg Config) (*Forecaster, error) {
	if cfg.Window < 2 {
		return nil, fmt.Errorf("ssa: window must be >= 2, got %d", cfg.Window)
	}
	if cfg.Components < 1 {
		return nil, fmt.Errorf("ssa: components must be >= 1, got %d", cfg.Components)
	}
	return &Forecaster{cfg: cfg}, nil
}

// Forecast decomposes the channels, reconstructs the target channel from the
// leading eigentriples, and extends it horizon steps with the recurrent
// formula. Channels must share a common length greater than the window.
func (f *Forecaster) Forecast(channels [][]float64, target, horizon int) (*Result, error) {
	if len(channels) == 0 {
		return nil, fmt.Errorf("ssa: no channels")
	}
	if target < 0 || target >= len(channels) {
		return nil, fmt.Errorf("ssa: target channel %d out of range [0,%d)", target, len(channels))
	}
	n := len(channels[0])
	for c, ch := range channels {
		if len(ch) != n {
			return nil, fmt.Errorf("ssa: channel %d has length %d, expected %d", c, len(ch), n)
		}
	}
	l := f.cfg.Window
	if n <= l {
		return nil, fmt.Errorf("ssa: series length %d must exceed window %d", n, l)
	}
	if horizon < 1 {
		return nil, fmt.Errorf("ssa: horizon must be >= 1, got %d", horizon)
	}

	c := len(channels)
	k := n - l + 1
	g := f.cfg.Components
	if r := minInt(c*l, k); g > r {
		return nil, fmt.Errorf("ssa: components %d exceeds rank bound %d", g, r)
	}

	// Stacked (vertical) trajectory matrix: one L-row Hankel block per channel.
	x := mat.NewDense(c*l, k, nil)
	for ci, ch := range channels {
		for i := 0; i < l; i++ {
			for j := 0; j < k; j++ {
				x.Set(ci*l+i, j, ch[i+j])
			}
		}
	}

	var svd mat.SVD
	if ok := svd.Factorize(x, mat.SVDThin); !ok {
		return nil, fmt.Errorf("ssa: SVD failed to converge")
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	values := svd.Values(nil)

	// Rank-g reconstruction of the trajectory matrix.
	ug := u.Slice(0, c*l, 0, g)
	vg := v.Slice(0, k, 0, g)
	var us, xr mat.Dense
	us.Mul(ug, mat.NewDiagDense(g, values[:g]))
	xr.Mul(&us, vg.T())

	recon := diagonalAverage(&xr, target*l, l, k, n)

	coeffs, err := recurrenceCoefficients(&u, target*l, l, g)
	if err != nil {
		return nil, err
	}

	forecast := make([]float64, horizon)
	history := append([]float64(nil), recon...)
	for h := 0; h < horizon; h++ {
		var next float64
		for j := 1; j <= l-1; j++ {
			next += coeffs[j-1] * history[len(history)-j]
		}
		forecast[h] = next
		history = append(history, next)
	}

	var total float64
	for _, s := range values {
		total += s * s
	}
	share := make([]float64, g)
	for i := 0; i < g; i++ {
		share[i] = values[i] * values[i] / total
	}

	return &Result{
		SingularValues: values,
		ComponentShare: share,
		Reconstructed:  recon,
		Forecast:       forecast,
	}, nil
}

// diagonalAverage folds one channel's L-by-K trajectory block back into a
// series by averaging each anti-diagonal.
func diagonalAverage(xr *mat.Dense, rowOffset, l, k, n int) []float64 {
	out := make([]float64, n)
	counts := make([]int, n)
	for i := 0; i < l; i++ {
		for j := 0; j < k; j++ {
			out[i+j] += xr.At(rowOffset+i, j)
			counts[i+j]++
		}
	}
	for t := range out {
		out[t] /= float64(counts[t])
	}
	return out
}

// recurrenceCoefficients derives the linear recurrence for the target channel
// from the last row of its block in the grouped left singular vectors. The
// returned slice is ordered most-recent-lag first.
func recurrenceCoefficients(u *mat.Dense, rowOffset, l, g int) ([]float64, error) {
	var nu2 float64
	pi := make([]float64, g)
	for i := 0; i < g; i++ {
		pi[i] = u.At(rowOffset+l-1, i)
		nu2 += pi[i] * pi[i]
	}
	if 1-nu2 < 1e-9 {
		return nil, fmt.Errorf("ssa: recurrence is degenerate (verticality %.6f)", nu2)
	}

	// coeffs[j-1] multiplies the value j steps back.
	coeffs := make([]float64, l-1)
	for i := 0; i < g; i++ {
		for j := 1; j <= l-1; j++ {
			coeffs[j-1] += pi[i] * u.At(rowOffset+l-1-j, i)
		}
	}
	for j := range coeffs {
		coeffs[j] /= 1 - nu2
	}
	return coeffs, nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
