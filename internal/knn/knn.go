// Package knn implements a time-lagged k-nearest-neighbors regressor for
// one-step and multi-step forecasting of a single series.
package knn

import (
	"fmt"
	"sort"
)

// Config contains the regressor hyperparameters.
type Config struct {
	Lags int `yaml:"lags"` // embedding dimension, default 5
	K    int `yaml:"k"`    // neighbor count, default chosen by grid search
}

// DefaultConfig returns the hand-tuned regressor configuration.
func DefaultConfig() Config {
	return Config{Lags: 5, K: 10}
}

// Regressor predicts the next value of a series as the mean outcome of the k
// training windows nearest to the query window.
type Regressor struct {
	cfg     Config
	windows [][]float64 // lag windows, oldest first
	targets []float64   // value following each window
}

// New creates a regressor with the given configuration.
func New(cfg Config) (*Regressor, error) {
	if cfg.Lags < 1 {
		return nil, fmt.Errorf("knn: lags must be >= 1, got %d", cfg.Lags)
	}
	if cfg.K < 1 {
		return nil, fmt.Errorf("knn: k must be >= 1, got %d", cfg.K)
	}
	return &Regressor{cfg: cfg}, nil
}

// Fit builds the lag embedding from a training series. Row order is time
// order; the caller must not reorder rows before fitting.
func (r *Regressor) Fit(series []float64) error {
	n := len(series) - r.cfg.Lags
	if n < r.cfg.K {
		return fmt.Errorf("knn: need at least %d observations for lags=%d k=%d, got %d",
			r.cfg.Lags+r.cfg.K, r.cfg.Lags, r.cfg.K, len(series))
	}

	r.windows = make([][]float64, 0, n)
	r.targets = make([]float64, 0, n)
	for i := 0; i < n; i++ {
		r.windows = append(r.windows, series[i:i+r.cfg.Lags])
		r.targets = append(r.targets, series[i+r.cfg.Lags])
	}
	return nil
}

// Predict returns the mean outcome of the k training windows nearest to the
// query window.
func (r *Regressor) Predict(window []float64) (float64, error) {
	if len(r.windows) == 0 {
		return 0, fmt.Errorf("knn: predict before fit")
	}
	if len(window) != r.cfg.Lags {
		return 0, fmt.Errorf("knn: query window has %d lags, regressor expects %d", len(window), r.cfg.Lags)
	}

	type scored struct {
		idx  int
		dist float64
	}
	neighbors := make([]scored, len(r.windows))
	for i, w := range r.windows {
		neighbors[i] = scored{idx: i, dist: euclidSq(window, w)}
	}
	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].dist == neighbors[j].dist {
			return neighbors[i].idx < neighbors[j].idx // stable under ties
		}
		return neighbors[i].dist < neighbors[j].dist
	})

	var sum float64
	for i := 0; i < r.cfg.K; i++ {
		sum += r.targets[neighbors[i].idx]
	}
	return sum / float64(r.cfg.K), nil
}

// Forecast produces one-step-ahead predictions across the evaluation series.
// Each step queries with the true trailing window (the training series tail
// extended by realized evaluation values), matching a walk-forward backtest.
func (r *Regressor) Forecast(train, eval []float64) ([]float64, error) {
	if len(train) < r.cfg.Lags {
		return nil, fmt.Errorf("knn: training series shorter than lag window")
	}

	history := make([]float64, 0, len(train)+len(eval))
	history = append(history, train...)

	out := make([]float64, len(eval))
	for i := range eval {
		window := history[len(history)-r.cfg.Lags:]
		pred, err := r.Predict(window)
		if err != nil {
			return nil, err
		}
		out[i] = pred
		history = append(history, eval[i])
	}
	return out, nil
}

func euclidSq(a, b []float64) float64 {
	var s float64
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}

func sse(pred, actual []float64) float64 {
	var s float64
	for i := range pred {
		d := pred[i] - actual[i]
		s += d * d
	}
	return s
}
