package knn

import "fmt"

// GridConfig controls the brute-force neighbor-count search.
type GridConfig struct {
	Lags int `yaml:"lags"`  // embedding dimension, default 5
	KMax int `yaml:"k_max"` // inclusive upper bound of the k sweep, default 300
	Skip int `yaml:"skip"`  // leading candidates excluded from the arg-min, default 5
}

// DefaultGridConfig returns the original sweep: k from 1 to 300, arg-min SSE
// with the first five candidates excluded for stability.
func DefaultGridConfig() GridConfig {
	return GridConfig{Lags: 5, KMax: 300, Skip: 5}
}

// GridResult reports the sweep outcome.
type GridResult struct {
	BestK    int       `json:"best_k"`
	BestSSE  float64   `json:"best_sse"`
	BestMSE  float64   `json:"best_mse"`
	SSEByK   []float64 `json:"sse_by_k"` // index i holds SSE for k=i+1
	Forecast []float64 `json:"forecast"` // evaluation forecast at BestK
	Searched int       `json:"searched"` // number of k values actually tried
}

// GridSearch sweeps k over [1, KMax], scoring each candidate by the sum of
// squared one-step-ahead residuals on the evaluation window. KMax is clamped
// to the number of available training windows. progress may be nil; it is
// called once per candidate.
func GridSearch(train, eval []float64, cfg GridConfig, progress func(done, total int)) (*GridResult, error) {
	if cfg.Lags < 1 {
		return nil, fmt.Errorf("knn: lags must be >= 1, got %d", cfg.Lags)
	}
	if cfg.KMax < 1 {
		return nil, fmt.Errorf("knn: k_max must be >= 1, got %d", cfg.KMax)
	}
	if cfg.Skip < 0 || cfg.Skip >= cfg.KMax {
		return nil, fmt.Errorf("knn: skip=%d leaves no candidates below k_max=%d", cfg.Skip, cfg.KMax)
	}
	if len(eval) == 0 {
		return nil, fmt.Errorf("knn: empty evaluation window")
	}

	maxK := len(train) - cfg.Lags
	if maxK < 1 {
		return nil, fmt.Errorf("knn: training series of %d too short for lags=%d", len(train), cfg.Lags)
	}
	kMax := min(cfg.KMax, maxK)
	if cfg.Skip >= kMax {
		return nil, fmt.Errorf("knn: skip=%d leaves no candidates for clamped k_max=%d", cfg.Skip, kMax)
	}

	result := &GridResult{
		BestK:    -1,
		SSEByK:   make([]float64, kMax),
		Searched: kMax,
	}
	var bestForecast []float64

	for k := 1; k <= kMax; k++ {
		reg, err := New(Config{Lags: cfg.Lags, K: k})
		if err != nil {
			return nil, err
		}
		if err := reg.Fit(train); err != nil {
			return nil, err
		}
		forecast, err := reg.Forecast(train, eval)
		if err != nil {
			return nil, err
		}

		score := sse(forecast, eval)
		result.SSEByK[k-1] = score

		// The first few k are excluded from selection: single-neighbor fits
		// chase noise on this dataset.
		if k > cfg.Skip && (result.BestK < 0 || score < result.BestSSE) {
			result.BestK = k
			result.BestSSE = score
			bestForecast = forecast
		}

		if progress != nil {
			progress(k, kMax)
		}
	}

	result.BestMSE = result.BestSSE / float64(len(eval))
	result.Forecast = bestForecast
	return result, nil
}
