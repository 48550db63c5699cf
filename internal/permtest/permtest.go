// Package permtest judges forecast quality by summed Fréchet distance
// against a permutation null: the distribution of distances between the
// realized curve and shuffled copies of itself, with bootstrap intervals on
// the null statistics.
package permtest

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/montanaflynn/stats"
	gstat "gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/quantlab/marketshape/internal/frechet"
)

// Config contains the comparison hyperparameters.
type Config struct {
	Permutations int     `yaml:"permutations"`   // null draws, default 1000
	Bootstrap    int     `yaml:"bootstrap"`      // resamples for the null-mean interval, default 2000
	Confidence   float64 `yaml:"confidence"`     // interval coverage, default 0.95
	Window       int     `yaml:"frechet_window"` // Fréchet summing window, default 10
}

// DefaultConfig returns the hand-tuned comparison configuration.
func DefaultConfig() Config {
	return Config{Permutations: 1000, Bootstrap: 2000, Confidence: 0.95, Window: 10}
}

// ModelScore places one forecast relative to the null.
type ModelScore struct {
	Name          string  `json:"name"`
	SummedFrechet float64 `json:"summed_frechet"`
	PValue        float64 `json:"p_value"` // P(null <= model distance), permutation estimate
	ZScore        float64 `json:"z_score"` // standardized position in the null
	NormalPValue  float64 `json:"normal_p_value"`
	WithinNullCI  bool    `json:"within_null_ci"`
}

// NullSummary describes the permutation distribution.
type NullSummary struct {
	Mean        float64 `json:"mean"`
	StdDev      float64 `json:"std_dev"`
	CILower     float64 `json:"ci_lower"`      // percentile bounds of the null draws
	CIUpper     float64 `json:"ci_upper"`
	MeanCILower float64 `json:"mean_ci_lower"` // bootstrap percentile bounds of the null mean
	MeanCIUpper float64 `json:"mean_ci_upper"`
}

// Result contains the full comparison.
type Result struct {
	Null         NullSummary  `json:"null"`
	Scores       []ModelScore `json:"scores"`
	Permutations int          `json:"permutations"`
	Seed         int64        `json:"seed"`
}

// Compare scores each forecast against the permutation null for the realized
// series. Forecasts must align with actual sample-for-sample. progress may be
// nil; it is called once per permutation draw.
func Compare(actual []float64, forecasts map[string][]float64, cfg Config, seed int64, progress func(done, total int)) (*Result, error) {
	if len(actual) < 2 {
		return nil, fmt.Errorf("permtest: need at least 2 realized samples, got %d", len(actual))
	}
	if len(forecasts) == 0 {
		return nil, fmt.Errorf("permtest: no forecasts to compare")
	}
	if cfg.Permutations < 10 {
		return nil, fmt.Errorf("permtest: permutations must be >= 10, got %d", cfg.Permutations)
	}
	if cfg.Bootstrap < 10 {
		return nil, fmt.Errorf("permtest: bootstrap must be >= 10, got %d", cfg.Bootstrap)
	}
	if cfg.Confidence <= 0 || cfg.Confidence >= 1 {
		return nil, fmt.Errorf("permtest: confidence must be in (0,1), got %g", cfg.Confidence)
	}
	for name, fc := range forecasts {
		if len(fc) != len(actual) {
			return nil, fmt.Errorf("permtest: forecast %q has %d samples, realized has %d", name, len(fc), len(actual))
		}
	}

	rng := rand.New(rand.NewSource(seed))

	// Null draws: summed Fréchet distance between the realized curve and a
	// shuffled copy of itself. Shuffling destroys the time ordering, which is
	// exactly the structure a forecast is supposed to capture.
	null := make([]float64, cfg.Permutations)
	shuffled := append([]float64(nil), actual...)
	for b := 0; b < cfg.Permutations; b++ {
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		d, err := frechet.SummedDistance(shuffled, actual, cfg.Window)
		if err != nil {
			return nil, fmt.Errorf("permtest: null draw %d: %w", b, err)
		}
		null[b] = d
		if progress != nil {
			progress(b+1, cfg.Permutations)
		}
	}

	mean, std := gstat.MeanStdDev(null, nil)
	alpha := (1 - cfg.Confidence) / 2

	lo, err := stats.Percentile(stats.Float64Data(null), 100*alpha)
	if err != nil {
		return nil, fmt.Errorf("permtest: null percentile: %w", err)
	}
	hi, err := stats.Percentile(stats.Float64Data(null), 100*(1-alpha))
	if err != nil {
		return nil, fmt.Errorf("permtest: null percentile: %w", err)
	}

	meanLo, meanHi := bootstrapMeanCI(null, cfg.Bootstrap, alpha, rng)

	normal := distuv.Normal{Mu: mean, Sigma: std}
	sortedNames := make([]string, 0, len(forecasts))
	for name := range forecasts {
		sortedNames = append(sortedNames, name)
	}
	sort.Strings(sortedNames)

	scores := make([]ModelScore, 0, len(forecasts))
	for _, name := range sortedNames {
		d, err := frechet.SummedDistance(forecasts[name], actual, cfg.Window)
		if err != nil {
			return nil, fmt.Errorf("permtest: model %q: %w", name, err)
		}

		below := 0
		for _, v := range null {
			if v <= d {
				below++
			}
		}
		score := ModelScore{
			Name:          name,
			SummedFrechet: d,
			PValue:        float64(below+1) / float64(len(null)+1),
			WithinNullCI:  d >= lo && d <= hi,
		}
		if std > 0 {
			score.ZScore = (d - mean) / std
			score.NormalPValue = normal.CDF(d)
		}
		scores = append(scores, score)
	}

	return &Result{
		Null: NullSummary{
			Mean:        mean,
			StdDev:      std,
			CILower:     lo,
			CIUpper:     hi,
			MeanCILower: meanLo,
			MeanCIUpper: meanHi,
		},
		Scores:       scores,
		Permutations: cfg.Permutations,
		Seed:         seed,
	}, nil
}

// bootstrapMeanCI resamples the null draws with replacement and returns the
// percentile interval of the resampled means.
func bootstrapMeanCI(null []float64, resamples int, alpha float64, rng *rand.Rand) (float64, float64) {
	means := make([]float64, resamples)
	for b := 0; b < resamples; b++ {
		var s float64
		for i := 0; i < len(null); i++ {
			s += null[rng.Intn(len(null))]
		}
		means[b] = s / float64(len(null))
	}
	sort.Float64s(means)
	lo := means[int(alpha*float64(resamples))]
	hiIdx := int((1 - alpha) * float64(resamples))
	if hiIdx >= resamples {
		hiIdx = resamples - 1
	}
	return lo, means[hiIdx]
}
