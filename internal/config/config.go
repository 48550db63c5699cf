// Package config holds the analysis configuration. Every hyperparameter in
// the pipeline is a fixed, hand-chosen value; the YAML file exists so those
// values are visible and overridable without recompiling.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/quantlab/marketshape/internal/knn"
	"github.com/quantlab/marketshape/internal/morse"
	"github.com/quantlab/marketshape/internal/permtest"
	"github.com/quantlab/marketshape/internal/ssa"
)

// DataConfig locates the CSV and fixes the row-index split.
type DataConfig struct {
	Path      string `yaml:"path"`       // default "ExampleStock.csv"
	TestRows  int    `yaml:"test_rows"`  // held-out evaluation rows at the end, default 30
	TrainRows int    `yaml:"train_rows"` // explicit split index; 0 means rows - test_rows
}

// OutputConfig controls where and how results are rendered.
type OutputConfig struct {
	Dir   string `yaml:"dir"`   // artifact root, default "out"
	Plots bool   `yaml:"plots"` // render PNG plots, default true
	Plain bool   `yaml:"plain"` // force plain tables even on a TTY
}

// Config is the full analysis configuration.
type Config struct {
	Seed    int64           `yaml:"seed"`
	Data    DataConfig      `yaml:"data"`
	Morse   morse.Config    `yaml:"morse_smale"`
	SSA     ssa.Config      `yaml:"ssa"`
	KNN     knn.GridConfig  `yaml:"knn"`
	Compare permtest.Config `yaml:"compare"`
	Output  OutputConfig    `yaml:"output"`
}

// Default returns the hand-tuned configuration for the reference dataset.
func Default() *Config {
	return &Config{
		Seed: 20230901,
		Data: DataConfig{
			Path:     "ExampleStock.csv",
			TestRows: 30,
		},
		Morse:   morse.DefaultConfig(),
		SSA:     ssa.DefaultConfig(),
		KNN:     knn.DefaultGridConfig(),
		Compare: permtest.DefaultConfig(),
		Output: OutputConfig{
			Dir:   "out",
			Plots: true,
		},
	}
}

// Load reads a YAML file over the defaults. A missing path returns defaults
// unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the cross-field constraints the stage constructors cannot
// see on their own.
func (c *Config) Validate() error {
	if c.Data.Path == "" {
		return fmt.Errorf("data.path is required")
	}
	if c.Data.TestRows < 2 && c.Data.TrainRows == 0 {
		return fmt.Errorf("data.test_rows must be >= 2, got %d", c.Data.TestRows)
	}
	if c.Data.TrainRows < 0 {
		return fmt.Errorf("data.train_rows must be >= 0, got %d", c.Data.TrainRows)
	}
	if c.Morse.Neighbors < 2 {
		return fmt.Errorf("morse_smale.neighbors must be >= 2, got %d", c.Morse.Neighbors)
	}
	if c.Morse.Bandwidth <= 0 {
		return fmt.Errorf("morse_smale.bandwidth must be positive, got %g", c.Morse.Bandwidth)
	}
	if c.SSA.Window < 2 {
		return fmt.Errorf("ssa.window must be >= 2, got %d", c.SSA.Window)
	}
	if c.SSA.Components < 1 {
		return fmt.Errorf("ssa.components must be >= 1, got %d", c.SSA.Components)
	}
	if c.KNN.KMax < 1 {
		return fmt.Errorf("knn.k_max must be >= 1, got %d", c.KNN.KMax)
	}
	if c.KNN.Skip < 0 || c.KNN.Skip >= c.KNN.KMax {
		return fmt.Errorf("knn.skip=%d leaves no candidates below k_max=%d", c.KNN.Skip, c.KNN.KMax)
	}
	if c.Compare.Permutations < 10 {
		return fmt.Errorf("compare.permutations must be >= 10, got %d", c.Compare.Permutations)
	}
	if c.Compare.Confidence <= 0 || c.Compare.Confidence >= 1 {
		return fmt.Errorf("compare.confidence must be in (0,1), got %g", c.Compare.Confidence)
	}
	if c.Compare.Window < 2 {
		return fmt.Errorf("compare.frechet_window must be >= 2, got %d", c.Compare.Window)
	}
	if c.Output.Dir == "" {
		return fmt.Errorf("output.dir is required")
	}
	return nil
}

// SplitIndex resolves the fixed train/test boundary for a dataset of the
// given length.
func (c *Config) SplitIndex(rows int) (int, error) {
	split := c.Data.TrainRows
	if split == 0 {
		split = rows - c.Data.TestRows
	}
	if split < 1 || split >= rows {
		return 0, fmt.Errorf("config: split index %d invalid for %d rows", split, rows)
	}
	return split, nil
}
