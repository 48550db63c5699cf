// Package pipeline runs the three analyses in order: Morse-Smale clustering
// of the shape columns, the two competing forecasts of the fluctuation
// series, and the Fréchet comparison against the permutation null. The
// stages share nothing but the loaded dataset and each can run alone.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/quantlab/marketshape/internal/config"
	"github.com/quantlab/marketshape/internal/dataset"
	"github.com/quantlab/marketshape/internal/knn"
	ilog "github.com/quantlab/marketshape/internal/log"
	"github.com/quantlab/marketshape/internal/morse"
	"github.com/quantlab/marketshape/internal/permtest"
	"github.com/quantlab/marketshape/internal/ssa"
)

// SSAEval pairs the SSA output with its evaluation errors.
type SSAEval struct {
	*ssa.Result
	SSE float64 `json:"sse"`
	MSE float64 `json:"mse"`
}

// RunResult collects everything a full run produces.
type RunResult struct {
	DatasetPath  string             `json:"dataset_path"`
	Rows         int                `json:"rows"`
	SplitIndex   int                `json:"split_index"`
	Cluster      *morse.Result      `json:"cluster,omitempty"`
	KNN          *knn.GridResult    `json:"knn,omitempty"`
	SSA          *SSAEval           `json:"ssa,omitempty"`
	Comparison   *permtest.Result   `json:"comparison,omitempty"`
	Actual       []float64          `json:"actual,omitempty"` // held-out fluctuation window
	StageSeconds map[string]float64 `json:"stage_seconds"`
}

// Pipeline runs the configured analyses over one dataset.
type Pipeline struct {
	cfg *config.Config
	out io.Writer // progress target
	ds  *dataset.Dataset
}

// New creates a pipeline. out receives progress bars for the long loops.
func New(cfg *config.Config, out io.Writer) *Pipeline {
	return &Pipeline{cfg: cfg, out: out}
}

func (p *Pipeline) load() (*dataset.Dataset, error) {
	if p.ds != nil {
		return p.ds, nil
	}
	ds, err := dataset.Load(p.cfg.Data.Path)
	if err != nil {
		return nil, err
	}
	log.Info().Str("path", ds.Path).Int("rows", ds.Rows()).Strs("columns", ds.Names).Msg("dataset loaded")
	p.ds = ds
	return ds, nil
}

// Run executes all three stages in order.
func (p *Pipeline) Run(ctx context.Context) (*RunResult, error) {
	res := newResult()
	if err := p.runCluster(ctx, res); err != nil {
		return nil, err
	}
	if err := p.runForecast(ctx, res); err != nil {
		return nil, err
	}
	if err := p.runCompare(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

// RunCluster executes only the clustering stage.
func (p *Pipeline) RunCluster(ctx context.Context) (*RunResult, error) {
	res := newResult()
	if err := p.runCluster(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

// RunForecast executes only the forecasting stage.
func (p *Pipeline) RunForecast(ctx context.Context) (*RunResult, error) {
	res := newResult()
	if err := p.runForecast(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

// RunCompare executes the forecasting stage (the comparison consumes its
// forecasts in-process) followed by the comparison stage.
func (p *Pipeline) RunCompare(ctx context.Context) (*RunResult, error) {
	res := newResult()
	if err := p.runForecast(ctx, res); err != nil {
		return nil, err
	}
	if err := p.runCompare(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

func newResult() *RunResult {
	return &RunResult{StageSeconds: map[string]float64{}}
}

func (p *Pipeline) runCluster(ctx context.Context, res *RunResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ds, err := p.load()
	if err != nil {
		return err
	}
	res.DatasetPath = ds.Path
	res.Rows = ds.Rows()

	shape, err := ds.ShapeMatrix()
	if err != nil {
		return err
	}
	clusterer, err := morse.New(p.cfg.Morse)
	if err != nil {
		return err
	}

	start := time.Now()
	cluster, err := clusterer.Cluster(shape)
	if err != nil {
		return fmt.Errorf("cluster stage: %w", err)
	}
	res.Cluster = cluster
	res.StageSeconds["cluster"] = time.Since(start).Seconds()

	log.Info().
		Int("crystals", len(cluster.Crystals)).
		Dur("elapsed", time.Since(start)).
		Msg("Morse-Smale clustering completed")
	return nil
}

func (p *Pipeline) runForecast(ctx context.Context, res *RunResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ds, err := p.load()
	if err != nil {
		return err
	}
	res.DatasetPath = ds.Path
	res.Rows = ds.Rows()

	high, low, fluct, err := ds.HighLowFluct()
	if err != nil {
		return err
	}
	split, err := p.cfg.SplitIndex(ds.Rows())
	if err != nil {
		return err
	}
	res.SplitIndex = split

	train, test, err := dataset.SplitSeries(fluct, split)
	if err != nil {
		return err
	}
	res.Actual = test

	start := time.Now()
	ssaRes, err := p.runSSA(high[:split], low[:split], train, test)
	if err != nil {
		return fmt.Errorf("ssa stage: %w", err)
	}
	res.SSA = ssaRes
	res.StageSeconds["ssa"] = time.Since(start).Seconds()
	log.Info().
		Float64("sse", ssaRes.SSE).
		Dur("elapsed", time.Since(start)).
		Msg("SSA forecast completed")

	if err := ctx.Err(); err != nil {
		return err
	}

	start = time.Now()
	sweepTotal := min(p.cfg.KNN.KMax, len(train)-p.cfg.KNN.Lags)
	progress := ilog.NewProgressIndicator("neighbor sweep", sweepTotal, p.out, p.cfg.Output.Plain)
	grid, err := knn.GridSearch(train, test, p.cfg.KNN, func(done, total int) {
		progress.Update(done)
	})
	if err != nil {
		return fmt.Errorf("knn stage: %w", err)
	}
	progress.Finish()
	res.KNN = grid
	res.StageSeconds["knn"] = time.Since(start).Seconds()
	log.Info().
		Int("best_k", grid.BestK).
		Float64("sse", grid.BestSSE).
		Dur("elapsed", time.Since(start)).
		Msg("KNN grid search completed")

	return nil
}

func (p *Pipeline) runSSA(high, low, train, test []float64) (*SSAEval, error) {
	forecaster, err := ssa.New(p.cfg.SSA)
	if err != nil {
		return nil, err
	}
	out, err := forecaster.Forecast([][]float64{high, low, train}, 2, len(test))
	if err != nil {
		return nil, err
	}

	var sse float64
	for i, v := range out.Forecast {
		d := v - test[i]
		sse += d * d
	}
	return &SSAEval{Result: out, SSE: sse, MSE: sse / float64(len(test))}, nil
}

func (p *Pipeline) runCompare(ctx context.Context, res *RunResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if res.KNN == nil || res.SSA == nil {
		return fmt.Errorf("compare stage: forecasts missing")
	}

	forecasts := map[string][]float64{
		"knn": res.KNN.Forecast,
		"ssa": res.SSA.Forecast,
	}

	start := time.Now()
	progress := ilog.NewProgressIndicator("permutation null", p.cfg.Compare.Permutations, p.out, p.cfg.Output.Plain)
	cmp, err := permtest.Compare(res.Actual, forecasts, p.cfg.Compare, p.cfg.Seed, func(done, total int) {
		progress.Update(done)
	})
	if err != nil {
		return fmt.Errorf("compare stage: %w", err)
	}
	progress.Finish()
	res.Comparison = cmp
	res.StageSeconds["compare"] = time.Since(start).Seconds()

	for _, score := range cmp.Scores {
		log.Info().
			Str("model", score.Name).
			Float64("summed_frechet", score.SummedFrechet).
			Float64("p_value", score.PValue).
			Bool("within_null_ci", score.WithinNullCI).
			Msg("model compared against permutation null")
	}
	return nil
}
