package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/quantlab/marketshape/internal/config"
	"github.com/quantlab/marketshape/internal/dataset"
	"github.com/quantlab/marketshape/internal/pipeline"
	"github.com/quantlab/marketshape/internal/report"
)

func runAnalyze(cmd *cobra.Command, args []string) error {
	return run(cmd, func(ctx context.Context, p *pipeline.Pipeline) (*pipeline.RunResult, error) {
		return p.Run(ctx)
	})
}

func runCluster(cmd *cobra.Command, args []string) error {
	return run(cmd, func(ctx context.Context, p *pipeline.Pipeline) (*pipeline.RunResult, error) {
		return p.RunCluster(ctx)
	})
}

func runForecast(cmd *cobra.Command, args []string) error {
	return run(cmd, func(ctx context.Context, p *pipeline.Pipeline) (*pipeline.RunResult, error) {
		return p.RunForecast(ctx)
	})
}

func runCompare(cmd *cobra.Command, args []string) error {
	return run(cmd, func(ctx context.Context, p *pipeline.Pipeline) (*pipeline.RunResult, error) {
		return p.RunCompare(ctx)
	})
}

func run(cmd *cobra.Command, stage func(context.Context, *pipeline.Pipeline) (*pipeline.RunResult, error)) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	res, err := stage(ctx, pipeline.New(cfg, os.Stdout))
	if err != nil {
		return err
	}
	log.Info().Dur("elapsed", time.Since(start)).Msg("analysis completed")

	return render(cfg, res)
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if csvPath, _ := cmd.Flags().GetString("csv"); csvPath != "" {
		cfg.Data.Path = csvPath
	}
	if outDir, _ := cmd.Flags().GetString("out"); outDir != "" {
		cfg.Output.Dir = outDir
	}
	if cmd.Flags().Changed("seed") {
		seed, _ := cmd.Flags().GetInt64("seed")
		cfg.Seed = seed
	}
	if plain, _ := cmd.Flags().GetBool("plain"); plain || !stdoutIsTTY() {
		cfg.Output.Plain = true
	}
	if noPlots, _ := cmd.Flags().GetBool("no-plots"); noPlots {
		cfg.Output.Plots = false
	}
	return cfg, cfg.Validate()
}

func render(cfg *config.Config, res *pipeline.RunResult) error {
	tw := report.NewTableWriter(os.Stdout, cfg.Output.Plain)

	if res.Cluster != nil {
		renderCluster(tw, res)
	}
	if res.KNN != nil || res.SSA != nil {
		renderForecast(tw, res)
	}
	if res.Comparison != nil {
		renderComparison(tw, res)
	}

	artifacts, err := report.NewArtifacts(cfg.Output.Dir, time.Now())
	if err != nil {
		return err
	}
	if err := artifacts.WriteJSON("results.json", res); err != nil {
		return err
	}

	if cfg.Output.Plots {
		if err := renderPlots(cfg, res, artifacts); err != nil {
			return err
		}
	}

	log.Info().Str("run_id", artifacts.RunID).Str("dir", artifacts.Dir).Msg("artifacts written")
	return nil
}

func renderCluster(tw *report.TableWriter, res *pipeline.RunResult) {
	rows := make([][]string, 0, len(res.Cluster.Crystals))
	for _, cr := range res.Cluster.Crystals {
		rows = append(rows, []string{
			strconv.Itoa(cr.ID),
			strconv.Itoa(cr.Size),
			strconv.Itoa(cr.MaxRow),
			strconv.Itoa(cr.MinRow),
			report.F(cr.MaxDensity),
			report.F(cr.Means[0]),
			report.F(cr.Means[1]),
			report.F(cr.Means[2]),
		})
	}
	tw.Render(
		fmt.Sprintf("Morse-Smale crystals (%d rows)", res.Rows),
		[]string{"id", "size", "max_row", "min_row", "density", "mean_high", "mean_low", "mean_fluct"},
		rows,
	)
}

func renderForecast(tw *report.TableWriter, res *pipeline.RunResult) {
	var rows [][]string
	if res.KNN != nil {
		rows = append(rows, []string{
			"knn",
			fmt.Sprintf("k=%d (of %d swept)", res.KNN.BestK, res.KNN.Searched),
			report.F(res.KNN.BestSSE),
			report.F(res.KNN.BestMSE),
		})
	}
	if res.SSA != nil {
		rows = append(rows, []string{
			"ssa",
			fmt.Sprintf("%d components", len(res.SSA.ComponentShare)),
			report.F(res.SSA.SSE),
			report.F(res.SSA.MSE),
		})
	}
	tw.Render(
		fmt.Sprintf("Forecasts over rows [%d,%d)", res.SplitIndex, res.Rows),
		[]string{"model", "fit", "sse", "mse"},
		rows,
	)
}

func renderComparison(tw *report.TableWriter, res *pipeline.RunResult) {
	cmp := res.Comparison
	rows := make([][]string, 0, len(cmp.Scores))
	for _, score := range cmp.Scores {
		rows = append(rows, []string{
			score.Name,
			report.F(score.SummedFrechet),
			report.F(score.PValue),
			report.F(score.ZScore),
			strconv.FormatBool(score.WithinNullCI),
		})
	}
	tw.Render(
		fmt.Sprintf("Fréchet comparison vs permutation null (%d draws, seed %d)", cmp.Permutations, cmp.Seed),
		[]string{"model", "summed_frechet", "p_value", "z", "within_null_ci"},
		rows,
	)
	fmt.Printf("null mean %s (sd %s), draws CI [%s, %s], mean CI [%s, %s]\n",
		report.F(cmp.Null.Mean), report.F(cmp.Null.StdDev),
		report.F(cmp.Null.CILower), report.F(cmp.Null.CIUpper),
		report.F(cmp.Null.MeanCILower), report.F(cmp.Null.MeanCIUpper))
}

func renderPlots(cfg *config.Config, res *pipeline.RunResult, artifacts *report.Artifacts) error {
	if res.KNN != nil && res.SSA != nil {
		forecasts := map[string][]float64{"knn": res.KNN.Forecast, "ssa": res.SSA.Forecast}
		if err := report.SaveForecastPlot(artifacts.Path("forecast.png"), res.Actual, forecasts); err != nil {
			return err
		}
	}
	if res.Cluster != nil {
		ds, err := dataset.Load(cfg.Data.Path)
		if err != nil {
			return err
		}
		shape, err := ds.ShapeMatrix()
		if err != nil {
			return err
		}
		if err := report.SaveClusterPlot(artifacts.Path("crystals.png"), shape, res.Cluster.Assignments); err != nil {
			return err
		}
	}
	return nil
}
