package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const (
	appName = "marketshape"
	version = "v1.2.0"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Topological clustering and forecast comparison for a stock time series",
		Version: version,
		Long: `marketshape analyzes one stock-market CSV in three passes:

  1. Morse-Smale clustering of the high/low/fluctuation columns
  2. Competing forecasts of the fluctuation series (multichannel SSA vs
     time-lagged KNN with a brute-force neighbor sweep)
  3. Fréchet-distance comparison of both forecasts against a permutation null

Results go to console tables and a per-run artifact directory with plots.`,
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run all three analysis stages",
		Long:  "Clustering, both forecasts, and the permutation comparison in one pass",
		RunE:  runAnalyze,
	}

	clusterCmd := &cobra.Command{
		Use:   "cluster",
		Short: "Run only the Morse-Smale clustering stage",
		RunE:  runCluster,
	}

	forecastCmd := &cobra.Command{
		Use:   "forecast",
		Short: "Run only the forecasting stage",
		Long:  "Multichannel SSA and the KNN neighbor sweep over the fixed train/test split",
		RunE:  runForecast,
	}

	compareCmd := &cobra.Command{
		Use:   "compare",
		Short: "Run the forecast comparison against the permutation null",
		Long:  "Re-runs both forecasts in-process, then scores them by summed Fréchet distance",
		RunE:  runCompare,
	}

	for _, cmd := range []*cobra.Command{analyzeCmd, clusterCmd, forecastCmd, compareCmd} {
		cmd.Flags().String("config", "", "YAML config path (defaults compiled in)")
		cmd.Flags().String("csv", "", "Dataset path (overrides config)")
		cmd.Flags().String("out", "", "Artifact directory root (overrides config)")
		cmd.Flags().Int64("seed", 0, "RNG seed for permutations and bootstrap (overrides config)")
		cmd.Flags().Bool("plain", false, "Plain output: no progress bars, no width-fitting")
		cmd.Flags().Bool("no-plots", false, "Skip PNG plot rendering")
		rootCmd.AddCommand(cmd)
	}

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("analysis failed")
		os.Exit(1)
	}
}

// stdoutIsTTY gates the in-place progress bars and width-fitted tables.
func stdoutIsTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
