package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/hilo-oracle/internal/backtest"
	"github.com/yourusername/hilo-oracle/internal/datasource"
	"github.com/yourusername/hilo-oracle/internal/ensemble"
)

var backtestCfg = backtest.DefaultConfig()

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Replay the ensemble over the round history and score it",
	Long: `Replays every round of the fetched history through the ensemble, comparing
each prediction with the round that followed. The replay is checked against
a coin-flip Monte Carlo baseline and split into walk-forward windows.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := loadConfig(ctx)
		if err != nil {
			return err
		}
		appLog := newLogger(cfg, os.Stderr)

		source, err := datasource.NewFactory(cfg.Upstream, appLog).Create()
		if err != nil {
			return fmt.Errorf("failed to create history source: %w", err)
		}
		history, err := source.FetchHistory(ctx)
		if err != nil {
			return fmt.Errorf("failed to fetch history: %w", err)
		}

		engine, err := backtest.NewEngine(backtestCfg, ensemble.NewEngine(appLog), appLog)
		if err != nil {
			return err
		}
		result, err := engine.Run(ctx, source.Name(), history)
		if err != nil {
			return err
		}

		fmt.Fprint(cmd.OutOrStdout(), backtest.GenerateConsoleReport(*result))

		if backtestCfg.OutputPath != "" {
			if err := backtest.WriteReports(*result, backtestCfg.OutputPath); err != nil {
				return fmt.Errorf("failed to write reports: %w", err)
			}
			appLog.WithFields(logrus.Fields{
				"run_id": result.RunID,
				"output": backtestCfg.OutputPath,
			}).Info("Backtest reports written")
		}
		return nil
	},
}

func init() {
	flags := backtestCmd.Flags()
	flags.StringVarP(&backtestCfg.OutputPath, "output", "o", "", "Directory for summary.json, metrics.csv and hit_curve.csv")
	flags.IntVar(&backtestCfg.MonteCarloIterations, "iterations", backtestCfg.MonteCarloIterations, "Monte Carlo baseline iterations")
	flags.Int64Var(&backtestCfg.Seed, "seed", backtestCfg.Seed, "Seed for the Monte Carlo baseline")
	flags.IntVar(&backtestCfg.WalkForward.WindowRounds, "window", backtestCfg.WalkForward.WindowRounds, "Rounds per walk-forward window")
	flags.IntVar(&backtestCfg.WalkForward.StepRounds, "step", backtestCfg.WalkForward.StepRounds, "Rounds between walk-forward windows")
	flags.IntVar(&backtestCfg.Warmup, "warmup", backtestCfg.Warmup, "Rounds of history before the first scored prediction")
	flags.IntVar(&backtestCfg.BucketWidth, "bucket-width", backtestCfg.BucketWidth, "Width of the confidence calibration buckets")
}
