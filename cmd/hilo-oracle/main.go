// Package main provides the hilo-oracle command line: the prediction
// server, one-shot predictions and history backtests.
package main

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/hilo-oracle/internal/config"
	"github.com/yourusername/hilo-oracle/internal/logger"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var (
	configFile  string
	historyFile string
)

var rootCmd = &cobra.Command{
	Use:           "hilo-oracle",
	Short:         "Ensemble predictions for High/Low game rounds",
	Long:          `Fetches round history, runs the weighted sub-model ensemble and serves the prediction for the next round.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "hilo-oracle %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	rootCmd.PersistentFlags().StringVarP(&historyFile, "file", "f", "", "Read round history from a JSON file instead of the upstream")
	rootCmd.AddCommand(serveCmd, predictCmd, backtestCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

// loadConfig loads, overlays secrets and validates the configuration. A
// --file flag switches the history source to that file.
func loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := config.LoadWithDefaults(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if historyFile != "" {
		cfg.Upstream.Source = config.SourceFile
		cfg.Upstream.FilePath = historyFile
	}

	if err := config.LoadSecretsFromAWS(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to load secrets: %w", err)
	}

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newLogger builds the application logger. Commands printing results to
// stdout log to out instead.
func newLogger(cfg *config.Config, out io.Writer) *logrus.Logger {
	appLog := logger.NewLogger(cfg.App.LogLevel, cfg.App.Environment)
	if out != nil {
		appLog.SetOutput(out)
	}
	return appLog
}
