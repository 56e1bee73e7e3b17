package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

var (
	predictSession string
	predictModels  bool
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Fetch history once and print the prediction for the next round",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := loadConfig(ctx)
		if err != nil {
			return err
		}
		appLog := newLogger(cfg, os.Stderr)

		a, err := newApp(ctx, cfg, appLog)
		if err != nil {
			return err
		}
		defer a.Close()

		session := predictSession
		if session == "" {
			session = cfg.Server.DefaultSession
		}

		var out interface{}
		if predictModels {
			out, err = a.service.Performance(ctx, session)
		} else {
			out, err = a.service.Predict(ctx, session)
		}
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	predictCmd.Flags().StringVarP(&predictSession, "session", "s", "", "Session whose vote ledger is used (defaults to server.default_session)")
	predictCmd.Flags().BoolVar(&predictModels, "models", false, "Print per-model performance instead of the prediction")
}
