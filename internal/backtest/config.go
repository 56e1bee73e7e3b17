package backtest

import (
	"fmt"
)

// Config controls a backtest replay
type Config struct {
	// Warmup is the number of rounds the first prediction sees
	Warmup int
	// BucketWidth is the width of the confidence buckets in percentage points
	BucketWidth          int
	MonteCarloIterations int
	Seed                 int64
	WalkForward          WalkForwardConfig
	OutputPath           string
}

// DefaultConfig returns the replay settings used by the CLI
func DefaultConfig() Config {
	return Config{
		Warmup:               1,
		BucketWidth:          10,
		MonteCarloIterations: 1000,
		WalkForward: WalkForwardConfig{
			WindowRounds: 100,
			StepRounds:   50,
		},
	}
}

// Validate validates backtest config parameters
func (c Config) Validate() error {
	if c.Warmup < 1 {
		return fmt.Errorf("warmup must be at least one round")
	}
	if c.BucketWidth <= 0 || c.BucketWidth > 100 {
		return fmt.Errorf("bucket width must be between 1 and 100")
	}
	if c.MonteCarloIterations < 0 {
		return fmt.Errorf("monte carlo iterations cannot be negative")
	}
	if c.WalkForward.WindowRounds < 0 || c.WalkForward.StepRounds < 0 {
		return fmt.Errorf("walk-forward window and step cannot be negative")
	}
	if c.WalkForward.WindowRounds > 0 && c.WalkForward.WindowRounds <= c.Warmup {
		return fmt.Errorf("walk-forward window must be longer than the warmup")
	}
	return nil
}
