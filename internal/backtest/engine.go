// Package backtest replays round history through the ensemble and scores
// every prediction against the round that followed it.
package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/hilo-oracle/internal/logger"
	"github.com/yourusername/hilo-oracle/internal/metrics"
	"github.com/yourusername/hilo-oracle/internal/models"
)

// Predictor is the prediction surface of the ensemble engine
type Predictor interface {
	Predict(history models.History, ledger models.Ledger) (models.PredictionResult, models.Ledger)
}

// Engine orchestrates backtesting runs
type Engine struct {
	config    Config
	predictor Predictor
	logger    *logrus.Logger
	btLog     *logger.BacktestLogger
}

// NewEngine creates a new backtesting engine
func NewEngine(cfg Config, predictor Predictor, log *logrus.Logger) (*Engine, error) {
	if predictor == nil {
		return nil, fmt.Errorf("predictor is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid backtest config: %w", err)
	}
	if log == nil {
		log = logrus.New()
	}

	return &Engine{
		config:    cfg,
		predictor: predictor,
		logger:    log,
		btLog:     logger.NewBacktestLogger(log),
	}, nil
}

// Config returns the backtest configuration
func (e *Engine) Config() Config {
	return e.config
}

// Replay walks history with a fresh ledger and scores every prediction.
// It uses the default warmup and bucket width.
func Replay(history models.History, predictor Predictor) Metrics {
	cfg := DefaultConfig()
	state, _ := replay(context.Background(), history, predictor, cfg.Warmup, cfg.BucketWidth)
	return CalculateMetrics(state)
}

// Run replays the history and adds the random baseline and walk-forward
// analysis. source names the history in logs and reports.
func (e *Engine) Run(ctx context.Context, source string, history models.History) (*AggregatedResult, error) {
	runID := uuid.NewString()
	start := time.Now()
	e.btLog.LogReplayStarted(runID, source, len(history))

	result, err := e.run(ctx, runID, source, history)
	elapsed := time.Since(start)
	if err != nil {
		metrics.RecordBacktestRun("failure", elapsed.Seconds())
		e.logger.WithError(err).WithField("run_id", runID).Error("Backtest replay failed")
		return nil, err
	}

	result.DurationMs = float64(elapsed.Microseconds()) / 1000
	metrics.RecordBacktestRun("success", elapsed.Seconds())
	metrics.UpdateBacktestHitRate("overall", result.Replay.HitRate)
	modelRates := result.Replay.ModelHitRates()
	for name, rate := range modelRates {
		metrics.UpdateBacktestHitRate(name, rate)
	}

	e.btLog.LogReplayCompleted(runID, result.Replay.Predictions, result.Replay.Hits,
		result.Replay.HitRate, modelRates, result.DurationMs)
	return result, nil
}

func (e *Engine) run(ctx context.Context, runID, source string, history models.History) (*AggregatedResult, error) {
	if len(history) <= e.config.Warmup {
		return nil, fmt.Errorf("history of %d rounds is too short for a warmup of %d", len(history), e.config.Warmup)
	}

	state, err := replay(ctx, history, e.predictor, e.config.Warmup, e.config.BucketWidth)
	if err != nil {
		return nil, err
	}
	replayMetrics := CalculateMetrics(state)

	var mc MonteCarloResult
	if e.config.MonteCarloIterations > 0 {
		mc, err = RunMonteCarlo(ctx, replayMetrics, MonteCarloConfig{
			Iterations: e.config.MonteCarloIterations,
			Seed:       e.config.Seed,
		})
		if err != nil {
			return nil, err
		}
	}

	var wf WalkForwardResult
	if e.config.WalkForward.WindowRounds > 0 {
		wf, err = RunWalkForward(ctx, history, e.predictor, e.config.WalkForward, e.config.Warmup, e.config.BucketWidth)
		if err != nil {
			return nil, err
		}
	}

	agg := AggregateResults(replayMetrics, mc, wf)
	agg.RunID = runID
	agg.Source = source
	agg.Curve = state.Curve
	return &agg, nil
}

// replay predicts round k+1 from rounds [0..k] for every k from warmup-1,
// threading a single ledger through the run.
func replay(ctx context.Context, history models.History, predictor Predictor, warmup, bucketWidth int) (*ReplayState, error) {
	state := NewReplayState(len(history), bucketWidth)
	if warmup < 1 {
		warmup = 1
	}

	ledger := models.NewLedger()
	for k := warmup - 1; k < len(history)-1; k++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var result models.PredictionResult
		result, ledger = predictor.Predict(history[:k+1:k+1], ledger)
		state.Record(result, history[k+1])
	}
	return state, nil
}
