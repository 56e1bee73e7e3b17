package logger

import (
	"github.com/sirupsen/logrus"
)

// BacktestLogger provides dedicated logging for history replays.
type BacktestLogger struct {
	*logrus.Entry
}

// NewBacktestLogger creates a new backtest logger.
func NewBacktestLogger(baseLogger *logrus.Logger) *BacktestLogger {
	return &BacktestLogger{
		Entry: baseLogger.WithField("component", "backtest"),
	}
}

// LogReplayStarted logs the start of a replay run.
func (bl *BacktestLogger) LogReplayStarted(runID, source string, rounds int) {
	bl.WithFields(logrus.Fields{
		"run_id": runID,
		"source": source,
		"rounds": rounds,
	}).Info("Backtest replay started")
}

// LogReplayCompleted logs the summary of a replay run.
func (bl *BacktestLogger) LogReplayCompleted(runID string, predictions, hits int, hitRate float64, modelHitRates map[string]float64, durationMs float64) {
	bl.WithFields(logrus.Fields{
		"run_id":          runID,
		"predictions":     predictions,
		"hits":            hits,
		"hit_rate":        hitRate,
		"model_hit_rates": modelHitRates,
		"duration_ms":     durationMs,
	}).Info("Backtest replay completed")
}
