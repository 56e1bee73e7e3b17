package logger

import (
	"github.com/sirupsen/logrus"
)

// PredictionLogger provides dedicated logging for prediction operations.
type PredictionLogger struct {
	*logrus.Entry
}

// NewPredictionLogger creates a new prediction logger.
func NewPredictionLogger(baseLogger *logrus.Logger) *PredictionLogger {
	return &PredictionLogger{
		Entry: baseLogger.WithField("component", "prediction"),
	}
}

// LogPrediction logs a completed ensemble prediction.
func (pl *PredictionLogger) LogPrediction(session string, round, nextRound int64, outcome string, confidence int, explanation string, durationMs float64) {
	pl.WithFields(logrus.Fields{
		"session":     session,
		"round":       round,
		"next_round":  nextRound,
		"prediction":  outcome,
		"confidence":  confidence,
		"explanation": explanation,
		"duration_ms": durationMs,
	}).Info("Prediction generated")
}

// LogSubModelVotes logs the vote and effective weight of every sub-model.
func (pl *PredictionLogger) LogSubModelVotes(session string, round int64, votes map[string]string, weights map[string]float64) {
	pl.WithFields(logrus.Fields{
		"session": session,
		"round":   round,
		"votes":   votes,
		"weights": weights,
	}).Debug("Sub-model votes")
}

// LogUpstreamFetch logs a history fetch.
func (pl *PredictionLogger) LogUpstreamFetch(source string, rounds int, cacheHit bool, durationMs float64) {
	pl.WithFields(logrus.Fields{
		"source":      source,
		"rounds":      rounds,
		"cache_hit":   cacheHit,
		"duration_ms": durationMs,
	}).Debug("History fetched")
}

// LogLedgerUpdate logs a ledger save.
func (pl *PredictionLogger) LogLedgerUpdate(session, backend string, round int64, entries int) {
	pl.WithFields(logrus.Fields{
		"session": session,
		"backend": backend,
		"round":   round,
		"entries": entries,
	}).Debug("Ledger updated")
}

// LogRoundAdvanced logs that a new round was observed for a session.
func (pl *PredictionLogger) LogRoundAdvanced(session string, previous, current int64) {
	pl.WithFields(logrus.Fields{
		"session":        session,
		"previous_round": previous,
		"current_round":  current,
	}).Info("New round observed")
}
