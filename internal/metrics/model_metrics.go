// Package metrics defines sub-model specific metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Sub-model counter vectors
var (
	ModelVotesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "model_votes_total",
		Help:      "Total number of votes cast by each sub-model by direction",
	}, []string{"model", "direction"})
)

// Sub-model gauge vectors
var (
	ModelMultiplier = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "model_multiplier",
		Help:      "Current performance multiplier of each tracked sub-model",
	}, []string{"session", "model"})

	ModelAccuracy = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "model_accuracy",
		Help:      "Rolling hit rate of each tracked sub-model over the scored window",
	}, []string{"session", "model"})
)

// RecordModelVote records a vote cast by a sub-model.
func RecordModelVote(model, direction string) {
	ModelVotesTotal.WithLabelValues(model, direction).Inc()
}

// UpdateModelPerformance updates multiplier and accuracy for a sub-model.
// Accuracy is skipped when no rounds were scored.
func UpdateModelPerformance(session, model string, multiplier float64, correct, rounds int) {
	ModelMultiplier.WithLabelValues(session, model).Set(multiplier)
	if rounds > 0 {
		ModelAccuracy.WithLabelValues(session, model).Set(float64(correct) / float64(rounds))
	}
}
