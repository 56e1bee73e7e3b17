// Package ensemble combines the strategy sub-models into a single weighted
// prediction and keeps their vote ledger.
package ensemble

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/hilo-oracle/internal/models"
	"github.com/yourusername/hilo-oracle/internal/strategy"
)

const (
	// shortHistory is the length below which detectors are bypassed
	shortHistory = 5

	badPatternDamping = 0.8
	recentWindow      = 10
	recentHighBias    = 7
	recentLowBias     = 3
	recentBonus       = 0.15
	bridgeThreshold   = 0.65
	bridgeBonus       = 0.2
)

// voters fixes the summation order of the weighted votes
var voters = append(append([]string{}, models.TrackedModels...), models.ModelClassifier)

// RandomFactory returns the random source used by a single prediction
type RandomFactory func() strategy.Random

// DefaultRandom returns a freshly seeded request-local source
func DefaultRandom() strategy.Random {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// DefaultWeights returns the base weight of every sub-model. Tracked models
// are scaled by their accuracy multiplier, the classifier is not.
func DefaultWeights() map[string]float64 {
	return map[string]float64{
		models.ModelTrend:      0.2,
		models.ModelShort:      0.2,
		models.ModelMean:       0.25,
		models.ModelSwitch:     0.2,
		models.ModelBridge:     0.15,
		models.ModelClassifier: 0.2,
	}
}

// Engine runs the sub-models and aggregates their votes
type Engine struct {
	detectors  []strategy.SubModel
	bridge     *strategy.BridgeBreakModel
	classifier *strategy.ClassifierModel
	weights    map[string]float64
	random     RandomFactory
	logger     *logrus.Logger
}

// NewEngine creates an engine with the production sub-models and weights
func NewEngine(logger *logrus.Logger) *Engine {
	if logger == nil {
		logger = logrus.New()
	}
	return &Engine{
		detectors: []strategy.SubModel{
			strategy.NewTrendModel(),
			strategy.NewShortPatternModel(),
			strategy.NewMeanDeviationModel(),
			strategy.NewRecentSwitchModel(),
		},
		bridge:     strategy.NewBridgeBreakModel(),
		classifier: strategy.NewClassifierModel(),
		weights:    DefaultWeights(),
		random:     DefaultRandom,
		logger:     logger,
	}
}

// WithRandom returns a copy of the engine drawing randomness from factory
func (e *Engine) WithRandom(factory RandomFactory) *Engine {
	cp := *e
	if factory == nil {
		factory = DefaultRandom
	}
	cp.random = factory
	return &cp
}

// BaseWeight returns the unscaled weight of a sub-model
func (e *Engine) BaseWeight(model string) float64 {
	return e.weights[model]
}

// Performance reports the rolling accuracy of every tracked sub-model
func (e *Engine) Performance(history models.History, ledger models.Ledger) []models.ModelPerformance {
	out := make([]models.ModelPerformance, 0, len(models.TrackedModels))
	for _, name := range models.TrackedModels {
		perf := Evaluate(history, ledger, name)
		perf.BaseWeight = e.weights[name]
		perf.Weight = perf.BaseWeight * perf.Multiplier
		out = append(out, perf)
	}
	return out
}

// Predict votes on the round following history. The vote of every tracked
// sub-model is recorded in ledger under the last round id; the ledger is
// updated in place and returned, allocated when nil. An empty history
// leaves the ledger untouched.
func (e *Engine) Predict(history models.History, ledger models.Ledger) (models.PredictionResult, models.Ledger) {
	rnd := e.random()

	last, ok := history.Last()
	if !ok {
		return models.PredictionResult{
			Outcome:    strategy.RandomOutcome(rnd),
			Confidence: 0,
			Rationale:  "[Ensemble] no history, random pick",
		}, ledger
	}

	ledger = ledger.Ensure()
	ctx := strategy.NewContext(history, rnd)

	votes := make(map[string]models.Direction, len(e.weights))
	var bridge models.Vote
	if len(history) < shortHistory {
		d := models.DirectionFor(last.Outcome)
		for _, name := range models.TrackedModels {
			votes[name] = d
		}
		bridge = models.Vote{Direction: d, Rationale: "[Bridge] short history, follow the last outcome"}
	} else {
		for _, m := range e.detectors {
			votes[m.Name()] = m.Evaluate(ctx).Direction
		}
		bridge = e.bridge.Evaluate(ctx)
		votes[models.ModelBridge] = bridge.Direction
	}

	classVote, rule := e.classifier.Classify(ctx)
	votes[models.ModelClassifier] = classVote.Direction

	for _, name := range models.TrackedModels {
		ledger.Record(name, last.ID, votes[name])
	}

	weights := make(map[string]float64, len(e.weights))
	for _, name := range models.TrackedModels {
		weights[name] = e.weights[name] * Multiplier(history, ledger, name)
	}
	weights[models.ModelClassifier] = e.weights[models.ModelClassifier]

	var high, low float64
	for _, name := range voters {
		switch votes[name] {
		case models.DirectionHigh:
			high += weights[name]
		case models.DirectionLow:
			low += weights[name]
		}
	}

	if strategy.IsBadPattern(history, ctx.Streak) {
		e.logger.WithField("streak", ctx.Streak.Length).Debug("Bad pattern detected, damping weights")
		high *= badPatternDamping
		low *= badPatternDamping
	}

	switch recentHigh := history.Tail(recentWindow).Count(models.OutcomeHigh); {
	case recentHigh >= recentHighBias:
		high += recentBonus
	case recentHigh <= recentLowBias:
		low += recentBonus
	}

	if bridge.BreakProbability > bridgeThreshold {
		switch bridge.Direction {
		case models.DirectionLow:
			high += bridgeBonus
		case models.DirectionHigh:
			low += bridgeBonus
		}
	}

	result := models.PredictionResult{
		Bridge:     &bridge,
		HighWeight: high,
		LowWeight:  low,
		Votes:      votes,
		Weights:    weights,
	}

	var confidence float64
	total := high + low
	switch {
	case high > low:
		result.Outcome = models.OutcomeHigh
		result.Rationale = fmt.Sprintf("[Ensemble] predicting High with weight %s vs %s for Low", fixed2(high), fixed2(low))
		confidence = high / total
	case low > high:
		result.Outcome = models.OutcomeLow
		result.Rationale = fmt.Sprintf("[Ensemble] predicting Low with weight %s vs %s for High", fixed2(low), fixed2(high))
		confidence = low / total
	default:
		result.Outcome = strategy.RandomOutcome(rnd)
		result.Rationale = "[Ensemble] weights balanced, random pick"
		confidence = 0.5
	}
	result.Confidence = toPercent(confidence)

	e.logger.WithFields(logrus.Fields{
		"round":           last.ID,
		"outcome":         result.Outcome,
		"confidence":      result.Confidence,
		"classifier_rule": rule,
	}).Debug("Ensemble prediction computed")

	return result, ledger
}

// toPercent rounds a fraction to a whole percentage, half up, within [0, 100]
func toPercent(fraction float64) int {
	pct := math.Floor(fraction*100 + 0.5)
	return int(math.Max(0, math.Min(100, pct)))
}

func fixed2(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}
