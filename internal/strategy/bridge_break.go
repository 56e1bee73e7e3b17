package strategy

import (
	"fmt"
	"math"

	"github.com/yourusername/hilo-oracle/internal/models"
)

// BridgeBreakModel refines the streak break probability with score
// dispersion and motif repetition, and votes on whether the streak breaks
type BridgeBreakModel struct {
	Window         int
	MotifLength    int
	MotifMinCount  int
	DeviationLimit float64
	BreakThreshold float64
	ConfirmRounds  int
}

// NewBridgeBreakModel creates a bridge-break model with the production parameters
func NewBridgeBreakModel() *BridgeBreakModel {
	return &BridgeBreakModel{
		Window:         20,
		MotifLength:    3,
		MotifMinCount:  3,
		DeviationLimit: 3,
		BreakThreshold: 0.65,
		ConfirmRounds:  5,
	}
}

// Name returns the ledger name of the model
func (m *BridgeBreakModel) Name() string { return models.ModelBridge }

// Evaluate votes on the next round and reports the adjusted break probability
func (m *BridgeBreakModel) Evaluate(ctx Context) models.Vote {
	if len(ctx.History) < minRounds {
		return models.Vote{Direction: models.DirectionNone, BreakProbability: 0, Rationale: "insufficient data"}
	}

	streak := ctx.Streak
	recent := ctx.History.Tail(m.Window)
	outcomes := recent.Outcomes()
	deviation := meanAbsoluteDeviation(recent.Scores())

	motif, count := mostFrequentMotif(outcomes, m.MotifLength)
	repeating := count >= m.MotifMinCount
	confirmed := allEqual(recent.Tail(m.ConfirmRounds).Outcomes(), streak.Outcome)

	prob := streak.BreakProbability
	var rationale string
	switch {
	case streak.Length >= 6:
		prob = math.Min(prob+0.15, 0.9)
		rationale = fmt.Sprintf("[Bridge] streak of %d %s is long, break likely", streak.Length, streak.Outcome)
	case streak.Length >= 4 && deviation > m.DeviationLimit:
		prob = math.Min(prob+0.1, 0.85)
		rationale = fmt.Sprintf("[Bridge] score deviation %s is high, break more likely", fixed(deviation, 1))
	case repeating && confirmed:
		prob = math.Min(prob+0.05, 0.8)
		rationale = fmt.Sprintf("[Bridge] repeating motif %s detected, break possible", motif)
	default:
		prob = math.Max(prob-0.15, 0.15)
		rationale = "[Bridge] no strong break signal, follow the streak"
	}

	d := models.DirectionFor(streak.Outcome)
	if prob > m.BreakThreshold {
		d = against(streak.Outcome)
	}

	return models.Vote{Direction: d, BreakProbability: prob, Rationale: rationale}
}

// meanAbsoluteDeviation returns the mean absolute deviation of the values
// from their mean; zero for an empty slice
func meanAbsoluteDeviation(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var dev float64
	for _, v := range values {
		dev += math.Abs(v - mean)
	}
	return dev / float64(len(values))
}
