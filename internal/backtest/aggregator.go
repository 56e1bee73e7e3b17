package backtest

import (
	"encoding/json"
)

// Replay verdicts
const (
	VerdictEdge         = "EDGE"
	VerdictInconclusive = "INCONCLUSIVE"
	VerdictNoEdge       = "NO_EDGE"
)

// AggregatedResult represents combined backtest outcomes
type AggregatedResult struct {
	RunID       string            `json:"run_id"`
	Source      string            `json:"source"`
	Replay      Metrics           `json:"replay"`
	MonteCarlo  MonteCarloResult  `json:"monte_carlo"`
	WalkForward WalkForwardResult `json:"walk_forward"`
	Verdict     string            `json:"verdict"`
	DurationMs  float64           `json:"duration_ms"`
	Curve       HitCurve          `json:"-"`
}

// AggregateResults combines the replay with its baselines
func AggregateResults(replay Metrics, monteCarlo MonteCarloResult, walkForward WalkForwardResult) AggregatedResult {
	return AggregatedResult{
		Replay:      replay,
		MonteCarlo:  monteCarlo,
		WalkForward: walkForward,
		Verdict:     GenerateVerdict(replay, monteCarlo, walkForward),
	}
}

// GenerateVerdict decides whether the replay beat chance. An edge needs a
// significant p-value and, when windows were replayed, a consistent hit rate.
func GenerateVerdict(replay Metrics, mc MonteCarloResult, wf WalkForwardResult) string {
	if replay.Predictions == 0 || replay.HitRate <= 0.5 {
		return VerdictNoEdge
	}
	consistent := len(wf.Windows) == 0 || wf.ConsistencyScore >= 0.6
	if mc.Iterations > 0 && mc.PValue < 0.05 && consistent {
		return VerdictEdge
	}
	if mc.Iterations > 0 && mc.PValue > 0.25 {
		return VerdictNoEdge
	}
	return VerdictInconclusive
}

// ToJSON exports the aggregated result to JSON
func (a AggregatedResult) ToJSON() string {
	data, _ := json.MarshalIndent(a, "", "  ")
	return string(data)
}
