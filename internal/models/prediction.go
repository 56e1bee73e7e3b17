package models

import "time"

// Direction is the vote code a sub-model emits. The numeric values are the
// ones stored in the ledger.
type Direction int

const (
	DirectionNone Direction = 0
	DirectionLow  Direction = 1
	DirectionHigh Direction = 2
)

// DirectionFor returns the vote code matching an outcome
func DirectionFor(outcome Outcome) Direction {
	switch outcome {
	case OutcomeHigh:
		return DirectionHigh
	case OutcomeLow:
		return DirectionLow
	default:
		return DirectionNone
	}
}

// Outcome converts the vote code into an outcome; false for DirectionNone
func (d Direction) Outcome() (Outcome, bool) {
	switch d {
	case DirectionHigh:
		return OutcomeHigh, true
	case DirectionLow:
		return OutcomeLow, true
	default:
		return "", false
	}
}

// Matches reports whether the vote called the given outcome
func (d Direction) Matches(outcome Outcome) bool {
	return d != DirectionNone && d == DirectionFor(outcome)
}

// String returns string representation of the direction
func (d Direction) String() string {
	switch d {
	case DirectionHigh:
		return "High"
	case DirectionLow:
		return "Low"
	default:
		return "None"
	}
}

// Vote is the output of a single sub-model. Only the bridge-break heuristic
// fills BreakProbability.
type Vote struct {
	Direction        Direction `json:"direction"`
	BreakProbability float64   `json:"break_probability"`
	Rationale        string    `json:"rationale,omitempty"`
}

// PredictionResult is the ensemble decision for the next round
type PredictionResult struct {
	Outcome    Outcome `json:"outcome"`
	Confidence int     `json:"confidence" validate:"gte=0,lte=100"`
	Rationale  string  `json:"rationale"`
	Bridge     *Vote   `json:"bridge,omitempty"`

	HighWeight float64              `json:"high_weight"`
	LowWeight  float64              `json:"low_weight"`
	Votes      map[string]Direction `json:"votes,omitempty"`
	Weights    map[string]float64   `json:"weights,omitempty"`
}

// Explanation returns the text shown to end users: the bridge-break
// rationale when available, otherwise the ensemble rationale.
func (p *PredictionResult) Explanation() string {
	if p.Bridge != nil && p.Bridge.Rationale != "" {
		return p.Bridge.Rationale
	}
	return p.Rationale
}

// PredictionResponse is the external shape served by the API and stream
type PredictionResponse struct {
	Session         string    `json:"session"`
	PreviousRound   int64     `json:"previous_round"`
	PreviousScore   float64   `json:"previous_score"`
	PreviousOutcome Outcome   `json:"previous_outcome"`
	NextRound       int64     `json:"next_round"`
	Prediction      Outcome   `json:"prediction"`
	Confidence      int       `json:"confidence"`
	Explanation     string    `json:"explanation"`
	Rationale       string    `json:"rationale"`
	Bridge          *Vote     `json:"bridge,omitempty"`
	GeneratedAt     time.Time `json:"generated_at"`
}

// ModelPerformance describes the rolling accuracy of one tracked sub-model
type ModelPerformance struct {
	Model      string  `json:"model"`
	Rounds     int     `json:"rounds"`
	Correct    int     `json:"correct"`
	Multiplier float64 `json:"multiplier"`
	BaseWeight float64 `json:"base_weight"`
	Weight     float64 `json:"weight"`
	LedgerSize int     `json:"ledger_size"`
}
