package models

// Outcome represents the binary result a round resolves to (High or Low)
type Outcome string

const (
	OutcomeHigh Outcome = "High"
	OutcomeLow  Outcome = "Low"
)

// Opposite returns the other outcome
func (o Outcome) Opposite() Outcome {
	if o == OutcomeHigh {
		return OutcomeLow
	}
	return OutcomeHigh
}

// IsValid reports whether the outcome is High or Low
func (o Outcome) IsValid() bool {
	return o == OutcomeHigh || o == OutcomeLow
}

// Round represents one resolved game round
type Round struct {
	ID      int64   `json:"id" validate:"required"`
	Outcome Outcome `json:"outcome" validate:"required,oneof=High Low"`
	Score   float64 `json:"score" validate:"gte=0"`
}

// History is a chronological sequence of rounds, oldest first
type History []Round

// Last returns the most recent round and false when the history is empty
func (h History) Last() (Round, bool) {
	if len(h) == 0 {
		return Round{}, false
	}
	return h[len(h)-1], true
}

// Tail returns up to the last n rounds. Fewer rounds are returned when the
// history is shorter than n.
func (h History) Tail(n int) History {
	if n <= 0 {
		return History{}
	}
	if n >= len(h) {
		return h
	}
	return h[len(h)-n:]
}

// Outcomes returns the outcome sequence of the history
func (h History) Outcomes() []Outcome {
	outcomes := make([]Outcome, len(h))
	for i, r := range h {
		outcomes[i] = r.Outcome
	}
	return outcomes
}

// Scores returns the score sequence of the history
func (h History) Scores() []float64 {
	scores := make([]float64, len(h))
	for i, r := range h {
		scores[i] = r.Score
	}
	return scores
}

// Count returns how many rounds resolved to the given outcome
func (h History) Count(outcome Outcome) int {
	count := 0
	for _, r := range h {
		if r.Outcome == outcome {
			count++
		}
	}
	return count
}
