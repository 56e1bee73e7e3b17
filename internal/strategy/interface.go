// Package strategy implements the heuristic sub-models that vote on the
// outcome of the next round.
package strategy

import (
	"github.com/yourusername/hilo-oracle/internal/models"
)

// SubModel defines the interface for a single voting heuristic
type SubModel interface {
	Name() string
	Evaluate(ctx Context) models.Vote
}

// Random is the source of randomness used by fallback branches. *rand.Rand
// satisfies it.
type Random interface {
	Float64() float64
}

// Context provides a sub-model with everything it may read for one
// invocation. Streak is computed once by the caller.
type Context struct {
	History models.History
	Streak  StreakInfo
	Rand    Random
}

// NewContext builds a context, running the streak analyzer over the history
func NewContext(history models.History, rnd Random) Context {
	return Context{
		History: history,
		Streak:  AnalyzeStreak(history),
		Rand:    rnd,
	}
}

// RandomOutcome picks High or Low with equal probability
func RandomOutcome(rnd Random) models.Outcome {
	if rnd.Float64() < 0.5 {
		return models.OutcomeHigh
	}
	return models.OutcomeLow
}
