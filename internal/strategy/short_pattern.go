package strategy

import (
	"fmt"

	"github.com/yourusername/hilo-oracle/internal/models"
)

// ShortPatternModel looks for a three-round motif that repeats in the last
// few rounds
type ShortPatternModel struct {
	StreakThreshold int
	Window          int
	MotifLength     int
	MotifMinCount   int
}

// NewShortPatternModel creates a short-pattern model with the production parameters
func NewShortPatternModel() *ShortPatternModel {
	return &ShortPatternModel{
		StreakThreshold: 4,
		Window:          8,
		MotifLength:     3,
		MotifMinCount:   2,
	}
}

// Name returns the ledger name of the model
func (m *ShortPatternModel) Name() string { return models.ModelShort }

// Evaluate votes on the next round
func (m *ShortPatternModel) Evaluate(ctx Context) models.Vote {
	if len(ctx.History) < minRounds {
		return models.Vote{Direction: models.DirectionNone, Rationale: "insufficient data"}
	}

	if d, ok := streakVote(ctx.Streak, m.StreakThreshold); ok {
		return models.Vote{Direction: d, Rationale: fmt.Sprintf("streak of %d %s", ctx.Streak.Length, ctx.Streak.Outcome)}
	}

	recent := ctx.History.Tail(m.Window).Outcomes()
	latest := recent[len(recent)-1]
	if motif, count := mostFrequentMotif(recent, m.MotifLength); count >= m.MotifMinCount {
		return models.Vote{
			Direction: motifVote(motif, latest),
			Rationale: fmt.Sprintf("motif %s repeated %d times", motif, count),
		}
	}

	return models.Vote{Direction: against(latest), Rationale: "no short motif, fade the last outcome"}
}
