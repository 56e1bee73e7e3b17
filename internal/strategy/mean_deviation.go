package strategy

import (
	"fmt"
	"math"

	"github.com/yourusername/hilo-oracle/internal/models"
)

// MeanDeviationModel bets on reversion when one outcome dominates the
// recent window
type MeanDeviationModel struct {
	StreakThreshold int
	Window          int
	MinBalance      float64
}

// NewMeanDeviationModel creates a mean-deviation model with the production parameters
func NewMeanDeviationModel() *MeanDeviationModel {
	return &MeanDeviationModel{
		StreakThreshold: 4,
		Window:          12,
		MinBalance:      0.35,
	}
}

// Name returns the ledger name of the model
func (m *MeanDeviationModel) Name() string { return models.ModelMean }

// Evaluate votes on the next round
func (m *MeanDeviationModel) Evaluate(ctx Context) models.Vote {
	if len(ctx.History) < minRounds {
		return models.Vote{Direction: models.DirectionNone, Rationale: "insufficient data"}
	}

	if d, ok := streakVote(ctx.Streak, m.StreakThreshold); ok {
		return models.Vote{Direction: d, Rationale: fmt.Sprintf("streak of %d %s", ctx.Streak.Length, ctx.Streak.Outcome)}
	}

	recent := ctx.History.Tail(m.Window).Outcomes()
	high := countOutcome(recent, models.OutcomeHigh)
	low := len(recent) - high
	balance := math.Abs(float64(high-low)) / float64(len(recent))

	if balance < m.MinBalance {
		return models.Vote{
			Direction: against(recent[len(recent)-1]),
			Rationale: fmt.Sprintf("balanced window (%s), fade the last outcome", fixed(balance, 2)),
		}
	}

	d := models.DirectionLow
	if low > high {
		d = models.DirectionHigh
	}
	return models.Vote{Direction: d, Rationale: fmt.Sprintf("imbalance %s, revert to minority", fixed(balance, 2))}
}
