package strategy

import (
	"fmt"

	"github.com/yourusername/hilo-oracle/internal/models"
)

// RecentSwitchModel measures how often the outcome flipped recently. Choppy
// and calm windows currently produce the same vote; the switch count only
// shows up in the rationale.
type RecentSwitchModel struct {
	StreakThreshold int
	Window          int
	ChoppySwitches  int
}

// NewRecentSwitchModel creates a recent-switch model with the production parameters
func NewRecentSwitchModel() *RecentSwitchModel {
	return &RecentSwitchModel{
		StreakThreshold: 4,
		Window:          10,
		ChoppySwitches:  6,
	}
}

// Name returns the ledger name of the model
func (m *RecentSwitchModel) Name() string { return models.ModelSwitch }

// Evaluate votes on the next round
func (m *RecentSwitchModel) Evaluate(ctx Context) models.Vote {
	if len(ctx.History) < minRounds {
		return models.Vote{Direction: models.DirectionNone, Rationale: "insufficient data"}
	}

	if d, ok := streakVote(ctx.Streak, m.StreakThreshold); ok {
		return models.Vote{Direction: d, Rationale: fmt.Sprintf("streak of %d %s", ctx.Streak.Length, ctx.Streak.Outcome)}
	}

	recent := ctx.History.Tail(m.Window).Outcomes()
	switches := countSwitches(recent)

	regime := "calm"
	if switches >= m.ChoppySwitches {
		regime = "choppy"
	}
	return models.Vote{
		Direction: against(recent[len(recent)-1]),
		Rationale: fmt.Sprintf("%s window with %d switches, fade the last outcome", regime, switches),
	}
}
