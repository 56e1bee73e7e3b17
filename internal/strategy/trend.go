package strategy

import (
	"fmt"
	"math"

	"github.com/yourusername/hilo-oracle/internal/models"
)

// TrendModel weighs recent outcomes exponentially and looks for a
// recurring four-round motif
type TrendModel struct {
	StreakThreshold int
	Window          int
	MotifWindow     int
	MotifLength     int
	MotifMinCount   int
	Decay           float64
	MinImbalance    float64
}

// NewTrendModel creates a trend model with the production parameters
func NewTrendModel() *TrendModel {
	return &TrendModel{
		StreakThreshold: 5,
		Window:          15,
		MotifWindow:     10,
		MotifLength:     4,
		MotifMinCount:   3,
		Decay:           1.2,
		MinImbalance:    0.25,
	}
}

// Name returns the ledger name of the model
func (m *TrendModel) Name() string { return models.ModelTrend }

// Evaluate votes on the next round
func (m *TrendModel) Evaluate(ctx Context) models.Vote {
	if len(ctx.History) < minRounds {
		return models.Vote{Direction: models.DirectionNone, Rationale: "insufficient data"}
	}

	if d, ok := streakVote(ctx.Streak, m.StreakThreshold); ok {
		return models.Vote{Direction: d, Rationale: fmt.Sprintf("streak of %d %s", ctx.Streak.Length, ctx.Streak.Outcome)}
	}

	recent := ctx.History.Tail(m.Window).Outcomes()
	var highScore, lowScore float64
	for i, o := range recent {
		w := math.Pow(m.Decay, float64(i))
		if o == models.OutcomeHigh {
			highScore += w
		} else {
			lowScore += w
		}
	}
	total := highScore + lowScore

	motifRecent := ctx.History.Tail(m.MotifWindow).Outcomes()
	latest := motifRecent[len(motifRecent)-1]
	if motif, count := mostFrequentMotif(motifRecent, m.MotifLength); count >= m.MotifMinCount {
		return models.Vote{
			Direction: motifVote(motif, latest),
			Rationale: fmt.Sprintf("motif %s repeated %d times", motif, count),
		}
	}

	if total > 0 && math.Abs(highScore-lowScore)/total >= m.MinImbalance {
		d := models.DirectionLow
		if highScore > lowScore {
			d = models.DirectionHigh
		}
		return models.Vote{
			Direction: d,
			Rationale: fmt.Sprintf("weighted trend %s vs %s", fixed(highScore, 2), fixed(lowScore, 2)),
		}
	}

	return models.Vote{Direction: against(recent[len(recent)-1]), Rationale: "no trend, fade the last outcome"}
}
