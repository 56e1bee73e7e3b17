package ensemble

import (
	"math"

	"github.com/yourusername/hilo-oracle/internal/models"
)

const (
	trackerRounds = 10
	minMultiplier = 0.5
	maxMultiplier = 1.5
)

// Multiplier returns the accuracy multiplier of a tracked sub-model
func Multiplier(history models.History, ledger models.Ledger, model string) float64 {
	return Evaluate(history, ledger, model).Multiplier
}

// Evaluate scores the last resolved votes of a sub-model. The vote stored
// under round i is compared with the outcome of round i+1. Models with no
// ledger slot or histories shorter than two rounds are neutral.
func Evaluate(history models.History, ledger models.Ledger, model string) models.ModelPerformance {
	perf := models.ModelPerformance{
		Model:      model,
		Multiplier: 1,
		LedgerSize: ledger.Size(model),
	}
	if !ledger.Has(model) || len(history) < 2 {
		return perf
	}

	rounds := len(history) - 1
	if rounds > trackerRounds {
		rounds = trackerRounds
	}

	correct := 0
	n := len(history)
	for i := 0; i < rounds; i++ {
		vote, _ := ledger.Lookup(model, history[n-2-i].ID)
		if vote.Matches(history[n-1-i].Outcome) {
			correct++
		}
	}

	half := float64(rounds) / 2
	score := 1 + (float64(correct)-half)/half

	perf.Rounds = rounds
	perf.Correct = correct
	perf.Multiplier = math.Max(minMultiplier, math.Min(maxMultiplier, score))
	return perf
}
