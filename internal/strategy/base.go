package strategy

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/yourusername/hilo-oracle/internal/models"
)

// minRounds is the shortest history any detector votes on
const minRounds = 3

// streakBreakThreshold is the break probability above which a long streak
// is expected to end
const streakBreakThreshold = 0.75

// countSwitches counts adjacent pairs with differing outcomes
func countSwitches(outcomes []models.Outcome) int {
	switches := 0
	for i := 1; i < len(outcomes); i++ {
		if outcomes[i] != outcomes[i-1] {
			switches++
		}
	}
	return switches
}

// countOutcome counts occurrences of an outcome
func countOutcome(outcomes []models.Outcome, outcome models.Outcome) int {
	count := 0
	for _, o := range outcomes {
		if o == outcome {
			count++
		}
	}
	return count
}

// allEqual reports whether every outcome equals want; false when empty
func allEqual(outcomes []models.Outcome, want models.Outcome) bool {
	if len(outcomes) == 0 {
		return false
	}
	for _, o := range outcomes {
		if o != want {
			return false
		}
	}
	return true
}

// Motif is a run of consecutive outcomes of fixed length
type Motif []models.Outcome

// Last returns the final element of the motif
func (m Motif) Last() models.Outcome {
	return m[len(m)-1]
}

// String joins the motif with commas
func (m Motif) String() string {
	parts := make([]string, len(m))
	for i, o := range m {
		parts[i] = string(o)
	}
	return strings.Join(parts, ",")
}

// mostFrequentMotif returns the most frequent motif of the given length
// over the outcomes and its count. Ties go to the motif seen first. A nil
// motif is returned when the outcomes are shorter than length.
func mostFrequentMotif(outcomes []models.Outcome, length int) (Motif, int) {
	if length <= 0 || len(outcomes) < length {
		return nil, 0
	}

	counts := make(map[string]int)
	order := make([]string, 0)
	firstSeen := make(map[string]Motif)

	for i := 0; i+length <= len(outcomes); i++ {
		m := Motif(outcomes[i : i+length])
		key := m.String()
		if _, ok := counts[key]; !ok {
			order = append(order, key)
			firstSeen[key] = m
		}
		counts[key]++
	}

	var best Motif
	bestCount := 0
	for _, key := range order {
		if counts[key] > bestCount {
			best = firstSeen[key]
			bestCount = counts[key]
		}
	}
	return best, bestCount
}

// streakVote applies the long-streak short-circuit shared by the pattern
// detectors. The bool is false when the streak is shorter than threshold.
func streakVote(streak StreakInfo, threshold int) (models.Direction, bool) {
	if streak.Length < threshold {
		return models.DirectionNone, false
	}
	if streak.BreakProbability > streakBreakThreshold {
		return models.DirectionFor(streak.Outcome.Opposite()), true
	}
	return models.DirectionFor(streak.Outcome), true
}

// against votes for the outcome opposite to the given one
func against(outcome models.Outcome) models.Direction {
	return models.DirectionFor(outcome.Opposite())
}

// motifVote maps a repeating motif onto a vote: High when the motif ends
// differently from the latest outcome, Low otherwise.
func motifVote(m Motif, latest models.Outcome) models.Direction {
	if m.Last() != latest {
		return models.DirectionHigh
	}
	return models.DirectionLow
}

// fixed formats v with the given number of decimals, rounding half away
// from zero
func fixed(v float64, places int32) string {
	return decimal.NewFromFloat(v).StringFixed(places)
}
