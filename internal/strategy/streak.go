package strategy

import (
	"math"

	"github.com/yourusername/hilo-oracle/internal/models"
)

// streakWindow is the trailing window used for switch and balance counts
const streakWindow = 15

// StreakInfo summarises the trailing run of identical outcomes
type StreakInfo struct {
	Length           int            `json:"length"`
	Outcome          models.Outcome `json:"outcome,omitempty"`
	Switches         int            `json:"switches"`
	Balance          float64        `json:"balance"`
	BreakProbability float64        `json:"break_probability"`
}

// AnalyzeStreak measures the current streak and estimates the probability
// that it is about to break. An empty history yields the zero value.
func AnalyzeStreak(history models.History) StreakInfo {
	last, ok := history.Last()
	if !ok {
		return StreakInfo{}
	}

	info := StreakInfo{Length: 1, Outcome: last.Outcome}
	for i := len(history) - 2; i >= 0; i-- {
		if history[i].Outcome != last.Outcome {
			break
		}
		info.Length++
	}

	recent := history.Tail(streakWindow).Outcomes()
	info.Switches = countSwitches(recent)
	high := countOutcome(recent, models.OutcomeHigh)
	low := countOutcome(recent, models.OutcomeLow)
	info.Balance = math.Abs(float64(high-low)) / float64(len(recent))

	switches := float64(info.Switches)
	switch {
	case info.Length >= 8:
		info.BreakProbability = math.Min(0.6+switches/15+info.Balance*0.15, 0.9)
	case info.Length >= 5:
		info.BreakProbability = math.Min(0.35+switches/10+info.Balance*0.25, 0.85)
	case info.Length >= 3 && info.Switches >= 7:
		info.BreakProbability = 0.3
	}

	return info
}

// IsBadPattern reports whether the recent history is too choppy or too
// streaky to trust the ensemble fully
func IsBadPattern(history models.History, streak StreakInfo) bool {
	if len(history) < minRounds {
		return false
	}
	switches := countSwitches(history.Tail(streakWindow).Outcomes())
	return switches >= 9 || streak.Length >= 10
}
