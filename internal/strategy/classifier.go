package strategy

import (
	"fmt"

	"github.com/yourusername/hilo-oracle/internal/models"
)

// Classifier rule identifiers, exposed for logging and tests
const (
	RuleInsufficient = "insufficient_history"
	RuleAlternation  = "alternation_1_1"
	RulePairs        = "pairs_2_2"
	RuleLongRun      = "long_run"
	RuleScoreAverage = "score_average"
	RuleRecentMajor  = "recent_majority"
	RuleTotalMajor   = "total_majority"
	RuleBalanced     = "balanced"
)

// ClassifierModel is an ordered decision list over short motifs, long
// runs and score averages. The first rule that fires decides.
type ClassifierModel struct {
	RunLength      int
	RunMinHistory  int
	ScoreWindow    int
	HighScoreAbove float64
	LowScoreBelow  float64
	RecentMargin   int
	TotalMargin    int
}

// NewClassifierModel creates a classifier with the production parameters
func NewClassifierModel() *ClassifierModel {
	return &ClassifierModel{
		RunLength:      6,
		RunMinHistory:  9,
		ScoreWindow:    5,
		HighScoreAbove: 10,
		LowScoreBelow:  8,
		RecentMargin:   1,
		TotalMargin:    2,
	}
}

// Name returns the model name
func (m *ClassifierModel) Name() string { return models.ModelClassifier }

// Evaluate votes on the next round
func (m *ClassifierModel) Evaluate(ctx Context) models.Vote {
	vote, _ := m.Classify(ctx)
	return vote
}

// Classify returns the vote together with the identifier of the rule that fired
func (m *ClassifierModel) Classify(ctx Context) (models.Vote, string) {
	h := ctx.History
	if len(h) < minRounds {
		o := RandomOutcome(ctx.Rand)
		return classified(o, "[Classifier] insufficient history, random pick"), RuleInsufficient
	}

	three := Motif(h.Tail(3).Outcomes())
	switch {
	case sameMotif(three, models.OutcomeHigh, models.OutcomeLow, models.OutcomeHigh):
		return classified(models.OutcomeLow, "[Classifier] 1-1 alternation High-Low-High, next Low"), RuleAlternation
	case sameMotif(three, models.OutcomeLow, models.OutcomeHigh, models.OutcomeLow):
		return classified(models.OutcomeHigh, "[Classifier] 1-1 alternation Low-High-Low, next High"), RuleAlternation
	}

	if len(h) >= 4 {
		four := Motif(h.Tail(4).Outcomes())
		switch {
		case sameMotif(four, models.OutcomeHigh, models.OutcomeHigh, models.OutcomeLow, models.OutcomeLow):
			return classified(models.OutcomeHigh, "[Classifier] 2-2 pairs High-High-Low-Low, next High"), RulePairs
		case sameMotif(four, models.OutcomeLow, models.OutcomeLow, models.OutcomeHigh, models.OutcomeHigh):
			return classified(models.OutcomeLow, "[Classifier] 2-2 pairs Low-Low-High-High, next Low"), RulePairs
		}
	}

	if len(h) >= m.RunMinHistory {
		run := h.Tail(m.RunLength).Outcomes()
		switch {
		case allEqual(run, models.OutcomeHigh):
			return classified(models.OutcomeLow, fmt.Sprintf("[Classifier] High run of %d, next Low", m.RunLength)), RuleLongRun
		case allEqual(run, models.OutcomeLow):
			return classified(models.OutcomeHigh, fmt.Sprintf("[Classifier] Low run of %d, next High", m.RunLength)), RuleLongRun
		}
	}

	window := h.Tail(m.ScoreWindow)
	avg := mean(window.Scores())
	switch {
	case avg > m.HighScoreAbove:
		return classified(models.OutcomeHigh, fmt.Sprintf("[Classifier] high average score (%s), next High", fixed(avg, 1))), RuleScoreAverage
	case avg < m.LowScoreBelow:
		return classified(models.OutcomeLow, fmt.Sprintf("[Classifier] low average score (%s), next Low", fixed(avg, 1))), RuleScoreAverage
	}

	high := window.Count(models.OutcomeHigh)
	low := window.Count(models.OutcomeLow)
	switch {
	case high > low+m.RecentMargin:
		return classified(models.OutcomeLow, fmt.Sprintf("[Classifier] High dominates recent rounds (%d/%d), next Low", high, len(window))), RuleRecentMajor
	case low > high+m.RecentMargin:
		return classified(models.OutcomeHigh, fmt.Sprintf("[Classifier] Low dominates recent rounds (%d/%d), next High", low, len(window))), RuleRecentMajor
	}

	totalHigh := h.Count(models.OutcomeHigh)
	totalLow := h.Count(models.OutcomeLow)
	switch {
	case totalHigh > totalLow+m.TotalMargin:
		return classified(models.OutcomeLow, fmt.Sprintf("[Classifier] High leads overall (%d vs %d), next Low", totalHigh, totalLow)), RuleTotalMajor
	case totalLow > totalHigh+m.TotalMargin:
		return classified(models.OutcomeHigh, fmt.Sprintf("[Classifier] Low leads overall (%d vs %d), next High", totalLow, totalHigh)), RuleTotalMajor
	}

	o := RandomOutcome(ctx.Rand)
	return classified(o, "[Classifier] balanced history, random pick"), RuleBalanced
}

func classified(o models.Outcome, rationale string) models.Vote {
	return models.Vote{Direction: models.DirectionFor(o), Rationale: rationale}
}

func sameMotif(m Motif, want ...models.Outcome) bool {
	if len(m) != len(want) {
		return false
	}
	for i := range m {
		if m[i] != want[i] {
			return false
		}
	}
	return true
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
