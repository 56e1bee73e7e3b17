package backtest

import (
	"github.com/yourusername/hilo-oracle/internal/models"
)

// Tally counts calls and correct calls
type Tally struct {
	Calls int `json:"calls"`
	Hits  int `json:"hits"`
}

// HitRate returns hits over calls, 0 without calls
func (t Tally) HitRate() float64 {
	if t.Calls == 0 {
		return 0
	}
	return float64(t.Hits) / float64(t.Calls)
}

// ReplayState tracks a replay in progress
type ReplayState struct {
	Rounds      int
	Overall     Tally
	Models      map[string]*Tally
	Buckets     map[int]*Tally
	Curve       HitCurve
	bucketWidth int

	confidenceSum int
	brierSum      float64

	currentHits   int
	currentMisses int
	LongestHits   int
	LongestMisses int
}

// NewReplayState initializes replay state
func NewReplayState(rounds, bucketWidth int) *ReplayState {
	if bucketWidth <= 0 {
		bucketWidth = 10
	}
	return &ReplayState{
		Rounds:      rounds,
		Models:      make(map[string]*Tally),
		Buckets:     make(map[int]*Tally),
		Curve:       HitCurve{},
		bucketWidth: bucketWidth,
	}
}

// Record scores one prediction against the round that followed it
func (s *ReplayState) Record(result models.PredictionResult, actual models.Round) {
	hit := result.Outcome == actual.Outcome

	s.Overall.Calls++
	if hit {
		s.Overall.Hits++
		s.currentHits++
		s.currentMisses = 0
		if s.currentHits > s.LongestHits {
			s.LongestHits = s.currentHits
		}
	} else {
		s.currentMisses++
		s.currentHits = 0
		if s.currentMisses > s.LongestMisses {
			s.LongestMisses = s.currentMisses
		}
	}

	bucket := s.bucketFor(result.Confidence)
	if s.Buckets[bucket] == nil {
		s.Buckets[bucket] = &Tally{}
	}
	s.Buckets[bucket].Calls++
	if hit {
		s.Buckets[bucket].Hits++
	}

	// a sub-model only makes a call when it votes a direction
	for name, d := range result.Votes {
		if d == models.DirectionNone {
			continue
		}
		if s.Models[name] == nil {
			s.Models[name] = &Tally{}
		}
		s.Models[name].Calls++
		if d.Matches(actual.Outcome) {
			s.Models[name].Hits++
		}
	}

	p := float64(result.Confidence) / 100
	if hit {
		s.brierSum += (1 - p) * (1 - p)
	} else {
		s.brierSum += p * p
	}
	s.confidenceSum += result.Confidence

	s.Curve = append(s.Curve, HitPoint{
		RoundID:    actual.ID,
		Predicted:  result.Outcome,
		Actual:     actual.Outcome,
		Confidence: result.Confidence,
		Hit:        hit,
		HitRate:    s.Overall.HitRate(),
	})
}

// bucketFor returns the lower bound of the confidence bucket; 100 joins the top bucket
func (s *ReplayState) bucketFor(confidence int) int {
	if confidence >= 100 {
		confidence = 99
	}
	if confidence < 0 {
		confidence = 0
	}
	return confidence / s.bucketWidth * s.bucketWidth
}
