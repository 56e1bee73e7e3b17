package backtest

import (
	"encoding/json"
	"sort"
)

// ModelStats is the replay accuracy of one sub-model
type ModelStats struct {
	Model   string  `json:"model"`
	Calls   int     `json:"calls"`
	Hits    int     `json:"hits"`
	HitRate float64 `json:"hit_rate"`
}

// BucketStats is the replay accuracy of predictions within a confidence range
type BucketStats struct {
	Low     int     `json:"low"`
	High    int     `json:"high"`
	Calls   int     `json:"calls"`
	Hits    int     `json:"hits"`
	HitRate float64 `json:"hit_rate"`
}

// Metrics represents backtest performance metrics
type Metrics struct {
	Rounds            int           `json:"rounds"`
	Predictions       int           `json:"predictions"`
	Hits              int           `json:"hits"`
	HitRate           float64       `json:"hit_rate"`
	MeanConfidence    float64       `json:"mean_confidence"`
	BrierScore        float64       `json:"brier_score"`
	LongestHitStreak  int           `json:"longest_hit_streak"`
	LongestMissStreak int           `json:"longest_miss_streak"`
	Models            []ModelStats  `json:"models"`
	Buckets           []BucketStats `json:"buckets"`
}

// CalculateMetrics calculates metrics from replay state
func CalculateMetrics(state *ReplayState) Metrics {
	if state == nil {
		return Metrics{}
	}

	m := Metrics{
		Rounds:            state.Rounds,
		Predictions:       state.Overall.Calls,
		Hits:              state.Overall.Hits,
		HitRate:           state.Overall.HitRate(),
		LongestHitStreak:  state.LongestHits,
		LongestMissStreak: state.LongestMisses,
		Models:            make([]ModelStats, 0, len(state.Models)),
		Buckets:           make([]BucketStats, 0, len(state.Buckets)),
	}
	if m.Predictions > 0 {
		m.MeanConfidence = float64(state.confidenceSum) / float64(m.Predictions)
		m.BrierScore = state.brierSum / float64(m.Predictions)
	}

	for name, t := range state.Models {
		m.Models = append(m.Models, ModelStats{Model: name, Calls: t.Calls, Hits: t.Hits, HitRate: t.HitRate()})
	}
	sort.Slice(m.Models, func(i, j int) bool { return m.Models[i].Model < m.Models[j].Model })

	for low, t := range state.Buckets {
		m.Buckets = append(m.Buckets, BucketStats{
			Low:     low,
			High:    low + state.bucketWidth,
			Calls:   t.Calls,
			Hits:    t.Hits,
			HitRate: t.HitRate(),
		})
	}
	sort.Slice(m.Buckets, func(i, j int) bool { return m.Buckets[i].Low < m.Buckets[j].Low })

	return m
}

// ModelHitRates returns the hit rate of every sub-model keyed by name
func (m Metrics) ModelHitRates() map[string]float64 {
	rates := make(map[string]float64, len(m.Models))
	for _, s := range m.Models {
		rates[s.Model] = s.HitRate
	}
	return rates
}

// ToJSON exports metrics to JSON
func (m Metrics) ToJSON() string {
	data, _ := json.Marshal(m)
	return string(data)
}
