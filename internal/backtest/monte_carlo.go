package backtest

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"
)

// MonteCarloConfig configures the coin-flip baseline simulation
type MonteCarloConfig struct {
	Iterations int
	Seed       int64
}

// MonteCarloResult compares the replay against a predictor guessing at random
type MonteCarloResult struct {
	Iterations          int                `json:"iterations"`
	ObservedHitRate     float64            `json:"observed_hit_rate"`
	MeanHitRate         float64            `json:"mean_hit_rate"`
	StdHitRate          float64            `json:"std_hit_rate"`
	PValue              float64            `json:"p_value"`
	ConfidenceIntervals map[string]float64 `json:"confidence_intervals"`
	Distribution        []float64          `json:"distribution,omitempty"`
}

// RunMonteCarlo simulates a coin-flip predictor over the same number of
// predictions. PValue is the share of runs doing at least as well as the replay.
func RunMonteCarlo(ctx context.Context, replay Metrics, cfg MonteCarloConfig) (MonteCarloResult, error) {
	if cfg.Iterations <= 0 {
		cfg.Iterations = 1000
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	result := MonteCarloResult{
		Iterations:      cfg.Iterations,
		ObservedHitRate: replay.HitRate,
	}
	if replay.Predictions == 0 {
		result.PValue = 1
		return result, nil
	}

	distribution := make([]float64, cfg.Iterations)
	atLeast := 0
	for i := 0; i < cfg.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			return MonteCarloResult{}, err
		}
		hits := 0
		for j := 0; j < replay.Predictions; j++ {
			if rng.Float64() < 0.5 {
				hits++
			}
		}
		if hits >= replay.Hits {
			atLeast++
		}
		distribution[i] = float64(hits) / float64(replay.Predictions)
	}

	result.MeanHitRate, result.StdHitRate = meanStd(distribution)
	result.PValue = float64(atLeast) / float64(cfg.Iterations)
	result.ConfidenceIntervals = CalculateConfidenceIntervals(distribution, []float64{0.9, 0.95, 0.99})
	result.Distribution = distribution
	return result, nil
}

// CalculateConfidenceIntervals computes the width of the central interval
// of the distribution for each level
func CalculateConfidenceIntervals(distribution []float64, levels []float64) map[string]float64 {
	results := make(map[string]float64)
	for _, level := range levels {
		p := (1.0 - level) / 2.0
		low := percentile(distribution, p)
		high := percentile(distribution, 1.0-p)
		results[formatPercent(level)] = high - low
	}
	return results
}

func meanStd(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	variance := 0.0
	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}
	variance /= float64(len(values))
	return mean, math.Sqrt(variance)
}

func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64{}, values...)
	sort.Float64s(sorted)
	idx := int(math.Floor(p * float64(len(sorted)-1)))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func formatPercent(level float64) string {
	return fmt.Sprintf("%.0f%%", level*100)
}
