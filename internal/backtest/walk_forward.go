package backtest

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/yourusername/hilo-oracle/internal/models"
)

// WalkForwardConfig configures windowed replays
type WalkForwardConfig struct {
	WindowRounds   int
	StepRounds     int
	MinPredictions int
}

// WalkForwardWindow represents one replayed window
type WalkForwardWindow struct {
	WindowID   int     `json:"window_id"`
	FirstRound int64   `json:"first_round"`
	LastRound  int64   `json:"last_round"`
	Metrics    Metrics `json:"metrics"`
}

// WalkForwardResult represents the windowed replay result
type WalkForwardResult struct {
	Windows          []WalkForwardWindow `json:"windows"`
	MeanHitRate      float64             `json:"mean_hit_rate"`
	HitRateSpread    float64             `json:"hit_rate_spread"`
	ConsistencyScore float64             `json:"consistency_score"`
}

// RunWalkForward replays consecutive windows of the history, each with a
// fresh ledger, to show whether the hit rate holds across regimes
func RunWalkForward(ctx context.Context, history models.History, predictor Predictor, cfg WalkForwardConfig, warmup, bucketWidth int) (WalkForwardResult, error) {
	if predictor == nil {
		return WalkForwardResult{}, fmt.Errorf("predictor is required")
	}
	if cfg.WindowRounds <= 0 {
		return WalkForwardResult{}, fmt.Errorf("window size must be positive")
	}
	if cfg.StepRounds <= 0 {
		cfg.StepRounds = cfg.WindowRounds
	}

	windows := []WalkForwardWindow{}
	windowID := 0
	for start := 0; start+cfg.WindowRounds <= len(history); start += cfg.StepRounds {
		segment := history[start : start+cfg.WindowRounds : start+cfg.WindowRounds]
		state, err := replay(ctx, segment, predictor, warmup, bucketWidth)
		if err != nil {
			return WalkForwardResult{}, err
		}

		windowID++
		m := CalculateMetrics(state)
		if m.Predictions < cfg.MinPredictions {
			continue
		}
		windows = append(windows, WalkForwardWindow{
			WindowID:   windowID,
			FirstRound: segment[0].ID,
			LastRound:  segment[len(segment)-1].ID,
			Metrics:    m,
		})
	}

	rates := make([]float64, len(windows))
	for i, w := range windows {
		rates[i] = w.Metrics.HitRate
	}
	mean, spread := meanStd(rates)

	return WalkForwardResult{
		Windows:          windows,
		MeanHitRate:      mean,
		HitRateSpread:    spread,
		ConsistencyScore: CalculateConsistency(windows),
	}, nil
}

// CalculateConsistency calculates the share of windows beating a coin flip
func CalculateConsistency(windows []WalkForwardWindow) float64 {
	if len(windows) == 0 {
		return 0
	}
	better := 0
	for _, w := range windows {
		if w.Metrics.HitRate > 0.5 {
			better++
		}
	}
	return float64(better) / float64(len(windows))
}

// ToJSON exports the walk-forward result to JSON
func (w WalkForwardResult) ToJSON() string {
	data, _ := json.Marshal(w)
	return string(data)
}
