package backtest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// GenerateConsoleReport formats the result for terminal output
func GenerateConsoleReport(result AggregatedResult) string {
	var b strings.Builder
	r := result.Replay
	b.WriteString("Backtest Report\n")
	b.WriteString("================\n")
	fmt.Fprintf(&b, "Run: %s (%s)\n", result.RunID, result.Source)
	fmt.Fprintf(&b, "Rounds: %d  Predictions: %d  Hits: %d\n", r.Rounds, r.Predictions, r.Hits)
	fmt.Fprintf(&b, "Hit Rate: %.2f%%\n", r.HitRate*100)
	fmt.Fprintf(&b, "Mean Confidence: %.1f%%\n", r.MeanConfidence)
	fmt.Fprintf(&b, "Brier Score: %.4f\n", r.BrierScore)
	fmt.Fprintf(&b, "Longest Hit/Miss Streak: %d/%d\n", r.LongestHitStreak, r.LongestMissStreak)

	if len(r.Models) > 0 {
		b.WriteString("\nSub-models\n")
		for _, m := range r.Models {
			fmt.Fprintf(&b, "  %-10s %6.2f%%  (%d/%d)\n", m.Model, m.HitRate*100, m.Hits, m.Calls)
		}
	}
	if len(r.Buckets) > 0 {
		b.WriteString("\nConfidence buckets\n")
		for _, bk := range r.Buckets {
			fmt.Fprintf(&b, "  %3d-%-3d    %6.2f%%  (%d/%d)\n", bk.Low, bk.High, bk.HitRate*100, bk.Hits, bk.Calls)
		}
	}

	if result.MonteCarlo.Iterations > 0 {
		fmt.Fprintf(&b, "\nRandom baseline: %.2f%% mean over %d runs, p-value %.4f\n",
			result.MonteCarlo.MeanHitRate*100, result.MonteCarlo.Iterations, result.MonteCarlo.PValue)
	}
	if len(result.WalkForward.Windows) > 0 {
		fmt.Fprintf(&b, "Walk-forward: %d windows, mean %.2f%%, consistency %.2f\n",
			len(result.WalkForward.Windows), result.WalkForward.MeanHitRate*100, result.WalkForward.ConsistencyScore)
	}
	fmt.Fprintf(&b, "Verdict: %s\n", result.Verdict)
	return b.String()
}

// GenerateCSVExport exports key metrics for spreadsheets
func GenerateCSVExport(result AggregatedResult, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	var b strings.Builder
	b.WriteString("metric,value\n")
	fmt.Fprintf(&b, "predictions,%d\n", result.Replay.Predictions)
	fmt.Fprintf(&b, "hits,%d\n", result.Replay.Hits)
	fmt.Fprintf(&b, "hit_rate,%.4f\n", result.Replay.HitRate)
	fmt.Fprintf(&b, "brier_score,%.4f\n", result.Replay.BrierScore)
	for _, m := range result.Replay.Models {
		fmt.Fprintf(&b, "hit_rate_%s,%.4f\n", m.Model, m.HitRate)
	}
	fmt.Fprintf(&b, "p_value,%.4f\n", result.MonteCarlo.PValue)
	fmt.Fprintf(&b, "consistency_score,%.4f\n", result.WalkForward.ConsistencyScore)
	fmt.Fprintf(&b, "verdict,%s\n", result.Verdict)
	return os.WriteFile(outputPath, []byte(b.String()), 0o644)
}

// WriteReports writes the JSON summary and the hit curve CSV into dir
func WriteReports(result AggregatedResult, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "summary.json"), []byte(result.ToJSON()), 0o644); err != nil {
		return err
	}
	if err := GenerateCSVExport(result, filepath.Join(dir, "metrics.csv")); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "hit_curve.csv"), []byte(result.Curve.ToCSV()), 0o644)
}
