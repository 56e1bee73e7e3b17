package backtest

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/yourusername/hilo-oracle/internal/models"
)

// HitPoint represents one scored prediction
type HitPoint struct {
	RoundID    int64          `json:"round_id"`
	Predicted  models.Outcome `json:"predicted"`
	Actual     models.Outcome `json:"actual"`
	Confidence int            `json:"confidence"`
	Hit        bool           `json:"hit"`
	HitRate    float64        `json:"hit_rate"`
}

// HitCurve is the cumulative hit rate over the replay
type HitCurve []HitPoint

// RollingHitRate returns the hit rate over a trailing window ending at each point
func (c HitCurve) RollingHitRate(window int) []float64 {
	if window <= 0 || len(c) == 0 {
		return []float64{}
	}
	rates := make([]float64, len(c))
	hits := 0
	for i, p := range c {
		if p.Hit {
			hits++
		}
		if i >= window && c[i-window].Hit {
			hits--
		}
		n := window
		if i+1 < window {
			n = i + 1
		}
		rates[i] = float64(hits) / float64(n)
	}
	return rates
}

// ToCSV exports the curve to CSV string
func (c HitCurve) ToCSV() string {
	var buf bytes.Buffer
	buf.WriteString("round_id,predicted,actual,confidence,hit,hit_rate\n")
	for _, p := range c {
		buf.WriteString(strconv.FormatInt(p.RoundID, 10))
		buf.WriteString(",")
		buf.WriteString(string(p.Predicted))
		buf.WriteString(",")
		buf.WriteString(string(p.Actual))
		buf.WriteString(",")
		buf.WriteString(strconv.Itoa(p.Confidence))
		buf.WriteString(",")
		buf.WriteString(strconv.FormatBool(p.Hit))
		buf.WriteString(",")
		buf.WriteString(formatFloat(p.HitRate))
		buf.WriteString("\n")
	}
	return buf.String()
}

// ToJSON exports the curve to JSON string
func (c HitCurve) ToJSON() string {
	data, _ := json.Marshal(c)
	return string(data)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
