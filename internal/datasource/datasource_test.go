package datasource

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/hilo-oracle/internal/config"
	"github.com/yourusername/hilo-oracle/internal/models"
)

func int64Ptr(v int64) *int64       { return &v }
func strPtr(v string) *string       { return &v }
func float64Ptr(v float64) *float64 { return &v }

func englishRecord(id int64, result string, score float64) RoundRecord {
	return RoundRecord{Session: int64Ptr(id), Result: strPtr(result), TotalScore: float64Ptr(score)}
}

func legacyRecord(id int64, result string, score float64) RoundRecord {
	return RoundRecord{Phien: int64Ptr(id), KetQua: strPtr(result), Tong: float64Ptr(score)}
}

// TestRoundRecordToRound tests both upstream field sets
func TestRoundRecordToRound(t *testing.T) {
	tests := []struct {
		name    string
		record  RoundRecord
		want    models.Round
		wantErr bool
	}{
		{"english fields", englishRecord(10, "High", 12), models.Round{ID: 10, Outcome: models.OutcomeHigh, Score: 12}, false},
		{"legacy fields", legacyRecord(11, "Xỉu", 7), models.Round{ID: 11, Outcome: models.OutcomeLow, Score: 7}, false},
		{"english wins", RoundRecord{Session: int64Ptr(5), Phien: int64Ptr(6), Result: strPtr("T"), Tong: float64Ptr(14)},
			models.Round{ID: 5, Outcome: models.OutcomeHigh, Score: 14}, false},
		{"unknown label", englishRecord(12, "Draw", 9), models.Round{}, true},
		{"missing id", RoundRecord{Result: strPtr("High")}, models.Round{}, true},
		{"negative score", englishRecord(13, "Low", -1), models.Round{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.record.ToRound()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestNormalize tests ordering, duplicates, rejection and truncation
func TestNormalize(t *testing.T) {
	records := []RoundRecord{
		legacyRecord(103, "Tài", 12),
		englishRecord(101, "Low", 6),
		englishRecord(102, "bogus", 9),
		englishRecord(104, "High", 15),
		legacyRecord(101, "Tài", 13),
		englishRecord(105, "Xiu", 8),
	}

	result, err := Normalize("test", records, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Rejected)
	assert.Equal(t, 1, result.Duplicates)
	require.Len(t, result.History, 4)

	ids := make([]int64, len(result.History))
	for i, r := range result.History {
		ids[i] = r.ID
	}
	assert.Equal(t, []int64{101, 103, 104, 105}, ids)
	// First occurrence of a duplicate id wins
	assert.Equal(t, models.OutcomeLow, result.History[0].Outcome)

	truncated, err := Normalize("test", records, 2)
	require.NoError(t, err)
	require.Len(t, truncated.History, 2)
	assert.Equal(t, int64(104), truncated.History[0].ID)
}

// TestNormalizeAllInvalid tests the all-malformed failure
func TestNormalizeAllInvalid(t *testing.T) {
	_, err := Normalize("test", []RoundRecord{englishRecord(1, "?", 3)}, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidData))
}

// TestNormalizeEmpty tests that an empty feed is not an error
func TestNormalizeEmpty(t *testing.T) {
	result, err := Normalize("test", nil, 0)
	require.NoError(t, err)
	assert.Empty(t, result.History)
}

// TestDataSourceErrorMatching tests sentinel matching and unwrapping
func TestDataSourceErrorMatching(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("fetch: %w", NewDataSourceError("upstream", ErrCodeNetworkError, "failed", cause))

	assert.True(t, errors.Is(err, ErrNetworkError))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, ErrServerError))

	var dsErr DataSourceError
	require.True(t, errors.As(err, &dsErr))
	assert.Equal(t, "upstream", dsErr.Source)
	assert.Contains(t, dsErr.Error(), "connection refused")

	unknown := NewDataSourceError("upstream", ErrCodeUnknown, "odd", nil)
	assert.False(t, errors.Is(unknown, ErrNotFound))
	assert.Equal(t, "upstream: unknown: odd", unknown.Error())
}

// TestDataSourceFactoryCreate tests factory creation
func TestDataSourceFactoryCreate(t *testing.T) {
	tests := []struct {
		name        string
		cfg         config.UpstreamConfig
		wantName    string
		shouldError bool
	}{
		{"http", config.UpstreamConfig{Source: config.SourceHTTP, URL: "http://localhost/history"}, upstreamSourceName, false},
		{"http without url", config.UpstreamConfig{Source: config.SourceHTTP}, "", true},
		{"file", config.UpstreamConfig{Source: config.SourceFile, FilePath: "history.json", CacheTTLSeconds: 2}, fileSourceName, false},
		{"file without path", config.UpstreamConfig{Source: config.SourceFile}, "", true},
		{"unknown", config.UpstreamConfig{Source: "kafka"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source, err := NewFactory(tt.cfg, nil).Create()
			if tt.shouldError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, source.Name())
		})
	}
}

// BenchmarkNormalize benchmarks normalization performance
func BenchmarkNormalize(b *testing.B) {
	records := make([]RoundRecord, 500)
	for i := range records {
		records[i] = legacyRecord(int64(500-i), "Tài", 11)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Normalize("bench", records, 100)
	}
}
