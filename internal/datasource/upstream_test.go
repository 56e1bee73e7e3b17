package datasource

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/hilo-oracle/internal/models"
)

const legacyFeed = `[
	{"Phien": 2002, "Ket_qua": "Xỉu", "Tong": 8},
	{"Phien": 2001, "Ket_qua": "Tài", "Tong": 13},
	{"Phien": 2003, "Ket_qua": "???", "Tong": 9},
	{"Phien": 2004, "Ket_qua": "Tài", "Tong": 16}
]`

func newTestUpstream(t *testing.T, handler http.HandlerFunc, apiKey string) *UpstreamClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewUpstreamClient(NewRateLimitedHTTPClient(testClientConfig(), nil), server.URL, apiKey, 0, nil)
}

// TestUpstreamFetchHistory tests decoding and normalization of the feed
func TestUpstreamFetchHistory(t *testing.T) {
	var auth string
	client := newTestUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(legacyFeed))
	}, "secret")

	history, err := client.FetchHistory(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret", auth)
	assert.Equal(t, upstreamSourceName, client.Name())

	require.Len(t, history, 3)
	assert.Equal(t, models.Round{ID: 2001, Outcome: models.OutcomeHigh, Score: 13}, history[0])
	assert.Equal(t, models.Round{ID: 2002, Outcome: models.OutcomeLow, Score: 8}, history[1])
	assert.Equal(t, int64(2004), history[2].ID)
}

// TestUpstreamStatusMapping tests error classification per response
func TestUpstreamStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"not found", http.StatusNotFound, "", ErrNotFound},
		{"unauthorized", http.StatusUnauthorized, "", ErrAuthenticationFailed},
		{"rate limited", http.StatusTooManyRequests, "", ErrRateLimitExceeded},
		{"server error", http.StatusServiceUnavailable, "down", ErrServerError},
		{"bad json", http.StatusOK, "{not json", ErrInvalidData},
		{"all malformed", http.StatusOK, `[{"session": 1, "result": "?"}]`, ErrInvalidData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestUpstream(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}, "")

			_, err := client.FetchHistory(context.Background())
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

// TestUpstreamEmptyFeed tests that an empty array is a valid empty history
func TestUpstreamEmptyFeed(t *testing.T) {
	client := newTestUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}, "")

	history, err := client.FetchHistory(context.Background())
	require.NoError(t, err)
	assert.Empty(t, history)
}

// TestUpstreamNetworkError tests an unreachable upstream
func TestUpstreamNetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := NewUpstreamClient(NewRateLimitedHTTPClient(testClientConfig(), nil), url, "", 0, nil)
	_, err := client.FetchHistory(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNetworkError))
}

// TestFileSource tests reading a history export from disk
func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	require.NoError(t, os.WriteFile(path, []byte(legacyFeed), 0o600))

	source := NewFileSource(path, 2, nil)
	history, err := source.FetchHistory(context.Background())
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, int64(2002), history[0].ID)
	assert.Equal(t, fileSourceName, source.Name())

	_, err = NewFileSource(filepath.Join(t.TempDir(), "missing.json"), 0, nil).FetchHistory(context.Background())
	assert.True(t, errors.Is(err, ErrNotFound))
}
