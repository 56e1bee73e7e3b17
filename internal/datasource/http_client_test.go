package datasource

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClientConfig() HTTPClientConfig {
	return HTTPClientConfig{
		Timeout:             2 * time.Second,
		MaxRetries:          0,
		RetryWaitMin:        time.Millisecond,
		RetryWaitMax:        time.Millisecond,
		CircuitBreakerMax:   2,
		CircuitBreakerReset: time.Minute,
	}
}

// TestHTTPClientCircuitBreaker tests open, half-open and close transitions
func TestHTTPClientCircuitBreaker(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusServiceUnavailable)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(status.Load()))
	}))
	defer server.Close()

	client := NewRateLimitedHTTPClient(testClientConfig(), nil)
	defer client.Close()

	now := time.Now()
	client.now = func() time.Time { return now }

	var states []string
	client.OnStateChange(func(state string, _ int, _ error) {
		states = append(states, state)
	})

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		resp, err := client.Get(ctx, server.URL)
		require.NoError(t, err)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		resp.Body.Close()
	}
	assert.Equal(t, CircuitOpen, client.State())

	_, err := client.Get(ctx, server.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCircuitOpen))

	// After the reset timeout a trial request is let through
	now = now.Add(2 * time.Minute)
	status.Store(http.StatusOK)
	resp, err := client.Get(ctx, server.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, CircuitClosed, client.State())
	assert.Equal(t, []string{CircuitOpen, CircuitHalfOpen, CircuitClosed}, states)
}

// TestHTTPClientHalfOpenFailure tests that a failed trial reopens the circuit
func TestHTTPClientHalfOpenFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewRateLimitedHTTPClient(testClientConfig(), nil)
	now := time.Now()
	client.now = func() time.Time { return now }

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		resp, err := client.Get(ctx, server.URL)
		require.NoError(t, err)
		resp.Body.Close()
	}
	require.Equal(t, CircuitOpen, client.State())

	now = now.Add(2 * time.Minute)
	resp, err := client.Get(ctx, server.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, CircuitOpen, client.State())
}

// TestHTTPClientRetries tests that retryable statuses are retried
func TestHTTPClientRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := testClientConfig()
	cfg.MaxRetries = 3
	client := NewRateLimitedHTTPClient(cfg, nil)

	resp, err := client.Get(context.Background(), server.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, CircuitClosed, client.State())
}

// TestHTTPClientRateLimit tests rate limiting functionality
func TestHTTPClientRateLimit(t *testing.T) {
	cfg := testClientConfig()
	cfg.RateLimit = 20
	client := NewRateLimitedHTTPClient(cfg, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	for i := 0; i < 5; i++ {
		require.NoError(t, client.limiter.Wait(ctx))
	}
	// Burst of one, so four waits of 50ms each
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}

// TestCustomRetryPolicy tests retry decisions per status
func TestCustomRetryPolicy(t *testing.T) {
	policy := customRetryPolicy()
	ctx := context.Background()

	tests := []struct {
		status int
		retry  bool
	}{
		{http.StatusOK, false},
		{http.StatusNotFound, false},
		{http.StatusUnauthorized, false},
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusServiceUnavailable, true},
		{http.StatusNotImplemented, false},
	}

	for _, tt := range tests {
		retry, err := policy(ctx, &http.Response{StatusCode: tt.status}, nil)
		assert.NoError(t, err)
		assert.Equal(t, tt.retry, retry, "status %d", tt.status)
	}

	retry, err := policy(ctx, nil, errors.New("connection reset"))
	assert.NoError(t, err)
	assert.True(t, retry)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	retry, err = policy(cancelled, nil, errors.New("connection reset"))
	assert.Error(t, err)
	assert.False(t, retry)
}
