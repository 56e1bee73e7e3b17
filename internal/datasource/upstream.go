package datasource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/hilo-oracle/internal/metrics"
	"github.com/yourusername/hilo-oracle/internal/models"
)

const upstreamSourceName = "upstream"

// UpstreamClient implements HistorySource for the HTTP round history feed
type UpstreamClient struct {
	httpClient *RateLimitedHTTPClient
	url        string
	apiKey     string
	maxRounds  int
	logger     *logrus.Entry
}

// NewUpstreamClient creates a new upstream history client
func NewUpstreamClient(httpClient *RateLimitedHTTPClient, url, apiKey string, maxRounds int, logger *logrus.Logger) *UpstreamClient {
	if logger == nil {
		logger = logrus.New()
	}
	return &UpstreamClient{
		httpClient: httpClient,
		url:        url,
		apiKey:     apiKey,
		maxRounds:  maxRounds,
		logger:     logger.WithField("source", upstreamSourceName),
	}
}

// FetchHistory retrieves and normalizes the round history
func (c *UpstreamClient) FetchHistory(ctx context.Context) (models.History, error) {
	start := time.Now()
	history, err := c.fetch(ctx)
	status := "success"
	if err != nil {
		status = "failure"
	}
	metrics.RecordUpstreamFetch(upstreamSourceName, status, time.Since(start).Seconds())
	return history, err
}

func (c *UpstreamClient) fetch(ctx context.Context) (models.History, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, NewDataSourceError(upstreamSourceName, ErrCodeNetworkError, "failed to create request", err)
	}

	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	}

	resp, err := c.httpClient.Do(ctx, req)
	if err != nil {
		if errors.Is(err, ErrCircuitOpen) {
			return nil, NewDataSourceError(upstreamSourceName, ErrCodeCircuitOpen, "upstream temporarily disabled", err)
		}
		return nil, NewDataSourceError(upstreamSourceName, ErrCodeNetworkError, "failed to fetch history", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, NewDataSourceError(upstreamSourceName, ErrCodeNotFound, "history not found", nil)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, NewDataSourceError(upstreamSourceName, ErrCodeAuthenticationFailed, "invalid API key", nil)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, NewDataSourceError(upstreamSourceName, ErrCodeRateLimitExceeded, "rate limit exceeded", nil)
	case resp.StatusCode >= http.StatusInternalServerError:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, NewDataSourceError(upstreamSourceName, ErrCodeServerError, fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, string(body)), nil)
	case resp.StatusCode != http.StatusOK:
		return nil, NewDataSourceError(upstreamSourceName, ErrCodeUnknown, fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	var records []RoundRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, NewDataSourceError(upstreamSourceName, ErrCodeInvalidData, "failed to parse response", err)
	}

	return normalizeLogged(upstreamSourceName, records, c.maxRounds, c.logger)
}

// Name returns the data source name
func (c *UpstreamClient) Name() string {
	return upstreamSourceName
}

func normalizeLogged(source string, records []RoundRecord, maxRounds int, logger *logrus.Entry) (models.History, error) {
	result, err := Normalize(source, records, maxRounds)
	if result.Rejected > 0 {
		metrics.RecordInvalidRounds(result.Rejected)
		logger.WithFields(logrus.Fields{
			"rejected":    result.Rejected,
			"first_error": result.Errors[0].Error(),
		}).Warn("Dropped malformed rounds")
	}
	if result.Duplicates > 0 {
		logger.WithField("duplicates", result.Duplicates).Debug("Dropped duplicate rounds")
	}
	if err != nil {
		return nil, err
	}
	return result.History, nil
}
