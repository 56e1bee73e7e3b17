package datasource

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/hilo-oracle/internal/config"
	"github.com/yourusername/hilo-oracle/internal/logger"
	"github.com/yourusername/hilo-oracle/internal/metrics"
)

// Factory creates HistorySource implementations based on configuration
type Factory struct {
	logger *logrus.Logger
	config config.UpstreamConfig
}

// NewFactory creates a new data source factory
func NewFactory(cfg config.UpstreamConfig, logger *logrus.Logger) *Factory {
	if logger == nil {
		logger = logrus.New()
	}
	return &Factory{
		logger: logger,
		config: cfg,
	}
}

// HTTPClientConfig derives the HTTP client settings from the upstream configuration
func (f *Factory) HTTPClientConfig() HTTPClientConfig {
	return HTTPClientConfig{
		Timeout:             time.Duration(f.config.TimeoutSeconds) * time.Second,
		MaxRetries:          f.config.MaxRetries,
		RetryWaitMin:        time.Duration(f.config.RetryWaitMinMillis) * time.Millisecond,
		RetryWaitMax:        time.Duration(f.config.RetryWaitMaxMillis) * time.Millisecond,
		RateLimit:           f.config.RateLimit,
		CircuitBreakerMax:   f.config.CircuitBreakerMax,
		CircuitBreakerReset: time.Duration(f.config.CircuitBreakerResetSeconds) * time.Second,
	}
}

// Create builds the configured source, fronted by the history cache
func (f *Factory) Create() (*CachedSource, error) {
	source, err := f.createSource()
	if err != nil {
		return nil, err
	}

	f.logger.WithFields(logrus.Fields{
		"source":    source.Name(),
		"cache_ttl": f.config.CacheTTL().String(),
	}).Info("Created history source")

	return NewCachedSource(source, f.config.CacheTTL(), logger.NewPredictionLogger(f.logger)), nil
}

func (f *Factory) createSource() (HistorySource, error) {
	switch f.config.Source {
	case config.SourceHTTP:
		if f.config.URL == "" {
			return nil, fmt.Errorf("upstream url is required for the %s source", config.SourceHTTP)
		}
		httpClient := NewRateLimitedHTTPClient(f.HTTPClientConfig(), f.logger)
		audit := logger.NewAuditLogger(f.logger)
		httpClient.OnStateChange(func(state string, consecutiveErrors int, lastErr error) {
			if state == CircuitOpen {
				metrics.RecordCircuitBreakerTrip()
			}
			audit.LogCircuitBreakerEvent(upstreamSourceName, state, consecutiveErrors, lastErr)
		})
		return NewUpstreamClient(httpClient, f.config.URL, f.config.APIKey, f.config.MaxRounds, f.logger), nil

	case config.SourceFile:
		if f.config.FilePath == "" {
			return nil, fmt.Errorf("upstream file_path is required for the %s source", config.SourceFile)
		}
		return NewFileSource(f.config.FilePath, f.config.MaxRounds, f.logger), nil

	default:
		return nil, fmt.Errorf("unknown data source: %s", f.config.Source)
	}
}
