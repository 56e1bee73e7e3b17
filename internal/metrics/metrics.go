// Package metrics provides the centralized Prometheus metrics registry for hilo-oracle.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hilo_oracle"

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	PredictionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "predictions_total",
		Help:      "Total number of predictions by session and predicted outcome",
	}, []string{"session", "outcome"})
	RoundsObservedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rounds_observed_total",
		Help:      "Total number of new rounds observed per session",
	}, []string{"session"})
	UpstreamFetchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "upstream_fetches_total",
		Help:      "Total number of history fetches by source and status",
	}, []string{"source", "status"})
	UpstreamCacheRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "upstream_cache_requests_total",
		Help:      "Total number of history cache lookups by result",
	}, []string{"result"})
	InvalidRoundsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "invalid_rounds_total",
		Help:      "Total number of upstream rounds rejected during normalization",
	})
	CircuitBreakerTripsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "circuit_breaker_trips_total",
		Help:      "Total number of circuit breaker trips",
	})
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of API requests by route and status code",
	}, []string{"route", "status"})
)

// Gauge metrics
var (
	StreamClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "stream_clients",
		Help:      "Number of connected prediction stream clients",
	})
	LedgerEntries = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ledger_entries",
		Help:      "Number of votes held in the ledger per session",
	}, []string{"session"})
	LastRoundID = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_round_id",
		Help:      "Id of the most recent round seen per session",
	}, []string{"session"})
)

// Histogram metrics
var (
	PredictionConfidence = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "prediction_confidence",
		Help:      "Confidence percentage of generated predictions",
		Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
	})
	PredictionDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "prediction_duration_seconds",
		Help:      "Duration of the prediction pipeline in seconds",
		Buckets:   prometheus.DefBuckets,
	})
	UpstreamFetchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "upstream_fetch_duration_seconds",
		Help:      "Latency of upstream history fetches in seconds",
		Buckets:   prometheus.DefBuckets,
	})
	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Latency of API requests in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		// Register counter metrics
		registry.MustRegister(PredictionsTotal)
		registry.MustRegister(RoundsObservedTotal)
		registry.MustRegister(UpstreamFetchesTotal)
		registry.MustRegister(UpstreamCacheRequestsTotal)
		registry.MustRegister(InvalidRoundsTotal)
		registry.MustRegister(CircuitBreakerTripsTotal)
		registry.MustRegister(HTTPRequestsTotal)

		// Register gauge metrics
		registry.MustRegister(StreamClients)
		registry.MustRegister(LedgerEntries)
		registry.MustRegister(LastRoundID)

		// Register histogram metrics
		registry.MustRegister(PredictionConfidence)
		registry.MustRegister(PredictionDuration)
		registry.MustRegister(UpstreamFetchDuration)
		registry.MustRegister(HTTPRequestDuration)

		// Register sub-model metrics
		registry.MustRegister(ModelVotesTotal)
		registry.MustRegister(ModelMultiplier)
		registry.MustRegister(ModelAccuracy)

		// Register backtest metrics
		registry.MustRegister(BacktestRunsTotal)
		registry.MustRegister(BacktestHitRate)
		registry.MustRegister(BacktestDuration)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	return InitRegistry()
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordPrediction records a generated prediction.
func RecordPrediction(session, outcome string, confidence int, durationSeconds float64) {
	PredictionsTotal.WithLabelValues(session, outcome).Inc()
	PredictionConfidence.Observe(float64(confidence))
	PredictionDuration.Observe(durationSeconds)
}

// RecordRoundObserved records that a session advanced to a new round.
func RecordRoundObserved(session string, roundID int64) {
	RoundsObservedTotal.WithLabelValues(session).Inc()
	LastRoundID.WithLabelValues(session).Set(float64(roundID))
}

// RecordUpstreamFetch records an upstream history fetch.
// status should be one of: "success", "failure"
func RecordUpstreamFetch(source, status string, durationSeconds float64) {
	UpstreamFetchesTotal.WithLabelValues(source, status).Inc()
	UpstreamFetchDuration.Observe(durationSeconds)
}

// RecordCacheLookup records a history cache hit or miss.
func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	UpstreamCacheRequestsTotal.WithLabelValues(result).Inc()
}

// RecordInvalidRounds records rounds dropped during normalization.
func RecordInvalidRounds(count int) {
	InvalidRoundsTotal.Add(float64(count))
}

// RecordCircuitBreakerTrip records a circuit breaker trip event.
func RecordCircuitBreakerTrip() {
	CircuitBreakerTripsTotal.Inc()
}

// RecordHTTPRequest records a served API request.
func RecordHTTPRequest(route, status string, durationSeconds float64) {
	HTTPRequestsTotal.WithLabelValues(route, status).Inc()
	HTTPRequestDuration.WithLabelValues(route).Observe(durationSeconds)
}

// UpdateStreamClients updates the connected stream clients gauge.
func UpdateStreamClients(count int) {
	StreamClients.Set(float64(count))
}

// UpdateLedgerEntries updates the ledger size gauge for a session.
func UpdateLedgerEntries(session string, entries int) {
	LedgerEntries.WithLabelValues(session).Set(float64(entries))
}
