package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// AuditLogger provides dedicated access and audit trail logging.
type AuditLogger struct {
	*logrus.Entry
}

// NewAuditLogger creates a new audit logger.
func NewAuditLogger(baseLogger *logrus.Logger) *AuditLogger {
	return &AuditLogger{
		Entry: baseLogger.WithField("component", "audit"),
	}
}

// LogRequest logs a served HTTP request.
func (al *AuditLogger) LogRequest(requestID, method, path string, status int, duration time.Duration, remoteAddr string) {
	entry := al.WithFields(logrus.Fields{
		"request_id":  requestID,
		"method":      method,
		"path":        path,
		"status":      status,
		"duration_ms": float64(duration.Microseconds()) / 1000,
		"remote_addr": remoteAddr,
	})
	if status >= 500 {
		entry.Warn("Request failed")
		return
	}
	entry.Info("Request served")
}

// LogStreamClient logs a websocket client connecting or leaving.
func (al *AuditLogger) LogStreamClient(clientID, event, remoteAddr string, clients int) {
	al.WithFields(logrus.Fields{
		"client_id":   clientID,
		"event_type":  event,
		"remote_addr": remoteAddr,
		"clients":     clients,
	}).Info("Stream client event")
}

// LogCircuitBreakerEvent logs circuit breaker state changes.
func (al *AuditLogger) LogCircuitBreakerEvent(source, state string, consecutiveErrors int, lastErr error) {
	fields := logrus.Fields{
		"source":             source,
		"state":              state,
		"consecutive_errors": consecutiveErrors,
	}
	if lastErr != nil {
		fields["last_error"] = lastErr.Error()
	}
	al.WithFields(fields).Warn("Circuit breaker state changed")
}

// LogLedgerReset logs an operator-triggered ledger reset.
func (al *AuditLogger) LogLedgerReset(session, requestID string, entries int) {
	al.WithFields(logrus.Fields{
		"session":         session,
		"request_id":      requestID,
		"entries_removed": entries,
	}).Warn("Ledger reset")
}
