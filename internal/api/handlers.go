package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/hilo-oracle/internal/datasource"
	"github.com/yourusername/hilo-oracle/internal/models"
	"github.com/yourusername/hilo-oracle/internal/repository"
	"github.com/yourusername/hilo-oracle/internal/service"
)

// ErrorResponse is the JSON body of failed requests
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// ModelsResponse lists sub-model performance for a session
type ModelsResponse struct {
	Session string                    `json:"session"`
	Models  []models.ModelPerformance `json:"models"`
}

// LedgerResetResponse reports a dropped ledger
type LedgerResetResponse struct {
	Session string `json:"session"`
	Removed int    `json:"removed"`
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	session := s.session(r)
	resp, err := s.svc.Predict(r.Context(), session)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	session := s.session(r)
	perf, err := s.svc.Performance(r.Context(), session)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ModelsResponse{Session: session, Models: perf})
}

// handleResetLedger never falls back to the default session, so a bare
// DELETE cannot wipe the default ledger.
func (s *Server) handleResetLedger(w http.ResponseWriter, r *http.Request) {
	session := r.URL.Query().Get("session")
	removed, err := s.svc.ResetLedger(r.Context(), session)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.audit.LogLedgerReset(session, RequestIDFrom(r.Context()), removed)
	writeJSON(w, http.StatusOK, LedgerResetResponse{Session: session, Removed: removed})
}

// session reads ?session=, falling back to the configured default
func (s *Server) session(r *http.Request) string {
	if session := r.URL.Query().Get("session"); session != "" {
		return session
	}
	return s.cfg.DefaultSession
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	entry := s.logger.WithError(err).WithFields(logrus.Fields{
		"request_id": RequestIDFrom(r.Context()),
		"path":       r.URL.Path,
		"status":     status,
	})
	if status >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Debug("Request rejected")
	}

	body := ErrorResponse{Error: messageFor(status, err), RequestID: RequestIDFrom(r.Context())}
	writeJSON(w, status, body)
}

// statusFor maps service, repository and upstream errors to HTTP statuses
func statusFor(err error) int {
	var dsErr datasource.DataSourceError
	switch {
	case errors.Is(err, service.ErrInvalidSession):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNoHistory), errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, datasource.ErrCircuitOpen):
		return http.StatusServiceUnavailable
	case errors.As(err, &dsErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func messageFor(status int, err error) string {
	switch status {
	case http.StatusBadRequest:
		return err.Error()
	case http.StatusNotFound:
		if errors.Is(err, service.ErrNoHistory) {
			return "no round history available"
		}
		return "ledger not found"
	case http.StatusServiceUnavailable:
		return "upstream temporarily unavailable"
	case http.StatusBadGateway:
		return "upstream history unavailable"
	default:
		return "internal server error"
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
