// Package api exposes predictions over REST and websocket.
package api

import (
	"context"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/hilo-oracle/internal/logger"
	"github.com/yourusername/hilo-oracle/internal/metrics"
	"github.com/yourusername/hilo-oracle/internal/models"
)

// PredictionAPI is the service surface served by the REST handlers
type PredictionAPI interface {
	Predict(ctx context.Context, session string) (*models.PredictionResponse, error)
	Performance(ctx context.Context, session string) ([]models.ModelPerformance, error)
	ResetLedger(ctx context.Context, session string) (int, error)
}

// Config controls routing of the API server
type Config struct {
	DefaultSession string
	AllowedOrigins []string
	MetricsEnabled bool
	MetricsPath    string
}

// Server routes API requests to the prediction service
type Server struct {
	svc    PredictionAPI
	stream http.Handler
	cfg    Config
	logger *logrus.Logger
	audit  *logger.AuditLogger
	router *mux.Router
}

// NewServer creates the API server. stream may be nil when the websocket
// feed is disabled.
func NewServer(svc PredictionAPI, stream http.Handler, cfg Config, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.New()
	}
	if cfg.DefaultSession == "" {
		cfg.DefaultSession = "default"
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}

	s := &Server{
		svc:    svc,
		stream: stream,
		cfg:    cfg,
		logger: log,
		audit:  logger.NewAuditLogger(log),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.requestID, s.accessLog)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/predict", s.handlePredict).Methods(http.MethodGet)
	api.HandleFunc("/models", s.handleModels).Methods(http.MethodGet)
	api.HandleFunc("/ledger", s.handleResetLedger).Methods(http.MethodDelete)

	if s.stream != nil {
		r.Handle("/ws/predictions", s.stream).Methods(http.MethodGet)
	}
	if s.cfg.MetricsEnabled {
		r.Handle(s.cfg.MetricsPath, metrics.Handler()).Methods(http.MethodGet)
	}

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

// Handler returns the router wrapped with CORS
func (s *Server) Handler() http.Handler {
	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", requestIDHeader}),
		handlers.ExposedHeaders([]string{requestIDHeader}),
	)(s.router)
}
