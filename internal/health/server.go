// Package health provides lightweight HTTP and gRPC servers for container health checks.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const checkTimeout = 3 * time.Second

// Pinger defines the interface for checking a dependency's reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to the Pinger interface.
type PingFunc func(ctx context.Context) error

// Ping calls f(ctx).
func (f PingFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

// HealthResponse represents the JSON response for health check endpoints.
type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp,omitempty"`
	Version   string `json:"version,omitempty"`
	Commit    string `json:"commit,omitempty"`
}

// ReadyResponse represents the JSON response for readiness check endpoints.
type ReadyResponse struct {
	Status   string            `json:"status"`
	Service  string            `json:"service"`
	Checks   map[string]string `json:"checks,omitempty"`
	Duration string            `json:"duration,omitempty"`
}

// Config holds the configuration for the health servers.
type Config struct {
	ServiceName string
	Version     string
	Commit      string
	Port        int
	// GRPCPort enables the gRPC health service when non-zero
	GRPCPort int
	Logger   *logrus.Logger
	Checks   map[string]Pinger
}

// Server serves /health, /live and /ready over HTTP and mirrors readiness
// into a standard gRPC health service.
type Server struct {
	serviceName string
	version     string
	commit      string
	port        int
	grpcPort    int
	logger      *logrus.Logger
	checks      map[string]Pinger

	httpServer *http.Server
	grpcServer *grpc.Server
	grpcHealth *grpchealth.Server

	mu    sync.RWMutex
	ready bool
}

// NewServer creates a new health check server.
func NewServer(cfg Config) *Server {
	port := cfg.Port
	if port == 0 {
		port = 8080
	}
	log := cfg.Logger
	if log == nil {
		log = logrus.New()
	}

	s := &Server{
		serviceName: cfg.ServiceName,
		version:     cfg.Version,
		commit:      cfg.Commit,
		port:        port,
		grpcPort:    cfg.GRPCPort,
		logger:      log,
		checks:      cfg.Checks,
		grpcHealth:  grpchealth.NewServer(),
	}
	s.setGRPCStatus(false)
	return s
}

// SetReady marks the server as ready to accept traffic.
func (s *Server) SetReady(ready bool) {
	s.mu.Lock()
	s.ready = ready
	s.mu.Unlock()
	s.setGRPCStatus(ready)
}

// IsReady returns whether the server is ready.
func (s *Server) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Handler returns the HTTP routes of the health server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReady)
	mux.HandleFunc("/live", s.handleLive)
	return mux
}

// Start starts the health servers in the background. They shut down when
// ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		s.logger.WithFields(logrus.Fields{
			"port":    s.port,
			"service": s.serviceName,
		}).Info("Health check server starting")

		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.WithError(err).Error("Health check server error")
		}
	}()

	if s.grpcPort != 0 {
		lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.grpcPort))
		if err != nil {
			return fmt.Errorf("failed to listen on grpc health port %d: %w", s.grpcPort, err)
		}
		go func() {
			if err := s.ServeGRPC(lis); err != nil {
				s.logger.WithError(err).Error("gRPC health server error")
			}
		}()
	}

	go func() {
		<-ctx.Done()
		_ = s.Shutdown()
	}()

	return nil
}

// ServeGRPC serves the gRPC health service on lis until Shutdown.
func (s *Server) ServeGRPC(lis net.Listener) error {
	s.mu.Lock()
	if s.grpcServer == nil {
		s.grpcServer = grpc.NewServer()
		healthpb.RegisterHealthServer(s.grpcServer, s.grpcHealth)
	}
	srv := s.grpcServer
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"address": lis.Addr().String(),
		"service": s.serviceName,
	}).Info("gRPC health server starting")

	err := srv.Serve(lis)
	if errors.Is(err, grpc.ErrServerStopped) {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the health servers.
func (s *Server) Shutdown() error {
	s.logger.Info("Health check server shutting down")
	s.grpcHealth.Shutdown()

	s.mu.Lock()
	srv := s.grpcServer
	s.mu.Unlock()
	if srv != nil {
		srv.GracefulStop()
	}

	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

// RunChecks pings every registered dependency and reports per-check status.
func (s *Server) RunChecks(ctx context.Context) (map[string]string, bool) {
	results := make(map[string]string, len(s.checks)+1)
	healthy := true

	if s.IsReady() {
		results["service"] = "ok"
	} else {
		results["service"] = "not_ready"
		healthy = false
	}

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := s.checks[name].Ping(checkCtx)
		cancel()

		if err != nil {
			healthy = false
			results[name] = fmt.Sprintf("error: %v", err)
			continue
		}
		results[name] = "ok"
	}
	return results, healthy
}

func (s *Server) setGRPCStatus(ready bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if ready {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.grpcHealth.SetServingStatus("", status)
	if s.serviceName != "" {
		s.grpcHealth.SetServingStatus(s.serviceName, status)
	}
}

// handleHealth handles the /health endpoint - basic liveness check.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Service:   s.serviceName,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   s.version,
		Commit:    s.commit,
	})
}

// handleLive handles the /live endpoint - kubernetes liveness probe.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Service: s.serviceName,
	})
}

// handleReady handles the /ready endpoint - checks the upstream and ledger store.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	checks, healthy := s.RunChecks(r.Context())

	response := ReadyResponse{
		Status:   "ok",
		Service:  s.serviceName,
		Checks:   checks,
		Duration: time.Since(start).String(),
	}

	status := http.StatusOK
	if !healthy {
		response.Status = "not_ready"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
