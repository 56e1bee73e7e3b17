package health

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHandleHealth(t *testing.T) {
	s := NewServer(Config{ServiceName: "hilo-oracle", Version: "1.0.0", Logger: quietLogger()})

	rec := get(t, s.Handler(), "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "hilo-oracle", body.Service)
	assert.Equal(t, "1.0.0", body.Version)
	assert.NotEmpty(t, body.Timestamp)
}

func TestHandleLive(t *testing.T) {
	s := NewServer(Config{ServiceName: "hilo-oracle", Logger: quietLogger()})

	rec := get(t, s.Handler(), "/live")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleReady(t *testing.T) {
	failing := errors.New("connection refused")

	tests := []struct {
		name       string
		ready      bool
		checks     map[string]Pinger
		wantStatus int
		wantChecks map[string]string
	}{
		{
			name:       "not marked ready",
			ready:      false,
			wantStatus: http.StatusServiceUnavailable,
			wantChecks: map[string]string{"service": "not_ready"},
		},
		{
			name:  "all checks pass",
			ready: true,
			checks: map[string]Pinger{
				"upstream":     PingFunc(func(context.Context) error { return nil }),
				"ledger_store": PingFunc(func(context.Context) error { return nil }),
			},
			wantStatus: http.StatusOK,
			wantChecks: map[string]string{"service": "ok", "upstream": "ok", "ledger_store": "ok"},
		},
		{
			name:  "upstream down",
			ready: true,
			checks: map[string]Pinger{
				"upstream":     PingFunc(func(context.Context) error { return failing }),
				"ledger_store": PingFunc(func(context.Context) error { return nil }),
			},
			wantStatus: http.StatusServiceUnavailable,
			wantChecks: map[string]string{"service": "ok", "upstream": "error: connection refused", "ledger_store": "ok"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer(Config{ServiceName: "hilo-oracle", Logger: quietLogger(), Checks: tt.checks})
			s.SetReady(tt.ready)

			rec := get(t, s.Handler(), "/ready")
			require.Equal(t, tt.wantStatus, rec.Code)

			var body ReadyResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.wantChecks, body.Checks)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, "ok", body.Status)
			} else {
				assert.Equal(t, "not_ready", body.Status)
			}
		})
	}
}

func TestRunChecksAppliesTimeout(t *testing.T) {
	s := NewServer(Config{Logger: quietLogger(), Checks: map[string]Pinger{
		"slow": PingFunc(func(ctx context.Context) error {
			_, ok := ctx.Deadline()
			if !ok {
				return errors.New("no deadline")
			}
			return nil
		}),
	}})
	s.SetReady(true)

	results, healthy := s.RunChecks(context.Background())
	assert.True(t, healthy)
	assert.Equal(t, "ok", results["slow"])
}

func TestGRPCHealthFollowsReadiness(t *testing.T) {
	s := NewServer(Config{ServiceName: "hilo-oracle", Logger: quietLogger()})

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	served := make(chan error, 1)
	go func() { served <- s.ServeGRPC(lis) }()
	t.Cleanup(func() {
		_ = s.Shutdown()
		<-served
	})

	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	client := healthpb.NewHealthClient(conn)
	check := func(service string) healthpb.HealthCheckResponse_ServingStatus {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
		require.NoError(t, err)
		return resp.GetStatus()
	}

	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(""))

	s.SetReady(true)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(""))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check("hilo-oracle"))

	s.SetReady(false)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check("hilo-oracle"))
}
