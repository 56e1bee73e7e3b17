package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/hilo-oracle/internal/api"
	"github.com/yourusername/hilo-oracle/internal/health"
	"github.com/yourusername/hilo-oracle/internal/metrics"
	"github.com/yourusername/hilo-oracle/internal/scheduler"
	"github.com/yourusername/hilo-oracle/internal/stream"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the prediction API, stream and background poller",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runServe(ctx)
	},
}

func runServe(ctx context.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	appLog := newLogger(cfg, nil)
	appLog.WithFields(logrus.Fields{
		"version":     Version,
		"environment": cfg.App.Environment,
		"log_level":   cfg.App.LogLevel,
	}).Info("hilo-oracle server starting")

	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
	}

	a, err := newApp(ctx, cfg, appLog)
	if err != nil {
		return err
	}
	defer a.Close()

	// stays a nil interface when the stream is disabled
	var streamHandler http.Handler
	var hub *stream.Hub
	if cfg.Stream.Enabled {
		hub = stream.NewHub(stream.Config{
			BufferSize:     cfg.Stream.BufferSize,
			WriteTimeout:   time.Duration(cfg.Stream.WriteTimeoutSeconds) * time.Second,
			PingInterval:   time.Duration(cfg.Stream.PingIntervalSeconds) * time.Second,
			AllowedOrigins: cfg.Server.AllowedOrigins,
		}, appLog)
		a.service.SetPublisher(hub)
		streamHandler = hub
	}

	apiServer := api.NewServer(a.service, streamHandler, api.Config{
		DefaultSession: cfg.Server.DefaultSession,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MetricsEnabled: cfg.Metrics.Enabled,
		MetricsPath:    cfg.Metrics.Path,
	}, appLog)

	httpServer := &http.Server{
		Addr:         cfg.ServerAddress(),
		Handler:      apiServer.Handler(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	healthServer := health.NewServer(health.Config{
		ServiceName: cfg.App.Name,
		Version:     Version,
		Commit:      GitCommit,
		Port:        cfg.Health.Port,
		GRPCPort:    cfg.Health.GRPCPort,
		Logger:      appLog,
		Checks: map[string]health.Pinger{
			"upstream": health.PingFunc(func(ctx context.Context) error {
				_, err := a.source.FetchHistory(ctx)
				return err
			}),
			"ledger_store": a.ledgers,
		},
	})
	if err := healthServer.Start(ctx); err != nil {
		return err
	}

	var poller *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sessions := cfg.Scheduler.Sessions
		if len(sessions) == 0 {
			sessions = []string{cfg.Server.DefaultSession}
		}
		poller = scheduler.NewScheduler(a.service, appLog)
		if err := poller.SchedulePolling(cfg.PollInterval(), sessions); err != nil {
			return fmt.Errorf("failed to schedule polling: %w", err)
		}
		if err := poller.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		go poller.RunOnce(ctx, sessions)
	}

	serverErr := make(chan error, 1)
	go func() {
		appLog.WithField("address", httpServer.Addr).Info("API server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	healthServer.SetReady(true)

	var runErr error
	select {
	case <-ctx.Done():
		appLog.Info("Shutdown signal received")
	case err := <-serverErr:
		runErr = fmt.Errorf("api server failed: %w", err)
	}

	healthServer.SetReady(false)
	shutdown(appLog, time.Duration(cfg.Server.ShutdownTimeoutSeconds)*time.Second, httpServer, poller, hub)
	_ = healthServer.Shutdown()

	appLog.Info("hilo-oracle server stopped")
	return runErr
}

func shutdown(log *logrus.Logger, timeout time.Duration, httpServer *http.Server, poller *scheduler.Scheduler, hub *stream.Hub) {
	if poller != nil {
		if err := poller.Stop(); err != nil {
			log.WithError(err).Warn("Scheduler did not stop cleanly")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("API server did not shut down cleanly")
	}

	if hub != nil {
		hub.Close()
	}
}
