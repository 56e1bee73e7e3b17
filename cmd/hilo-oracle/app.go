package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/hilo-oracle/internal/config"
	"github.com/yourusername/hilo-oracle/internal/database"
	"github.com/yourusername/hilo-oracle/internal/datasource"
	"github.com/yourusername/hilo-oracle/internal/ensemble"
	"github.com/yourusername/hilo-oracle/internal/repository"
	"github.com/yourusername/hilo-oracle/internal/service"
)

// app holds the dependencies shared by every command
type app struct {
	cfg     *config.Config
	logger  *logrus.Logger
	db      *database.DB
	source  *datasource.CachedSource
	ledgers repository.LedgerRepository
	engine  *ensemble.Engine
	service *service.PredictionService
}

// newApp connects the ledger store, builds the history source and the
// prediction service
func newApp(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: log}

	if cfg.Ledger.Backend == config.LedgerBackendPostgres {
		db, err := database.Initialize(ctx, cfg, log)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		a.db = db
	}

	ledgers, err := repository.NewLedgerRepository(cfg.Ledger, a.db)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.ledgers = ledgers

	source, err := datasource.NewFactory(cfg.Upstream, log).Create()
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create history source: %w", err)
	}
	a.source = source

	a.engine = ensemble.NewEngine(log)
	a.service = service.NewPredictionService(source, ledgers, a.engine, service.PredictionConfig{
		MaxLedgerEntries: cfg.Ledger.MaxEntries,
	}, log)

	log.WithFields(logrus.Fields{
		"source":         source.Name(),
		"ledger_backend": ledgers.Backend(),
		"environment":    cfg.App.Environment,
	}).Info("hilo-oracle initialized")

	return a, nil
}

// Close releases the database pool
func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
		a.db = nil
	}
}
