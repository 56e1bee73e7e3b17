package database

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/hilo-oracle/internal/config"
)

// ledgerSchema mirrors migrations/001_create_ledgers.up.sql
const ledgerSchema = `
CREATE TABLE IF NOT EXISTS ledgers (
	session    TEXT PRIMARY KEY,
	votes      JSONB NOT NULL DEFAULT '{}'::jsonb,
	last_round BIGINT NOT NULL DEFAULT 0,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// Initialize creates a database connection pool and makes sure the ledger
// table exists
func Initialize(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*DB, error) {
	db, err := NewDB(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}

	if err := EnsureSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	if logger != nil {
		logger.WithFields(logrus.Fields{
			"host":     cfg.Database.Host,
			"database": cfg.Database.Name,
		}).Info("Database initialized")
	}
	return db, nil
}

// EnsureSchema creates the ledger table when missing
func EnsureSchema(ctx context.Context, db *DB) error {
	if _, err := db.pool.Exec(ctx, ledgerSchema); err != nil {
		return fmt.Errorf("failed to create ledger schema: %w", err)
	}
	return nil
}
