package repository

import (
	"fmt"

	"github.com/yourusername/hilo-oracle/internal/config"
	"github.com/yourusername/hilo-oracle/internal/database"
)

// NewLedgerRepository returns the ledger store selected by configuration.
// db is only required for the postgres backend.
func NewLedgerRepository(cfg config.LedgerConfig, db *database.DB) (LedgerRepository, error) {
	switch cfg.Backend {
	case config.LedgerBackendMemory, "":
		return NewMemoryLedgerRepository(), nil
	case config.LedgerBackendPostgres:
		if db == nil {
			return nil, fmt.Errorf("database connection is required for the %s ledger backend", cfg.Backend)
		}
		return NewPostgresLedgerRepository(db), nil
	default:
		return nil, fmt.Errorf("unknown ledger backend: %s", cfg.Backend)
	}
}
