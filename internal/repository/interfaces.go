package repository

import (
	"context"
	"errors"
	"time"

	"github.com/yourusername/hilo-oracle/internal/models"
)

// ErrNotFound is returned when no ledger is stored for a session
var ErrNotFound = errors.New("ledger not found")

// LedgerSnapshot is the persisted vote ledger of one session
type LedgerSnapshot struct {
	Session   string        `json:"session"`
	Ledger    models.Ledger `json:"ledger"`
	LastRound int64         `json:"last_round"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// LedgerRepository defines the interface for ledger persistence
type LedgerRepository interface {
	Load(ctx context.Context, session string) (*LedgerSnapshot, error)
	Save(ctx context.Context, snapshot *LedgerSnapshot) error
	Delete(ctx context.Context, session string) error
	Sessions(ctx context.Context) ([]string, error)
	Ping(ctx context.Context) error
	Backend() string
}
