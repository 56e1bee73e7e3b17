package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/yourusername/hilo-oracle/internal/config"
	"github.com/yourusername/hilo-oracle/internal/database"
	"github.com/yourusername/hilo-oracle/internal/models"
)

// PostgresLedgerRepository implements LedgerRepository for PostgreSQL,
// storing each session's ledger as a JSONB document
type PostgresLedgerRepository struct {
	db *database.DB
}

// NewPostgresLedgerRepository creates a new ledger repository
func NewPostgresLedgerRepository(db *database.DB) *PostgresLedgerRepository {
	return &PostgresLedgerRepository{db: db}
}

// Load retrieves the ledger of a session
func (r *PostgresLedgerRepository) Load(ctx context.Context, session string) (*LedgerSnapshot, error) {
	query := `
		SELECT session, votes, last_round, updated_at
		FROM ledgers WHERE session = $1
	`

	var (
		snap  LedgerSnapshot
		votes []byte
	)
	err := r.db.GetPool().QueryRow(ctx, query, session).Scan(
		&snap.Session, &votes, &snap.LastRound, &snap.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}

	ledger := models.Ledger{}
	if err := json.Unmarshal(votes, &ledger); err != nil {
		return nil, fmt.Errorf("failed to decode ledger: %w", err)
	}
	snap.Ledger = ledger

	return &snap, nil
}

// Save upserts the ledger of a session
func (r *PostgresLedgerRepository) Save(ctx context.Context, snapshot *LedgerSnapshot) error {
	query := `
		INSERT INTO ledgers (session, votes, last_round, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (session) DO UPDATE
		SET votes = EXCLUDED.votes, last_round = EXCLUDED.last_round, updated_at = NOW()
	`

	votes, err := json.Marshal(snapshot.Ledger)
	if err != nil {
		return fmt.Errorf("failed to encode ledger: %w", err)
	}

	if _, err := r.db.GetPool().Exec(ctx, query, snapshot.Session, votes, snapshot.LastRound); err != nil {
		return fmt.Errorf("failed to save ledger: %w", err)
	}
	return nil
}

// Delete removes the ledger of a session
func (r *PostgresLedgerRepository) Delete(ctx context.Context, session string) error {
	tag, err := r.db.GetPool().Exec(ctx, `DELETE FROM ledgers WHERE session = $1`, session)
	if err != nil {
		return fmt.Errorf("failed to delete ledger: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Sessions lists the stored sessions in name order
func (r *PostgresLedgerRepository) Sessions(ctx context.Context) ([]string, error) {
	rows, err := r.db.GetPool().Query(ctx, `SELECT session FROM ledgers ORDER BY session`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	sessions, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan sessions: %w", err)
	}
	return sessions, nil
}

// Ping verifies database connectivity
func (r *PostgresLedgerRepository) Ping(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}

// Backend returns the backend name
func (r *PostgresLedgerRepository) Backend() string {
	return config.LedgerBackendPostgres
}
