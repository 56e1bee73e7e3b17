package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/yourusername/hilo-oracle/internal/config"
)

// MemoryLedgerRepository implements LedgerRepository in process memory.
// Snapshots are deep-copied on the way in and out.
type MemoryLedgerRepository struct {
	mu        sync.RWMutex
	snapshots map[string]*LedgerSnapshot
}

// NewMemoryLedgerRepository creates an empty in-memory ledger store
func NewMemoryLedgerRepository() *MemoryLedgerRepository {
	return &MemoryLedgerRepository{snapshots: make(map[string]*LedgerSnapshot)}
}

// Load returns a copy of the session's ledger
func (r *MemoryLedgerRepository) Load(ctx context.Context, session string) (*LedgerSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap, ok := r.snapshots[session]
	if !ok {
		return nil, ErrNotFound
	}
	return copySnapshot(snap), nil
}

// Save stores a copy of the snapshot
func (r *MemoryLedgerRepository) Save(ctx context.Context, snapshot *LedgerSnapshot) error {
	cp := copySnapshot(snapshot)
	cp.UpdatedAt = time.Now().UTC()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots[snapshot.Session] = cp
	return nil
}

// Delete removes the session's ledger
func (r *MemoryLedgerRepository) Delete(ctx context.Context, session string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.snapshots[session]; !ok {
		return ErrNotFound
	}
	delete(r.snapshots, session)
	return nil
}

// Sessions lists the stored sessions in name order
func (r *MemoryLedgerRepository) Sessions(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make([]string, 0, len(r.snapshots))
	for session := range r.snapshots {
		sessions = append(sessions, session)
	}
	sort.Strings(sessions)
	return sessions, nil
}

// Ping always succeeds
func (r *MemoryLedgerRepository) Ping(ctx context.Context) error {
	return nil
}

// Backend returns the backend name
func (r *MemoryLedgerRepository) Backend() string {
	return config.LedgerBackendMemory
}

func copySnapshot(s *LedgerSnapshot) *LedgerSnapshot {
	return &LedgerSnapshot{
		Session:   s.Session,
		Ledger:    s.Ledger.Clone(),
		LastRound: s.LastRound,
		UpdatedAt: s.UpdatedAt,
	}
}
