// Package service orchestrates history retrieval, ledger persistence and the
// ensemble engine behind every prediction.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/hilo-oracle/internal/datasource"
	"github.com/yourusername/hilo-oracle/internal/ensemble"
	"github.com/yourusername/hilo-oracle/internal/logger"
	"github.com/yourusername/hilo-oracle/internal/metrics"
	"github.com/yourusername/hilo-oracle/internal/models"
	"github.com/yourusername/hilo-oracle/internal/repository"
)

// Service errors
var (
	ErrNoHistory      = errors.New("no round history available")
	ErrInvalidSession = errors.New("session name is required")
)

// Publisher receives predictions made for a round not seen before
type Publisher interface {
	Publish(prediction *models.PredictionResponse)
}

// PredictionConfig holds tunables of the prediction service
type PredictionConfig struct {
	// MaxLedgerEntries caps the votes kept per sub-model, 0 keeps all
	MaxLedgerEntries int
}

// PredictionService produces predictions for named ledger sessions
type PredictionService struct {
	source    datasource.HistorySource
	ledgers   repository.LedgerRepository
	engine    *ensemble.Engine
	config    PredictionConfig
	publisher Publisher
	locks     *sessionLocks
	logger    *logrus.Logger
	predLog   *logger.PredictionLogger
	now       func() time.Time
}

// NewPredictionService creates a new prediction service
func NewPredictionService(
	source datasource.HistorySource,
	ledgers repository.LedgerRepository,
	engine *ensemble.Engine,
	cfg PredictionConfig,
	log *logrus.Logger,
) *PredictionService {
	if log == nil {
		log = logrus.New()
	}
	return &PredictionService{
		source:  source,
		ledgers: ledgers,
		engine:  engine,
		config:  cfg,
		locks:   newSessionLocks(),
		logger:  log,
		predLog: logger.NewPredictionLogger(log),
		now:     time.Now,
	}
}

// SetPublisher registers the sink for predictions on new rounds
func (s *PredictionService) SetPublisher(p Publisher) {
	s.publisher = p
}

// Predict fetches the history, runs the engine against the session's
// ledger and persists the updated ledger
func (s *PredictionService) Predict(ctx context.Context, session string) (*models.PredictionResponse, error) {
	if session == "" {
		return nil, ErrInvalidSession
	}
	start := s.now()

	history, err := s.source.FetchHistory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history: %w", err)
	}
	last, ok := history.Last()
	if !ok {
		return nil, ErrNoHistory
	}

	unlock := s.locks.Lock(session)
	defer unlock()

	snap, err := s.loadSnapshot(ctx, session)
	if err != nil {
		return nil, err
	}
	previousRound := snap.LastRound

	result, ledger := s.engine.Predict(history, snap.Ledger)
	if pruned := ledger.Prune(s.config.MaxLedgerEntries); pruned > 0 {
		s.logger.WithFields(logrus.Fields{"session": session, "pruned": pruned}).Debug("Pruned ledger")
	}

	snap.Ledger = ledger
	snap.LastRound = last.ID
	if err := s.ledgers.Save(ctx, snap); err != nil {
		return nil, fmt.Errorf("failed to save ledger: %w", err)
	}

	resp := &models.PredictionResponse{
		Session:         session,
		PreviousRound:   last.ID,
		PreviousScore:   last.Score,
		PreviousOutcome: last.Outcome,
		NextRound:       last.ID + 1,
		Prediction:      result.Outcome,
		Confidence:      result.Confidence,
		Explanation:     result.Explanation(),
		Rationale:       result.Rationale,
		Bridge:          result.Bridge,
		GeneratedAt:     s.now().UTC(),
	}

	s.record(session, resp, &result, ledger, start)

	if last.ID != previousRound {
		metrics.RecordRoundObserved(session, last.ID)
		s.predLog.LogRoundAdvanced(session, previousRound, last.ID)
		if s.publisher != nil {
			s.publisher.Publish(resp)
		}
	}

	return resp, nil
}

// Performance reports each tracked sub-model's rolling accuracy for a session
func (s *PredictionService) Performance(ctx context.Context, session string) ([]models.ModelPerformance, error) {
	if session == "" {
		return nil, ErrInvalidSession
	}

	history, err := s.source.FetchHistory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history: %w", err)
	}

	snap, err := s.loadSnapshot(ctx, session)
	if err != nil {
		return nil, err
	}

	perf := s.engine.Performance(history, snap.Ledger)
	for _, p := range perf {
		metrics.UpdateModelPerformance(session, p.Model, p.Multiplier, p.Correct, p.Rounds)
	}
	return perf, nil
}

// Poll predicts for every session so the ledgers receive a vote for each
// round even without client traffic. Sessions without history are skipped.
func (s *PredictionService) Poll(ctx context.Context, sessions []string) error {
	var errs []error
	for _, session := range sessions {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := s.Predict(ctx, session); err != nil {
			if errors.Is(err, ErrNoHistory) {
				s.logger.WithField("session", session).Debug("No history yet, skipping poll")
				continue
			}
			errs = append(errs, fmt.Errorf("session %s: %w", session, err))
		}
	}
	return errors.Join(errs...)
}

// ResetLedger drops the stored ledger of a session and returns the number
// of votes removed
func (s *PredictionService) ResetLedger(ctx context.Context, session string) (int, error) {
	if session == "" {
		return 0, ErrInvalidSession
	}

	unlock := s.locks.Lock(session)
	defer unlock()

	snap, err := s.ledgers.Load(ctx, session)
	if err != nil {
		return 0, err
	}
	if err := s.ledgers.Delete(ctx, session); err != nil {
		return 0, err
	}
	metrics.UpdateLedgerEntries(session, 0)
	return snap.Ledger.Entries(), nil
}

// Ready checks that the ledger store is reachable
func (s *PredictionService) Ready(ctx context.Context) error {
	return s.ledgers.Ping(ctx)
}

// Source returns the history source used by the service
func (s *PredictionService) Source() datasource.HistorySource {
	return s.source
}

func (s *PredictionService) loadSnapshot(ctx context.Context, session string) (*repository.LedgerSnapshot, error) {
	snap, err := s.ledgers.Load(ctx, session)
	if errors.Is(err, repository.ErrNotFound) {
		return &repository.LedgerSnapshot{Session: session, Ledger: models.NewLedger()}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}
	return snap, nil
}

func (s *PredictionService) record(session string, resp *models.PredictionResponse, result *models.PredictionResult, ledger models.Ledger, start time.Time) {
	elapsed := s.now().Sub(start)

	votes := make(map[string]string, len(result.Votes))
	for name, d := range result.Votes {
		votes[name] = d.String()
		metrics.RecordModelVote(name, d.String())
	}
	entries := ledger.Entries()

	metrics.RecordPrediction(session, string(resp.Prediction), resp.Confidence, elapsed.Seconds())
	metrics.UpdateLedgerEntries(session, entries)

	s.predLog.LogSubModelVotes(session, resp.PreviousRound, votes, result.Weights)
	s.predLog.LogLedgerUpdate(session, s.ledgers.Backend(), resp.PreviousRound, entries)
	s.predLog.LogPrediction(session, resp.PreviousRound, resp.NextRound, string(resp.Prediction),
		resp.Confidence, resp.Explanation, float64(elapsed.Microseconds())/1000)
}

// sessionLocks serializes work per session
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the session's mutex and returns its release function
func (l *sessionLocks) Lock(session string) func() {
	l.mu.Lock()
	m, ok := l.locks[session]
	if !ok {
		m = &sync.Mutex{}
		l.locks[session] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
