package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/hilo-oracle/internal/datasource"
	"github.com/yourusername/hilo-oracle/internal/ensemble"
	"github.com/yourusername/hilo-oracle/internal/models"
	"github.com/yourusername/hilo-oracle/internal/repository"
	"github.com/yourusername/hilo-oracle/internal/strategy"
)

// MockHistorySource mocks the upstream history source
type MockHistorySource struct {
	mock.Mock
}

func (m *MockHistorySource) FetchHistory(ctx context.Context) (models.History, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(models.History), args.Error(1)
}

func (m *MockHistorySource) Name() string {
	return "mock"
}

// MockLedgerRepository mocks the ledger store
type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) Load(ctx context.Context, session string) (*repository.LedgerSnapshot, error) {
	args := m.Called(ctx, session)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.LedgerSnapshot), args.Error(1)
}

func (m *MockLedgerRepository) Save(ctx context.Context, snapshot *repository.LedgerSnapshot) error {
	args := m.Called(ctx, snapshot)
	return args.Error(0)
}

func (m *MockLedgerRepository) Delete(ctx context.Context, session string) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockLedgerRepository) Sessions(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockLedgerRepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockLedgerRepository) Backend() string {
	return "mock"
}

type fixedRandom float64

func (f fixedRandom) Float64() float64 { return float64(f) }

type recordingPublisher struct {
	mu        sync.Mutex
	published []*models.PredictionResponse
}

func (p *recordingPublisher) Publish(prediction *models.PredictionResponse) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, prediction)
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func testEngine() *ensemble.Engine {
	return ensemble.NewEngine(quietLogger()).WithRandom(func() strategy.Random { return fixedRandom(0.9) })
}

// threeRounds is High, Low, High with ids 1..3
func threeRounds() models.History {
	return models.History{
		{ID: 1, Outcome: models.OutcomeHigh, Score: 12},
		{ID: 2, Outcome: models.OutcomeLow, Score: 6},
		{ID: 3, Outcome: models.OutcomeHigh, Score: 14},
	}
}

func newTestService(source datasource.HistorySource, ledgers repository.LedgerRepository) *PredictionService {
	return NewPredictionService(source, ledgers, testEngine(), PredictionConfig{}, quietLogger())
}

// TestPredictResponse tests the response shape and ledger persistence
func TestPredictResponse(t *testing.T) {
	source := &MockHistorySource{}
	source.On("FetchHistory", mock.Anything).Return(threeRounds(), nil)
	ledgers := repository.NewMemoryLedgerRepository()
	publisher := &recordingPublisher{}

	svc := newTestService(source, ledgers)
	svc.SetPublisher(publisher)

	resp, err := svc.Predict(context.Background(), "default")
	require.NoError(t, err)

	assert.Equal(t, "default", resp.Session)
	assert.Equal(t, int64(3), resp.PreviousRound)
	assert.Equal(t, 14.0, resp.PreviousScore)
	assert.Equal(t, models.OutcomeHigh, resp.PreviousOutcome)
	assert.Equal(t, int64(4), resp.NextRound)
	assert.Equal(t, models.OutcomeHigh, resp.Prediction)
	assert.Equal(t, 59, resp.Confidence)
	assert.Equal(t, "[Ensemble] predicting High with weight 0.50 vs 0.35 for Low", resp.Rationale)
	require.NotNil(t, resp.Bridge)
	assert.Equal(t, resp.Bridge.Rationale, resp.Explanation)
	assert.False(t, resp.GeneratedAt.IsZero())

	snap, err := ledgers.Load(context.Background(), "default")
	require.NoError(t, err)
	assert.Equal(t, int64(3), snap.LastRound)
	for _, name := range models.TrackedModels {
		d, ok := snap.Ledger.Lookup(name, 3)
		assert.True(t, ok, name)
		assert.Equal(t, models.DirectionHigh, d, name)
	}

	assert.Equal(t, 1, publisher.count())
	source.AssertExpectations(t)
}

// TestPredictPublishesOnlyNewRounds tests the stream publish trigger
func TestPredictPublishesOnlyNewRounds(t *testing.T) {
	history := threeRounds()
	source := &MockHistorySource{}
	source.On("FetchHistory", mock.Anything).Return(history, nil).Twice()
	publisher := &recordingPublisher{}

	svc := newTestService(source, repository.NewMemoryLedgerRepository())
	svc.SetPublisher(publisher)

	ctx := context.Background()
	_, err := svc.Predict(ctx, "default")
	require.NoError(t, err)
	_, err = svc.Predict(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, 1, publisher.count())

	advanced := append(models.History{}, history...)
	advanced = append(advanced, models.Round{ID: 4, Outcome: models.OutcomeLow, Score: 5})
	source.On("FetchHistory", mock.Anything).Return(advanced, nil).Once()

	resp, err := svc.Predict(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, int64(5), resp.NextRound)
	assert.Equal(t, 2, publisher.count())
}

// TestPredictNoHistory tests the empty-history error
func TestPredictNoHistory(t *testing.T) {
	source := &MockHistorySource{}
	source.On("FetchHistory", mock.Anything).Return(models.History{}, nil)
	ledgers := &MockLedgerRepository{}

	_, err := newTestService(source, ledgers).Predict(context.Background(), "default")
	assert.ErrorIs(t, err, ErrNoHistory)
	ledgers.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

// TestPredictUpstreamFailure tests error wrapping of source failures
func TestPredictUpstreamFailure(t *testing.T) {
	source := &MockHistorySource{}
	source.On("FetchHistory", mock.Anything).
		Return(nil, datasource.NewDataSourceError("mock", datasource.ErrCodeServerError, "down", nil))

	_, err := newTestService(source, &MockLedgerRepository{}).Predict(context.Background(), "default")
	require.Error(t, err)
	assert.True(t, errors.Is(err, datasource.ErrServerError))
}

// TestPredictLedgerErrors tests load and save failures
func TestPredictLedgerErrors(t *testing.T) {
	source := &MockHistorySource{}
	source.On("FetchHistory", mock.Anything).Return(threeRounds(), nil)
	boom := errors.New("connection lost")

	failingLoad := &MockLedgerRepository{}
	failingLoad.On("Load", mock.Anything, "default").Return(nil, boom)
	_, err := newTestService(source, failingLoad).Predict(context.Background(), "default")
	assert.ErrorIs(t, err, boom)

	failingSave := &MockLedgerRepository{}
	failingSave.On("Load", mock.Anything, "default").Return(nil, repository.ErrNotFound)
	failingSave.On("Save", mock.Anything, mock.AnythingOfType("*repository.LedgerSnapshot")).Return(boom)
	_, err = newTestService(source, failingSave).Predict(context.Background(), "default")
	assert.ErrorIs(t, err, boom)
	failingSave.AssertExpectations(t)
}

// TestPredictInvalidSession tests the empty session guard
func TestPredictInvalidSession(t *testing.T) {
	svc := newTestService(&MockHistorySource{}, &MockLedgerRepository{})

	_, err := svc.Predict(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidSession)
	_, err = svc.Performance(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidSession)
}

// TestPredictPrunesLedger tests the ledger size cap
func TestPredictPrunesLedger(t *testing.T) {
	source := &MockHistorySource{}
	source.On("FetchHistory", mock.Anything).Return(threeRounds(), nil)

	ledgers := repository.NewMemoryLedgerRepository()
	old := models.NewLedger()
	old.Record(models.ModelTrend, 1, models.DirectionLow)
	old.Record(models.ModelTrend, 2, models.DirectionLow)
	require.NoError(t, ledgers.Save(context.Background(), &repository.LedgerSnapshot{Session: "default", Ledger: old, LastRound: 2}))

	svc := NewPredictionService(source, ledgers, testEngine(), PredictionConfig{MaxLedgerEntries: 2}, quietLogger())
	_, err := svc.Predict(context.Background(), "default")
	require.NoError(t, err)

	snap, err := ledgers.Load(context.Background(), "default")
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Ledger.Size(models.ModelTrend))
	_, ok := snap.Ledger.Lookup(models.ModelTrend, 1)
	assert.False(t, ok)
}

// TestPerformance tests the per-model report
func TestPerformance(t *testing.T) {
	source := &MockHistorySource{}
	source.On("FetchHistory", mock.Anything).Return(threeRounds(), nil)

	ledgers := repository.NewMemoryLedgerRepository()
	ledger := models.NewLedger()
	ledger.Record(models.ModelMean, 1, models.DirectionLow)
	ledger.Record(models.ModelMean, 2, models.DirectionHigh)
	require.NoError(t, ledgers.Save(context.Background(), &repository.LedgerSnapshot{Session: "default", Ledger: ledger}))

	perf, err := newTestService(source, ledgers).Performance(context.Background(), "default")
	require.NoError(t, err)
	require.Len(t, perf, len(models.TrackedModels))

	for _, p := range perf {
		if p.Model == models.ModelMean {
			assert.Equal(t, 2, p.Rounds)
			assert.Equal(t, 2, p.Correct)
			assert.Equal(t, 1.5, p.Multiplier)
			assert.InDelta(t, 0.375, p.Weight, 1e-9)
		} else {
			assert.Equal(t, 0.5, p.Multiplier, p.Model)
		}
	}
}

// TestPoll tests polling several sessions
func TestPoll(t *testing.T) {
	source := &MockHistorySource{}
	source.On("FetchHistory", mock.Anything).Return(threeRounds(), nil)
	ledgers := repository.NewMemoryLedgerRepository()

	svc := newTestService(source, ledgers)
	require.NoError(t, svc.Poll(context.Background(), []string{"alpha", "beta"}))

	sessions, err := ledgers.Sessions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, sessions)

	empty := &MockHistorySource{}
	empty.On("FetchHistory", mock.Anything).Return(models.History{}, nil)
	assert.NoError(t, newTestService(empty, ledgers).Poll(context.Background(), []string{"alpha"}))

	failing := &MockHistorySource{}
	failing.On("FetchHistory", mock.Anything).Return(nil, errors.New("timeout"))
	err = newTestService(failing, ledgers).Poll(context.Background(), []string{"alpha", "beta"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session alpha")
	assert.Contains(t, err.Error(), "session beta")
}

// TestResetLedger tests dropping a session ledger
func TestResetLedger(t *testing.T) {
	source := &MockHistorySource{}
	source.On("FetchHistory", mock.Anything).Return(threeRounds(), nil)
	ledgers := repository.NewMemoryLedgerRepository()
	svc := newTestService(source, ledgers)

	_, err := svc.Predict(context.Background(), "default")
	require.NoError(t, err)

	removed, err := svc.ResetLedger(context.Background(), "default")
	require.NoError(t, err)
	assert.Equal(t, len(models.TrackedModels), removed)

	_, err = svc.ResetLedger(context.Background(), "default")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.NoError(t, svc.Ready(context.Background()))
}

// TestPredictConcurrentSessions tests that concurrent calls keep the ledger consistent
func TestPredictConcurrentSessions(t *testing.T) {
	source := &MockHistorySource{}
	source.On("FetchHistory", mock.Anything).Return(threeRounds(), nil)
	ledgers := repository.NewMemoryLedgerRepository()
	svc := newTestService(source, ledgers)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Predict(context.Background(), "default")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	snap, err := ledgers.Load(context.Background(), "default")
	require.NoError(t, err)
	assert.Equal(t, len(models.TrackedModels), snap.Ledger.Entries())
}
