package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePoller struct {
	mu       sync.Mutex
	calls    [][]string
	err      error
	polledCh chan struct{}
}

func (p *fakePoller) Poll(ctx context.Context, sessions []string) error {
	p.mu.Lock()
	p.calls = append(p.calls, sessions)
	p.mu.Unlock()
	if p.polledCh != nil {
		select {
		case p.polledCh <- struct{}{}:
		default:
		}
	}
	return p.err
}

func (p *fakePoller) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestSchedulePollingValidation(t *testing.T) {
	s := NewScheduler(&fakePoller{}, quietLogger())

	assert.Error(t, s.SchedulePolling(100*time.Millisecond, []string{"default"}))
	assert.Error(t, s.SchedulePolling(time.Second, nil))
	require.NoError(t, s.SchedulePolling(15*time.Second, []string{"default"}))
	assert.Error(t, s.SchedulePolling(15*time.Second, []string{"default"}))
	assert.Len(t, s.Entries(), 1)
}

func TestStartStop(t *testing.T) {
	s := NewScheduler(&fakePoller{}, quietLogger())
	assert.Error(t, s.Start(), "no jobs scheduled")

	require.NoError(t, s.SchedulePolling(time.Minute, []string{"default"}))
	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())
	assert.Error(t, s.Start())
	assert.Error(t, s.SchedulePolling(time.Minute, []string{"other"}))

	next := s.GetNextRun()
	assert.False(t, next.IsZero())
	assert.WithinDuration(t, time.Now().Add(time.Minute), next, 5*time.Second)

	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())
	assert.True(t, s.GetNextRun().IsZero())
	assert.NoError(t, s.Stop())
}

func TestRunOnce(t *testing.T) {
	poller := &fakePoller{}
	s := NewScheduler(poller, quietLogger())

	s.RunOnce(context.Background(), []string{"alpha", "beta"})
	require.Equal(t, 1, poller.count())
	assert.Equal(t, []string{"alpha", "beta"}, poller.calls[0])

	poller.err = errors.New("upstream down")
	assert.NotPanics(t, func() {
		s.RunOnce(context.Background(), []string{"alpha"})
	})
	assert.Equal(t, 2, poller.count())
}

func TestScheduledPollFires(t *testing.T) {
	poller := &fakePoller{polledCh: make(chan struct{}, 1)}
	s := NewScheduler(poller, quietLogger())

	require.NoError(t, s.SchedulePolling(time.Second, []string{"default"}))
	require.NoError(t, s.Start())
	defer func() { _ = s.Stop() }()

	select {
	case <-poller.polledCh:
	case <-time.After(3 * time.Second):
		t.Fatal("expected the polling job to run")
	}
}
