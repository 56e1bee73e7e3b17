package datasource

import (
	"context"
	"sync/atomic"
	"time"

	cache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/yourusername/hilo-oracle/internal/logger"
	"github.com/yourusername/hilo-oracle/internal/metrics"
	"github.com/yourusername/hilo-oracle/internal/models"
)

const historyCacheKey = "history"

// sharedFetchTimeout bounds a fetch that no longer follows any caller's context
const sharedFetchTimeout = 30 * time.Second

// CachedSource fronts a HistorySource with a short-lived in-memory cache.
// Concurrent misses share a single upstream fetch. The returned history is
// shared between callers and must not be modified.
type CachedSource struct {
	source HistorySource
	cache  *cache.Cache
	ttl    time.Duration
	group  singleflight.Group
	log    *logger.PredictionLogger

	hitCount  atomic.Uint64
	missCount atomic.Uint64
}

// NewCachedSource wraps source with a TTL cache; ttl <= 0 disables caching
// while keeping fetch logging in one place.
func NewCachedSource(source HistorySource, ttl time.Duration, log *logger.PredictionLogger) *CachedSource {
	cs := &CachedSource{
		source: source,
		ttl:    ttl,
		log:    log,
	}
	if ttl > 0 {
		cs.cache = cache.New(ttl, ttl*2)
	}
	return cs
}

// FetchHistory returns the cached history or fetches a fresh one
func (cs *CachedSource) FetchHistory(ctx context.Context) (models.History, error) {
	start := time.Now()

	if cs.cache != nil {
		if cached, found := cs.cache.Get(historyCacheKey); found {
			if history, ok := cached.(models.History); ok {
				cs.hitCount.Add(1)
				metrics.RecordCacheLookup(true)
				cs.logFetch(len(history), true, start)
				return history, nil
			}
		}
		cs.missCount.Add(1)
		metrics.RecordCacheLookup(false)
	}

	// The shared fetch outlives any single caller, so one cancelled request
	// does not fail the others waiting on it.
	ch := cs.group.DoChan(historyCacheKey, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedFetchTimeout)
		defer cancel()

		history, err := cs.source.FetchHistory(fetchCtx)
		if err != nil {
			return nil, err
		}
		if cs.cache != nil {
			cs.cache.Set(historyCacheKey, history, cs.ttl)
		}
		return history, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}

	history := res.Val.(models.History)
	cs.logFetch(len(history), false, start)
	return history, nil
}

// Invalidate drops the cached history
func (cs *CachedSource) Invalidate() {
	if cs.cache != nil {
		cs.cache.Delete(historyCacheKey)
	}
}

// Name returns the wrapped source name
func (cs *CachedSource) Name() string {
	return cs.source.Name()
}

// Stats returns cache statistics
func (cs *CachedSource) Stats() (hits, misses uint64, ratio float64) {
	hits = cs.hitCount.Load()
	misses = cs.missCount.Load()
	if total := hits + misses; total > 0 {
		ratio = float64(hits) / float64(total)
	}
	return
}

func (cs *CachedSource) logFetch(rounds int, hit bool, start time.Time) {
	if cs.log == nil {
		return
	}
	cs.log.LogUpstreamFetch(cs.source.Name(), rounds, hit, float64(time.Since(start).Microseconds())/1000)
}
