package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/growcoach/jobboard/internal/cache"
)

// rateKeyNamespace groups limiter counters in the shared cache.
const rateKeyNamespace = "ratelimit:"

// RateStore counts requests for a limiter key within a fixed window.
type RateStore interface {
	Increment(ctx context.Context, key string, window time.Duration) (count int, ttl time.Duration, err error)
}

// MemoryRateStore keeps counters in process. Expired windows are swept on
// write, at most once per sweepEvery.
type MemoryRateStore struct {
	mu        sync.Mutex
	windows   map[string]rateWindow
	now       func() time.Time
	lastSweep time.Time
}

type rateWindow struct {
	count int
	ends  time.Time
}

const sweepEvery = time.Minute

// NewMemoryRateStore constructs a single-instance rate store, used when no
// shared cache is configured.
func NewMemoryRateStore() *MemoryRateStore {
	return newMemoryRateStore(time.Now)
}

func newMemoryRateStore(now func() time.Time) *MemoryRateStore {
	return &MemoryRateStore{
		windows:   make(map[string]rateWindow),
		now:       now,
		lastSweep: now(),
	}
}

// Increment implements RateStore.
func (s *MemoryRateStore) Increment(_ context.Context, key string, window time.Duration) (int, time.Duration, error) {
	if window <= 0 {
		window = time.Minute
	}
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.lastSweep) >= sweepEvery {
		for k, w := range s.windows {
			if !now.Before(w.ends) {
				delete(s.windows, k)
			}
		}
		s.lastSweep = now
	}

	w, ok := s.windows[key]
	if !ok || !now.Before(w.ends) {
		w = rateWindow{ends: now.Add(window)}
	}
	w.count++
	s.windows[key] = w
	return w.count, w.ends.Sub(now), nil
}

// cacheRateStore shares counters through cache.Store, so limits hold across
// replicas behind the same Redis or database.
type cacheRateStore struct {
	store cache.Store
}

// NewStoreRateStore wraps a cache store (Redis or SQL) in a RateStore.
func NewStoreRateStore(store cache.Store) RateStore {
	if store == nil {
		return nil
	}
	return &cacheRateStore{store: store}
}

func (s *cacheRateStore) Increment(ctx context.Context, key string, window time.Duration) (int, time.Duration, error) {
	if window <= 0 {
		window = time.Minute
	}
	count, ttl, err := s.store.IncrementWithTTL(ctx, rateKeyNamespace+key, window)
	return int(count), ttl, err
}
