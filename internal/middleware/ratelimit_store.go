package middleware

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charlesng35/signup/internal/cache"
)

// RateStore coordinates rate limiting counters for a specific key.
type RateStore interface {
	Increment(ctx context.Context, key string, window time.Duration) (count int, ttl time.Duration, err error)
}

// MemoryRateStore provides process-local rate limiting. It is concurrency-safe.
type MemoryRateStore struct {
	mu    sync.Mutex
	data  map[string]*memoryCounter
	clock func() time.Time
	stop  chan struct{}
	once  sync.Once
}

type memoryCounter struct {
	count     int
	windowEnd time.Time
}

// NewMemoryRateStore constructs an in-memory rate store whose stale counters are swept
// every sweep interval until Close is called.
func NewMemoryRateStore(sweep time.Duration) *MemoryRateStore {
	if sweep <= 0 {
		sweep = time.Minute
	}
	store := &MemoryRateStore{
		data:  make(map[string]*memoryCounter),
		clock: time.Now,
		stop:  make(chan struct{}),
	}
	go store.cleanupLoop(sweep)
	return store
}

func (s *MemoryRateStore) cleanupLoop(every time.Duration) {
	tick := time.NewTicker(every)
	defer tick.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-tick.C:
			s.sweep()
		}
	}
}

func (s *MemoryRateStore) sweep() {
	now := s.clock()
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, counter := range s.data {
		if !now.Before(counter.windowEnd) {
			delete(s.data, key)
		}
	}
}

// Close stops the background sweeper.
func (s *MemoryRateStore) Close() {
	s.once.Do(func() { close(s.stop) })
}

func (s *MemoryRateStore) Increment(_ context.Context, key string, window time.Duration) (int, time.Duration, error) {
	if window <= 0 {
		window = time.Minute
	}

	now := s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()

	counter, ok := s.data[key]
	if !ok || !now.Before(counter.windowEnd) {
		counter = &memoryCounter{windowEnd: now.Add(window)}
		s.data[key] = counter
	}
	counter.count++

	return counter.count, counter.windowEnd.Sub(now), nil
}

type storeRateStore struct {
	store cache.Store
}

// NewCacheRateStore adapts a shared cache Store (Redis or database) to RateStore.
func NewCacheRateStore(store cache.Store) (RateStore, error) {
	if store == nil {
		return nil, errors.New("rate store: cache store is required")
	}
	return &storeRateStore{store: store}, nil
}

func (s *storeRateStore) Increment(ctx context.Context, key string, window time.Duration) (int, time.Duration, error) {
	if window <= 0 {
		window = time.Minute
	}
	count, ttl, err := s.store.IncrementWithTTL(ctx, cache.Key("ratelimit", key), window)
	return int(count), ttl, err
}
