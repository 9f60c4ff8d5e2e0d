package storage

import (
	"context"
	"strings"
	"sync"
	"time"
)

// DefaultCleanupInterval is how often the in-memory janitor sweeps expired
// entries.
const DefaultCleanupInterval = 5 * time.Minute

// timedEntry wraps a value with its expiry for TTL tracking. A zero
// expiresAt means the entry never expires.
type timedEntry struct {
	value     []byte
	counter   int64
	expiresAt time.Time
}

func (e *timedEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryStore implements Store with a mutex-guarded map. It is suitable for
// development and tests; a single process sees all writes immediately, so
// the Delete single-use guard is exact here.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*timedEntry

	nowFunc func() time.Time

	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	cleanupDone     chan struct{}
	closeOnce       sync.Once
}

// MemoryStoreOption configures a MemoryStore instance.
type MemoryStoreOption func(*MemoryStore)

// WithCleanupInterval sets a custom janitor interval.
func WithCleanupInterval(interval time.Duration) MemoryStoreOption {
	return func(s *MemoryStore) {
		s.cleanupInterval = interval
	}
}

// WithNowFunc sets the clock (primarily for testing expiry).
func WithNowFunc(now func() time.Time) MemoryStoreOption {
	return func(s *MemoryStore) {
		s.nowFunc = now
	}
}

// NewMemoryStore creates an in-memory store and starts its background
// cleanup goroutine. Call Close to stop it.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	s := &MemoryStore{
		entries:         make(map[string]*timedEntry),
		nowFunc:         time.Now,
		cleanupInterval: DefaultCleanupInterval,
		stopCleanup:     make(chan struct{}),
		cleanupDone:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	go s.cleanupLoop()
	return s
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[key]
	if !ok || entry.expired(s.nowFunc()) {
		return nil, ErrNotFound
	}
	value := make([]byte, len(entry.value))
	copy(value, entry.value)
	return value, nil
}

func (s *MemoryStore) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	entry := &timedEntry{value: stored}
	if ttl > 0 {
		entry.expiresAt = s.nowFunc().Add(ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return false, nil
	}
	delete(s.entries, key)
	if entry.expired(s.nowFunc()) {
		// Expired entries count as already gone.
		return false, nil
	}
	return true, nil
}

func (s *MemoryStore) List(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.nowFunc()
	var keys []string
	for key, entry := range s.entries {
		if strings.HasPrefix(key, prefix) && !entry.expired(now) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (s *MemoryStore) Incr(_ context.Context, key string, ttl time.Duration) (int64, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFunc()
	entry, ok := s.entries[key]
	if !ok || entry.expired(now) {
		entry = &timedEntry{}
		if ttl > 0 {
			entry.expiresAt = now.Add(ttl)
		}
		s.entries[key] = entry
	}
	entry.counter++

	var remaining time.Duration
	if !entry.expiresAt.IsZero() {
		remaining = entry.expiresAt.Sub(now)
	}
	return entry.counter, remaining, nil
}

// Ping is a no-op for the in-memory store.
func (*MemoryStore) Ping(_ context.Context) error { return nil }

// Close stops the cleanup goroutine and waits for it to finish.
func (s *MemoryStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopCleanup)
		<-s.cleanupDone
	})
	return nil
}

func (s *MemoryStore) cleanupLoop() {
	defer close(s.cleanupDone)

	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCleanup:
			return
		case <-ticker.C:
			s.cleanupExpired()
		}
	}
}

// cleanupExpired collects expired keys under a read lock, then deletes them
// under the write lock, keeping write-lock hold time short.
func (s *MemoryStore) cleanupExpired() {
	now := s.nowFunc()

	s.mu.RLock()
	var expiredKeys []string
	for key, entry := range s.entries {
		if entry.expired(now) {
			expiredKeys = append(expiredKeys, key)
		}
	}
	s.mu.RUnlock()

	if len(expiredKeys) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range expiredKeys {
		if entry, ok := s.entries[key]; ok && entry.expired(now) {
			delete(s.entries, key)
		}
	}
}
