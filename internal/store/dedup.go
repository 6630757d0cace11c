package store

import (
	"context"
	"sync"
	"time"
)

// DedupStore coordinates idempotent report processing. Records hold the
// cached final response for a token; locks are short-lived create-if-absent
// markers guarding first-time processing. Both expire on their own TTLs so a
// crashed holder can never wedge a token forever.
type DedupStore interface {
	// GetRecord returns the cached response for token, if one exists.
	GetRecord(ctx context.Context, token string) ([]byte, bool, error)
	// PutRecord caches the final response for token with the given TTL.
	PutRecord(ctx context.Context, token string, value []byte, ttl time.Duration) error
	// TryLock atomically creates the processing lock for token. It returns
	// false without error when another submission already holds it.
	TryLock(ctx context.Context, token string, ttl time.Duration) (bool, error)
	// Unlock removes the processing lock for token. Unlocking a token that
	// holds no lock is a no-op.
	Unlock(ctx context.Context, token string) error
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryDedup is a mutex-guarded DedupStore for tests and single-node dev
// runs. TTLs are honoured lazily on access.
type MemoryDedup struct {
	mu      sync.Mutex
	records map[string]memoryEntry
	locks   map[string]memoryEntry
}

// NewMemoryDedup returns an empty in-memory dedup store.
func NewMemoryDedup() *MemoryDedup {
	return &MemoryDedup{
		records: make(map[string]memoryEntry),
		locks:   make(map[string]memoryEntry),
	}
}

// GetRecord implements DedupStore.
func (m *MemoryDedup) GetRecord(_ context.Context, token string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.records[token]
	if !ok {
		return nil, false, nil
	}
	if entry.expired(time.Now()) {
		delete(m.records, token)
		return nil, false, nil
	}
	return append([]byte(nil), entry.value...), true, nil
}

// PutRecord implements DedupStore.
func (m *MemoryDedup) PutRecord(_ context.Context, token string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	m.records[token] = entry
	return nil
}

// TryLock implements DedupStore.
func (m *MemoryDedup) TryLock(_ context.Context, token string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry, ok := m.locks[token]; ok && !entry.expired(time.Now()) {
		return false, nil
	}
	entry := memoryEntry{value: []byte("1")}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	m.locks[token] = entry
	return true, nil
}

// Unlock implements DedupStore.
func (m *MemoryDedup) Unlock(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, token)
	return nil
}
