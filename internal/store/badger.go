package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

const (
	dedupRecordPrefix = "report:dedupe:"
	dedupLockSuffix   = ":lock"
)

// Open opens (or creates) the embedded badger database backing the dedup
// namespace and the push subscription table. inMemory is intended for tests
// and local development.
func Open(path string, inMemory bool) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithInMemory(inMemory).
		WithLogger(nil).
		WithNumVersionsToKeep(1)
	if inMemory {
		opts = opts.WithDir("").WithValueDir("")
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", path, err)
	}
	return db, nil
}

// BadgerDedup implements DedupStore on an embedded badger database. Records
// and locks live in the same keyspace under distinct keys; badger's
// transactional conflict detection provides the atomic create-if-absent the
// lock protocol relies on, and entry TTLs provide crash recovery.
type BadgerDedup struct {
	db *badger.DB
}

// NewBadgerDedup wraps an open badger handle.
func NewBadgerDedup(db *badger.DB) *BadgerDedup {
	return &BadgerDedup{db: db}
}

func recordKey(token string) []byte {
	return []byte(dedupRecordPrefix + token)
}

func lockKey(token string) []byte {
	return []byte(dedupRecordPrefix + token + dedupLockSuffix)
}

// GetRecord implements DedupStore.
func (s *BadgerDedup) GetRecord(_ context.Context, token string) ([]byte, bool, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(token))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("dedup get %q: %w", token, err)
	}
	return value, true, nil
}

// PutRecord implements DedupStore.
func (s *BadgerDedup) PutRecord(_ context.Context, token string, value []byte, ttl time.Duration) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(recordKey(token), value)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("dedup put %q: %w", token, err)
	}
	return nil
}

// TryLock implements DedupStore. Two submissions racing for the same token
// both observe the key absent inside their transactions; badger's conflict
// detection fails one of the commits, which reads as "not acquired".
func (s *BadgerDedup) TryLock(_ context.Context, token string, ttl time.Duration) (bool, error) {
	err := s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(lockKey(token))
		if err == nil {
			return badger.ErrConflict
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		entry := badger.NewEntry(lockKey(token), []byte("1"))
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
	if errors.Is(err, badger.ErrConflict) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("dedup lock %q: %w", token, err)
	}
	return true, nil
}

// Unlock implements DedupStore.
func (s *BadgerDedup) Unlock(_ context.Context, token string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(lockKey(token))
	})
	if err != nil {
		return fmt.Errorf("dedup unlock %q: %w", token, err)
	}
	return nil
}
