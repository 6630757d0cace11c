package push

import (
	"encoding/json"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"disaster-alerts/internal/model"
)

const subscriptionPrefix = "push:subs:"

// SubscriptionStore persists push subscriptions in badger, keyed by their
// provider endpoint.
type SubscriptionStore struct {
	db *badger.DB
}

// NewSubscriptionStore wraps an open badger handle.
func NewSubscriptionStore(db *badger.DB) *SubscriptionStore {
	return &SubscriptionStore{db: db}
}

func subscriptionKey(endpoint string) []byte {
	return []byte(subscriptionPrefix + endpoint)
}

// Save creates or overwrites the subscription for its endpoint.
func (s *SubscriptionStore) Save(sub model.PushSubscription) error {
	value, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("encode subscription: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(subscriptionKey(sub.Endpoint), value)
	})
	if err != nil {
		return fmt.Errorf("save subscription: %w", err)
	}
	return nil
}

// Remove deletes the subscription for endpoint; removing an unknown endpoint
// is a no-op.
func (s *SubscriptionStore) Remove(endpoint string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(subscriptionKey(endpoint))
	})
	if err != nil {
		return fmt.Errorf("remove subscription: %w", err)
	}
	return nil
}

// List returns every stored subscription, skipping rows that fail to decode
// or are missing key material.
func (s *SubscriptionStore) List() ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(subscriptionPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var sub model.PushSubscription
				if err := json.Unmarshal(val, &sub); err != nil {
					return nil // skip malformed rows
				}
				if sub.Valid() {
					subs = append(subs, sub)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	return subs, nil
}

// Count returns the number of stored subscriptions.
func (s *SubscriptionStore) Count() (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(subscriptionPrefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count subscriptions: %w", err)
	}
	return count, nil
}
