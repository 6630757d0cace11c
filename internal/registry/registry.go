// Package registry holds the in-memory membership sets for the live stream
// transports. Membership is the only state; it resets on process restart.
package registry

import (
	"context"
	"log/slog"
	"sync"

	"disaster-alerts/internal/model"
)

// Subscriber is one live connection. Send must be safe to call concurrently
// with the connection's own keep-alive writes.
type Subscriber interface {
	Send(payload []byte) error
}

// Registry is a concurrent-safe set of live subscribers with best-effort
// broadcast. A failed write removes the subscriber on the spot; one broken
// recipient never blocks delivery to the rest.
type Registry struct {
	name   string
	logger *slog.Logger

	mu   sync.RWMutex
	subs map[Subscriber]struct{}
}

// New returns an empty registry. name labels log lines and fan-out outcomes.
func New(name string, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		name:   name,
		logger: logger,
		subs:   make(map[Subscriber]struct{}),
	}
}

// Name identifies this registry as a fan-out sink.
func (r *Registry) Name() string {
	return r.name
}

// Add registers a live connection.
func (r *Registry) Add(s Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs[s] = struct{}{}
}

// Remove drops a connection; safe to call for members already removed.
func (r *Registry) Remove(s Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subs, s)
}

// Len returns the current membership count.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

// Deliver broadcasts payload to a snapshot of the current membership.
// Writes that fail remove the subscriber and count as removed; delivery is
// unordered across recipients.
func (r *Registry) Deliver(_ context.Context, payload []byte) model.DeliveryOutcome {
	r.mu.RLock()
	snapshot := make([]Subscriber, 0, len(r.subs))
	for s := range r.subs {
		snapshot = append(snapshot, s)
	}
	r.mu.RUnlock()

	var out model.DeliveryOutcome
	for _, s := range snapshot {
		if err := s.Send(payload); err != nil {
			r.Remove(s)
			out.Removed++
			r.logger.Debug("dropped dead subscriber", "registry", r.name, "error", err)
			continue
		}
		out.Sent++
	}
	return out
}
