// Package push manages browser push subscriptions and fans distributed
// alerts out to every stored endpoint.
package push

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"disaster-alerts/internal/model"
)

// notification is the payload shape the service worker expects.
type notification struct {
	Type       string           `json:"type"`
	Title      string           `json:"title"`
	Body       string           `json:"body"`
	AlertEvent model.AlertEvent `json:"alertEvent"`
}

// Service owns the subscription table and implements the push fan-out sink.
// When VAPID credentials are absent it stays registered but inert, and the
// subscription endpoints answer 503.
type Service struct {
	store      *SubscriptionStore
	sender     Sender
	publicKey  string
	configured bool
	logger     *slog.Logger
}

// NewService wires the subscription store to a sender. A nil sender (no
// usable VAPID credentials) leaves the service unconfigured.
func NewService(store *SubscriptionStore, sender Sender, publicKey string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:      store,
		sender:     sender,
		publicKey:  publicKey,
		configured: sender != nil && publicKey != "",
		logger:     logger,
	}
}

// Configured reports whether push delivery is usable.
func (s *Service) Configured() bool {
	return s.configured
}

// PublicKey returns the VAPID public key clients subscribe with.
func (s *Service) PublicKey() string {
	return s.publicKey
}

// Store exposes the subscription table to the HTTP handlers.
func (s *Service) Store() *SubscriptionStore {
	return s.store
}

// Name identifies this sink in fan-out outcomes.
func (s *Service) Name() string {
	return "push"
}

// Deliver sends one notification per stored subscription. Gone endpoints are
// pruned and counted as removed; transient failures are counted and the
// subscription kept for the next alert. Partial failure never escalates.
func (s *Service) Deliver(ctx context.Context, payload []byte) model.DeliveryOutcome {
	var out model.DeliveryOutcome
	if !s.configured {
		return out
	}

	var alert model.AlertEvent
	if err := json.Unmarshal(payload, &alert); err != nil {
		s.logger.Error("undecodable alert payload for push", "error", err)
		return out
	}

	body, err := json.Marshal(notification{
		Type:       model.EventTypeAlert,
		Title:      "Disaster Alert",
		Body:       "New high-risk alert received.",
		AlertEvent: alert,
	})
	if err != nil {
		s.logger.Error("encode push notification", "error", err)
		return out
	}

	topic := alert.AlertID
	if len(topic) > 32 {
		topic = topic[:32]
	}

	subs, err := s.store.List()
	if err != nil {
		s.logger.Error("list push subscriptions", "error", err)
		return out
	}

	for _, sub := range subs {
		err := s.sender.Send(ctx, sub, body, topic)
		switch {
		case err == nil:
			out.Sent++
		case errors.Is(err, ErrSubscriptionGone):
			if err := s.store.Remove(sub.Endpoint); err != nil {
				s.logger.Error("prune gone subscription", "endpoint", sub.Endpoint, "error", err)
			}
			out.Removed++
		default:
			out.Failed++
		}
	}
	return out
}
