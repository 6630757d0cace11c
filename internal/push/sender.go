package push

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"

	"disaster-alerts/internal/model"
)

// ErrSubscriptionGone marks an endpoint the push provider reports as
// permanently gone (HTTP 404/410). Callers prune the subscription.
var ErrSubscriptionGone = errors.New("push subscription gone")

// Sender delivers one encrypted notification to one subscription.
type Sender interface {
	Send(ctx context.Context, sub model.PushSubscription, payload []byte, topic string) error
}

// WebPushSender sends VAPID-signed notifications through the subscription's
// provider endpoint.
type WebPushSender struct {
	creds Credentials
}

// Credentials are the VAPID details used to sign every send.
type Credentials struct {
	Subject    string
	PublicKey  string
	PrivateKey string
}

// NewWebPushSender returns a sender signing with creds.
func NewWebPushSender(creds Credentials) *WebPushSender {
	return &WebPushSender{creds: creds}
}

// Send implements Sender. Notifications expire after 60s and carry high
// urgency; topic lets the provider collapse superseded alerts.
func (s *WebPushSender) Send(ctx context.Context, sub model.PushSubscription, payload []byte, topic string) error {
	res, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			Auth:   sub.Keys.Auth,
			P256dh: sub.Keys.P256dh,
		},
	}, &webpush.Options{
		Subscriber:      s.creds.Subject,
		VAPIDPublicKey:  s.creds.PublicKey,
		VAPIDPrivateKey: s.creds.PrivateKey,
		TTL:             60,
		Urgency:         webpush.UrgencyHigh,
		Topic:           topic,
	})
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, res.Body)
		_ = res.Body.Close()
	}()

	switch {
	case res.StatusCode == http.StatusNotFound || res.StatusCode == http.StatusGone:
		return ErrSubscriptionGone
	case res.StatusCode >= 400:
		return fmt.Errorf("push provider returned status %d", res.StatusCode)
	}
	return nil
}
