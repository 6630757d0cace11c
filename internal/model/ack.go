package model

// Transport identifies the live delivery channel an ack refers to.
type Transport string

const (
	TransportSSE  Transport = "SSE"
	TransportWS   Transport = "WS"
	TransportPush Transport = "PUSH"
)

// ValidTransport reports whether t is one of the enumerated transports.
func ValidTransport(t Transport) bool {
	switch t {
	case TransportSSE, TransportWS, TransportPush:
		return true
	}
	return false
}

// AckStage distinguishes push delivery from the user actually opening the
// notification. Other transports leave it unspecified.
type AckStage string

const (
	AckDelivered   AckStage = "DELIVERED"
	AckOpened      AckStage = "OPENED"
	AckUnspecified AckStage = "UNSPECIFIED"
)

// AckInput is the delivery receipt a client posts back after receiving an
// alert. Timestamps are epoch milliseconds; pointers distinguish a missing
// field from zero.
type AckInput struct {
	AlertID          string    `json:"alertId"`
	Transport        Transport `json:"transport"`
	ReceivedAtClient *float64  `json:"receivedAtClient"`
	ServerTimestamp  *float64  `json:"serverTimestamp"`
	AckStage         AckStage  `json:"ackStage,omitempty"`
	ClientID         string    `json:"clientId,omitempty"`
}

// AckEvent is the derived record appended to the ack log. EndToEndLatencyMs
// may be negative under client clock skew and is preserved as-is.
type AckEvent struct {
	AlertID           string    `json:"alertId"`
	Transport         Transport `json:"transport"`
	ReceivedAtClient  float64   `json:"receivedAtClient"`
	ServerTimestamp   float64   `json:"serverTimestamp"`
	AckStage          AckStage  `json:"ackStage"`
	ClientID          string    `json:"clientId,omitempty"`
	ReceivedAtServer  int64     `json:"receivedAtServer"`
	AckKey            string    `json:"ackKey"`
	EndToEndLatencyMs float64   `json:"endToEndLatencyMs"`
}
