package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"disaster-alerts/internal/model"
	"disaster-alerts/internal/store"
)

// AckRecorder turns client delivery receipts into ack-log events. This path
// only fails the caller for malformed input; analytics trouble downstream is
// never the client's problem.
type AckRecorder struct {
	acks store.AppendLog
}

// NewAckRecorder wraps the ack log.
func NewAckRecorder(acks store.AppendLog) *AckRecorder {
	return &AckRecorder{acks: acks}
}

// Record validates the receipt, derives the ack event and appends it.
// Latency is receivedAtClient minus serverTimestamp, unclamped: negative
// values signal client clock skew and are preserved.
func (r *AckRecorder) Record(ctx context.Context, input model.AckInput) (*model.AckEvent, error) {
	if input.AlertID == "" {
		return nil, validationErr("alertId required")
	}
	if input.Transport == "" {
		return nil, validationErr("transport required")
	}
	if !model.ValidTransport(input.Transport) {
		return nil, validationErr("transport must be SSE, WS or PUSH")
	}
	if input.ReceivedAtClient == nil || input.ServerTimestamp == nil {
		return nil, validationErr("receivedAtClient and serverTimestamp must be numbers")
	}
	stage := input.AckStage
	switch stage {
	case "":
		stage = model.AckUnspecified
	case model.AckDelivered, model.AckOpened:
	default:
		return nil, validationErr("ackStage must be DELIVERED or OPENED")
	}

	clientID := input.ClientID
	if clientID == "" {
		clientID = "anon"
	}

	event := model.AckEvent{
		AlertID:           input.AlertID,
		Transport:         input.Transport,
		ReceivedAtClient:  *input.ReceivedAtClient,
		ServerTimestamp:   *input.ServerTimestamp,
		AckStage:          stage,
		ClientID:          clientID,
		ReceivedAtServer:  time.Now().UnixMilli(),
		AckKey:            fmt.Sprintf("%s:%s:%s:%s", input.AlertID, input.Transport, stage, clientID),
		EndToEndLatencyMs: *input.ReceivedAtClient - *input.ServerTimestamp,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode ack event: %w", err)
	}
	if err := r.acks.Append(ctx, payload); err != nil {
		return nil, fmt.Errorf("append ack event: %w", err)
	}
	return &event, nil
}
