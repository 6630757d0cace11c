package pipeline

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"disaster-alerts/internal/model"
	"disaster-alerts/internal/store"
)

func ackInput(received, server float64) model.AckInput {
	return model.AckInput{
		AlertID:          "alert-1",
		Transport:        model.TransportSSE,
		ReceivedAtClient: &received,
		ServerTimestamp:  &server,
	}
}

func TestAckLatencyComputation(t *testing.T) {
	acks := store.NewMemoryLog()
	recorder := NewAckRecorder(acks)

	event, err := recorder.Record(context.Background(), ackInput(1250, 1000))
	require.NoError(t, err)
	require.Equal(t, 250.0, event.EndToEndLatencyMs)
	require.Equal(t, 1, acks.Len())
}

func TestAckNegativeLatencyPreserved(t *testing.T) {
	recorder := NewAckRecorder(store.NewMemoryLog())

	event, err := recorder.Record(context.Background(), ackInput(900, 1000))
	require.NoError(t, err)
	require.Equal(t, -100.0, event.EndToEndLatencyMs)
}

func TestAckDefaultsAndKey(t *testing.T) {
	acks := store.NewMemoryLog()
	recorder := NewAckRecorder(acks)

	input := ackInput(1250, 1000)
	input.Transport = model.TransportPush
	input.AckStage = model.AckOpened
	input.ClientID = "client-7"
	event, err := recorder.Record(context.Background(), input)
	require.NoError(t, err)
	require.Equal(t, "alert-1:PUSH:OPENED:client-7", event.AckKey)

	event, err = recorder.Record(context.Background(), ackInput(1250, 1000))
	require.NoError(t, err)
	require.Equal(t, model.AckUnspecified, event.AckStage)
	require.Equal(t, "alert-1:SSE:UNSPECIFIED:anon", event.AckKey)

	var stored model.AckEvent
	require.NoError(t, json.Unmarshal(acks.Records()[1], &stored))
	require.Equal(t, event.AckKey, stored.AckKey)
	require.NotZero(t, stored.ReceivedAtServer)
}

func TestAckValidation(t *testing.T) {
	recorder := NewAckRecorder(store.NewMemoryLog())

	cases := []struct {
		name   string
		mutate func(*model.AckInput)
	}{
		{"missing alertId", func(in *model.AckInput) { in.AlertID = "" }},
		{"missing transport", func(in *model.AckInput) { in.Transport = "" }},
		{"unknown transport", func(in *model.AckInput) { in.Transport = "CARRIER_PIGEON" }},
		{"missing client timestamp", func(in *model.AckInput) { in.ReceivedAtClient = nil }},
		{"missing server timestamp", func(in *model.AckInput) { in.ServerTimestamp = nil }},
		{"unknown ack stage", func(in *model.AckInput) { in.AckStage = "SEEN" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := ackInput(1250, 1000)
			tc.mutate(&input)
			_, err := recorder.Record(context.Background(), input)
			var validation *ValidationError
			require.ErrorAs(t, err, &validation)
		})
	}
}
