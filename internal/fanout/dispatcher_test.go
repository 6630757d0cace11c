package fanout

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"disaster-alerts/internal/model"
)

type fakeSink struct {
	name    string
	outcome model.DeliveryOutcome
	delay   time.Duration

	mu       sync.Mutex
	payloads [][]byte
}

func (f *fakeSink) Name() string { return f.name }

func (f *fakeSink) Deliver(_ context.Context, payload []byte) model.DeliveryOutcome {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	f.payloads = append(f.payloads, payload)
	f.mu.Unlock()
	return f.outcome
}

func TestDispatchAggregatesOutcomes(t *testing.T) {
	sse := &fakeSink{name: "sse", outcome: model.DeliveryOutcome{Sent: 3, Removed: 1}}
	ws := &fakeSink{name: "ws", outcome: model.DeliveryOutcome{Sent: 2}}
	pushSink := &fakeSink{name: "push", outcome: model.DeliveryOutcome{Sent: 5, Failed: 2}}
	d := NewDispatcher(nil, sse, ws, pushSink)

	total := d.Dispatch(context.Background(), []byte("alert"))
	require.Equal(t, model.DeliveryOutcome{Sent: 10, Removed: 1, Failed: 2}, total)
	require.Len(t, sse.payloads, 1)
	require.Len(t, ws.payloads, 1)
	require.Len(t, pushSink.payloads, 1)
}

func TestDispatchRunsSinksConcurrently(t *testing.T) {
	slow := &fakeSink{name: "slow", delay: 100 * time.Millisecond}
	fast := &fakeSink{name: "fast"}
	d := NewDispatcher(nil, slow, slow, fast)

	start := time.Now()
	d.Dispatch(context.Background(), []byte("alert"))
	elapsed := time.Since(start)

	// Two 100ms sinks in parallel finish well under 200ms sequential time.
	require.Less(t, elapsed, 180*time.Millisecond)
}

func TestDispatchNoSinks(t *testing.T) {
	d := NewDispatcher(nil)
	total := d.Dispatch(context.Background(), []byte("alert"))
	require.Equal(t, model.DeliveryOutcome{}, total)
}
