// Package fanout consumes the broadcast channel and hands each distributed
// alert to every registered delivery sink.
package fanout

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	kafkago "github.com/segmentio/kafka-go"

	"disaster-alerts/internal/model"
)

var deliveries = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "fanout_deliveries_total",
	Help: "Per-sink delivery outcomes for distributed alerts",
}, []string{"sink", "result"})

// Sink is one delivery transport. Deliver is best-effort: partial failure is
// reported through the outcome counts, never as an error.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, payload []byte) model.DeliveryOutcome
}

// messageReader is the slice of kafka.Reader the dispatcher consumes.
type messageReader interface {
	ReadMessage(ctx context.Context) (kafkago.Message, error)
}

// Dispatcher fans one serialized alert out to all sinks concurrently.
type Dispatcher struct {
	sinks  []Sink
	logger *slog.Logger
}

// NewDispatcher builds a dispatcher over the given sinks.
func NewDispatcher(logger *slog.Logger, sinks ...Sink) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{sinks: sinks, logger: logger}
}

// Dispatch delivers payload to every sink and returns the aggregate outcome.
// Sinks run concurrently; a slow transport does not hold up the others.
func (d *Dispatcher) Dispatch(ctx context.Context, payload []byte) model.DeliveryOutcome {
	var (
		mu    sync.Mutex
		total model.DeliveryOutcome
		wg    sync.WaitGroup
	)
	for _, sink := range d.sinks {
		wg.Add(1)
		go func(s Sink) {
			defer wg.Done()
			out := s.Deliver(ctx, payload)
			deliveries.WithLabelValues(s.Name(), "sent").Add(float64(out.Sent))
			deliveries.WithLabelValues(s.Name(), "removed").Add(float64(out.Removed))
			deliveries.WithLabelValues(s.Name(), "failed").Add(float64(out.Failed))
			mu.Lock()
			total.Add(out)
			mu.Unlock()
		}(sink)
	}
	wg.Wait()
	return total
}

// Run consumes the broadcast channel until ctx is cancelled, dispatching
// every message. Read errors back off briefly and continue.
func (d *Dispatcher) Run(ctx context.Context, reader messageReader) {
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			d.logger.Error("read broadcast channel", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		out := d.Dispatch(ctx, msg.Value)
		d.logger.Info("dispatched alert",
			"sent", out.Sent, "removed", out.Removed, "failed", out.Failed)
	}
}
