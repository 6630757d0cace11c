package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"disaster-alerts/internal/ch"
	"disaster-alerts/internal/config"
	ikafka "disaster-alerts/internal/kafka"
	"disaster-alerts/internal/model"
	"disaster-alerts/pkg/batcher"
)

var (
	rowsLoaded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loader_rows_loaded_total",
		Help: "Rows inserted into ClickHouse by source log",
	}, []string{"log"})
	loadErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loader_errors_total",
		Help: "Consume/decode/insert failures by source log",
	}, []string{"log"})
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	chClient, err := ch.New(ctx, cfg.ClickHouseDSN)
	if err != nil {
		log.Fatalf("connect clickhouse: %v", err)
	}
	defer chClient.Close()
	if err := chClient.EnsureSchema(ctx); err != nil {
		log.Fatalf("ensure schema: %v", err)
	}

	go serveMetrics(cfg.LoaderMetricsAddr)
	go handleSignals(cancel)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		consume(ctx, cfg, cfg.TopicAlerts, "alerts", func(value []byte, b *batcher.Batcher[model.AlertEvent]) error {
			var evt model.AlertEvent
			if err := json.Unmarshal(value, &evt); err != nil {
				return err
			}
			return b.Add(evt)
		}, batcher.New(cfg.BatchSize, cfg.BatchInterval, func(events []model.AlertEvent) error {
			if err := chClient.InsertAlertBatch(ctx, events); err != nil {
				return err
			}
			rowsLoaded.WithLabelValues("alerts").Add(float64(len(events)))
			return nil
		}, flushError("alerts")))
	}()
	go func() {
		defer wg.Done()
		consume(ctx, cfg, cfg.TopicAcks, "acks", func(value []byte, b *batcher.Batcher[model.AckEvent]) error {
			var evt model.AckEvent
			if err := json.Unmarshal(value, &evt); err != nil {
				return err
			}
			return b.Add(evt)
		}, batcher.New(cfg.BatchSize, cfg.BatchInterval, func(events []model.AckEvent) error {
			if err := chClient.InsertAckBatch(ctx, events); err != nil {
				return err
			}
			rowsLoaded.WithLabelValues("acks").Add(float64(len(events)))
			return nil
		}, flushError("acks")))
	}()
	go func() {
		defer wg.Done()
		consume(ctx, cfg, cfg.TopicReportSync, "report_sync", func(value []byte, b *batcher.Batcher[model.ReportSyncEvent]) error {
			var evt model.ReportSyncEvent
			if err := json.Unmarshal(value, &evt); err != nil {
				return err
			}
			return b.Add(evt)
		}, batcher.New(cfg.BatchSize, cfg.BatchInterval, func(events []model.ReportSyncEvent) error {
			if err := chClient.InsertSyncBatch(ctx, events); err != nil {
				return err
			}
			rowsLoaded.WithLabelValues("report_sync").Add(float64(len(events)))
			return nil
		}, flushError("report_sync")))
	}()
	wg.Wait()
}

// consume reads one topic into its batcher until the context ends.
func consume[T any](ctx context.Context, cfg config.Config, topic, name string, decode func([]byte, *batcher.Batcher[T]) error, b *batcher.Batcher[T]) {
	reader := ikafka.NewGroupReader(cfg.KafkaBrokers, topic, "analytics-loader")
	defer reader.Close()
	defer func() {
		if err := b.Close(); err != nil {
			log.Printf("final flush %s: %v", name, err)
		}
	}()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			loadErrors.WithLabelValues(name).Inc()
			log.Printf("read %s: %v", name, err)
			time.Sleep(time.Second)
			continue
		}
		if err := decode(msg.Value, b); err != nil {
			loadErrors.WithLabelValues(name).Inc()
			log.Printf("handle %s message at offset %d: %v", name, msg.Offset, err)
		}
	}
}

func flushError(name string) func(error) {
	return func(err error) {
		loadErrors.WithLabelValues(name).Inc()
		log.Printf("flush %s batch: %v", name, err)
	}
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Printf("metrics server: %v", err)
	}
}

func handleSignals(cancel context.CancelFunc) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("shutting down analytics loader...")
	cancel()
}
