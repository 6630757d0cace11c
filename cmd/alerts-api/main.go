package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"disaster-alerts/internal/auth"
	"disaster-alerts/internal/classifier"
	"disaster-alerts/internal/config"
	"disaster-alerts/internal/fanout"
	"disaster-alerts/internal/handlers"
	"disaster-alerts/internal/httpx"
	ikafka "disaster-alerts/internal/kafka"
	"disaster-alerts/internal/pipeline"
	"disaster-alerts/internal/push"
	"disaster-alerts/internal/registry"
	"disaster-alerts/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)
	log.Printf("starting alerts API on %s", cfg.APIAddr)

	db, err := store.Open(cfg.DedupPath, cfg.DedupInMemory)
	if err != nil {
		log.Fatalf("open dedup store: %v", err)
	}
	defer db.Close()

	alertsLog := store.NewKafkaLog(ikafka.NewWriter(cfg.KafkaBrokers, cfg.TopicAlerts))
	acksLog := store.NewKafkaLog(ikafka.NewWriter(cfg.KafkaBrokers, cfg.TopicAcks))
	syncLog := store.NewKafkaLog(ikafka.NewWriter(cfg.KafkaBrokers, cfg.TopicReportSync))
	broadcast := store.NewKafkaLog(ikafka.NewWriter(cfg.KafkaBrokers, cfg.TopicDistribute))
	defer alertsLog.Close()
	defer acksLog.Close()
	defer syncLog.Close()
	defer broadcast.Close()

	pipe := pipeline.New(pipeline.Options{
		Classifier:   classifier.New(cfg.MLBaseURL, nil),
		Dedup:        store.NewBadgerDedup(db),
		Alerts:       alertsLog,
		SyncLog:      syncLog,
		Broadcast:    broadcast,
		LockTTL:      cfg.DedupLockTTL,
		RecordTTL:    cfg.DedupRecordTTL,
		WaitBudget:   cfg.DedupWaitBudget,
		PollInterval: cfg.DedupPollInterval,
		Logger:       logger,
	})
	recorder := pipeline.NewAckRecorder(acksLog)

	sseReg := registry.New("sse", logger)
	wsReg := registry.New("ws", logger)

	var sender push.Sender
	if cfg.Push.Complete() {
		sender = push.NewWebPushSender(push.Credentials{
			Subject:    cfg.Push.Subject,
			PublicKey:  cfg.Push.PublicKey,
			PrivateKey: cfg.Push.PrivateKey,
		})
	} else if cfg.Push.Partial() {
		logger.Warn("partial VAPID credentials found, push disabled")
	} else {
		logger.Warn("VAPID credentials missing, push disabled")
	}
	pushSvc := push.NewService(push.NewSubscriptionStore(db), sender, cfg.Push.PublicKey, logger)

	var sinks []fanout.Sink
	if cfg.EnableSSE {
		sinks = append(sinks, sseReg)
	}
	if cfg.EnableWS {
		sinks = append(sinks, wsReg)
	}
	if cfg.EnablePush {
		sinks = append(sinks, pushSvc)
	}
	dispatcher := fanout.NewDispatcher(logger, sinks...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reader := ikafka.NewGroupReader(cfg.KafkaBrokers, cfg.TopicDistribute, "alerts-fanout")
	defer reader.Close()
	go dispatcher.Run(ctx, reader)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(httpx.NewHTTPMetrics("alerts_api").Handler())
	router.Use(httpx.CORSMiddleware(cfg.CORSAllowOrigins))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	if cfg.HMACSecret != "" {
		signed := api.Group("/")
		signed.Use(auth.SignatureMiddleware(cfg.HMACSecret))
		handlers.RegisterReportRoutes(signed, pipe)
	} else {
		handlers.RegisterReportRoutes(api, pipe)
	}
	handlers.RegisterAckRoutes(api, recorder)
	handlers.RegisterSSERoutes(api, sseReg, cfg.SSEKeepAlive)
	handlers.RegisterWSRoutes(api, wsReg, logger)
	handlers.RegisterPushRoutes(api, pushSvc)
	handlers.RegisterHealthRoutes(api, cfg, pushSvc, sseReg, wsReg)

	server := &http.Server{
		Addr:    cfg.APIAddr,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("alerts API server failed: %v", err)
		}
	}()

	graceful(server, cancel)
}

func graceful(server *http.Server, cancel context.CancelFunc) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("shutting down alerts API...")
	cancel()
	ctx, cancelTimeout := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelTimeout()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
