// Package pipeline implements the report-to-alert core: validation,
// idempotent deduplication, the classification call, the distribution
// decision and the append/publish ordering, plus the acknowledgement
// recorder.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"disaster-alerts/internal/classifier"
	"disaster-alerts/internal/model"
	"disaster-alerts/internal/store"
)

var reportOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "report_submissions_total",
	Help: "Report submissions by terminal outcome",
}, []string{"outcome"})

// Classifier is the pipeline's view of the classification service.
type Classifier interface {
	Predict(ctx context.Context, input model.ReportInput) (*model.MLResult, error)
}

// Options configures a Pipeline. Zero durations fall back to the reference
// values (30s lock TTL, 7d record TTL, 2s wait budget, 100ms poll).
type Options struct {
	Classifier Classifier
	Dedup      store.DedupStore
	Alerts     store.AppendLog
	SyncLog    store.AppendLog
	Broadcast  store.AppendLog

	LockTTL      time.Duration
	RecordTTL    time.Duration
	WaitBudget   time.Duration
	PollInterval time.Duration

	Logger *slog.Logger
}

// Pipeline orchestrates one report submission end to end.
type Pipeline struct {
	classifier Classifier
	dedup      store.DedupStore
	alerts     store.AppendLog
	syncLog    store.AppendLog
	broadcast  store.AppendLog

	lockTTL      time.Duration
	recordTTL    time.Duration
	waitBudget   time.Duration
	pollInterval time.Duration

	logger *slog.Logger
}

// New builds a Pipeline from opts.
func New(opts Options) *Pipeline {
	p := &Pipeline{
		classifier:   opts.Classifier,
		dedup:        opts.Dedup,
		alerts:       opts.Alerts,
		syncLog:      opts.SyncLog,
		broadcast:    opts.Broadcast,
		lockTTL:      opts.LockTTL,
		recordTTL:    opts.RecordTTL,
		waitBudget:   opts.WaitBudget,
		pollInterval: opts.PollInterval,
		logger:       opts.Logger,
	}
	if p.lockTTL <= 0 {
		p.lockTTL = 30 * time.Second
	}
	if p.recordTTL <= 0 {
		p.recordTTL = 7 * 24 * time.Hour
	}
	if p.waitBudget <= 0 {
		p.waitBudget = 2 * time.Second
	}
	if p.pollInterval <= 0 {
		p.pollInterval = 100 * time.Millisecond
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// Submit processes one report: validate, dedup, classify, decide, append,
// publish. The returned response is exactly what gets cached as the dedup
// record for the token, so duplicate submissions replay it verbatim.
func (p *Pipeline) Submit(ctx context.Context, input model.ReportInput) (*model.ReportResponse, error) {
	if err := validate(input); err != nil {
		return nil, err
	}

	receivedAtServer := time.Now().UnixMilli()
	var syncDelay *float64
	if input.CreatedAtClient != nil {
		d := float64(receivedAtServer) - *input.CreatedAtClient
		syncDelay = &d
	}

	token := input.ClientReportID
	holdsLock := false

	if token != "" {
		cached, ok, err := p.dedup.GetRecord(ctx, token)
		if err != nil {
			return nil, err
		}
		if ok {
			return p.replayCached(ctx, cached, input, syncDelay, receivedAtServer)
		}

		holdsLock, err = p.dedup.TryLock(ctx, token, p.lockTTL)
		if err != nil {
			return nil, err
		}
		if !holdsLock {
			return p.awaitRecord(ctx, input, syncDelay)
		}
	}

	if holdsLock {
		// Lock release must survive request cancellation; the TTL is only
		// the crash safety net.
		defer func() {
			unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := p.dedup.Unlock(unlockCtx, token); err != nil {
				p.logger.Error("dedup unlock failed", "token", token, "error", err)
			}
		}()
	}

	return p.process(ctx, input, syncDelay)
}

// awaitRecord polls for the lock holder's cached record until the wait
// budget runs out, then reports a conflict. It never guesses at the
// in-flight result.
func (p *Pipeline) awaitRecord(ctx context.Context, input model.ReportInput, syncDelay *float64) (*model.ReportResponse, error) {
	deadline := time.Now().Add(p.waitBudget)
	for time.Now().Before(deadline) {
		cached, ok, err := p.dedup.GetRecord(ctx, input.ClientReportID)
		if err != nil {
			return nil, err
		}
		if ok {
			return p.replayCached(ctx, cached, input, syncDelay, time.Now().UnixMilli())
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(p.pollInterval):
		}
	}
	reportOutcomes.WithLabelValues("conflict").Inc()
	return nil, ErrConflict
}

// replayCached serves a previously processed submission from the dedup
// record and appends the DEDUPED audit event.
func (p *Pipeline) replayCached(ctx context.Context, cached []byte, input model.ReportInput, syncDelay *float64, receivedAtServer int64) (*model.ReportResponse, error) {
	var resp model.ReportResponse
	if err := json.Unmarshal(cached, &resp); err != nil {
		return nil, fmt.Errorf("decode dedup record: %w", err)
	}
	resp.Deduped = true

	event := model.ReportSyncEvent{
		Status:           model.SyncDeduped,
		ClientReportID:   optional(input.ClientReportID),
		CreatedAtClient:  input.CreatedAtClient,
		ReceivedAtServer: receivedAtServer,
		SyncDelayMs:      syncDelay,
		ReportID:         resp.ReportID,
	}
	if resp.AlertEvent != nil {
		event.AlertID = resp.AlertEvent.AlertID
	}
	if err := p.appendSync(ctx, event); err != nil {
		return nil, err
	}
	reportOutcomes.WithLabelValues("deduped").Inc()
	return &resp, nil
}

// process runs the classification and fan-out steps. The caller holds the
// dedup lock when a token was supplied.
func (p *Pipeline) process(ctx context.Context, input model.ReportInput, syncDelay *float64) (*model.ReportResponse, error) {
	serverTimestamp := time.Now().UnixMilli()
	reportID := uuid.NewString()

	result, err := p.classifier.Predict(ctx, input)
	if err != nil {
		event := model.ReportSyncEvent{
			Status:           model.SyncFailedML,
			ClientReportID:   optional(input.ClientReportID),
			CreatedAtClient:  input.CreatedAtClient,
			ReceivedAtServer: time.Now().UnixMilli(),
			SyncDelayMs:      syncDelay,
			ReportID:         reportID,
		}
		var upstream *classifier.UpstreamError
		if errors.As(err, &upstream) {
			event.MLStatus = upstream.Status
		}
		if logErr := p.appendSync(ctx, event); logErr != nil {
			return nil, logErr
		}
		reportOutcomes.WithLabelValues("failed_ml").Inc()
		return nil, err
	}

	// Both signals are computed unconditionally; the decision is their OR.
	isMultisign := len(input.LikCodes) > 3
	shouldDistribute := result.IsHighRisk || isMultisign

	alert := model.AlertEvent{
		EventType:       model.EventTypeAlert,
		AlertID:         uuid.NewString(),
		ReportID:        reportID,
		ServerTimestamp: serverTimestamp,
		Client: model.ClientEcho{
			ClientReportID:  optional(input.ClientReportID),
			CreatedAtClient: input.CreatedAtClient,
		},
		Decision: model.Decision{
			IsHighRisk:       result.IsHighRisk,
			IsMultisign:      isMultisign,
			ShouldDistribute: shouldDistribute,
		},
		Input: model.AlertInput{LikCodes: input.LikCodes},
		ML:    *result,
	}

	alertJSON, err := json.Marshal(alert)
	if err != nil {
		return nil, fmt.Errorf("encode alert event: %w", err)
	}

	// Durable append precedes the ephemeral publish so the audit trail can
	// never miss a broadcast event.
	if err := p.alerts.Append(ctx, alertJSON); err != nil {
		return nil, fmt.Errorf("append alert event: %w", err)
	}
	if shouldDistribute {
		if err := p.broadcast.Append(ctx, alertJSON); err != nil {
			return nil, fmt.Errorf("publish alert event: %w", err)
		}
	}

	resp := model.ReportResponse{
		OK:               true,
		ReportID:         reportID,
		ServerTimestamp:  serverTimestamp,
		ShouldDistribute: shouldDistribute,
		AlertEvent:       &alert,
	}

	if input.ClientReportID != "" {
		record, err := json.Marshal(resp)
		if err != nil {
			return nil, fmt.Errorf("encode dedup record: %w", err)
		}
		if err := p.dedup.PutRecord(ctx, input.ClientReportID, record, p.recordTTL); err != nil {
			return nil, err
		}
	}

	event := model.ReportSyncEvent{
		Status:           model.SyncAccepted,
		ClientReportID:   optional(input.ClientReportID),
		CreatedAtClient:  input.CreatedAtClient,
		ReceivedAtServer: time.Now().UnixMilli(),
		SyncDelayMs:      syncDelay,
		ReportID:         reportID,
		AlertID:          alert.AlertID,
		ShouldDistribute: &shouldDistribute,
	}
	if err := p.appendSync(ctx, event); err != nil {
		return nil, err
	}
	reportOutcomes.WithLabelValues("accepted").Inc()
	return &resp, nil
}

func (p *Pipeline) appendSync(ctx context.Context, event model.ReportSyncEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode sync event: %w", err)
	}
	if err := p.syncLog.Append(ctx, payload); err != nil {
		return fmt.Errorf("append sync event: %w", err)
	}
	return nil
}

func validate(input model.ReportInput) error {
	if len(input.LikCodes) == 0 {
		return validationErr("lik_codes required")
	}
	if input.ClientReportID != "" {
		parsed, err := uuid.Parse(input.ClientReportID)
		if err != nil || parsed.Version() != 4 {
			return validationErr("clientReportId must be a UUIDv4 string")
		}
	}
	if input.CreatedAtClient != nil {
		v := *input.CreatedAtClient
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return validationErr("createdAtClient must be a positive number")
		}
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
