// Package ch loads the replayed event logs into ClickHouse for offline
// analysis of alert volume, distribution decisions and end-to-end latency.
package ch

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/ClickHouse/clickhouse-go/v2"

	"disaster-alerts/internal/model"
)

// Client wraps a ClickHouse connection.
type Client struct {
	db *sql.DB
}

// New creates a ClickHouse client from a DSN.
func New(ctx context.Context, dsn string) (*Client, error) {
	db, err := sql.Open("clickhouse", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxIdleConns(5)
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Client{db: db}, nil
}

// Close releases database resources.
func (c *Client) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// EnsureSchema creates the analysis tables if they do not exist.
func (c *Client) EnsureSchema(ctx context.Context) error {
	ddls := []string{`
CREATE TABLE IF NOT EXISTS alert_events
(
  alert_id          String,
  report_id         String,
  server_timestamp  DateTime64(3, 'UTC'),
  is_high_risk      UInt8,
  is_multisign      UInt8,
  should_distribute UInt8,
  sign_count        UInt16,
  ml_description    String,
  raw               JSON
)
ENGINE = MergeTree
PARTITION BY toYYYYMM(server_timestamp)
ORDER BY (server_timestamp, alert_id)`, `
CREATE TABLE IF NOT EXISTS ack_events
(
  alert_id              String,
  transport             LowCardinality(String),
  ack_stage             LowCardinality(String),
  client_id             String,
  received_at_client    Float64,
  server_timestamp      Float64,
  received_at_server    DateTime64(3, 'UTC'),
  end_to_end_latency_ms Float64
)
ENGINE = MergeTree
PARTITION BY toYYYYMM(received_at_server)
ORDER BY (received_at_server, alert_id, transport)`, `
CREATE TABLE IF NOT EXISTS report_sync_events
(
  status             LowCardinality(String),
  client_report_id   String,
  report_id          String,
  alert_id           String,
  received_at_server DateTime64(3, 'UTC'),
  sync_delay_ms      Nullable(Float64),
  should_distribute  Nullable(UInt8),
  ml_status          UInt16
)
ENGINE = MergeTree
PARTITION BY toYYYYMM(received_at_server)
ORDER BY (received_at_server, report_id)`}

	for _, ddl := range ddls {
		if _, err := c.db.ExecContext(ctx, ddl); err != nil {
			return err
		}
	}
	return nil
}

// InsertAlertBatch writes a batch of alert events in one transaction.
func (c *Client) InsertAlertBatch(ctx context.Context, events []model.AlertEvent) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO alert_events (
	alert_id, report_id, server_timestamp, is_high_risk, is_multisign,
	should_distribute, sign_count, ml_description, raw
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, evt := range events {
		raw, err := json.Marshal(evt)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
		if _, err := stmt.ExecContext(
			ctx,
			evt.AlertID,
			evt.ReportID,
			time.UnixMilli(evt.ServerTimestamp).UTC(),
			boolToUint8(evt.Decision.IsHighRisk),
			boolToUint8(evt.Decision.IsMultisign),
			boolToUint8(evt.Decision.ShouldDistribute),
			uint16(len(evt.Input.LikCodes)),
			evt.ML.Description,
			string(raw),
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// InsertAckBatch writes a batch of acknowledgement events.
func (c *Client) InsertAckBatch(ctx context.Context, events []model.AckEvent) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO ack_events (
	alert_id, transport, ack_stage, client_id, received_at_client,
	server_timestamp, received_at_server, end_to_end_latency_ms
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, evt := range events {
		if _, err := stmt.ExecContext(
			ctx,
			evt.AlertID,
			string(evt.Transport),
			string(evt.AckStage),
			evt.ClientID,
			evt.ReceivedAtClient,
			evt.ServerTimestamp,
			time.UnixMilli(evt.ReceivedAtServer).UTC(),
			evt.EndToEndLatencyMs,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// InsertSyncBatch writes a batch of report-sync outcomes.
func (c *Client) InsertSyncBatch(ctx context.Context, events []model.ReportSyncEvent) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO report_sync_events (
	status, client_report_id, report_id, alert_id, received_at_server,
	sync_delay_ms, should_distribute, ml_status
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, evt := range events {
		clientReportID := ""
		if evt.ClientReportID != nil {
			clientReportID = *evt.ClientReportID
		}
		var distribute *uint8
		if evt.ShouldDistribute != nil {
			v := boolToUint8(*evt.ShouldDistribute)
			distribute = &v
		}
		if _, err := stmt.ExecContext(
			ctx,
			string(evt.Status),
			clientReportID,
			evt.ReportID,
			evt.AlertID,
			time.UnixMilli(evt.ReceivedAtServer).UTC(),
			evt.SyncDelayMs,
			distribute,
			uint16(evt.MLStatus),
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func boolToUint8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
