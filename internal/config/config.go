package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds shared service configuration sourced from environment
// variables, with VAPID push credentials optionally loaded from a YAML file.
type Config struct {
	APIAddr           string
	LoaderMetricsAddr string

	MLBaseURL string

	KafkaBrokers    []string
	TopicAlerts     string
	TopicAcks       string
	TopicReportSync string
	TopicDistribute string

	DedupPath     string
	DedupInMemory bool

	DedupRecordTTL    time.Duration
	DedupLockTTL      time.Duration
	DedupWaitBudget   time.Duration
	DedupPollInterval time.Duration

	EnableSSE    bool
	EnableWS     bool
	EnablePush   bool
	SSEKeepAlive time.Duration

	ClickHouseDSN string
	BatchSize     int
	BatchInterval time.Duration

	HMACSecret       string
	CORSAllowOrigins []string

	Push           PushCredentials
	PushConfigPath string
}

// PushCredentials are the VAPID details for web push. All three must be set
// for push delivery to be enabled.
type PushCredentials struct {
	Subject    string `yaml:"subject"`
	PublicKey  string `yaml:"public_key"`
	PrivateKey string `yaml:"private_key"`
}

// Complete reports whether every VAPID field is present.
func (p PushCredentials) Complete() bool {
	return p.Subject != "" && p.PublicKey != "" && p.PrivateKey != ""
}

// Partial reports whether some but not all VAPID fields are present.
func (p PushCredentials) Partial() bool {
	any := p.Subject != "" || p.PublicKey != "" || p.PrivateKey != ""
	return any && !p.Complete()
}

type pushFile struct {
	Push PushCredentials `yaml:"push"`
}

// Load parses process environment variables into a Config struct, applying
// defaults when unset. A missing push credentials file disables push rather
// than failing startup.
func Load() (Config, error) {
	path := getenv("PUSH_CONFIG_PATH", "config/push.dev.yml")
	push, err := loadPushCredentials(path)
	if err != nil {
		return Config{}, fmt.Errorf("load push config: %w", err)
	}
	// Environment overrides win over the file.
	if v := os.Getenv("VAPID_SUBJECT"); v != "" {
		push.Subject = v
	}
	if v := os.Getenv("VAPID_PUBLIC_KEY"); v != "" {
		push.PublicKey = v
	}
	if v := os.Getenv("VAPID_PRIVATE_KEY"); v != "" {
		push.PrivateKey = v
	}

	cfg := Config{
		APIAddr:           getenv("API_ADDR", ":8080"),
		LoaderMetricsAddr: getenv("LOADER_METRICS_ADDR", ":9100"),
		MLBaseURL:         getenv("ML_BASE_URL", "http://localhost:8000"),
		KafkaBrokers:      splitAndTrim(getenv("KAFKA_BROKERS", "localhost:9092")),
		TopicAlerts:       getenv("TOPIC_ALERTS", "alerts.events"),
		TopicAcks:         getenv("TOPIC_ACKS", "alerts.acks"),
		TopicReportSync:   getenv("TOPIC_REPORT_SYNC", "reports.sync"),
		TopicDistribute:   getenv("TOPIC_DISTRIBUTE", "alerts.distribute"),
		DedupPath:         getenv("DEDUP_PATH", "data/dedup"),
		DedupInMemory:     boolDefault("DEDUP_IN_MEMORY", false),
		DedupRecordTTL:    durationDefault("DEDUP_RECORD_TTL_MS", 7*24*60*60*1000),
		DedupLockTTL:      durationDefault("DEDUP_LOCK_TTL_MS", 30_000),
		DedupWaitBudget:   durationDefault("DEDUP_LOCK_WAIT_MS", 2_000),
		DedupPollInterval: durationDefault("DEDUP_LOCK_POLL_MS", 100),
		EnableSSE:         boolDefault("ENABLE_SSE_DELIVERY", true),
		EnableWS:          boolDefault("ENABLE_WS_DELIVERY", true),
		EnablePush:        boolDefault("ENABLE_PUSH_DELIVERY", true),
		SSEKeepAlive:      durationDefault("SSE_KEEPALIVE_MS", 10_000),
		ClickHouseDSN:     getenv("CLICKHOUSE_DSN", "clickhouse://default:@localhost:9000?database=default&dial_timeout=5s&compress=true"),
		BatchSize:         atoiDefault("LOADER_BATCH_SIZE", 500),
		BatchInterval:     durationDefault("LOADER_BATCH_INTERVAL_MS", 800),
		HMACSecret:        os.Getenv("HMAC_SECRET"),
		CORSAllowOrigins:  splitAndTrim(getenv("CORS_ALLOW_ORIGINS", "*")),
		Push:              push,
		PushConfigPath:    path,
	}
	return cfg, nil
}

func getenv(key, def string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return def
}

func splitAndTrim(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func atoiDefault(key string, def int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func boolDefault(key string, def bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return def
}

func durationDefault(key string, defMS int) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(val); err == nil {
			return time.Duration(parsed) * time.Millisecond
		}
	}
	return time.Duration(defMS) * time.Millisecond
}

func loadPushCredentials(path string) (PushCredentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return PushCredentials{}, nil
		}
		return PushCredentials{}, err
	}
	var file pushFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return PushCredentials{}, err
	}
	return file.Push, nil
}
