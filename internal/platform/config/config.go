// Package config builds runtime configuration from the environment so main
// stays lean. Every setting has a development default; production deploys
// override via env.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full runtime configuration for the scorecard engine.
type Config struct {
	Server   Server
	Postgres Postgres
	Redis    Redis
	Kafka    Kafka
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr             string
	JWTSigningKey    string
	ShutdownTimeout  time.Duration
	EvaluationBudget time.Duration
}

// Postgres captures database connection configuration.
type Postgres struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
}

// Redis captures the active-snapshot cache configuration.
// An empty URL disables the cache entirely.
type Redis struct {
	URL          string
	SnapshotTTL  time.Duration
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka captures the audit outbox publisher configuration.
// Empty brokers leave outbox rows unpublished (dev mode).
type Kafka struct {
	Brokers      []string
	AuditTopic   string
	PollInterval time.Duration
	BatchSize    int
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:             envOr("SCOREWISE_ADDR", ":8080"),
			JWTSigningKey:    envOr("SERVICE_TOKEN_KEY", "dev-secret-key-change-in-production"),
			ShutdownTimeout:  envDurationOr("SHUTDOWN_TIMEOUT", 10*time.Second),
			EvaluationBudget: envDurationOr("EVALUATION_BUDGET", 5*time.Second),
		},
		Postgres: Postgres{
			DSN:          os.Getenv("POSTGRES_DSN"),
			MaxOpenConns: envIntOr("POSTGRES_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envIntOr("POSTGRES_MAX_IDLE_CONNS", 5),
		},
		Redis: Redis{
			URL:          os.Getenv("REDIS_URL"),
			SnapshotTTL:  envDurationOr("SNAPSHOT_CACHE_TTL", 30*time.Second),
			DialTimeout:  envDurationOr("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDurationOr("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDurationOr("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Brokers:      splitNonEmpty(os.Getenv("KAFKA_BROKERS")),
			AuditTopic:   envOr("AUDIT_TOPIC", "scorewise.evaluations"),
			PollInterval: envDurationOr("OUTBOX_POLL_INTERVAL", 2*time.Second),
			BatchSize:    envIntOr("OUTBOX_BATCH_SIZE", 100),
		},
	}
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return value
}

func splitNonEmpty(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
