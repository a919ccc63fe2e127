// Package config provides configuration loading using koanf.
// Precedence: environment variables over compiled defaults. The returned
// Config is constructed once at startup and passed by reference; nothing
// reads the process environment after Load returns.
package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/memora-labs/memora/internal/domain"
)

// Config holds all service configuration.
type Config struct {
	// Environment identifier: "local", "dev", "prod"
	Environment string `koanf:"environment"`

	// Port is the primary HTTP listen port. Overridden by the PORT
	// environment variable; defaults to 8080.
	Port int `koanf:"port"`

	// Logging configuration
	Log LogConfig `koanf:"log"`

	// Dashboard holds the reserved port of the companion dashboard process.
	// This service never binds it; it is carried so both processes agree on
	// one value in deployment manifests.
	Dashboard DashboardConfig `koanf:"dashboard"`

	// Memory store configuration
	Memory MemoryConfig `koanf:"memory"`

	// Infrastructure configurations
	DynamoDB DynamoDBConfig `koanf:"dynamodb"`
	Redis    RedisConfig    `koanf:"redis"`
	Kafka    KafkaConfig    `koanf:"kafka"`
	AWS      AWSConfig      `koanf:"aws"`

	// GCP holds the Vertex AI model provider configuration.
	GCP GCPConfig `koanf:"gcp"`

	// OpenTelemetry configuration
	OTEL OTELConfig `koanf:"otel"`
}

// LogConfig holds structured logging configuration.
type LogConfig struct {
	Level  string `koanf:"level"`  // "debug", "info", "warn", "error"
	Format string `koanf:"format"` // "json" or "text"
}

// DashboardConfig holds the companion dashboard process configuration.
type DashboardConfig struct {
	Port int `koanf:"port"`
}

// MemoryConfig holds memory store configuration.
type MemoryConfig struct {
	Table string `koanf:"table"` // DynamoDB table holding memory chunks
}

// DynamoDBConfig holds DynamoDB configuration.
type DynamoDBConfig struct {
	Endpoint string        `koanf:"endpoint"` // Empty for production (uses default AWS endpoint)
	Timeout  time.Duration `koanf:"timeout"`
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string        `koanf:"addr"` // Required in production
	Password string        `koanf:"password"`
	DB       int           `koanf:"db"`
	Timeout  time.Duration `koanf:"timeout"`
}

// KafkaConfig holds Kafka configuration. An empty broker list disables
// ingest event publication.
type KafkaConfig struct {
	Brokers []string `koanf:"brokers"`
	Topic   string   `koanf:"topic"`
}

// AWSConfig holds AWS SDK configuration.
type AWSConfig struct {
	Region string `koanf:"region"`
}

// GCPConfig holds the Vertex AI provider configuration.
type GCPConfig struct {
	Project  string `koanf:"project"`  // Required in production
	Location string `koanf:"location"` // Vertex AI region
	// Credentials is the file-system path to the service-account key.
	// The path is not validated here: a missing or unreadable file surfaces
	// as a credential error on the first downstream model call, never at
	// startup. Accepts GCP_CREDENTIALS, falling back to the conventional
	// GOOGLE_APPLICATION_CREDENTIALS.
	Credentials string `koanf:"credentials"`
}

// OTELConfig holds OpenTelemetry configuration.
type OTELConfig struct {
	Endpoint string `koanf:"endpoint"` // Empty disables OTLP export
}

// defaults returns a Config with compiled default values.
func defaults() *Config {
	return &Config{
		Environment: "local",
		Port:        8080,
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Dashboard: DashboardConfig{
			Port: 8501,
		},
		Memory: MemoryConfig{
			Table: "memory_chunks",
		},
		DynamoDB: DynamoDBConfig{
			Timeout: domain.DynamoDBTimeout,
		},
		Redis: RedisConfig{
			Addr:    "localhost:6379",
			DB:      0,
			Timeout: domain.RedisTimeout,
		},
		Kafka: KafkaConfig{
			Topic: "memory.ingested",
		},
		AWS: AWSConfig{
			Region: "us-east-1",
		},
		GCP: GCPConfig{
			Location: "us-central1",
		},
	}
}

// Load loads configuration following the precedence:
// 1. Environment variables (highest)
// 2. Compiled defaults (lowest)
//
// Required keys missing cause startup failure (ErrConfigRequired);
// malformed values cause startup failure (ErrConfigInvalid).
func Load(ctx context.Context) (*Config, error) {
	k := koanf.New(".")

	// Start with compiled defaults
	cfg := defaults()

	// Load environment variables. No prefix; _ maps to . for nested config,
	// so PORT -> port and REDIS_ADDR -> redis.addr.
	err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(s), "_", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	// Unmarshal into config struct
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %v: %w", err, domain.ErrConfigInvalid)
	}

	// The env provider delivers KAFKA_BROKERS as a single string, so a
	// comma-separated value arrives as one element. Split it into
	// individual broker addresses.
	cfg.Kafka.Brokers = splitList(cfg.Kafka.Brokers)

	// GOOGLE_APPLICATION_CREDENTIALS is the conventional variable for the
	// service-account key path; GCP_CREDENTIALS wins when both are set.
	if cfg.GCP.Credentials == "" {
		cfg.GCP.Credentials = k.String("google.application.credentials")
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// splitList flattens comma-separated entries and trims surrounding
// whitespace, dropping empty items.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// validate checks value ranges and required keys.
func validate(cfg *Config) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", domain.ErrConfigInvalid, cfg.Port)
	}
	if cfg.Dashboard.Port < 1 || cfg.Dashboard.Port > 65535 {
		return fmt.Errorf("%w: dashboard.port %d out of range", domain.ErrConfigInvalid, cfg.Dashboard.Port)
	}
	if cfg.Port == cfg.Dashboard.Port {
		return fmt.Errorf("%w: port and dashboard.port both %d", domain.ErrConfigInvalid, cfg.Port)
	}

	// In local environment, the remaining fields have usable defaults.
	if cfg.Environment == "local" {
		return nil
	}

	if cfg.Environment == "prod" {
		if cfg.Redis.Addr == "" {
			return fmt.Errorf("%w: redis.addr", domain.ErrConfigRequired)
		}
		if cfg.Memory.Table == "" {
			return fmt.Errorf("%w: memory.table", domain.ErrConfigRequired)
		}
		if cfg.GCP.Project == "" {
			return fmt.Errorf("%w: gcp.project", domain.ErrConfigRequired)
		}
	}

	return nil
}

// IsLocal returns true if running in local development environment.
func (c *Config) IsLocal() bool {
	return c.Environment == "local"
}

// IsProd returns true if running in production environment.
func (c *Config) IsProd() bool {
	return c.Environment == "prod"
}
