// Package config defines the configuration structures shared by the
// autofragment CLI, API server and worker.  Loading lives in loader.go and
// defaults in defaults.go; this file holds only plain data types and
// validation.
package config

import (
	"time"

	redisclient "github.com/turtacn/autofragment/internal/infrastructure/database/redis"
	"github.com/turtacn/autofragment/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/autofragment/internal/infrastructure/monitoring/logging"
	minioclient "github.com/turtacn/autofragment/internal/infrastructure/storage/minio"
	"github.com/turtacn/autofragment/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// FragmentConfig controls fragment counting.
type FragmentConfig struct {
	Radius      int  `mapstructure:"radius"`
	EnforceSize bool `mapstructure:"enforce_size"`
	MaxAtoms    int  `mapstructure:"max_atoms"` // 0 disables the limit
	MaxLeaves   int  `mapstructure:"max_leaves"`
}

// BatchConfig controls the batch engine.
type BatchConfig struct {
	Concurrency int           `mapstructure:"concurrency"`
	ItemTimeout time.Duration `mapstructure:"item_timeout"`
}

// LogConfig holds structured-logging parameters.
type LogConfig struct {
	Level       string   `mapstructure:"level"`  // "debug" | "info" | "warn" | "error"
	Format      string   `mapstructure:"format"` // "json" | "console"
	OutputPaths []string `mapstructure:"output_paths"`
}

// RedisConfig enables the fragment cache.  Connection fields are the
// client's own and are squashed into the "redis" section.
type RedisConfig struct {
	Enabled                 bool          `mapstructure:"enabled"`
	TTL                     time.Duration `mapstructure:"ttl"`
	KeyPrefix               string        `mapstructure:"key_prefix"`
	redisclient.RedisConfig `mapstructure:",squash"`
}

// MinIOConfig enables result upload.
type MinIOConfig struct {
	Enabled                 bool `mapstructure:"enabled"`
	minioclient.MinIOConfig `mapstructure:",squash"`
}

// KafkaConfig holds the worker's broker and topic settings.
type KafkaConfig struct {
	Brokers           []string             `mapstructure:"brokers"`
	GroupID           string               `mapstructure:"group_id"`
	RequestTopic      string               `mapstructure:"request_topic"`
	ResultTopic       string               `mapstructure:"result_topic"`
	DeadLetterTopic   string               `mapstructure:"dead_letter_topic"`
	AutoOffsetReset   string               `mapstructure:"auto_offset_reset"` // "earliest" | "latest"
	MaxRetries        int                  `mapstructure:"max_retries"`
	RetryBackoff      time.Duration        `mapstructure:"retry_backoff"`
	Compression       string               `mapstructure:"compression"`
	AutoCreateTopics  bool                 `mapstructure:"auto_create_topics"`
	NumPartitions     int                  `mapstructure:"num_partitions"`
	ReplicationFactor int                  `mapstructure:"replication_factor"`
	Security          kafka.SecurityConfig `mapstructure:"security"`
}

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Subsystem string `mapstructure:"subsystem"`
}

// WorkerConfig holds request-worker behaviour.
type WorkerConfig struct {
	HealthPort int  `mapstructure:"health_port"`
	Upload     bool `mapstructure:"upload"`
	DedupRuns  bool `mapstructure:"dedup_runs"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure.
type Config struct {
	Fragment FragmentConfig `mapstructure:"fragment"`
	Batch    BatchConfig    `mapstructure:"batch"`
	Log      LogConfig      `mapstructure:"log"`
	Redis    RedisConfig    `mapstructure:"redis"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Server   ServerConfig   `mapstructure:"server"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Worker   WorkerConfig   `mapstructure:"worker"`
}

// Logging converts the log section for logging.NewLogger.
func (c LogConfig) Logging() logging.LogConfig {
	return logging.LogConfig{Level: c.Level, Format: c.Format, OutputPaths: c.OutputPaths}
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

func invalid(format string, args ...interface{}) error {
	return errors.Newf(errors.ErrCodeValidation, "config: "+format, args...)
}

// Validate performs semantic validation of the fully-populated Config and
// returns the first problem found.
func (c *Config) Validate() error {
	// Fragment
	if c.Fragment.Radius < 0 {
		return invalid("fragment.radius must be ≥ 0, got %d", c.Fragment.Radius)
	}
	if c.Fragment.MaxAtoms < 0 {
		return invalid("fragment.max_atoms must be ≥ 0, got %d", c.Fragment.MaxAtoms)
	}

	// Batch
	if c.Batch.Concurrency < 1 {
		return invalid("batch.concurrency must be ≥ 1, got %d", c.Batch.Concurrency)
	}
	if c.Batch.ItemTimeout < 0 {
		return invalid("batch.item_timeout must be ≥ 0, got %s", c.Batch.ItemTimeout)
	}

	// Log
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return invalid("log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return invalid("log.format %q is invalid; expected json|console", c.Log.Format)
	}

	// Redis
	if c.Redis.Enabled {
		switch c.Redis.Mode {
		case "cluster":
			if len(c.Redis.ClusterAddrs) == 0 {
				return invalid("redis.cluster_addrs is required in cluster mode")
			}
		case "sentinel":
			if c.Redis.MasterName == "" || len(c.Redis.SentinelAddrs) == 0 {
				return invalid("redis.master_name and redis.sentinel_addrs are required in sentinel mode")
			}
		default:
			if c.Redis.Addr == "" {
				return invalid("redis.addr is required")
			}
		}
		if c.Redis.DB < 0 {
			return invalid("redis.db must be ≥ 0, got %d", c.Redis.DB)
		}
	}

	// MinIO
	if c.MinIO.Enabled {
		if c.MinIO.Endpoint == "" {
			return invalid("minio.endpoint is required")
		}
		if c.MinIO.Bucket == "" {
			return invalid("minio.bucket is required")
		}
	}

	// Kafka
	if len(c.Kafka.Brokers) == 0 {
		return invalid("kafka.brokers must contain at least one broker address")
	}
	if c.Kafka.GroupID == "" {
		return invalid("kafka.group_id is required")
	}
	if c.Kafka.RequestTopic == "" || c.Kafka.ResultTopic == "" {
		return invalid("kafka.request_topic and kafka.result_topic are required")
	}
	switch c.Kafka.AutoOffsetReset {
	case "earliest", "latest":
	default:
		return invalid("kafka.auto_offset_reset %q is invalid; expected earliest|latest", c.Kafka.AutoOffsetReset)
	}

	// Server
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return invalid("server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return invalid("server.mode %q is invalid; expected debug|release|test", c.Server.Mode)
	}

	// Metrics
	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		return invalid("metrics.namespace is required when metrics are enabled")
	}

	return nil
}

//Personal.AI order the ending
