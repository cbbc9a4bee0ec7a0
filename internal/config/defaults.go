package config

import (
	"runtime"
	"time"

	"github.com/spf13/viper"
)

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultRadius      = 1
	DefaultEnforceSize = true
	DefaultMaxAtoms    = 500
	DefaultMaxLeaves   = 4096

	DefaultItemTimeout = 30 * time.Second

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultRedisAddr = "localhost:6379"
	DefaultCacheTTL  = 24 * time.Hour
	DefaultKeyPrefix = "autofrag:"

	DefaultMinIOEndpoint = "localhost:9000"
	DefaultMinIOBucket   = "autofrag-results"

	DefaultKafkaBroker     = "localhost:9092"
	DefaultKafkaGroupID    = "autofrag-workers"
	DefaultRequestTopic    = "fragment.requests"
	DefaultResultTopic     = "fragment.results"
	DefaultDeadLetterTopic = "fragment.dead_letter"

	DefaultServerPort = 8080
	DefaultServerMode = "release"

	DefaultMetricsNamespace = "autofrag"

	DefaultWorkerHealthPort = 8081
)

// DefaultConcurrency is the batch concurrency used when none is configured.
func DefaultConcurrency() int {
	return runtime.NumCPU()
}

// NewDefaultConfig returns a Config with every default applied, including
// the boolean switches ApplyDefaults cannot infer from zero values.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	cfg.Fragment.EnforceSize = DefaultEnforceSize
	cfg.Metrics.Enabled = true
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills every zero-value field in cfg with its default.
// Fields already set are left unchanged so explicit configuration always
// wins.  Booleans are not touched.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Fragment ──────────────────────────────────────────────────────────────
	if cfg.Fragment.MaxLeaves == 0 {
		cfg.Fragment.MaxLeaves = DefaultMaxLeaves
	}
	// Radius 0 and max_atoms 0 are meaningful; their defaults come from
	// setViperDefaults or NewDefaultConfig.

	// ── Batch ─────────────────────────────────────────────────────────────────
	if cfg.Batch.Concurrency == 0 {
		cfg.Batch.Concurrency = DefaultConcurrency()
	}
	if cfg.Batch.ItemTimeout == 0 {
		cfg.Batch.ItemTimeout = DefaultItemTimeout
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.TTL == 0 {
		cfg.Redis.TTL = DefaultCacheTTL
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultKeyPrefix
	}

	// ── MinIO ─────────────────────────────────────────────────────────────────
	if cfg.MinIO.Endpoint == "" {
		cfg.MinIO.Endpoint = DefaultMinIOEndpoint
	}
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = DefaultMinIOBucket
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = DefaultKafkaGroupID
	}
	if cfg.Kafka.RequestTopic == "" {
		cfg.Kafka.RequestTopic = DefaultRequestTopic
	}
	if cfg.Kafka.ResultTopic == "" {
		cfg.Kafka.ResultTopic = DefaultResultTopic
	}
	if cfg.Kafka.AutoOffsetReset == "" {
		cfg.Kafka.AutoOffsetReset = "earliest"
	}
	if cfg.Kafka.NumPartitions == 0 {
		cfg.Kafka.NumPartitions = 3
	}
	if cfg.Kafka.ReplicationFactor == 0 {
		cfg.Kafka.ReplicationFactor = 1
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 5 * time.Minute
	}
	if cfg.Server.MaxBodySize == 0 {
		cfg.Server.MaxBodySize = 32 << 20
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30 * time.Second
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}

	// ── Worker ────────────────────────────────────────────────────────────────
	if cfg.Worker.HealthPort == 0 {
		cfg.Worker.HealthPort = DefaultWorkerHealthPort
	}
}

// setViperDefaults registers every key with v so that AUTOFRAG_* variables
// resolve even when the key is absent from the config file.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("fragment.radius", DefaultRadius)
	v.SetDefault("fragment.enforce_size", DefaultEnforceSize)
	v.SetDefault("fragment.max_atoms", DefaultMaxAtoms)
	v.SetDefault("fragment.max_leaves", d.Fragment.MaxLeaves)

	v.SetDefault("batch.concurrency", d.Batch.Concurrency)
	v.SetDefault("batch.item_timeout", d.Batch.ItemTimeout)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.mode", "standalone")
	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", d.Redis.TTL)
	v.SetDefault("redis.key_prefix", d.Redis.KeyPrefix)

	v.SetDefault("minio.enabled", false)
	v.SetDefault("minio.endpoint", d.MinIO.Endpoint)
	v.SetDefault("minio.access_key_id", "")
	v.SetDefault("minio.secret_access_key", "")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.bucket", d.MinIO.Bucket)
	v.SetDefault("minio.compression", "zstd")

	v.SetDefault("kafka.brokers", d.Kafka.Brokers)
	v.SetDefault("kafka.group_id", d.Kafka.GroupID)
	v.SetDefault("kafka.request_topic", d.Kafka.RequestTopic)
	v.SetDefault("kafka.result_topic", d.Kafka.ResultTopic)
	v.SetDefault("kafka.dead_letter_topic", DefaultDeadLetterTopic)
	v.SetDefault("kafka.auto_offset_reset", d.Kafka.AutoOffsetReset)
	v.SetDefault("kafka.max_retries", 3)
	v.SetDefault("kafka.auto_create_topics", false)

	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.mode", d.Server.Mode)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", d.Metrics.Namespace)

	v.SetDefault("worker.health_port", d.Worker.HealthPort)
	v.SetDefault("worker.upload", false)
	v.SetDefault("worker.dedup_runs", false)
}

//Personal.AI order the ending
