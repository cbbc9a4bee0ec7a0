package config

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestApplyDefaults_EmptyConfig(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, runtime.NumCPU(), cfg.Batch.Concurrency)
	assert.Equal(t, 30*time.Second, cfg.Batch.ItemTimeout)
	assert.Equal(t, DefaultLogLevel, cfg.Log.Level)
	assert.Equal(t, DefaultLogFormat, cfg.Log.Format)
	assert.Equal(t, []string{DefaultKafkaBroker}, cfg.Kafka.Brokers)
	assert.Equal(t, "fragment.requests", cfg.Kafka.RequestTopic)
	assert.Equal(t, "fragment.results", cfg.Kafka.ResultTopic)
	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, "autofrag", cfg.Metrics.Namespace)
	assert.False(t, cfg.Redis.Enabled)
	assert.False(t, cfg.MinIO.Enabled)
}

func TestApplyDefaults_PreserveExistingValues(t *testing.T) {
	cfg := &Config{}
	cfg.Server.Port = 9999
	cfg.Batch.Concurrency = 2
	cfg.Kafka.RequestTopic = "custom"
	ApplyDefaults(cfg)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, 2, cfg.Batch.Concurrency)
	assert.Equal(t, "custom", cfg.Kafka.RequestTopic)
}

func TestApplyDefaults_Nil(t *testing.T) {
	assert.NotPanics(t, func() { ApplyDefaults(nil) })
}

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	assert.True(t, cfg.Fragment.EnforceSize)
	assert.True(t, cfg.Metrics.Enabled)
	assert.NoError(t, cfg.Validate())
}

//Personal.AI order the ending
