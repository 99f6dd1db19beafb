package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/syntrixbase/marketsearch/internal/core/pubsub"
	services "github.com/syntrixbase/marketsearch/internal/services/config"
)

func TestConfig_ApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL)
	assert.Equal(t, "MARKETSEARCH_JOBS", cfg.Stream)
	assert.Equal(t, "file", cfg.Storage)
	assert.Equal(t, pubsub.DefaultDuplicateWindow, cfg.DuplicateWindow)
	assert.Empty(t, cfg.Engine)
}

func TestConfig_ApplyEnvOverrides(t *testing.T) {
	t.Setenv("MARKETSEARCH_PUBSUB_ENGINE", "memory")
	t.Setenv("MARKETSEARCH_NATS_URL", "nats://broker:4222")
	t.Setenv("MARKETSEARCH_PUBSUB_STREAM", "JOBS")
	t.Setenv("MARKETSEARCH_PUBSUB_RETRY_ATTEMPTS", "7")

	cfg := DefaultConfig()
	cfg.ApplyEnvOverrides()

	assert.Equal(t, "memory", cfg.Engine)
	assert.Equal(t, "nats://broker:4222", cfg.NATS.URL)
	assert.Equal(t, "JOBS", cfg.Stream)
	assert.Equal(t, 7, cfg.RetryAttempts)
}

func TestConfig_EngineFor(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, EngineMemory, cfg.EngineFor(services.ModeStandalone))
	assert.Equal(t, EngineNATS, cfg.EngineFor(services.ModeDistributed))

	cfg.Engine = EngineNATS
	assert.Equal(t, EngineNATS, cfg.EngineFor(services.ModeStandalone))
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate(services.ModeDistributed))
	assert.NoError(t, cfg.Validate(services.ModeStandalone))

	bad := cfg
	bad.Engine = EngineMemory
	assert.Error(t, bad.Validate(services.ModeDistributed))

	bad = cfg
	bad.Engine = "kafka"
	assert.Error(t, bad.Validate(services.ModeDistributed))

	bad = cfg
	bad.Storage = "tape"
	assert.Error(t, bad.Validate(services.ModeDistributed))

	bad = cfg
	bad.NATS.URL = ""
	assert.Error(t, bad.Validate(services.ModeDistributed))
}

func TestConfig_PublisherOptions(t *testing.T) {
	cfg := DefaultConfig()
	opts := cfg.PublisherOptions()

	assert.Equal(t, "MARKETSEARCH_JOBS", opts.StreamName)
	assert.Equal(t, "MARKETSEARCH_JOBS", opts.SubjectPrefix)
	assert.Equal(t, pubsub.FileStorage, opts.Storage)
	assert.Equal(t, 3, opts.RetryAttempts)

	cfg.Storage = "memory"
	assert.Equal(t, pubsub.MemoryStorage, cfg.PublisherOptions().Storage)
}
