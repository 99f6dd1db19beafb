package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	services "github.com/syntrixbase/marketsearch/internal/services/config"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, BackendPostgres, cfg.Backend)
	assert.Contains(t, cfg.Postgres.DSN, "postgres://")
	assert.Equal(t, 20, cfg.Postgres.MaxOpenConns)
	assert.Equal(t, 30*time.Minute, cfg.Postgres.ConnMaxLifetime)
	assert.True(t, cfg.Postgres.EnsureSchema)

	assert.False(t, cfg.DeadLetter.Enabled)
	assert.Equal(t, "mongodb://localhost:27017", cfg.DeadLetter.Mongo.URI)
	assert.Equal(t, "dead_letters", cfg.DeadLetter.Collection)
	assert.Equal(t, 14*24*time.Hour, cfg.DeadLetter.Retention)
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate(services.ModeDistributed))

	mem := Config{Backend: BackendMemory}
	assert.NoError(t, mem.Validate(services.ModeStandalone))
}

func TestConfig_Validate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"unknown backend", func(c *Config) { c.Backend = "sqlite" }, "storage.backend"},
		{"missing dsn", func(c *Config) { c.Postgres.DSN = "" }, "storage.postgres.dsn"},
		{"negative pool", func(c *Config) { c.Postgres.MaxOpenConns = -1 }, "non-negative"},
		{"dead letter without uri", func(c *Config) {
			c.DeadLetter.Enabled = true
			c.DeadLetter.Mongo.URI = ""
		}, "storage.dead_letter.mongo.uri"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate(services.ModeDistributed)
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	defaults := DefaultConfig()
	assert.Equal(t, defaults.Backend, cfg.Backend)
	assert.Equal(t, defaults.Postgres.DSN, cfg.Postgres.DSN)
	assert.Equal(t, defaults.Postgres.MaxIdleConns, cfg.Postgres.MaxIdleConns)
	assert.Equal(t, defaults.DeadLetter.Collection, cfg.DeadLetter.Collection)

	custom := Config{Backend: BackendMemory, Postgres: PostgresConfig{DSN: "postgres://other"}}
	custom.ApplyDefaults()
	assert.Equal(t, BackendMemory, custom.Backend)
	assert.Equal(t, "postgres://other", custom.Postgres.DSN)
}

func TestConfig_ApplyEnvOverrides(t *testing.T) {
	t.Setenv("MARKETSEARCH_STORAGE_BACKEND", "memory")
	t.Setenv("MARKETSEARCH_POSTGRES_DSN", "postgres://env")
	t.Setenv("MARKETSEARCH_POSTGRES_REPLICA_DSN", "postgres://replica")
	t.Setenv("MARKETSEARCH_MONGO_URI", "mongodb://env:27017")
	t.Setenv("MARKETSEARCH_MONGO_DB", "envdb")

	cfg := DefaultConfig()
	cfg.ApplyEnvOverrides()

	assert.Equal(t, BackendMemory, cfg.Backend)
	assert.Equal(t, "postgres://env", cfg.Postgres.DSN)
	assert.Equal(t, "postgres://replica", cfg.Postgres.ReplicaDSN)
	assert.Equal(t, "mongodb://env:27017", cfg.DeadLetter.Mongo.URI)
	assert.Equal(t, "envdb", cfg.DeadLetter.Mongo.DatabaseName)
}
