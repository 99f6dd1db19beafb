package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/syntrixbase/marketsearch/internal/core/pubsub"
	services "github.com/syntrixbase/marketsearch/internal/services/config"
)

// Engine types for the job transport.
const (
	EngineNATS   = "nats"
	EngineMemory = "memory"
)

// Config selects and configures the job transport.
type Config struct {
	// Engine is "nats" or "memory". Empty picks memory in standalone mode and nats otherwise.
	Engine string     `yaml:"engine"`
	NATS   NATSConfig `yaml:"nats"`

	// Stream is the JetStream stream holding jobs. Job subjects are <stream>.<kind>.
	Stream string `yaml:"stream"`
	// Storage is "file" or "memory".
	Storage         string        `yaml:"storage"`
	DuplicateWindow time.Duration `yaml:"duplicate_window"`
	RetryAttempts   int           `yaml:"retry_attempts"`
}

type NATSConfig struct {
	URL           string        `yaml:"url"`
	Name          string        `yaml:"name"`
	MaxReconnects int           `yaml:"max_reconnects"`
	ReconnectWait time.Duration `yaml:"reconnect_wait"`
}

func DefaultConfig() Config {
	return Config{
		NATS: NATSConfig{
			URL:           "nats://localhost:4222",
			Name:          "marketsearch",
			MaxReconnects: -1,
			ReconnectWait: 2 * time.Second,
		},
		Stream:          "MARKETSEARCH_JOBS",
		Storage:         "file",
		DuplicateWindow: pubsub.DefaultDuplicateWindow,
		RetryAttempts:   3,
	}
}

// ApplyDefaults fills in zero values with defaults.
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	if c.NATS.URL == "" {
		c.NATS.URL = d.NATS.URL
	}
	if c.NATS.Name == "" {
		c.NATS.Name = d.NATS.Name
	}
	if c.NATS.ReconnectWait == 0 {
		c.NATS.ReconnectWait = d.NATS.ReconnectWait
	}
	if c.Stream == "" {
		c.Stream = d.Stream
	}
	if c.Storage == "" {
		c.Storage = d.Storage
	}
	if c.DuplicateWindow == 0 {
		c.DuplicateWindow = d.DuplicateWindow
	}
}

// ApplyEnvOverrides applies environment variable overrides.
func (c *Config) ApplyEnvOverrides() {
	if val := os.Getenv("MARKETSEARCH_PUBSUB_ENGINE"); val != "" {
		c.Engine = val
	}
	if val := os.Getenv("MARKETSEARCH_NATS_URL"); val != "" {
		c.NATS.URL = val
	}
	if val := os.Getenv("MARKETSEARCH_PUBSUB_STREAM"); val != "" {
		c.Stream = val
	}
	if val := os.Getenv("MARKETSEARCH_PUBSUB_RETRY_ATTEMPTS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.RetryAttempts = n
		}
	}
}

// ResolvePaths is a no-op; the transport config has no paths.
func (c *Config) ResolvePaths(_ string) { _ = c }

// Validate returns an error if the configuration is invalid.
func (c *Config) Validate(mode services.DeploymentMode) error {
	switch c.EngineFor(mode) {
	case EngineNATS:
		if c.NATS.URL == "" {
			return fmt.Errorf("pubsub.nats.url is required for the nats engine")
		}
	case EngineMemory:
		if mode.IsDistributed() {
			return fmt.Errorf("pubsub.engine 'memory' is only available in standalone mode")
		}
	default:
		return fmt.Errorf("pubsub.engine must be '%s' or '%s', got '%s'", EngineNATS, EngineMemory, c.Engine)
	}
	if c.Stream == "" {
		return fmt.Errorf("pubsub.stream is required")
	}
	if _, err := pubsub.ParseStorageType(c.Storage); err != nil {
		return fmt.Errorf("pubsub.storage: %w", err)
	}
	if c.RetryAttempts < 0 {
		return fmt.Errorf("pubsub.retry_attempts must be non-negative")
	}
	return nil
}

// EngineFor resolves the engine for the deployment mode.
func (c *Config) EngineFor(mode services.DeploymentMode) string {
	if c.Engine != "" {
		return c.Engine
	}
	if mode.IsStandalone() {
		return EngineMemory
	}
	return EngineNATS
}

// StorageType returns the parsed stream storage, defaulting to file storage.
func (c *Config) StorageType() pubsub.StorageType {
	st, err := pubsub.ParseStorageType(c.Storage)
	if err != nil || c.Storage == "" {
		return pubsub.FileStorage
	}
	return st
}

// PublisherOptions returns the publisher options for the job stream.
func (c *Config) PublisherOptions() pubsub.PublisherOptions {
	return pubsub.PublisherOptions{
		StreamName:      c.Stream,
		SubjectPrefix:   c.Stream,
		RetryAttempts:   c.RetryAttempts,
		Storage:         c.StorageType(),
		DuplicateWindow: c.DuplicateWindow,
	}
}
