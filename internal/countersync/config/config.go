// Package config provides configuration for the counter sync consumer.
package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	services "github.com/syntrixbase/marketsearch/internal/services/config"
)

// Config holds the counter sync consumer configuration.
type Config struct {
	ConsumerName  string        `yaml:"consumer_name"`
	NumWorkers    int           `yaml:"num_workers"`
	ChannelBuf    int           `yaml:"channel_buf_size"`
	JobTimeout    time.Duration `yaml:"job_timeout"`
	AckWait       time.Duration `yaml:"ack_wait"`
	MaxAckPending int           `yaml:"max_ack_pending"`

	// Retry policy
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`

	DrainTimeout    time.Duration `yaml:"drain_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DefaultConfig returns the default consumer configuration.
func DefaultConfig() Config {
	return Config{
		ConsumerName:    "counter-sync",
		NumWorkers:      16,
		ChannelBuf:      100,
		JobTimeout:      10 * time.Second,
		AckWait:         30 * time.Second,
		MaxAckPending:   1000,
		MaxAttempts:     5,
		InitialBackoff:  time.Second,
		MaxBackoff:      time.Minute,
		DrainTimeout:    5 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// ApplyDefaults fills in zero values with defaults.
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	if c.ConsumerName == "" {
		c.ConsumerName = d.ConsumerName
	}
	if c.NumWorkers <= 0 {
		c.NumWorkers = d.NumWorkers
	}
	if c.ChannelBuf <= 0 {
		c.ChannelBuf = d.ChannelBuf
	}
	if c.JobTimeout == 0 {
		c.JobTimeout = d.JobTimeout
	}
	if c.AckWait == 0 {
		c.AckWait = d.AckWait
	}
	if c.MaxAckPending == 0 {
		c.MaxAckPending = d.MaxAckPending
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.InitialBackoff == 0 {
		c.InitialBackoff = d.InitialBackoff
	}
	if c.MaxBackoff == 0 {
		c.MaxBackoff = d.MaxBackoff
	}
	if c.DrainTimeout == 0 {
		c.DrainTimeout = d.DrainTimeout
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = d.ShutdownTimeout
	}
}

// ApplyEnvOverrides applies environment variable overrides.
func (c *Config) ApplyEnvOverrides() {
	if val := os.Getenv("MARKETSEARCH_COUNTERSYNC_WORKERS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.NumWorkers = n
		}
	}
	if val := os.Getenv("MARKETSEARCH_COUNTERSYNC_MAX_ATTEMPTS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.MaxAttempts = n
		}
	}
}

// ResolvePaths is a no-op; the consumer has no paths.
func (c *Config) ResolvePaths(_ string) { _ = c }

// Validate returns an error if the configuration is invalid.
func (c *Config) Validate(_ services.DeploymentMode) error {
	if c.ConsumerName == "" {
		return errors.New("countersync.consumer_name is required")
	}
	if c.NumWorkers < 1 {
		return errors.New("countersync.num_workers must be at least 1")
	}
	if c.MaxAttempts < 1 {
		return errors.New("countersync.max_attempts must be at least 1")
	}
	if c.MaxBackoff > 0 && c.MaxBackoff < c.InitialBackoff {
		return errors.New("countersync.max_backoff must not be below initial_backoff")
	}
	return nil
}

// Backoff returns the delay before the given delivery attempt is redelivered.
// attempt starts at 1.
func (c *Config) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	backoff := c.InitialBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
		if c.MaxBackoff > 0 && backoff >= c.MaxBackoff {
			return c.MaxBackoff
		}
	}
	if c.MaxBackoff > 0 && backoff > c.MaxBackoff {
		return c.MaxBackoff
	}
	return backoff
}
