// Package config provides configuration for the query engine.
package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	services "github.com/syntrixbase/marketsearch/internal/services/config"
)

// Config holds the query engine configuration.
type Config struct {
	// Language is the text search profile used at index and query time.
	Language string `yaml:"language"`

	DefaultLimit int `yaml:"default_limit"`
	MaxLimit     int `yaml:"max_limit"`

	// Overfetch is the number of extra rows each family contributes to an
	// all-scope merge beyond offset+limit.
	Overfetch int `yaml:"overfetch"`

	// MergeWindowCap bounds the rows fetched per family for an all-scope merge.
	// Pages beyond it are flagged approximate.
	MergeWindowCap int `yaml:"merge_window_cap"`

	// Timeout bounds a whole search request. 0 means no bound beyond the caller's context.
	Timeout time.Duration `yaml:"timeout"`
}

// DefaultConfig returns the default query engine configuration.
func DefaultConfig() Config {
	return Config{
		Language:       "english",
		DefaultLimit:   10,
		MaxLimit:       50,
		Overfetch:      200,
		MergeWindowCap: 1000,
		Timeout:        5 * time.Second,
	}
}

// ApplyDefaults fills in zero values with defaults.
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	if c.Language == "" {
		c.Language = d.Language
	}
	if c.DefaultLimit <= 0 {
		c.DefaultLimit = d.DefaultLimit
	}
	if c.MaxLimit <= 0 {
		c.MaxLimit = d.MaxLimit
	}
	if c.Overfetch <= 0 {
		c.Overfetch = d.Overfetch
	}
	if c.MergeWindowCap <= 0 {
		c.MergeWindowCap = d.MergeWindowCap
	}
}

// ApplyEnvOverrides applies environment variable overrides.
func (c *Config) ApplyEnvOverrides() {
	if val := os.Getenv("MARKETSEARCH_SEARCH_LANGUAGE"); val != "" {
		c.Language = val
	}
	if val := os.Getenv("MARKETSEARCH_SEARCH_OVERFETCH"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.Overfetch = n
		}
	}
}

// ResolvePaths is a no-op; the query engine has no paths.
func (c *Config) ResolvePaths(_ string) { _ = c }

// Validate returns an error if the configuration is invalid.
func (c *Config) Validate(_ services.DeploymentMode) error {
	if c.Language == "" {
		return errors.New("search.language is required")
	}
	if c.DefaultLimit > c.MaxLimit {
		return errors.New("search.default_limit must not exceed max_limit")
	}
	if c.MergeWindowCap < c.MaxLimit {
		return errors.New("search.merge_window_cap must be at least max_limit")
	}
	return nil
}
