// Package config provides configuration for the text enhancement client.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	services "github.com/syntrixbase/marketsearch/internal/services/config"
)

const (
	ProviderNoop   = "noop"
	ProviderOpenAI = "openai"
)

// DefaultPrompt asks the model for a normalized keyword blob, not prose.
const DefaultPrompt = "Rewrite the following marketplace listing text as a single line of " +
	"search keywords. Fix spelling, expand abbreviations, add close synonyms. " +
	"Reply with the keywords only."

// Config holds the enhancement client configuration.
type Config struct {
	// Provider is "noop" (index raw text) or "openai" (any OpenAI compatible endpoint).
	Provider string `yaml:"provider"`

	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	Prompt  string `yaml:"prompt"`

	// Timeout bounds a single enhancement call. The index writer falls back to the
	// raw text when it expires.
	Timeout time.Duration `yaml:"timeout"`

	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`

	// CacheSize is the number of enhanced texts kept in memory. 0 disables caching.
	CacheSize int `yaml:"cache_size"`

	// MaxInputChars truncates raw text before it is sent.
	MaxInputChars int `yaml:"max_input_chars"`
}

// DefaultConfig returns the default enhancer configuration.
func DefaultConfig() Config {
	return Config{
		Provider:          ProviderNoop,
		BaseURL:           "https://api.openai.com/v1",
		Model:             "gpt-4o-mini",
		Prompt:            DefaultPrompt,
		Timeout:           5 * time.Second,
		RequestsPerSecond: 5,
		Burst:             5,
		CacheSize:         4096,
		MaxInputChars:     8000,
	}
}

// ApplyDefaults fills zero values with defaults.
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	if c.Provider == "" {
		c.Provider = d.Provider
	}
	if c.BaseURL == "" {
		c.BaseURL = d.BaseURL
	}
	if c.Model == "" {
		c.Model = d.Model
	}
	if c.Prompt == "" {
		c.Prompt = d.Prompt
	}
	if c.Timeout == 0 {
		c.Timeout = d.Timeout
	}
	if c.RequestsPerSecond == 0 {
		c.RequestsPerSecond = d.RequestsPerSecond
	}
	if c.Burst == 0 {
		c.Burst = d.Burst
	}
	if c.MaxInputChars == 0 {
		c.MaxInputChars = d.MaxInputChars
	}
}

// ApplyEnvOverrides applies environment variable overrides.
func (c *Config) ApplyEnvOverrides() {
	if val := os.Getenv("MARKETSEARCH_ENHANCER_PROVIDER"); val != "" {
		c.Provider = val
	}
	if val := os.Getenv("MARKETSEARCH_ENHANCER_BASE_URL"); val != "" {
		c.BaseURL = val
	}
	if val := os.Getenv("MARKETSEARCH_ENHANCER_API_KEY"); val != "" {
		c.APIKey = val
	}
	if val := os.Getenv("MARKETSEARCH_ENHANCER_MODEL"); val != "" {
		c.Model = val
	}
	if val := os.Getenv("MARKETSEARCH_ENHANCER_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.Timeout = d
		}
	}
	if val := os.Getenv("MARKETSEARCH_ENHANCER_RPS"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			c.RequestsPerSecond = f
		}
	}
}

// ResolvePaths is a no-op; the enhancer has no paths.
func (c *Config) ResolvePaths(_ string) { _ = c }

// Validate returns an error if the configuration is invalid.
func (c *Config) Validate(_ services.DeploymentMode) error {
	switch c.Provider {
	case ProviderNoop:
		return nil
	case ProviderOpenAI:
	default:
		return fmt.Errorf("enhancer.provider must be 'noop' or 'openai', got '%s'", c.Provider)
	}
	if c.BaseURL == "" {
		return fmt.Errorf("enhancer.base_url is required for provider %s", c.Provider)
	}
	if c.Model == "" {
		return fmt.Errorf("enhancer.model is required for provider %s", c.Provider)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("enhancer.timeout must be non-negative")
	}
	return nil
}
