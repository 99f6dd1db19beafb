package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	services "github.com/syntrixbase/marketsearch/internal/services/config"
)

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := Config{Provider: ProviderOpenAI, Timeout: time.Second}
	cfg.ApplyDefaults()

	assert.Equal(t, ProviderOpenAI, cfg.Provider)
	assert.Equal(t, time.Second, cfg.Timeout)
	assert.Equal(t, "gpt-4o-mini", cfg.Model)
	assert.Equal(t, DefaultPrompt, cfg.Prompt)
	assert.Equal(t, 8000, cfg.MaxInputChars)
	assert.Equal(t, 0, cfg.CacheSize)
}

func TestConfig_ApplyEnvOverrides(t *testing.T) {
	t.Setenv("MARKETSEARCH_ENHANCER_PROVIDER", "openai")
	t.Setenv("MARKETSEARCH_ENHANCER_BASE_URL", "http://localhost:11434/v1")
	t.Setenv("MARKETSEARCH_ENHANCER_API_KEY", "sk-test")
	t.Setenv("MARKETSEARCH_ENHANCER_MODEL", "llama3")
	t.Setenv("MARKETSEARCH_ENHANCER_TIMEOUT", "750ms")
	t.Setenv("MARKETSEARCH_ENHANCER_RPS", "2.5")

	cfg := DefaultConfig()
	cfg.ApplyEnvOverrides()

	assert.Equal(t, ProviderOpenAI, cfg.Provider)
	assert.Equal(t, "http://localhost:11434/v1", cfg.BaseURL)
	assert.Equal(t, "sk-test", cfg.APIKey)
	assert.Equal(t, "llama3", cfg.Model)
	assert.Equal(t, 750*time.Millisecond, cfg.Timeout)
	assert.Equal(t, 2.5, cfg.RequestsPerSecond)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"noop default", func(c *Config) {}, false},
		{"openai", func(c *Config) { c.Provider = ProviderOpenAI }, false},
		{"unknown provider", func(c *Config) { c.Provider = "bedrock" }, true},
		{"openai without url", func(c *Config) { c.Provider = ProviderOpenAI; c.BaseURL = "" }, true},
		{"openai without model", func(c *Config) { c.Provider = ProviderOpenAI; c.Model = "" }, true},
		{"negative timeout", func(c *Config) { c.Provider = ProviderOpenAI; c.Timeout = -1 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate(services.ModeDistributed)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
