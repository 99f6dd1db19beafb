package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	pubsub "github.com/syntrixbase/marketsearch/internal/core/pubsub/config"
	storage "github.com/syntrixbase/marketsearch/internal/core/storage/config"
	countersync "github.com/syntrixbase/marketsearch/internal/countersync/config"
	enhancer "github.com/syntrixbase/marketsearch/internal/enhancer/config"
	search "github.com/syntrixbase/marketsearch/internal/search/config"
	services "github.com/syntrixbase/marketsearch/internal/services/config"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	Deployment services.DeploymentConfig `yaml:"deployment"`
	Server     ServerConfig              `yaml:"server"`
	Logging    LoggingConfig             `yaml:"logging"`

	// Services
	Search      search.Config      `yaml:"search"`
	CounterSync countersync.Config `yaml:"counter_sync"`
	Enhancer    enhancer.Config    `yaml:"enhancer"`

	// Components
	Storage storage.Config `yaml:"storage"`
	Pubsub  pubsub.Config  `yaml:"pubsub"`
}

// Default returns a configuration holding every default value.
func Default() *Config {
	return &Config{
		Deployment:  services.DefaultDeploymentConfig(),
		Server:      DefaultServerConfig(),
		Logging:     DefaultLoggingConfig(),
		Search:      search.DefaultConfig(),
		CounterSync: countersync.DefaultConfig(),
		Enhancer:    enhancer.DefaultConfig(),
		Storage:     storage.DefaultConfig(),
		Pubsub:      pubsub.DefaultConfig(),
	}
}

// LoadConfig loads configuration from dir and environment variables.
// Order: defaults -> config.yml -> config.local.yml -> ApplyDefaults -> ApplyEnvOverrides -> ResolvePaths -> Validate
func LoadConfig(dir string) (*Config, error) {
	// Start with default values so YAML can override them, including bool fields
	cfg := Default()

	for _, name := range []string{"config.yml", "config.local.yml"} {
		if err := loadFile(filepath.Join(dir, name), cfg); err != nil {
			return nil, err
		}
	}

	// Deployment goes first: the mode drives the validation of the others
	cfg.Deployment.ApplyDefaults()
	cfg.Deployment.ApplyEnvOverrides()
	cfg.Deployment.ResolvePaths(dir)
	if err := cfg.Deployment.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	if err := ApplyServiceConfigs(dir, cfg.Deployment.Mode,
		&cfg.Server,
		&cfg.Logging,
		&cfg.Search,
		&cfg.CounterSync,
		&cfg.Enhancer,
		&cfg.Storage,
		&cfg.Pubsub,
	); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	return cfg, nil
}

// loadFile merges a YAML file into cfg. A missing file is not an error.
func loadFile(filename string, cfg *Config) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", filename, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse %s: %w", filename, err)
	}
	return nil
}
