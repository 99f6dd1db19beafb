package config

import (
	services "github.com/syntrixbase/marketsearch/internal/services/config"
)

// ServiceConfig defines the standard configuration lifecycle methods.
// Every section of Config implements it.
type ServiceConfig interface {
	// ApplyDefaults fills zero values with sensible defaults
	ApplyDefaults()

	// ApplyEnvOverrides applies MARKETSEARCH_* environment variable overrides
	ApplyEnvOverrides()

	// ResolvePaths resolves relative paths against the config directory.
	ResolvePaths(configDir string)

	// Validate returns an error if the configuration is invalid.
	// The mode allows mode-specific checks, such as forbidding the in-memory
	// transport in distributed mode.
	Validate(mode services.DeploymentMode) error
}

// ApplyServiceConfigs applies the configuration lifecycle to all service configs.
// It calls ApplyDefaults, ApplyEnvOverrides, ResolvePaths, and Validate in order.
func ApplyServiceConfigs(configDir string, mode services.DeploymentMode, configs ...ServiceConfig) error {
	for _, cfg := range configs {
		cfg.ApplyDefaults()
		cfg.ApplyEnvOverrides()
		cfg.ResolvePaths(configDir)
		if err := cfg.Validate(mode); err != nil {
			return err
		}
	}
	return nil
}
