package config

import (
	"fmt"
	"os"
)

// DeploymentMode represents the deployment mode of the service.
type DeploymentMode string

const (
	// ModeDistributed is the default mode: jobs travel over NATS JetStream and any number of
	// worker processes may consume them.
	ModeDistributed DeploymentMode = "distributed"
	// ModeStandalone runs the query engine and the counter sync consumer in one process
	// connected by the in-memory pubsub engine.
	ModeStandalone DeploymentMode = "standalone"
)

// IsStandalone returns true if this is standalone mode.
func (m DeploymentMode) IsStandalone() bool {
	return m == ModeStandalone
}

// IsDistributed returns true if this is distributed mode.
// Empty string defaults to distributed.
func (m DeploymentMode) IsDistributed() bool {
	return m == "" || m == ModeDistributed
}

// DeploymentConfig holds deployment mode settings
type DeploymentConfig struct {
	Mode DeploymentMode `yaml:"mode"` // "standalone" or "distributed" (default)
}

func DefaultDeploymentConfig() DeploymentConfig {
	return DeploymentConfig{
		Mode: ModeDistributed,
	}
}

// ApplyDefaults fills in zero values with defaults.
func (c *DeploymentConfig) ApplyDefaults() {
	if c.Mode == "" {
		c.Mode = DefaultDeploymentConfig().Mode
	}
}

// ApplyEnvOverrides applies environment variable overrides.
func (c *DeploymentConfig) ApplyEnvOverrides() {
	if val := os.Getenv("MARKETSEARCH_DEPLOYMENT_MODE"); val != "" {
		c.Mode = DeploymentMode(val)
	}
}

// ResolvePaths resolves relative paths using the given base directory.
// No paths to resolve in deployment config.
func (c *DeploymentConfig) ResolvePaths(_ string) { _ = c }

// Validate returns an error if the configuration is invalid.
func (c *DeploymentConfig) Validate() error {
	if c.Mode != "" && c.Mode != ModeStandalone && c.Mode != ModeDistributed {
		return fmt.Errorf("deployment.mode must be 'standalone' or 'distributed', got '%s'", c.Mode)
	}
	return nil
}
