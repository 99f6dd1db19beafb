package config

import (
	"fmt"
	"os"
	"time"

	services "github.com/syntrixbase/marketsearch/internal/services/config"
)

// ServerConfig configures the operational HTTP listener serving /metrics and /healthz.
type ServerConfig struct {
	Enabled           bool          `yaml:"enabled"`
	Addr              string        `yaml:"addr"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
}

func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Enabled:           true,
		Addr:              ":9090",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   10 * time.Second,
	}
}

func (c *ServerConfig) ApplyDefaults() {
	d := DefaultServerConfig()
	if c.Addr == "" {
		c.Addr = d.Addr
	}
	if c.ReadHeaderTimeout == 0 {
		c.ReadHeaderTimeout = d.ReadHeaderTimeout
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = d.ShutdownTimeout
	}
}

func (c *ServerConfig) ApplyEnvOverrides() {
	if val := os.Getenv("MARKETSEARCH_SERVER_ADDR"); val != "" {
		c.Addr = val
	}
}

func (c *ServerConfig) ResolvePaths(_ string) { _ = c }

func (c *ServerConfig) Validate(_ services.DeploymentMode) error {
	if c.Enabled && c.Addr == "" {
		return fmt.Errorf("server.addr is required when the server is enabled")
	}
	return nil
}
