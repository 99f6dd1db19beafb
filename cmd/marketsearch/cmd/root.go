// Package cmd provides the CLI commands of marketsearch.
package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/syntrixbase/marketsearch/internal/config"
	"github.com/syntrixbase/marketsearch/internal/core/storage"
	"github.com/syntrixbase/marketsearch/internal/logging"
)

// rootOptions holds the persistent flags.
type rootOptions struct {
	configDir string
	logLevel  string
}

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "marketsearch",
		Short: "Federated marketplace search and counter sync",
		Long: `marketsearch serves ranked search over businesses, catalogs and products,
and keeps their search index and counters in sync from a job stream.

Configuration is read from <config>/config.yml and <config>/config.local.yml,
then MARKETSEARCH_* environment variables.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configDir, "config", "c", "config", "Configuration directory")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override the configured log level")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newReindexCmd(opts))
	cmd.AddCommand(newSearchCmd(opts))
	cmd.AddCommand(newMigrateCmd(opts))
	cmd.AddCommand(newDeadLettersCmd(opts))

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// load reads the configuration and installs the logger. The returned func
// flushes the log files.
func (o *rootOptions) load() (*config.Config, func(), error) {
	cfg, err := config.LoadConfig(o.configDir)
	if err != nil {
		return nil, nil, err
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
		cfg.Logging.Console.Level = o.logLevel
		cfg.Logging.File.Level = o.logLevel
	}
	if err := logging.Initialize(cfg.Logging); err != nil {
		return nil, nil, err
	}
	return cfg, func() {
		if err := logging.Shutdown(); err != nil {
			slog.Error("Failed to close log files", "error", err)
		}
	}, nil
}

// openStorage opens the storage backends alone, for commands that need no job transport.
func openStorage(ctx context.Context, cfg *config.Config) (storage.StorageFactory, error) {
	sf, err := storage.NewFactory(ctx, cfg.Storage, cfg.Search.Language)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	return sf, nil
}
