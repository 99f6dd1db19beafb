package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/syntrixbase/marketsearch/internal/services"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var opts services.Options

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the counter sync consumer and the operational server",
		Long: `Run the counter sync worker pool against the job stream and serve
/metrics and /healthz until SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), root, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.RunConsumer, "consumer", true, "Run the counter sync consumer")
	cmd.Flags().BoolVar(&opts.RunServer, "server", true, "Run the operational HTTP server")

	return cmd
}

func runServe(ctx context.Context, root *rootOptions, opts services.Options) error {
	cfg, closeLogs, err := root.load()
	if err != nil {
		return err
	}
	defer closeLogs()

	slog.Info("Starting marketsearch",
		"mode", cfg.Deployment.Mode,
		"consumer", opts.RunConsumer,
		"server", opts.RunServer,
	)

	mgr := services.NewManager(cfg, opts)

	initCtx, cancel := context.WithTimeout(ctx, cfg.CounterSync.ShutdownTimeout)
	defer cancel()
	if err := mgr.Init(initCtx); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	bgCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mgr.Start(bgCtx)
	<-bgCtx.Done()
	slog.Info("Shutting down services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	mgr.Shutdown(shutdownCtx)

	slog.Info("All services stopped")
	return nil
}
