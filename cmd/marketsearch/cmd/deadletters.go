package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/syntrixbase/marketsearch/internal/countersync"
	"github.com/syntrixbase/marketsearch/internal/services"
)

var errDeadLettersDisabled = errors.New("dead letters are disabled (storage.dead_letter.enabled)")

func newDeadLettersCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deadletters",
		Short: "Inspect and replay jobs that exhausted their retries",
	}
	cmd.AddCommand(newDeadLettersListCmd(root))
	cmd.AddCommand(newDeadLettersReplayCmd(root))
	return cmd
}

func newDeadLettersListCmd(root *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the most recent dead letters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, closeLogs, err := root.load()
			if err != nil {
				return err
			}
			defer closeLogs()

			sf, err := openStorage(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer sf.Close()

			store := sf.DeadLetters()
			if store == nil {
				return errDeadLettersDisabled
			}
			letters, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, l := range letters {
				fmt.Fprintf(out, "%s  %-24s attempts=%d failed=%s  %s\n",
					l.ID, l.Kind, l.Attempts, l.FailedAt.Format(time.RFC3339), l.Error)
			}
			fmt.Fprintf(out, "%d dead letters\n", len(letters))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum number of dead letters")
	return cmd
}

func newDeadLettersReplayCmd(root *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Republish dead letters to the job stream",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, closeLogs, err := root.load()
			if err != nil {
				return err
			}
			defer closeLogs()

			mgr := services.NewManager(cfg, services.Options{})
			if err := mgr.Init(cmd.Context()); err != nil {
				return err
			}
			defer mgr.Shutdown(context.Background())

			store := mgr.Storage().DeadLetters()
			if store == nil {
				return errDeadLettersDisabled
			}
			n, err := countersync.ReplayDeadLetters(cmd.Context(), store, mgr.Publisher(), limit)
			fmt.Fprintf(cmd.OutOrStdout(), "replayed %d dead letters\n", n)
			return err
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 100, "Maximum number of dead letters to replay")
	return cmd
}
