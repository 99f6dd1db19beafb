package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/syntrixbase/marketsearch/internal/enhancer"
	"github.com/syntrixbase/marketsearch/internal/indexer"
	"github.com/syntrixbase/marketsearch/internal/services"
	"github.com/syntrixbase/marketsearch/pkg/model"
)

func newReindexCmd(root *rootOptions) *cobra.Command {
	var direct bool

	cmd := &cobra.Command{
		Use:   "reindex <business|catalog|product> <id>...",
		Short: "Rebuild index rows from the entity tables",
		Long: `Rebuild index rows of the given entities.

By default a reindex job is published per id and applied by the counter sync
consumer. With --direct the rows are rebuilt in this process.

Examples:
  marketsearch reindex product 42 43
  marketsearch reindex business 7 --direct`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			family, err := model.ParseFamily(args[0])
			if err != nil {
				return err
			}
			ids, err := parseIDs(args[1:])
			if err != nil {
				return err
			}
			return runReindex(cmd, root, family, ids, direct)
		},
	}

	cmd.Flags().BoolVar(&direct, "direct", false, "Rebuild rows in this process instead of publishing jobs")

	return cmd
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := strconv.ParseInt(a, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid id %q", a)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func runReindex(cmd *cobra.Command, root *rootOptions, family model.Family, ids []int64, direct bool) error {
	cfg, closeLogs, err := root.load()
	if err != nil {
		return err
	}
	defer closeLogs()

	ctx := cmd.Context()
	if direct {
		sf, err := openStorage(ctx, cfg)
		if err != nil {
			return err
		}
		defer sf.Close()

		w := indexer.NewWriter(sf.Index(), sf.Sources(), enhancer.New(cfg.Enhancer), cfg.Enhancer.Timeout)
		return eachID(cmd, ids, "reindexed", func(ctx context.Context, id int64) error {
			return w.Reindex(ctx, family, id)
		})
	}

	mgr := services.NewManager(cfg, services.Options{})
	if err := mgr.Init(ctx); err != nil {
		return err
	}
	defer mgr.Shutdown(context.Background())

	return eachID(cmd, ids, "queued", func(ctx context.Context, id int64) error {
		return mgr.Events().EntityUpdated(ctx, family, id)
	})
}

func eachID(cmd *cobra.Command, ids []int64, verb string, fn func(context.Context, int64) error) error {
	for _, id := range ids {
		if err := fn(cmd.Context(), id); err != nil {
			return fmt.Errorf("id %d: %w", id, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %d\n", verb, id)
	}
	return nil
}
