package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMigrateCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the search index tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, closeLogs, err := root.load()
			if err != nil {
				return err
			}
			defer closeLogs()

			// Schema creation is done explicitly below
			cfg.Storage.Postgres.EnsureSchema = false
			sf, err := openStorage(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer sf.Close()

			if err := sf.Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "index schema is up to date")
			return nil
		},
	}
}
