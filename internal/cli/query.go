package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/notepad/internal/sqlite"
)

func newQueryCmd(a *app) *cobra.Command {
	var (
		fields []string
		sort   string
		filter filterFlags
	)

	cmd := &cobra.Command{
		Use:   "query <locator>",
		Short: "List the notes addressed by a locator",
		Example: `  notepad query notes
  notepad query notes/3 --json
  notepad query notes --fields id,title --where "category = ?" --arg work
  notepad query notes/live`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withBackend(cmd, func(ctx context.Context, b *sqlite.Backend) error {
				cur, err := b.Query(ctx, args[0], fields, filter.where, filter.bound(), sort)
				if err != nil {
					return err
				}
				cols, records, err := drain(cur)
				if err != nil {
					return err
				}
				return writeRecords(cmd.OutOrStdout(), a.flags.jsonMode, cols, records)
			})
		},
	}

	cmd.Flags().StringSliceVar(&fields, "fields", nil, "columns to return (default: all)")
	cmd.Flags().StringVar(&sort, "sort", "", "ORDER BY clause (default: modified_at DESC)")
	filter.register(cmd)
	return cmd
}
