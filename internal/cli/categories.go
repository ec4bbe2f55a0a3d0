package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/notepad/internal/sqlite"
)

func newCategoriesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List the categories in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withBackend(cmd, func(ctx context.Context, b *sqlite.Backend) error {
				cats, err := b.Categories(ctx)
				if err != nil {
					return err
				}
				if a.flags.jsonMode {
					if cats == nil {
						cats = []string{}
					}
					return writeJSON(cmd.OutOrStdout(), cats)
				}
				for _, c := range cats {
					fmt.Fprintln(cmd.OutOrStdout(), c)
				}
				return nil
			})
		},
	}
}

func newSearchCmd(a *app) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "search [keyword]",
		Short: "Find notes whose title or body contains a keyword",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keyword := ""
			if len(args) == 1 {
				keyword = args[0]
			}
			return a.withBackend(cmd, func(ctx context.Context, b *sqlite.Backend) error {
				cur, err := b.Search(ctx, keyword, category)
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

	cmd.Flags().StringVar(&category, "category", "", "only notes in this category")
	return cmd
}
