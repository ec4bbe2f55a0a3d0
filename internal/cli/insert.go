package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/notepad/internal/sqlite"
	"github.com/mesh-intelligence/notepad/pkg/types"
)

func newInsertCmd(a *app) *cobra.Command {
	var title, body, category string

	cmd := &cobra.Command{
		Use:   "insert",
		Short: "Create a note",
		Long:  "Create a note in the collection. Omitted fields take their defaults.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			values := types.Values{}
			if cmd.Flags().Changed("title") {
				values[types.ColumnTitle] = title
			}
			if cmd.Flags().Changed("body") {
				values[types.ColumnBody] = body
			}
			if cmd.Flags().Changed("category") {
				values[types.ColumnCategory] = category
			}

			return a.withBackend(cmd, func(ctx context.Context, b *sqlite.Backend) error {
				id, err := b.Insert(ctx, types.CollectionLocator, values)
				if err != nil {
					return err
				}
				if !a.flags.jsonMode {
					fmt.Fprintln(cmd.OutOrStdout(), types.ItemLocator(id))
					return nil
				}
				cur, err := b.Query(ctx, types.ItemLocator(id), nil, "", nil, "")
				if err != nil {
					return err
				}
				notes, err := types.ReadNotes(cur)
				if err != nil {
					return err
				}
				if len(notes) != 1 {
					return fmt.Errorf("read back note %d: found %d", id, len(notes))
				}
				return writeJSON(cmd.OutOrStdout(), notes[0])
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "note title (default: placeholder title)")
	cmd.Flags().StringVar(&body, "body", "", "note body")
	cmd.Flags().StringVar(&category, "category", "", "note category (default: \"default\")")
	return cmd
}
