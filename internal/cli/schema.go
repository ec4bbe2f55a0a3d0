package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/notepad/internal/sqlite"
)

func newSchemaCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the stored and declared schema versions",
		Long:  "Attach the store, migrating it if needed, and print its schema versions.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withBackend(cmd, func(ctx context.Context, b *sqlite.Backend) error {
				stored, declared, err := b.SchemaVersion(ctx)
				if err != nil {
					return err
				}
				if a.flags.jsonMode {
					return writeJSON(cmd.OutOrStdout(), map[string]int{"stored": stored, "declared": declared})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "stored %d\ndeclared %d\n", stored, declared)
				return nil
			})
		},
	}
}
