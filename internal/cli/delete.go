package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/notepad/internal/sqlite"
)

func newDeleteCmd(a *app) *cobra.Command {
	var filter filterFlags

	cmd := &cobra.Command{
		Use:   "delete <locator>",
		Short: "Remove the notes addressed by a locator",
		Long:  "Remove the notes addressed by a locator. The collection locator without --where removes every note.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withBackend(cmd, func(ctx context.Context, b *sqlite.Backend) error {
				n, err := b.Delete(ctx, args[0], filter.where, filter.bound())
				if err != nil {
					return err
				}
				return writeCount(cmd, a.flags.jsonMode, "deleted", n)
			})
		},
	}

	filter.register(cmd)
	return cmd
}
