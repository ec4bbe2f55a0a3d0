package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/notepad/internal/sqlite"
)

func newUpdateCmd(a *app) *cobra.Command {
	var (
		sets   []string
		filter filterFlags
	)

	cmd := &cobra.Command{
		Use:     "update <locator>",
		Short:   "Change the notes addressed by a locator",
		Example: `  notepad update notes/1 --set category=errands`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseAssignments(sets)
			if err != nil {
				return err
			}
			return a.withBackend(cmd, func(ctx context.Context, b *sqlite.Backend) error {
				n, err := b.Update(ctx, args[0], values, filter.where, filter.bound())
				if err != nil {
					return err
				}
				return writeCount(cmd, a.flags.jsonMode, "updated", n)
			})
		},
	}

	cmd.Flags().StringArrayVar(&sets, "set", nil, "column=value to assign (repeatable)")
	filter.register(cmd)
	return cmd
}

// writeCount reports the number of affected notes.
func writeCount(cmd *cobra.Command, jsonMode bool, verb string, n int64) error {
	if jsonMode {
		return writeJSON(cmd.OutOrStdout(), map[string]int64{verb: n})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %d\n", verb, n)
	return nil
}
