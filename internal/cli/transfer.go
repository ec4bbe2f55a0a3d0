package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/notepad/internal/sqlite"
)

func newExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file.jsonl>",
		Short: "Write every note to a JSONL file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withBackend(cmd, func(ctx context.Context, b *sqlite.Backend) error {
				n, err := b.Export(ctx, args[0])
				if err != nil {
					return err
				}
				return writeCount(cmd, a.flags.jsonMode, "exported", int64(n))
			})
		},
	}
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.jsonl>",
		Short: "Insert the notes of a JSONL file",
		Long:  "Insert the notes of a JSONL file. Ids are reassigned; lines that are not notes are skipped.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withBackend(cmd, func(ctx context.Context, b *sqlite.Backend) error {
				n, err := b.Import(ctx, args[0])
				if err != nil {
					return err
				}
				return writeCount(cmd, a.flags.jsonMode, "imported", int64(n))
			})
		},
	}
}
