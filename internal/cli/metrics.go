package cli

import (
	"context"
	"fmt"

	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/notepad/internal/sqlite"
	"github.com/mesh-intelligence/notepad/pkg/types"
)

// newMetricsCmd scans the store and prints the resulting operation metrics
// in the Prometheus text format.
func newMetricsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "Scan the store and print operation metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withBackend(cmd, func(ctx context.Context, b *sqlite.Backend) error {
				if _, err := b.Categories(ctx); err != nil {
					return err
				}
				cur, err := b.Query(ctx, types.LiveLocator, nil, "", nil, "")
				if err != nil {
					return err
				}
				records, err := types.ReadAll(cur)
				if err != nil {
					return err
				}

				families, err := b.Registry().Gather()
				if err != nil {
					return fmt.Errorf("gather metrics: %w", err)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "# notes %d\n", len(records))
				for _, mf := range families {
					if _, err := expfmt.MetricFamilyToText(out, mf); err != nil {
						return fmt.Errorf("write metrics: %w", err)
					}
				}
				return nil
			})
		},
	}
}
