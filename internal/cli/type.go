package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/notepad/internal/router"
)

// newTypeCmd classifies a locator. It needs no store.
func newTypeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "type <locator>",
		Short: "Print the kind and type tag of a locator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r := router.New()
			res, err := r.Classify(args[0])
			if err != nil {
				return err
			}
			tag, err := r.TypeTagFor(res.Kind)
			if err != nil {
				return err
			}

			if a.flags.jsonMode {
				out := struct {
					Locator string `json:"locator"`
					Kind    string `json:"kind"`
					ID      int64  `json:"id,omitempty"`
					TypeTag string `json:"type_tag"`
				}{res.Locator, res.Kind.String(), res.ID, tag}
				return writeJSON(cmd.OutOrStdout(), out)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", res.Kind, tag)
			return nil
		},
	}
}
