package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/notepad/internal/sqlite"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize notepad storage",
		Long:  "Create the configuration and data directories, write config.yaml if missing, and create or migrate the notes store.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := os.MkdirAll(a.configDir, 0o755); err != nil {
				return fmt.Errorf("create config directory: %w", err)
			}
			if err := writeConfigIfMissing(filepath.Join(a.configDir, configFileExt), a.flags.dataDir); err != nil {
				return fmt.Errorf("write config: %w", err)
			}

			cfg, err := a.providerConfig()
			if err != nil {
				return err
			}
			backend := sqlite.NewBackend(sqlite.WithLogger(a.logger))
			if err := backend.Attach(cfg); err != nil {
				return fmt.Errorf("initialize storage: %w", err)
			}
			if err := backend.Detach(); err != nil {
				return fmt.Errorf("finalize storage: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "notepad initialized in %s\n", cfg.DataDir)
			return nil
		},
	}
}
