// Package cli implements the notepad command-line interface.
package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/notepad/internal/paths"
	"github.com/mesh-intelligence/notepad/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
	verbose   bool
}

// app is the state of one command invocation.
type app struct {
	flags     rootFlags
	configDir string
	config    *viper.Viper
	logger    *slog.Logger
}

// NewRootCmd creates the top-level "notepad" command with global flags and
// all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{logger: slog.Default()}

	root := &cobra.Command{
		Use:   "notepad",
		Short: "A local note store addressed by locators",
		Long: `Notepad keeps notes in a single SQLite table addressed by locators:
"notes" for the collection, "notes/<id>" for one note and "notes/live"
for the id and title of every note.`,
		Version:           Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	root.PersistentFlags().StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	root.PersistentFlags().StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: platform data dir)")
	root.PersistentFlags().BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")
	root.PersistentFlags().BoolVarP(&a.flags.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(a),
		newInsertCmd(a),
		newQueryCmd(a),
		newUpdateCmd(a),
		newDeleteCmd(a),
		newTypeCmd(a),
		newCategoriesCmd(a),
		newSearchCmd(a),
		newSchemaCmd(a),
		newExportCmd(a),
		newImportCmd(a),
		newMetricsCmd(a),
	)

	return root
}

// Execute runs the root command and exits with the code matching the error.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "notepad:", err)
		os.Exit(exitCode(err))
	}
}

// setup configures logging and loads config.yaml before any subcommand.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	level := slog.LevelInfo
	if a.flags.verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	if cmd.Name() == "version" {
		return nil
	}

	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	cfg, err := loadConfig(configDir)
	if err != nil {
		return err
	}
	a.configDir = configDir
	a.config = cfg
	a.logger.Debug("config loaded", "dir", configDir)
	return nil
}

// exitError carries an explicit exit code.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// userError marks err as caused by command-line input.
func userError(format string, args ...any) error {
	return &exitError{code: exitUserError, err: fmt.Errorf(format, args...)}
}

// configErrors are rejected Config values; they come from user input.
var configErrors = []error{
	types.ErrBackendEmpty,
	types.ErrBackendUnknown,
	types.ErrDBFileInvalid,
	types.ErrNotifyBufferInvalid,
	types.ErrBusyTimeoutInvalid,
}

// exitCode maps err to the process exit code.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	if types.IsUserError(err) {
		return exitUserError
	}
	for _, target := range configErrors {
		if errors.Is(err, target) {
			return exitUserError
		}
	}
	return exitSysError
}
