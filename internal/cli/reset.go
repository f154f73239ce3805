package cli

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/oddjob-dev/oddjob/internal/filesync"
)

// NewResetCommand creates the reset command.
func NewResetCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Remove downloaded files, the cache, and the logs",
		Long: `Delete every target's downloaded mirror under ./run/ plus the cache and
log files. The store is not opened; its backing file is among the deletions.

Example:
  oddjob reset`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReset(cmd, rootOpts)
		},
	}

	return cmd
}

func runReset(cmd *cobra.Command, opts *RootOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "config file not loaded, using defaults: %v\n", err)
	}

	svc, err := filesync.NewService(cfg, afero.NewOsFs(), consoleModule(cmd, "filesync"), nil)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build sync service", err)
	}
	if err := svc.Reset(); err != nil {
		return WrapExitError(ExitFailure, "failed to reset", err)
	}
	return nil
}
