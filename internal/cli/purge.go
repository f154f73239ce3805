package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewPurgeCommand creates the purge command.
func NewPurgeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Remove log rows older than the retention window",
		Long: `Run one retention sweep against the cache: log rows older than the
configured retention (in days) are deleted. Settings are never touched.

Example:
  oddjob purge`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPurge(cmd, rootOpts)
		},
	}

	return cmd
}

func runPurge(cmd *cobra.Command, opts *RootOptions) error {
	rt, err := newRuntime(cmd.Context(), opts)
	if err != nil {
		return err
	}
	defer rt.close()

	count, err := rt.store.Purge(cmd.Context())
	if err != nil {
		return WrapExitError(ExitFailure, "purge failed", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d log rows purged\n", count)
	return nil
}
