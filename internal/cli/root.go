// Package cli implements the oddjob command tree. Every subcommand that
// touches the store goes through a shared runtime that opens the cache,
// syncs the config fingerprint, wires the logging pipeline, and starts the
// background flush cycle.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/oddjob-dev/oddjob/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Config string // config file path override
	Debug  bool   // force debug log level
}

// NewRootCommand creates the root command for the oddjob CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "oddjob",
		Short:         "oddjob - a personal multi-tool",
		Long:          "A personal multi-tool: SFTP file sync, shell task runner, and a shared embedded cache.",
		Version:       config.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Config, "config", "", "path to config file (default ./run/config.yml)")
	cmd.PersistentFlags().BoolVarP(&opts.Debug, "debug", "d", false, "enable debug logging")

	cmd.AddCommand(NewSyncCommand(opts))
	cmd.AddCommand(NewExecCommand(opts))
	cmd.AddCommand(NewPurgeCommand(opts))
	cmd.AddCommand(NewGenerateCommand(opts))
	cmd.AddCommand(NewResetCommand(opts))

	return cmd
}
