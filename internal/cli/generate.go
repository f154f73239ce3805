package cli

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/oddjob-dev/oddjob/internal/config"
	"github.com/oddjob-dev/oddjob/internal/filesync"
	"github.com/oddjob-dev/oddjob/internal/logging"
)

// NewGenerateCommand creates the generate command.
func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a skeleton config file",
		Long: `Write the annotated skeleton configuration. An existing config file is
moved aside with a timestamp suffix first.

Example:
  oddjob generate`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, rootOpts)
		},
	}

	return cmd
}

// runGenerate writes the skeleton without opening the store; generate is
// how a fresh install gets its first config file.
func runGenerate(cmd *cobra.Command, opts *RootOptions) error {
	cfg := config.Default()
	if opts.Config != "" {
		cfg.Filename = opts.Config
	}

	svc, err := filesync.NewService(cfg, afero.NewOsFs(), consoleModule(cmd, "filesync"), nil)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build sync service", err)
	}
	if err := svc.Generate(); err != nil {
		return WrapExitError(ExitFailure, "failed to generate config", err)
	}
	return nil
}

// consoleModule builds a module entry on a console-only logger, for
// commands that run before (or while deleting) the log file and cache.
func consoleModule(cmd *cobra.Command, name string) *logrus.Entry {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logger.SetOutput(cmd.ErrOrStderr())
	return logging.Module(logger, name)
}
