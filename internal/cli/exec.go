package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oddjob-dev/oddjob/internal/shellex"
)

// ExecOptions holds flags for the exec command.
type ExecOptions struct {
	*RootOptions
	Target string
	List   bool
}

// NewExecCommand creates the exec command.
func NewExecCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExecOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "exec",
		Short: "Run a project's shell tasks",
		Long: `Provision the shell tasks configured for a project, in order. Task
output is captured and logged unless the task is marked silent.

Example:
  oddjob exec -t example
  oddjob exec --list`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExec(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Target, "target", "t", "", "run only the selected project")
	cmd.Flags().BoolVarP(&opts.List, "list", "l", false, "list available projects")

	return cmd
}

func runExec(cmd *cobra.Command, opts *ExecOptions) error {
	if opts.List {
		cfg, err := loadConfig(opts.RootOptions)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "config file not loaded, using defaults: %v\n", err)
		}
		for _, project := range cfg.Projects {
			fmt.Fprintf(cmd.OutOrStdout(), "- %s\n", project.Name)
		}
		return nil
	}

	if opts.Target == "" {
		return NewExitError(ExitCommandError, "no project selected: pass --target or --list")
	}

	rt, err := newRuntime(cmd.Context(), opts.RootOptions)
	if err != nil {
		return err
	}
	defer rt.close()

	svc := shellex.NewService(rt.cfg, rt.module("shellex"))
	svc.Run(cmd.Context(), opts.Target)
	return nil
}
