package cli

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/oddjob-dev/oddjob/internal/filesync"
)

// SyncOptions holds flags for the sync command.
type SyncOptions struct {
	*RootOptions
	Download bool
	Check    bool
	Target   string
	List     bool
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SyncOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Download files from remote targets and check them",
		Long: `Download project trees from configured SFTP targets into ./run/<hostname>/
and compare them against the local checkouts.

With neither --download nor --check set, both run.

Example:
  oddjob sync
  oddjob sync -w -t example.org
  oddjob sync --check`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Download, "download", "w", false, "download files from remote targets")
	cmd.Flags().BoolVarP(&opts.Check, "check", "c", false, "check files downloaded from remote targets")
	cmd.Flags().StringVarP(&opts.Target, "target", "t", "", "run only the selected target")
	cmd.Flags().BoolVarP(&opts.List, "list", "l", false, "list available targets")

	return cmd
}

func runSync(cmd *cobra.Command, opts *SyncOptions) error {
	// Listing reads the config only; no store, no connections.
	if opts.List {
		cfg, err := loadConfig(opts.RootOptions)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "config file not loaded, using defaults: %v\n", err)
		}
		for _, target := range cfg.Targets {
			fmt.Fprintf(cmd.OutOrStdout(), "- %s\n", target.Hostname)
		}
		return nil
	}

	rt, err := newRuntime(cmd.Context(), opts.RootOptions)
	if err != nil {
		return err
	}
	defer rt.close()

	svc, err := filesync.NewService(rt.cfg, afero.NewOsFs(), rt.module("filesync"), filesync.DialSFTP)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build sync service", err)
	}

	download, check := opts.Download, opts.Check
	if !download && !check {
		download, check = true, true
	}

	bingo := false
	if download {
		bingo = svc.Download(cmd.Context(), opts.Target) || bingo
	}
	if check {
		bingo = svc.Check(cmd.Context(), opts.Target) || bingo
	}

	if !bingo {
		rt.logger.Info("nothing found")
	}
	return nil
}
