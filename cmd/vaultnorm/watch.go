package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"vaultnorm/internal/watch"
	"vaultnorm/pkg/types"

	"github.com/spf13/cobra"
)

// newWatchCmd creates the 'watch' command
func newWatchCmd(opts *options) *cobra.Command {
	var (
		sweepOnStart bool
		dryRun       bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Rename new and renamed items as they appear",
		Long: `Watch the vault and standardize files and folders as soon as they are
created or renamed. Requires 'enabled: true' in settings; the settings file
is reloaded whenever it changes. Press Ctrl+C to stop.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := opts.loadSettings()
			if err != nil {
				return err
			}
			store, err := opts.openVault()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			daemon, err := watch.NewDaemon(store, settings,
				watch.WithConfigFile(opts.configPath()),
				watch.WithSweepOnStart(sweepOnStart),
				watch.WithDryRun(dryRun),
				watch.WithCallback(func(res types.RenameResult) {
					printResult(out, res)
				}),
			)
			if err != nil {
				return err
			}

			if !settings.Enabled {
				fmt.Fprintln(out, warningText("Renaming is disabled; set 'enabled: true' in "+opts.configPath()))
			}
			if dryRun {
				fmt.Fprintln(out, infoText("Running in dry-run mode"))
			}
			fmt.Fprintln(out, infoText(fmt.Sprintf("Watching %s. Press Ctrl+C to stop.", store.Dir())))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := daemon.Run(ctx); err != nil {
				return err
			}

			st := daemon.Status()
			fmt.Fprintln(out, successText(fmt.Sprintf("Stopped: %d renamed, %d failed", st.Renamed, st.Failed)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&sweepOnStart, "sweep-on-start", false, "standardize the whole vault before watching")
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "log intended renames without renaming")
	return cmd
}
