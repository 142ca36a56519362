package main

import (
	"fmt"
	"io"
	"time"

	"vaultnorm/internal/errors"
	"vaultnorm/internal/rename"
	"vaultnorm/internal/vault"
	"vaultnorm/pkg/types"

	"github.com/spf13/cobra"
)

// newSweepCmd creates the 'sweep' command
func newSweepCmd(opts *options) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Standardize every file and folder in the vault now",
		Long: `Rename every eligible item in the vault. Folders are processed deepest
first, then files. Runs even when event renaming is disabled in settings.`,
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
			if dryRun {
				fmt.Fprintln(out, infoText("Dry run: nothing will be renamed"))
			}
			coordinator := rename.New(store, settings, rename.WithDryRun(dryRun))
			results, err := coordinator.StandardizeAll(cmd.Context())
			failed := printResults(out, results)
			if err != nil {
				return err
			}
			if failed > 0 {
				return errors.Newf("%d renames failed", failed)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "show what would be renamed without renaming")
	return cmd
}

// printResults writes one line per rename (planned, done or failed) and a
// summary, and returns the number of failures.
func printResults(out io.Writer, results []types.RenameResult) int {
	moved, planned, failed := 0, 0, 0
	for _, res := range results {
		switch {
		case res.Moved:
			moved++
		case res.Error != nil:
			failed++
		case res.Skipped == types.SkipDryRun:
			planned++
		}
		printResult(out, res)
	}

	switch {
	case planned > 0:
		fmt.Fprintln(out, primaryText(fmt.Sprintf("%d items would be renamed", planned)))
	case moved == 0 && failed == 0:
		fmt.Fprintln(out, infoText("Everything is already standardized."))
	default:
		fmt.Fprintln(out, primaryText(fmt.Sprintf("%d renamed, %d failed", moved, failed)))
	}
	return failed
}

// printResult prints one line for a move, a failure or a planned move.
// Other skips print nothing.
func printResult(out io.Writer, res types.RenameResult) {
	switch {
	case res.Moved:
		fmt.Fprintln(out, successText(fmt.Sprintf("%s -> %s", res.SourcePath, res.DestinationPath)))
	case res.Error != nil:
		fmt.Fprintln(out, errorText(fmt.Sprintf("%s: %v", res.SourcePath, res.Error)))
	case res.Skipped == types.SkipDryRun:
		fmt.Fprintln(out, warningText(fmt.Sprintf("%s -> %s", res.SourcePath, res.DestinationPath)))
	}
}

// newPreviewCmd creates the 'preview' command
func newPreviewCmd(opts *options) *cobra.Command {
	var (
		folder  bool
		created string
	)

	cmd := &cobra.Command{
		Use:   "preview NAME...",
		Short: "Show the standardized form of names",
		Long:  `Run names through the configured rules without touching the vault.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := opts.loadSettings()
			if err != nil {
				return err
			}

			var createdAt time.Time
			if created != "" {
				createdAt, err = time.ParseInLocation("2006-01-02", created, time.Local)
				if err != nil {
					return errors.Wrapf(err, "invalid --created date %q", created)
				}
			}

			coordinator := rename.New(vault.NewMemory(), settings)
			out := cmd.OutOrStdout()
			for _, name := range args {
				var result string
				if folder {
					result = coordinator.GenerateFolderName(name)
				} else {
					result = coordinator.GenerateStandardName(name, createdAt)
				}
				fmt.Fprintf(out, "%s -> %s\n", name, primaryText(result))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&folder, "folder", false, "treat names as folder names")
	cmd.Flags().StringVar(&created, "created", "", "creation date (YYYY-MM-DD) used for {{DATE}}")
	return cmd
}
