package main

import (
	"fmt"
	"os"

	"vaultnorm/internal/config"
	"vaultnorm/internal/log"
	"vaultnorm/internal/vault"

	"github.com/spf13/cobra"
)

var version = "dev"

// options holds the persistent flags shared by every command.
type options struct {
	cfgFile  string
	vaultDir string
	debug    bool
	jsonLogs bool
}

// Entry point for the application
func main() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorText(err.Error()))
		os.Exit(1)
	}
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "vaultnorm",
		Short: "Keep file and folder names in a notes vault standardized",
		Long: `vaultnorm renames files and folders in a vault according to an ordered
list of regex rules: lower-cased, accents stripped, spaces turned into dashes.
Run 'vaultnorm sweep' once, or 'vaultnorm watch' to rename as items appear.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logOpts := []log.Option{log.WithOutput(cmd.ErrOrStderr())}
			if opts.jsonLogs {
				logOpts = append(logOpts, log.WithJSON())
			}
			log.Configure(logOpts...)
			log.SetDebug(opts.debug)
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "settings file (default is "+config.DefaultPath()+")")
	rootCmd.PersistentFlags().StringVar(&opts.vaultDir, "vault", ".", "vault directory")
	rootCmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&opts.jsonLogs, "json-logs", false, "write logs as JSON lines")

	rootCmd.AddCommand(newSweepCmd(opts))
	rootCmd.AddCommand(newWatchCmd(opts))
	rootCmd.AddCommand(newPreviewCmd(opts))
	rootCmd.AddCommand(newRulesCmd(opts))
	rootCmd.AddCommand(newConfigCmd(opts))

	return rootCmd
}

// configPath returns the settings file in use.
func (o *options) configPath() string {
	if o.cfgFile != "" {
		return o.cfgFile
	}
	return config.DefaultPath()
}

// loadSettings reads the settings file, falling back to defaults when it
// does not exist.
func (o *options) loadSettings() (*config.Settings, error) {
	return config.LoadConfigFile(o.configPath())
}

func (o *options) openVault() (*vault.FS, error) {
	return vault.NewFS(o.vaultDir)
}
