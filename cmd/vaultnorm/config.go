package main

import (
	"fmt"
	"os"
	"strings"

	"vaultnorm/internal/config"
	"vaultnorm/internal/errors"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// newConfigCmd creates the 'config' command
func newConfigCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect, create or edit the settings file",
	}

	cmd.AddCommand(newConfigInitCmd(opts))
	cmd.AddCommand(newConfigShowCmd(opts))
	cmd.AddCommand(newConfigSetCmd(opts))
	cmd.AddCommand(newConfigListCmd(opts, "add"))
	cmd.AddCommand(newConfigListCmd(opts, "remove"))
	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the settings file location",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), opts.configPath())
		},
	})

	return cmd
}

func newConfigInitCmd(opts *options) *cobra.Command {
	var (
		force  bool
		enable bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a settings file with the defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.configPath()
			if _, err := os.Stat(path); err == nil && !force {
				return errors.NewConfigError("settings file already exists (use --force to overwrite)", path, errors.InvalidConfig, nil)
			}
			settings := config.New()
			settings.Enabled = enable
			if err := config.SaveConfig(settings, path); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successText("Settings written to "+path))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")
	cmd.Flags().BoolVar(&enable, "enable", false, "turn on renaming for new and renamed items")
	return cmd
}

func newConfigShowCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := opts.loadSettings()
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(settings)
			if err != nil {
				return errors.Wrap(err, "failed to encode settings")
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func newConfigSetCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Change a single setting",
		Long:  "Change a single setting. Keys: " + strings.Join(config.ScalarKeys, ", ") + ".",
		Example: `  vaultnorm config set enabled true
  vaultnorm config set date_format YYYYMMDD
  vaultnorm config set watch.debounce 100ms`,
		Args:      cobra.ExactArgs(2),
		ValidArgs: config.ScalarKeys,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]
			return updateSettings(opts, func(s *config.Settings) error {
				return s.Set(key, value)
			}, cmd, fmt.Sprintf("%s set to %s", key, strings.TrimSpace(value)))
		},
	}
}

// newConfigListCmd creates 'config add' or 'config remove' for list settings.
func newConfigListCmd(opts *options, action string) *cobra.Command {
	short := "Add entries to a list setting"
	if action == "remove" {
		short = "Remove entries from a list setting"
	}
	return &cobra.Command{
		Use:       action + " KEY VALUE...",
		Short:     short,
		Long:      short + ". Keys: " + strings.Join(config.ListKeys, ", ") + ".",
		Example:   fmt.Sprintf("  vaultnorm config %s blacklisted_folders Templates\n  vaultnorm config %s target_extensions txt canvas", action, action),
		Args:      cobra.MinimumNArgs(2),
		ValidArgs: config.ListKeys,
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			var changed int
			err := updateSettings(opts, func(s *config.Settings) error {
				var err error
				if action == "remove" {
					changed, err = s.RemoveFrom(key, args[1:]...)
				} else {
					changed, err = s.AddTo(key, args[1:]...)
				}
				return err
			}, cmd, fmt.Sprintf("Updated %s", key))
			if err != nil {
				return err
			}
			if changed == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), warningText("Nothing changed"))
			}
			return nil
		},
	}
}
