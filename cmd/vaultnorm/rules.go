package main

import (
	"fmt"
	"time"

	"vaultnorm/internal/config"
	"vaultnorm/internal/errors"
	"vaultnorm/internal/rules"
	"vaultnorm/pkg/types"

	"github.com/spf13/cobra"
)

// newRulesCmd creates the 'rules' command
func newRulesCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage renaming rules",
		Long:  `View, add, remove, enable, disable and try out renaming rules.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Default to listing rules when no subcommand is provided
			return listRules(cmd, opts)
		},
	}

	cmd.AddCommand(newRulesListCmd(opts))
	cmd.AddCommand(newRulesAddCmd(opts))
	cmd.AddCommand(newRulesRemoveCmd(opts))
	cmd.AddCommand(newRulesToggleCmd(opts, "enable", true))
	cmd.AddCommand(newRulesToggleCmd(opts, "disable", false))
	cmd.AddCommand(newRulesTestCmd(opts))

	return cmd
}

func newRulesListCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all renaming rules in order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listRules(cmd, opts)
		},
	}
}

func listRules(cmd *cobra.Command, opts *options) error {
	settings, err := opts.loadSettings()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(settings.Rules) == 0 {
		fmt.Fprintln(out, infoText("No rules configured"))
		return nil
	}
	for i, r := range settings.Rules {
		state := successText("on ")
		if !r.Active {
			state = infoText("off")
		}
		fmt.Fprintf(out, "%d. [%s] %s  %s -> %q\n", i+1, state, primaryText(r.Name), r.Pattern, r.Replace)
		if r.Description != "" {
			fmt.Fprintln(out, "   "+infoText(r.Description))
		}
	}
	return nil
}

// newRulesAddCmd creates the 'rules add' command
func newRulesAddCmd(opts *options) *cobra.Command {
	var (
		pattern     string
		replace     string
		description string
		inactive    bool
	)

	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Append a renaming rule",
		Long: `Append a rule that runs after the existing ones. The pattern uses
JavaScript regex syntax and is applied globally; the replacement may use
$1, $& and {{DATE}}.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			rule := types.Rule{
				Name:        name,
				Pattern:     pattern,
				Replace:     replace,
				Active:      !inactive,
				Description: description,
			}
			if err := checkRule(rule); err != nil {
				return err
			}

			return updateSettings(opts, func(s *config.Settings) error {
				if s.FindRule(name) >= 0 {
					return errors.NewRuleError("rule already exists", name, errors.InvalidRule, nil)
				}
				s.Rules = append(s.Rules, rule)
				return nil
			}, cmd, fmt.Sprintf("Rule %q added", name))
		},
	}

	cmd.Flags().StringVarP(&pattern, "pattern", "p", "", "regex pattern")
	cmd.Flags().StringVarP(&replace, "replace", "r", "", "replacement text")
	cmd.Flags().StringVarP(&description, "description", "d", "", "what the rule is for")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "add the rule switched off")
	_ = cmd.MarkFlagRequired("pattern")
	return cmd
}

// newRulesRemoveCmd creates the 'rules remove' command
func newRulesRemoveCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "remove NAME",
		Short: "Remove a renaming rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			return updateSettings(opts, func(s *config.Settings) error {
				i := s.FindRule(name)
				if i < 0 {
					return errors.NewRuleError("no such rule", name, errors.RuleNotFound, nil)
				}
				s.Rules = append(s.Rules[:i], s.Rules[i+1:]...)
				return nil
			}, cmd, fmt.Sprintf("Rule %q removed", name))
		},
	}
}

func newRulesToggleCmd(opts *options, verb string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " NAME",
		Short: verb + " a renaming rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			return updateSettings(opts, func(s *config.Settings) error {
				i := s.FindRule(name)
				if i < 0 {
					return errors.NewRuleError("no such rule", name, errors.RuleNotFound, nil)
				}
				s.Rules[i].Active = active
				return nil
			}, cmd, fmt.Sprintf("Rule %q %sd", name, verb))
		},
	}
}

// newRulesTestCmd creates the 'rules test' command
func newRulesTestCmd(opts *options) *cobra.Command {
	var replace string

	cmd := &cobra.Command{
		Use:   "test PATTERN SAMPLE...",
		Short: "Try a pattern on sample names without saving it",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := opts.loadSettings()
			if err != nil {
				return err
			}
			rule := types.Rule{Name: "test", Pattern: args[0], Replace: replace, Active: true}
			if err := checkRule(rule); err != nil {
				return err
			}

			ruleOpts := rules.Options{UseCreationDate: settings.UseCreationDate, DateFormat: settings.DateFormat}
			now := time.Now()
			out := cmd.OutOrStdout()
			for _, sample := range args[1:] {
				fmt.Fprintf(out, "%s -> %s\n", sample, primaryText(rules.Apply(sample, []types.Rule{rule}, ruleOpts, now)))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&replace, "replace", "r", "", "replacement text")
	return cmd
}

// checkRule rejects a rule whose pattern does not compile.
func checkRule(rule types.Rule) error {
	if _, errs := rules.Compile([]types.Rule{rule}, rules.Options{}); len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// updateSettings loads the settings file, applies fn and saves the result.
func updateSettings(opts *options, fn func(*config.Settings) error, cmd *cobra.Command, done string) error {
	settings, err := opts.loadSettings()
	if err != nil {
		return err
	}
	if err := fn(settings); err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		return err
	}
	if err := config.SaveConfig(settings, opts.configPath()); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), successText(done))
	return nil
}
