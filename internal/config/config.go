package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"vaultnorm/internal/errors"
	"vaultnorm/internal/vault"
	"vaultnorm/pkg/types"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// Default values for settings that are missing from the settings file.
const (
	DefaultDateFormat  = "YYYY-MM-DD"
	DefaultDebounce    = 50 * time.Millisecond
	DefaultGracePeriod = time.Second
)

// Settings is the persisted renamer configuration. The renaming core only
// reads it; changes go through UpdateSettings on the coordinator.
type Settings struct {
	Enabled              bool         `yaml:"enabled"`                // Rename on create/rename events
	TargetExtensions     []string     `yaml:"target_extensions"`      // Allow-list; empty allows all
	ExcludedExtensions   []string     `yaml:"excluded_extensions"`    // Deny-list; wins over the allow-list
	BlacklistedFolders   []string     `yaml:"blacklisted_folders"`    // Nothing at or under these is touched
	BlacklistedFiles     []string     `yaml:"blacklisted_files"`      // Exact paths never touched
	IgnorePatterns       []string     `yaml:"ignore_patterns"`        // Globs over vault paths
	Rules                []types.Rule `yaml:"rules"`                  // Applied in order
	UseCreationDate      bool         `yaml:"use_creation_date"`      // Enables {{DATE}}
	DateFormat           string       `yaml:"date_format"`            // moment-style layout
	StripDuplicateSuffix bool         `yaml:"strip_duplicate_suffix"` // Drop trailing " <digits>" from stems
	Watch                WatchConfig  `yaml:"watch"`
}

// WatchConfig tunes how events are turned into renames.
type WatchConfig struct {
	Debounce    time.Duration `yaml:"debounce"`     // Delay between a notification and the reaction
	GracePeriod time.Duration `yaml:"grace_period"` // How long a rename destination stays in flight
}

// DefaultRules returns the built-in rules: spaces to dashes, then removal
// of everything outside [a-z0-9-_.].
func DefaultRules() []types.Rule {
	return []types.Rule{
		{
			Name:        "Spaces to Dashes",
			Pattern:     `\s+`,
			Replace:     "-",
			Active:      true,
			Description: "Replaces all spaces with dashes.",
		},
		{
			Name:        "Remove Special Chars",
			Pattern:     `[^a-z0-9\-_.]`,
			Replace:     "",
			Active:      true,
			Description: "Removes anything that isn't a letter, number, dash, underscore, or dot.",
		},
	}
}

// defaultConfig returns the default settings with safe defaults.
func defaultConfig() *Settings {
	return &Settings{
		Enabled:              false, // Renaming on events is opt-in
		TargetExtensions:     []string{"md"},
		ExcludedExtensions:   []string{},
		BlacklistedFolders:   []string{".obsidian"},
		BlacklistedFiles:     []string{},
		IgnorePatterns:       []string{},
		Rules:                DefaultRules(),
		UseCreationDate:      false,
		DateFormat:           DefaultDateFormat,
		StripDuplicateSuffix: true,
		Watch: WatchConfig{
			Debounce:    DefaultDebounce,
			GracePeriod: DefaultGracePeriod,
		},
	}
}

// New returns settings populated from the default table.
func New() *Settings {
	return defaultConfig()
}

// DefaultPath returns the default settings location
// ($XDG_CONFIG_HOME/vaultnorm/config.yaml).
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, "vaultnorm", "config.yaml")
}

// LoadConfig loads settings from the default location.
func LoadConfig() (*Settings, error) {
	return LoadConfigFile(DefaultPath())
}

// LoadConfigFile loads settings from path. A missing file yields the
// defaults; keys missing from the file keep their default values.
func LoadConfigFile(path string) (*Settings, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, errors.NewConfigError("error reading settings file", path, errors.ConfigNotFound, err)
	}
	if err := Parse(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML onto cfg, then normalizes and validates the result.
// Fields absent from data are left as they are in cfg.
func Parse(data []byte, cfg *Settings) error {
	// Decoding onto the populated struct keeps values for absent keys.
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return errors.NewConfigError("error parsing settings file", "", errors.InvalidConfig, err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return err
	}
	return nil
}

// SaveConfig writes settings to path, creating parent directories.
func SaveConfig(cfg *Settings, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "failed to create settings directory")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "failed to marshal settings")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(err, "failed to write settings file")
	}
	return nil
}

// Normalize canonicalizes list entries: extensions are trimmed, lower-cased
// and stripped of a leading dot; paths are normalized; empty entries are
// dropped. A blank date format falls back to the default.
func (c *Settings) Normalize() {
	c.TargetExtensions = normalizeExtensions(c.TargetExtensions)
	c.ExcludedExtensions = normalizeExtensions(c.ExcludedExtensions)
	c.BlacklistedFolders = normalizePaths(c.BlacklistedFolders)
	c.BlacklistedFiles = normalizePaths(c.BlacklistedFiles)

	c.IgnorePatterns = trimmed(c.IgnorePatterns)

	if strings.TrimSpace(c.DateFormat) == "" {
		c.DateFormat = DefaultDateFormat
	}
}

// Validate checks values that cannot be repaired. Rule patterns are not
// checked here: a bad pattern only disables its own rule at run time.
func (c *Settings) Validate() error {
	if c == nil {
		return errors.NewConfigError("nil settings", "", errors.InvalidConfig, nil)
	}
	if c.Watch.Debounce < 0 {
		return errors.NewConfigError("must be >= 0", "watch.debounce", errors.InvalidConfig, nil)
	}
	if c.Watch.GracePeriod < 0 {
		return errors.NewConfigError("must be >= 0", "watch.grace_period", errors.InvalidConfig, nil)
	}
	for i, rule := range c.Rules {
		if strings.TrimSpace(rule.Name) == "" {
			return errors.NewConfigError("rule name is required", ruleParam(i), errors.InvalidConfig, nil)
		}
	}
	return nil
}

// Clone returns a deep copy, so a snapshot cannot change under its reader.
func (c *Settings) Clone() *Settings {
	out := *c
	out.TargetExtensions = append([]string(nil), c.TargetExtensions...)
	out.ExcludedExtensions = append([]string(nil), c.ExcludedExtensions...)
	out.BlacklistedFolders = append([]string(nil), c.BlacklistedFolders...)
	out.BlacklistedFiles = append([]string(nil), c.BlacklistedFiles...)
	out.IgnorePatterns = append([]string(nil), c.IgnorePatterns...)
	out.Rules = append([]types.Rule(nil), c.Rules...)
	return &out
}

// FindRule returns the index of the rule with the given name, or -1.
func (c *Settings) FindRule(name string) int {
	for i, r := range c.Rules {
		if r.Name == name {
			return i
		}
	}
	return -1
}

func ruleParam(i int) string {
	return "rules[" + strconv.Itoa(i) + "]"
}

func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e), "."))
		if e != "" {
			out = append(out, e)
		}
	}
	return out
}

func normalizePaths(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if p = vault.NormalizePath(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ScalarKeys lists the settings Set accepts.
var ScalarKeys = []string{"enabled", "use_creation_date", "date_format", "strip_duplicate_suffix", "watch.debounce", "watch.grace_period"}

// ListKeys lists the settings AddTo and RemoveFrom accept.
var ListKeys = []string{"target_extensions", "excluded_extensions", "blacklisted_folders", "blacklisted_files", "ignore_patterns"}

// Set assigns value, given as text, to the scalar setting key.
func (c *Settings) Set(key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case "enabled", "use_creation_date", "strip_duplicate_suffix":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return errors.NewConfigError("expected true or false", key, errors.InvalidConfig, err)
		}
		switch key {
		case "enabled":
			c.Enabled = b
		case "use_creation_date":
			c.UseCreationDate = b
		default:
			c.StripDuplicateSuffix = b
		}
	case "date_format":
		if value == "" {
			return errors.NewConfigError("date format cannot be empty", key, errors.InvalidConfig, nil)
		}
		c.DateFormat = value
	case "watch.debounce", "watch.grace_period":
		d, err := time.ParseDuration(value)
		if err != nil {
			return errors.NewConfigError("expected a duration such as 50ms", key, errors.InvalidConfig, err)
		}
		if key == "watch.debounce" {
			c.Watch.Debounce = d
		} else {
			c.Watch.GracePeriod = d
		}
	default:
		return errors.NewConfigError("unknown setting", key, errors.InvalidConfig, nil)
	}
	return nil
}

// AddTo appends values to the list setting key, skipping entries it
// already holds after normalization. It returns how many were added.
func (c *Settings) AddTo(key string, values ...string) (int, error) {
	list, normalize, err := c.list(key)
	if err != nil {
		return 0, err
	}
	added := 0
	for _, v := range normalize(values) {
		if !contains(*list, v) {
			*list = append(*list, v)
			added++
		}
	}
	return added, nil
}

// RemoveFrom drops values from the list setting key. It returns how many
// were removed.
func (c *Settings) RemoveFrom(key string, values ...string) (int, error) {
	list, normalize, err := c.list(key)
	if err != nil {
		return 0, err
	}
	drop := normalize(values)
	kept := make([]string, 0, len(*list))
	for _, v := range *list {
		if !contains(drop, v) {
			kept = append(kept, v)
		}
	}
	removed := len(*list) - len(kept)
	*list = kept
	return removed, nil
}

func (c *Settings) list(key string) (*[]string, func([]string) []string, error) {
	switch key {
	case "target_extensions":
		return &c.TargetExtensions, normalizeExtensions, nil
	case "excluded_extensions":
		return &c.ExcludedExtensions, normalizeExtensions, nil
	case "blacklisted_folders":
		return &c.BlacklistedFolders, normalizePaths, nil
	case "blacklisted_files":
		return &c.BlacklistedFiles, normalizePaths, nil
	case "ignore_patterns":
		return &c.IgnorePatterns, trimmed, nil
	}
	return nil, nil, errors.NewConfigError("unknown list setting", key, errors.InvalidConfig, nil)
}

func trimmed(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
