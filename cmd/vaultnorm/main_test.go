package main

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"vaultnorm/internal/config"
	"vaultnorm/pkg/testutils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the CLI with a private settings file and returns stdout.
func run(t *testing.T, cfgPath string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := cmd.Execute()
	return testutils.StripANSI(out.String()), err
}

func TestSweepCommand(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	dir := t.TempDir()
	testutils.CreateTestFiles(t, dir, "Meeting Notes/Q3 Review.md", "Photo.PNG")

	out, err := run(t, cfgPath, "--vault", dir, "sweep", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "Meeting Notes -> meeting-notes")
	assert.Contains(t, out, "2 items would be renamed")
	assert.DirExists(t, filepath.Join(dir, "Meeting Notes"))

	out, err = run(t, cfgPath, "--vault", dir, "sweep")
	require.NoError(t, err)
	assert.Contains(t, out, "2 renamed, 0 failed")
	assert.FileExists(t, filepath.Join(dir, "meeting-notes", "q3-review.md"))
	assert.FileExists(t, filepath.Join(dir, "Photo.PNG"), "only md files are targeted by default")

	out, err = run(t, cfgPath, "--vault", dir, "sweep")
	require.NoError(t, err)
	assert.Contains(t, out, "Everything is already standardized.")
}

func TestSweepCommandMissingVault(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	_, err := run(t, cfgPath, "--vault", filepath.Join(t.TempDir(), "missing"), "sweep")
	assert.Error(t, err)
}

func TestPreviewCommand(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")

	out, err := run(t, cfgPath, "preview", "Café Società.MD", "Untitled 2.md")
	require.NoError(t, err)
	assert.Contains(t, out, "Café Società.MD -> cafe-societa.md")
	assert.Contains(t, out, "Untitled 2.md -> untitled.md")

	out, err = run(t, cfgPath, "preview", "--folder", "My Projects")
	require.NoError(t, err)
	assert.Contains(t, out, "My Projects -> my-projects")
}

func TestRulesCommands(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")

	out, err := run(t, cfgPath, "rules", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Spaces to Dashes")
	assert.Contains(t, out, "Remove Special Chars")

	_, err = run(t, cfgPath, "rules", "add", "Underscores", "--pattern", "_+", "--replace", "-")
	require.NoError(t, err)
	settings, err := config.LoadConfigFile(cfgPath)
	require.NoError(t, err)
	require.Len(t, settings.Rules, 3)
	assert.Equal(t, "Underscores", settings.Rules[2].Name)
	assert.True(t, settings.Rules[2].Active)

	_, err = run(t, cfgPath, "rules", "add", "Underscores", "--pattern", "_")
	assert.Error(t, err, "duplicate names are rejected")

	_, err = run(t, cfgPath, "rules", "add", "Broken", "--pattern", "(unclosed")
	assert.Error(t, err)

	_, err = run(t, cfgPath, "rules", "disable", "Spaces to Dashes")
	require.NoError(t, err)
	settings, err = config.LoadConfigFile(cfgPath)
	require.NoError(t, err)
	assert.False(t, settings.Rules[0].Active)

	out, err = run(t, cfgPath, "preview", "snake_case name.md")
	require.NoError(t, err)
	assert.Contains(t, out, "-> snake-casename.md")

	_, err = run(t, cfgPath, "rules", "enable", "Spaces to Dashes")
	require.NoError(t, err)
	_, err = run(t, cfgPath, "rules", "remove", "Underscores")
	require.NoError(t, err)
	settings, err = config.LoadConfigFile(cfgPath)
	require.NoError(t, err)
	assert.Len(t, settings.Rules, 2)
	assert.True(t, settings.Rules[0].Active)

	_, err = run(t, cfgPath, "rules", "remove", "Nope")
	assert.Error(t, err)
}

func TestRulesTestCommand(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")

	out, err := run(t, cfgPath, "rules", "test", `(\d+)`, "--replace", "#$1", "Chapter 12")
	require.NoError(t, err)
	assert.Contains(t, out, "Chapter 12 -> chapter #12")
	assert.NoFileExists(t, cfgPath)
}

func TestConfigCommands(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "nested", "config.yaml")

	out, err := run(t, cfgPath, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, cfgPath+"\n", out)

	_, err = run(t, cfgPath, "config", "init", "--enable")
	require.NoError(t, err)
	settings, err := config.LoadConfigFile(cfgPath)
	require.NoError(t, err)
	assert.True(t, settings.Enabled)

	_, err = run(t, cfgPath, "config", "init")
	assert.Error(t, err, "an existing file is not overwritten")
	_, err = run(t, cfgPath, "config", "init", "--force")
	require.NoError(t, err)

	out, err = run(t, cfgPath, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "target_extensions:")
	assert.Contains(t, out, "enabled: false")
}

func TestConfigEditCommands(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")

	_, err := run(t, cfgPath, "config", "set", "enabled", "true")
	require.NoError(t, err)
	_, err = run(t, cfgPath, "config", "set", "watch.grace_period", "3s")
	require.NoError(t, err)
	_, err = run(t, cfgPath, "config", "add", "blacklisted_folders", "Templates", "Daily/")
	require.NoError(t, err)
	_, err = run(t, cfgPath, "config", "add", "excluded_extensions", ".PDF")
	require.NoError(t, err)
	_, err = run(t, cfgPath, "config", "remove", "target_extensions", "md")
	require.NoError(t, err)

	settings, err := config.LoadConfigFile(cfgPath)
	require.NoError(t, err)
	assert.True(t, settings.Enabled)
	assert.Equal(t, 3*time.Second, settings.Watch.GracePeriod)
	assert.Equal(t, []string{".obsidian", "Templates", "Daily"}, settings.BlacklistedFolders)
	assert.Equal(t, []string{"pdf"}, settings.ExcludedExtensions)
	assert.Empty(t, settings.TargetExtensions)

	out, err := run(t, cfgPath, "config", "remove", "blacklisted_files", "missing.md")
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing changed")

	_, err = run(t, cfgPath, "config", "set", "enabled", "sometimes")
	assert.Error(t, err)
	_, err = run(t, cfgPath, "config", "add", "enabled", "true")
	assert.Error(t, err)

	settings, err = config.LoadConfigFile(cfgPath)
	require.NoError(t, err)
	assert.True(t, settings.Enabled, "a rejected edit leaves the file alone")
}
