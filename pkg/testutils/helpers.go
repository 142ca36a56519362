// Package testutils holds helpers shared by package tests.
package testutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/require"
)

// CreateTestFilesWithContent creates files under dir. Names are
// '/'-separated vault paths; missing folders are created.
func CreateTestFilesWithContent(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		full := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0644))
	}
}

// CreateTestFiles creates empty-ish files at the given vault paths.
func CreateTestFiles(t *testing.T, dir string, paths ...string) {
	t.Helper()
	files := make(map[string]string, len(paths))
	for _, p := range paths {
		files[p] = "content"
	}
	CreateTestFilesWithContent(t, dir, files)
}

// StripANSI removes terminal escape sequences from a string.
func StripANSI(str string) string {
	return ansi.Strip(str)
}
