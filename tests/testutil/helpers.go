// Package testutil provides shared test helpers used across integration
// and unit test packages.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// WriteFile writes content below dir, creating parent directories.
func WriteFile(t *testing.T, dir string, name string, content string) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// WriteModule lays out a local module as <root>/<name>/<system>/** with a
// VERSION file. An empty version leaves the revision to the content hash.
func WriteModule(t *testing.T, root string, name string, system string, version string, files map[string]string) {
	t.Helper()
	moduleDir := filepath.Join(root, name)
	if version != "" {
		WriteFile(t, moduleDir, "VERSION", version+"\n")
	}
	for path, content := range files {
		WriteFile(t, filepath.Join(moduleDir, system), path, content)
	}
}
