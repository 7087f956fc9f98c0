package adapters

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sheetforge/internal/types"
)

func writeFile(t *testing.T, path string, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLocalModuleSourceFetch(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "core", "VERSION"), "1.2.0\n")
	writeFile(t, filepath.Join(root, "core", "dnd5e", "lineages", "elf.yaml"), "- bundle: Elf\n")
	writeFile(t, filepath.Join(root, "core", "dnd5e", "items", "sword.hcl"), "item \"Sword\" {}\n")
	writeFile(t, filepath.Join(root, "core", "dnd5e", "README.md"), "notes")
	writeFile(t, filepath.Join(root, "core", "dnd5e", ".drafts", "wip.yaml"), "- bundle: Draft\n")

	source := NewLocalModuleSource(root, NewDefaultDocumentAdapter().Supports)
	snapshot, err := source.Fetch(t.Context(), types.LocalModule("core"), "dnd5e")
	require.NoError(t, err)
	assert.Equal(t, "1.2.0", snapshot.Version)
	assert.Equal(t, "dnd5e", snapshot.System)
	require.Len(t, snapshot.Files, 2)
	assert.Equal(t, "items/sword.hcl", snapshot.Files[0].Path)
	assert.Equal(t, "lineages/elf.yaml", snapshot.Files[1].Path)
}

func TestLocalModuleSourceHashesUnversionedModules(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "homebrew", "dnd5e", "feats", "lucky.yaml")
	writeFile(t, path, "- bundle: Lucky\n")
	source := NewLocalModuleSource(root, nil)

	first, err := source.Fetch(t.Context(), types.LocalModule("homebrew"), "dnd5e")
	require.NoError(t, err)
	again, err := source.Fetch(t.Context(), types.LocalModule("homebrew"), "dnd5e")
	require.NoError(t, err)
	assert.Len(t, first.Version, 12)
	assert.Equal(t, first.Version, again.Version)

	writeFile(t, path, "- bundle: Luckier\n")
	changed, err := source.Fetch(t.Context(), types.LocalModule("homebrew"), "dnd5e")
	require.NoError(t, err)
	assert.NotEqual(t, first.Version, changed.Version)
}

func TestLocalModuleSourceErrors(t *testing.T) {
	source := NewLocalModuleSource(t.TempDir(), nil)
	_, err := source.Fetch(t.Context(), types.LocalModule("core"), "dnd5e")
	assert.Equal(t, errbuilder.CodeNotFound, errbuilder.CodeOf(err))

	_, err = source.Fetch(t.Context(), types.GithubModule("org", "repo"), "dnd5e")
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
}
