package cli

import (
	"io"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sheetforge/internal/document"
)

// ---------- Command tree tests ----------

func TestRootCommandHasSubcommands(t *testing.T) {
	root := newRootCommand()
	names := make([]string, 0, len(root.Commands()))
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	expected := []string{"validate", "install", "generate", "compile", "query", "modules"}
	for _, name := range expected {
		assert.Contains(t, names, name, "missing subcommand: %s", name)
	}
}

func TestRootCommandVersion(t *testing.T) {
	root := newRootCommand()
	assert.Equal(t, "dev", root.Version)
}

func TestRootPersistentFlags(t *testing.T) {
	root := newRootCommand()
	for _, name := range []string{"config", "log-level", "db", "system", "modules-root"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(name), "missing flag: %s", name)
	}
}

func TestCommandFlags(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		flags []string
	}{
		{cmd: newInstallCommand(), flags: []string{"module", "force", "generate"}},
		{cmd: newGenerateCommand(), flags: []string{"dry-run", "max-processed"}},
		{cmd: newCompileCommand(), flags: []string{"select", "unselect", "write", "format"}},
		{cmd: newQueryCommand(), flags: []string{"category", "module", "origin", "name", "where", "format"}},
	}
	for _, tt := range tests {
		t.Run(tt.cmd.Name(), func(t *testing.T) {
			for _, name := range tt.flags {
				assert.NotNil(t, tt.cmd.Flags().Lookup(name), "missing flag: %s", name)
			}
		})
	}
}

func TestParseSelections(t *testing.T) {
	got, err := parseSelections([]string{"class/Fighter/level/1/skill = survival", "lineage/Elf/bonus=con"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"class/Fighter/level/1/skill": "survival",
		"lineage/Elf/bonus":           "con",
	}, got)

	_, err = parseSelections([]string{"survival"})
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
}

func TestWriteFormattedRejectsUnknownFormat(t *testing.T) {
	err := writeFormatted(io.Discard, "toml", map[string]int{"a": 1})
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
}

// ---------- Helper function tests ----------

func TestResolveString(t *testing.T) {
	tests := []struct {
		name     string
		cmd      *cobra.Command
		value    string
		expected string
	}{
		{
			name:     "nil cmd with value returns value",
			cmd:      nil,
			value:    "explicit",
			expected: "explicit",
		},
		{
			name:     "nil cmd empty value returns empty",
			cmd:      nil,
			value:    "",
			expected: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolveString(tt.cmd, tt.value, "test_key", "test-flag")
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestResolveBool(t *testing.T) {
	got := resolveBool(nil, true, "test_key", "test-flag")
	assert.True(t, got)

	got = resolveBool(nil, false, "test_key", "test-flag")
	assert.False(t, got)
}

func TestResolveInt(t *testing.T) {
	got := resolveInt(nil, 42, "test_key", "test-flag")
	assert.Equal(t, 42, got)
}

func TestFlagChanged(t *testing.T) {
	assert.False(t, flagChanged(nil, "anything"), "nil cmd should return false")
	assert.False(t, flagChanged(nil, ""), "nil cmd with empty name")

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("myflag", "", "test flag")
	assert.False(t, flagChanged(cmd, "myflag"), "unchanged flag")
	assert.False(t, flagChanged(cmd, "nonexistent"), "nonexistent flag")
}

func TestFlagChangedAfterSet(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("myflag", "", "test flag")
	require.NoError(t, cmd.Flags().Set("myflag", "val"))
	assert.True(t, flagChanged(cmd, "myflag"))
}

// ---------- Exit code tests ----------

func TestExitCodeForError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{
			name: "invalid argument",
			err: errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("bad input"),
			expected: 2,
		},
		{
			name: "already exists",
			err: errbuilder.New().
				WithCode(errbuilder.CodeAlreadyExists).
				WithMsg("dup"),
			expected: 2,
		},
		{
			name: "refused downgrade",
			err: errbuilder.New().
				WithCode(errbuilder.CodeFailedPrecondition).
				WithMsg("installed revision 1.0.0 is newer than 0.9.0; use --force to downgrade"),
			expected: 3,
		},
		{
			name: "generic failed precondition",
			err: errbuilder.New().
				WithCode(errbuilder.CodeFailedPrecondition).
				WithMsg("something else failed"),
			expected: 4,
		},
		{
			name: "permission denied",
			err: errbuilder.New().
				WithCode(errbuilder.CodePermissionDenied).
				WithMsg("nope"),
			expected: 3,
		},
		{
			name: "not found",
			err: errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg("entry missing"),
			expected: 4,
		},
		{
			name: "internal error",
			err: errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("boom"),
			expected: 5,
		},
		{
			name:     "unwrapped document error",
			err:      &document.Error{Kind: document.ErrWrongType, Node: "item", Index: 0},
			expected: 2,
		},
		{
			name:     "unknown error",
			err:      assert.AnError,
			expected: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := exitCodeForError(tt.err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name: "errbuilder with msg",
			err: errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("something broke"),
			expected: "something broke",
		},
		{
			name:     "plain error",
			err:      assert.AnError,
			expected: assert.AnError.Error(),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errorMessage(tt.err)
			assert.Equal(t, tt.expected, got)
		})
	}
}
