package app

import (
	"path/filepath"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sheetforge/internal/adapters"
	"sheetforge/tests/testutil"
)

func newTestService(t *testing.T) (Service, string) {
	t.Helper()
	root := t.TempDir()
	testutil.WriteModule(t, root, "core", "dnd5e", "1.0.0", testutil.CoreFiles)
	return NewService(adapters.NewMemoryStore(), root), root
}

func TestValidateApp(t *testing.T) {
	service, root := newTestService(t)
	contentDir := filepath.Join(root, "core", "dnd5e")

	result, err := service.Validate(t.Context(), ValidateRequest{Path: contentDir, System: "dnd5e"})
	require.NoError(t, err)
	if diff := cmp.Diff(ValidateResult{Files: 7, Entries: 8}, result); diff != "" {
		t.Fatalf("unexpected validate result (-want +got):\n%s", diff)
	}

	testutil.WriteFile(t, contentDir, "items/broken.yaml", "- item:\n    weight: 3\n")
	testutil.WriteFile(t, contentDir, "README.md", "not content")
	result, err = service.Validate(t.Context(), ValidateRequest{Path: contentDir, System: "dnd5e"})
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
	assert.Equal(t, 8, result.Files)
	require.Len(t, result.Problems, 1)
	assert.Equal(t, "items/broken.yaml", result.Problems[0].Path)
}

func TestValidateSingleFile(t *testing.T) {
	service, root := newTestService(t)
	result, err := service.Validate(t.Context(), ValidateRequest{
		Path:   filepath.Join(root, "core", "dnd5e", "items", "weapons.yaml"),
		System: "dnd5e",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Files)
	assert.Equal(t, 2, result.Entries)
}

func TestValidateRejectsBadRequests(t *testing.T) {
	service, root := newTestService(t)
	tests := []struct {
		name string
		req  ValidateRequest
		code errbuilder.ErrCode
	}{
		{name: "missing path", req: ValidateRequest{System: "dnd5e"}, code: errbuilder.CodeInvalidArgument},
		{name: "missing system", req: ValidateRequest{Path: root}, code: errbuilder.CodeInvalidArgument},
		{name: "unknown system", req: ValidateRequest{Path: root, System: "gurps"}, code: errbuilder.CodeNotFound},
		{name: "absent path", req: ValidateRequest{Path: filepath.Join(root, "nope"), System: "dnd5e"}, code: errbuilder.CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Validate(t.Context(), tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.code, errbuilder.CodeOf(err))
		})
	}
}
