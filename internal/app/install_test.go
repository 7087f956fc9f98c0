package app

import (
	"path/filepath"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sheetforge/internal/types"
	"sheetforge/tests/testutil"
)

func names(entries []types.Entry) []string {
	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		out = append(out, entry.Metadata["name"].(string))
	}
	return out
}

func TestInstallThenQuery(t *testing.T) {
	service, _ := newTestService(t)
	ctx := t.Context()

	result, err := service.Install(ctx, InstallRequest{Module: "local://core", System: "dnd5e"})
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", result.Version)
	assert.Empty(t, result.Previous)
	assert.Equal(t, 7, result.Files)
	assert.Equal(t, 8, result.Entries)
	assert.Zero(t, result.Removed)
	assert.Nil(t, result.Generation)

	items, err := service.Query(ctx, QueryRequest{System: "dnd5e", Category: "item"})
	require.NoError(t, err)
	if diff := cmp.Diff([]string{"Chain Mail", "Longsword", "Dagger"}, names(items.Entries)); diff != "" {
		t.Fatalf("items mismatch (-want +got):\n%s", diff)
	}

	weapons, err := service.Query(ctx, QueryRequest{
		System: "dnd5e",
		Where:  "- property: {args: [tags], children: [{element: {children: [{exact: weapon}]}}]}",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Longsword", "Dagger"}, names(weapons.Entries))

	named, err := service.Query(ctx, QueryRequest{System: "dnd5e", Name: "Sold"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Soldier"}, names(named.Entries))

	modules, err := service.Modules(ctx, ModulesRequest{System: "dnd5e"})
	require.NoError(t, err)
	assert.Equal(t, []types.ModuleRecord{{Module: "local://core", System: "dnd5e", Version: "1.0.0"}}, modules.Modules)
}

func TestInstallGeneratesVariants(t *testing.T) {
	service, _ := newTestService(t)
	ctx := t.Context()

	result, err := service.Install(ctx, InstallRequest{Module: "local://core", System: "dnd5e", Generate: true})
	require.NoError(t, err)
	require.NotNil(t, result.Generation)
	assert.Len(t, result.Generation.Added, 2)

	generated, err := service.Query(ctx, QueryRequest{System: "dnd5e", Origin: "generated"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Longsword +1", "Dagger +1"}, names(generated.Entries))

	report, err := service.Generate(ctx, GenerateRequest{System: "dnd5e"})
	require.NoError(t, err)
	assert.Empty(t, report.Added)
	assert.Empty(t, report.Stale)
}

func TestInstallRevisions(t *testing.T) {
	service, root := newTestService(t)
	ctx := t.Context()
	_, err := service.Install(ctx, InstallRequest{Module: "local://core", System: "dnd5e"})
	require.NoError(t, err)

	older := map[string]string{"items/armor.yaml": testutil.CoreFiles["items/armor.yaml"]}
	testutil.WriteModule(t, root, "old", "dnd5e", "0.9.0", older)
	_, err = service.Install(ctx, InstallRequest{Module: "local://old", System: "dnd5e"})
	require.NoError(t, err, "other modules install independently")

	testutil.WriteFile(t, filepath.Join(root, "core"), "VERSION", "0.9.0\n")
	_, err = service.Install(ctx, InstallRequest{Module: "local://core", System: "dnd5e"})
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeFailedPrecondition, errbuilder.CodeOf(err))

	result, err := service.Install(ctx, InstallRequest{Module: "local://core", System: "dnd5e", Force: true})
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", result.Previous)
	assert.Equal(t, "0.9.0", result.Version)

	upgraded := map[string]string{}
	for path, content := range testutil.CoreFiles {
		if path != "conditions/hasted.yaml" {
			upgraded[path] = content
		}
	}
	upgradeRoot := t.TempDir()
	testutil.WriteModule(t, upgradeRoot, "core", "dnd5e", "1.1.0", upgraded)
	service.Sources = NewService(service.Store, upgradeRoot).Sources
	result, err = service.Install(ctx, InstallRequest{Module: "local://core", System: "dnd5e"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Removed)

	conditions, err := service.Query(ctx, QueryRequest{System: "dnd5e", Category: "condition"})
	require.NoError(t, err)
	assert.Empty(t, conditions.Entries)
}

func TestInstallSkipsBrokenContent(t *testing.T) {
	service, root := newTestService(t)
	dir := filepath.Join(root, "core", "dnd5e")
	testutil.WriteFile(t, dir, "items/broken.yaml", "- item:\n    args: [Rope]\n    weight: 10\n- item:\n    weight: 3\n")
	testutil.WriteFile(t, dir, "items/garbled.yaml", "- item: [\n")
	ctx := t.Context()

	result, err := service.Install(ctx, InstallRequest{Module: "local://core", System: "dnd5e"})
	require.NoError(t, err)
	assert.Equal(t, 9, result.Entries)
	require.Len(t, result.Problems, 2)
	paths := []string{result.Problems[0].Path, result.Problems[1].Path}
	assert.ElementsMatch(t, []string{"items/broken.yaml", "items/garbled.yaml"}, paths)
	for _, problem := range result.Problems {
		assert.NotEmpty(t, problem.Message)
	}

	items, err := service.Query(ctx, QueryRequest{System: "dnd5e", Category: "item"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Chain Mail", "Longsword", "Dagger", "Rope"}, names(items.Entries))

	modules, err := service.Modules(ctx, ModulesRequest{})
	require.NoError(t, err)
	assert.Equal(t, []types.ModuleRecord{{Module: "local://core", System: "dnd5e", Version: "1.0.0"}}, modules.Modules)
}

func TestInstallRejectsBadModules(t *testing.T) {
	service, _ := newTestService(t)
	_, err := service.Install(t.Context(), InstallRequest{Module: "ftp://core", System: "dnd5e"})
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
	_, err = service.Install(t.Context(), InstallRequest{Module: "local://absent", System: "dnd5e"})
	assert.Equal(t, errbuilder.CodeNotFound, errbuilder.CodeOf(err))
}
