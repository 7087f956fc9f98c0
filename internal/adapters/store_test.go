package adapters

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sheetforge/internal/ports"
	"sheetforge/internal/types"
)

func storeFactories() map[string]func(t *testing.T) ports.StorePort {
	return map[string]func(t *testing.T) ports.StorePort{
		"memory": func(t *testing.T) ports.StorePort {
			return NewMemoryStore()
		},
		"sqlite": func(t *testing.T) ports.StorePort {
			store, err := OpenSQLiteStore(t.Context(), filepath.Join(t.TempDir(), "content.db"))
			require.NoError(t, err)
			t.Cleanup(func() { require.NoError(t, store.Close()) })
			return store
		},
	}
}

func sampleEntries() []types.Entry {
	return []types.Entry{
		{
			ID: "local://core@dnd5e/items/longsword.yaml", Module: "local://core", System: "dnd5e",
			Category: types.CategoryItem, Version: "1.0.0", RawContent: "- item: Longsword",
			FileID: "items/longsword.yaml",
			Metadata: map[string]any{
				"name": "Longsword", "weight": 3.0, "tags": []any{"martial", "versatile"},
				"equipment": map[string]any{"mutators": []any{"add_proficiency"}},
			},
		},
		{
			ID: "local://core@dnd5e/items/dagger.yaml", Module: "local://core", System: "dnd5e",
			Category: types.CategoryItem, Version: "1.0.0", RawContent: "- item: Dagger",
			FileID:   "items/dagger.yaml",
			Metadata: map[string]any{"name": "Dagger", "weight": 1.0, "tags": []any{"simple", "finesse"}, "magic": false},
		},
		{
			ID: "local://core@dnd5e/items/rope.yaml", Module: "local://core", System: "dnd5e",
			Category: types.CategoryItem, Version: "1.0.0", RawContent: "- item: Rope",
			FileID:   "items/rope.yaml",
			Metadata: map[string]any{"name": "Hempen Rope", "weight": 10.0, "tags": []any{}, "note": nil},
		},
		{
			ID: "local://core@dnd5e/generators/plus-one/1/items/dagger.yaml", Module: "local://core", System: "dnd5e",
			Category: types.CategoryItem, Version: "1.0.0", RawContent: "- item: Dagger +1",
			FileID:   types.GeneratedFilePrefix + "local://core@dnd5e/generators/plus-one.yaml",
			Metadata: map[string]any{"name": "Dagger +1", "weight": 1.0, "tags": []any{"simple", "finesse"}, "magic": true},
		},
		{
			ID: "local://core@pf2e/items/longsword.yaml", Module: "local://core", System: "pf2e",
			Category: types.CategoryItem, Version: "1.0.0", RawContent: "- item: Longsword",
			FileID:   "items/longsword.yaml",
			Metadata: map[string]any{"name": "Longsword", "weight": 1.0},
		},
	}
}

func entryNames(entries []types.Entry) []string {
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Metadata["name"].(string))
	}
	return names
}

func TestStoreGetAndMutate(t *testing.T) {
	for name, open := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := t.Context()
			store := open(t)
			require.NoError(t, store.Mutate(ctx, types.Transaction{Put: sampleEntries()}))

			entry, ok, err := store.GetEntry(ctx, "local://core@dnd5e/items/longsword.yaml")
			require.NoError(t, err)
			require.True(t, ok)
			if diff := cmp.Diff(sampleEntries()[0], entry); diff != "" {
				t.Fatalf("entry mismatch (-want +got):\n%s", diff)
			}

			_, ok, err = store.GetEntry(ctx, "local://core@dnd5e/items/missing.yaml")
			require.NoError(t, err)
			assert.False(t, ok)

			updated := sampleEntries()[1]
			updated.Version = "1.1.0"
			require.NoError(t, store.Mutate(ctx, types.Transaction{
				Put:    []types.Entry{updated},
				Delete: []string{"local://core@dnd5e/items/rope.yaml"},
			}))
			entry, ok, err = store.GetEntry(ctx, updated.ID)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, "1.1.0", entry.Version)
			_, ok, err = store.GetEntry(ctx, "local://core@dnd5e/items/rope.yaml")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestStoreMutateIsAllOrNothing(t *testing.T) {
	for name, open := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := t.Context()
			store := open(t)
			require.NoError(t, store.Mutate(ctx, types.Transaction{Put: sampleEntries()[:1]}))

			err := store.Mutate(ctx, types.Transaction{
				Put:    []types.Entry{sampleEntries()[1], {ID: " "}},
				Delete: []string{sampleEntries()[0].ID},
			})
			require.Error(t, err)

			_, ok, err := store.GetEntry(ctx, sampleEntries()[0].ID)
			require.NoError(t, err)
			assert.True(t, ok, "delete of a failed transaction was applied")
			_, ok, err = store.GetEntry(ctx, sampleEntries()[1].ID)
			require.NoError(t, err)
			assert.False(t, ok, "put of a failed transaction was applied")
		})
	}
}

func TestStoreQueryEntries(t *testing.T) {
	criteria := func(c types.Criteria) *types.Criteria { return &c }
	tests := []struct {
		name  string
		query types.Query
		want  []string
	}{
		{name: "system", query: types.Query{System: "dnd5e"}, want: []string{"Dagger +1", "Dagger", "Longsword", "Hempen Rope"}},
		{name: "authored", query: types.Query{System: "dnd5e", Origin: types.OriginAuthored}, want: []string{"Dagger", "Longsword", "Hempen Rope"}},
		{name: "generated", query: types.Query{System: "dnd5e", Origin: types.OriginGenerated}, want: []string{"Dagger +1"}},
		{name: "category miss", query: types.Query{System: "dnd5e", Category: types.CategoryClass}, want: []string{}},
		{
			name:  "exact number",
			query: types.Query{System: "dnd5e", Criteria: criteria(types.ContainsProperty("weight", types.Exact(3)))},
			want:  []string{"Longsword"},
		},
		{
			name:  "exact bool",
			query: types.Query{System: "dnd5e", Criteria: criteria(types.ContainsProperty("magic", types.Exact(false)))},
			want:  []string{"Dagger"},
		},
		{
			name:  "exact null",
			query: types.Query{System: "dnd5e", Criteria: criteria(types.ContainsProperty("note", types.Exact(nil)))},
			want:  []string{"Hempen Rope"},
		},
		{
			name:  "substring",
			query: types.Query{System: "dnd5e", Criteria: criteria(types.ContainsProperty("name", types.ContainsSubstring("Dagger")))},
			want:  []string{"Dagger +1", "Dagger"},
		},
		{
			name:  "missing",
			query: types.Query{System: "dnd5e", Origin: types.OriginAuthored, Criteria: criteria(types.MissingProperty("magic"))},
			want:  []string{"Longsword", "Hempen Rope"},
		},
		{
			name:  "element",
			query: types.Query{System: "dnd5e", Criteria: criteria(types.ContainsProperty("tags", types.ContainsElement(types.Exact("finesse"))))},
			want:  []string{"Dagger +1", "Dagger"},
		},
		{
			name:  "nested property",
			query: types.Query{Criteria: criteria(types.ContainsProperty("equipment", types.ContainsProperty("mutators", types.ContainsElement(types.Exact("add_proficiency")))))},
			want:  []string{"Longsword"},
		},
		{
			name: "not over element",
			query: types.Query{System: "dnd5e", Origin: types.OriginAuthored, Criteria: criteria(types.Not(
				types.ContainsProperty("tags", types.ContainsElement(types.Exact("simple"))),
			))},
			want: []string{"Longsword", "Hempen Rope"},
		},
		{
			name: "not missing property",
			query: types.Query{System: "dnd5e", Criteria: criteria(types.Not(
				types.ContainsProperty("magic", types.Exact(true)),
			))},
			want: []string{"Dagger", "Longsword", "Hempen Rope"},
		},
		{
			name: "any and all",
			query: types.Query{System: "dnd5e", Origin: types.OriginAuthored, Criteria: criteria(types.Any(
				types.All(types.ContainsProperty("weight", types.Exact(10)), types.ContainsProperty("name", types.ContainsSubstring("Rope"))),
				types.ContainsProperty("weight", types.Exact(1)),
			))},
			want: []string{"Dagger", "Hempen Rope"},
		},
		{
			name: "any stays inside the system filter",
			query: types.Query{System: "pf2e", Criteria: criteria(types.Any(
				types.ContainsProperty("weight", types.Exact(1)),
				types.ContainsProperty("name", types.ContainsSubstring("Rope")),
			))},
			want: []string{"Longsword"},
		},
		{
			name: "not any stays inside the origin filter",
			query: types.Query{System: "dnd5e", Origin: types.OriginGenerated, Criteria: criteria(types.Not(types.Any(
				types.ContainsProperty("weight", types.Exact(3)),
				types.ContainsProperty("weight", types.Exact(10)),
			)))},
			want: []string{"Dagger +1"},
		},
		{name: "empty any", query: types.Query{System: "dnd5e", Criteria: criteria(types.Any())}, want: []string{}},
	}
	for name, open := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			store := open(t)
			require.NoError(t, store.Mutate(t.Context(), types.Transaction{Put: sampleEntries()}))
			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					got, err := store.QueryEntries(t.Context(), tt.query)
					require.NoError(t, err)
					if diff := cmp.Diff(tt.want, entryNames(got)); diff != "" {
						t.Fatalf("query mismatch (-want +got):\n%s", diff)
					}
				})
			}
		})
	}
}

func TestStoreModules(t *testing.T) {
	for name, open := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := t.Context()
			store := open(t)
			_, ok, err := store.GetModule(ctx, "local://core", "dnd5e")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, store.PutModule(ctx, types.ModuleRecord{Module: "local://core", System: "dnd5e", Version: "1.0.0"}))
			require.NoError(t, store.PutModule(ctx, types.ModuleRecord{Module: "local://core", System: "dnd5e", Version: "1.1.0"}))
			require.NoError(t, store.PutModule(ctx, types.ModuleRecord{Module: "local://extra", System: "pf2e", Version: "2"}))

			record, ok, err := store.GetModule(ctx, "local://core", "dnd5e")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, "1.1.0", record.Version)

			records, err := store.ListModules(ctx, "dnd5e")
			require.NoError(t, err)
			assert.Equal(t, []types.ModuleRecord{{Module: "local://core", System: "dnd5e", Version: "1.1.0"}}, records)
			all, err := store.ListModules(ctx, "")
			require.NoError(t, err)
			assert.Len(t, all, 2)
		})
	}
}

func TestSQLiteStoreReopenKeepsContent(t *testing.T) {
	ctx := t.Context()
	path := filepath.Join(t.TempDir(), "content.db")
	store, err := OpenSQLiteStore(ctx, path)
	require.NoError(t, err)
	require.NoError(t, store.Mutate(ctx, types.Transaction{Put: sampleEntries()}))
	require.NoError(t, store.Close())

	reopened, err := OpenSQLiteStore(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()
	entries, err := reopened.QueryEntries(ctx, types.Query{System: "pf2e"})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCompileCriteriaExactness(t *testing.T) {
	assert.True(t, compileCriteria(types.ContainsProperty("weight", types.Exact(3)), "$").exact)
	assert.True(t, compileCriteria(types.Not(types.MissingProperty("magic")), "$").exact)
	assert.False(t, compileCriteria(types.ContainsElement(types.Exact("a")), "$").exact)
	assert.False(t, compileCriteria(types.Not(types.ContainsElement(types.Exact("a"))), "$").exact)
	assert.False(t, compileCriteria(types.ContainsProperty(`we"ird`, types.Exact(1)), "$").exact)

	grouped := compileCriteria(types.Any(types.MissingProperty("a"), types.MissingProperty("b")), "$")
	assert.True(t, strings.HasPrefix(grouped.clause, "(") && strings.HasSuffix(grouped.clause, ")"), grouped.clause)

	filter := compileCriteria(types.ContainsProperty("tags", types.ContainsElement(types.Exact("a"))), "$")
	assert.Equal(t, []any{`$."tags"`, `$."tags"`}, filter.args)
}
