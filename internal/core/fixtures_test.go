package core

import (
	"testing"

	"github.com/stretchr/testify/require"

	"sheetforge/internal/adapters"
	"sheetforge/internal/content"
	"sheetforge/internal/ports"
	"sheetforge/internal/registry"
	"sheetforge/internal/systems/dnd5e"
	"sheetforge/internal/types"
)

const coreModule = "local://core@dnd5e/"

var characterFiles = map[string]string{
	"lineages/elf.yaml": `
- bundle:
    args: [Elf]
    category: lineage
    children:
      - mutator: {args: [add_ability_score, dex], amount: 2}
      - mutator: {args: [add_proficiency, skill, perception]}
      - mutator: {args: [speed], amount: 30}
      - mutator: !add_ability_score
          args: [!any_of bonus]
          amount: 1
          children:
            - option: [str, con]
`,
	"backgrounds/soldier.yaml": `
- bundle:
    args: [Soldier]
    category: background
    children:
      - mutator: {args: [add_proficiency, skill, athletics]}
      - mutator: {args: [add_proficiency, skill, perception]}
`,
	"classes/fighter.yaml": `
- class:
    args: [Fighter]
    hit_die: 10
    children:
      - mutator: {args: [add_proficiency, save, str]}
      - mutator: {args: [add_proficiency, armor, heavy]}
      - level:
          args: [1]
          children:
            - mutator: !add_proficiency
                args: [skill, !any_of skill]
                children:
                  - option: [acrobatics, intimidation, survival]
            - mutator: {args: [add_feature, Second Wind]}
      - level:
          args: [2]
          children:
            - mutator: {args: [add_feature, Action Surge]}
      - level:
          args: [3]
          children:
            - mutator: !add_ability_score
                args: [!any_of asi]
                amount: 1
                children:
                  - option: [str, dex]
`,
	"items/armor.yaml": `
- item:
    args: [Chain Mail]
    weight: 55
    children:
      - tag: [armor, heavy]
      - equipment:
          children:
            - armor: {args: [heavy], base: 16}
- item:
    args: [Shield]
    weight: 6
    children:
      - tag: [armor, shield]
      - equipment:
          children:
            - shield: 2
`,
	"conditions/hasted.yaml": `
- condition:
    args: [Hasted]
    children:
      - mutator: {args: [add_armor_class, 2]}
      - mutator: {args: [add_actions], action: 1}
`,
}

var generatorFiles = map[string]string{
	"items/weapons.yaml": `
- item:
    args: [Longsword]
    weight: 3
    children:
      - tag: [weapon, martial]
- item:
    args: [Dagger]
    weight: 1
    children:
      - tag: [weapon, simple]
- item:
    args: [Rope]
    weight: 10
`,
	"generators/plus-one.yaml": `
- generator: !item_variants
    args: [Plus One]
    priority: 5
    children:
      - filter:
          children:
            - property:
                args: [tags]
                children:
                  - element:
                      children:
                        - exact: weapon
      - variant:
          args: ["+1"]
          children:
            - mutator: !rename "{name} +1"
            - mutator: !add_tag magic
`,
	"generators/sets.yaml": `
- generator: !generator_list
    args: [Sets]
    children:
      - generator: !item_variants
          args: [Plus Two]
          children:
            - filter:
                children:
                  - property:
                      args: [tags]
                      children:
                        - element:
                            children:
                              - exact: weapon
            - variant:
                args: ["+2"]
                children:
                  - mutator: !rename "{name} +2"
`,
}

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := dnd5e.NewRegistry()
	require.NoError(t, err)
	return reg
}

// seedStore parses files as the core module at version 1.0.0.
func seedStore(t *testing.T, reg *registry.Registry, files map[string]string) *adapters.MemoryStore {
	t.Helper()
	store := adapters.NewMemoryStore()
	putFiles(t, reg, store, files)
	return store
}

func putFiles(t *testing.T, reg *registry.Registry, store ports.StorePort, files map[string]string) {
	t.Helper()
	decoder := adapters.NewDefaultDocumentAdapter()
	loader := registry.NewLoader(reg, registry.NewArena())
	var tx types.Transaction
	for path, raw := range files {
		base := types.MustParseSourceId(coreModule + path)
		base.Version = "1.0.0"
		entries, err := content.EntriesFromFile(decoder, loader, base, []byte(raw))
		require.NoError(t, err, path)
		tx.Put = append(tx.Put, entries...)
	}
	require.NoError(t, store.Mutate(t.Context(), tx))
}

func ref(path string) types.SourceId {
	return types.MustParseSourceId(coreModule + path)
}

func refPtr(path string) *types.SourceId {
	id := ref(path)
	return &id
}

func fighter() types.Persistent {
	return types.Persistent{
		Name:   "Aelar",
		System: dnd5e.ID,
		AbilityScores: map[types.Ability]int{
			types.AbilityStrength:     16,
			types.AbilityDexterity:    12,
			types.AbilityConstitution: 14,
			types.AbilityIntelligence: 10,
			types.AbilityWisdom:       12,
			types.AbilityCharisma:     8,
		},
		Lineage:    refPtr("lineages/elf.yaml"),
		Background: refPtr("backgrounds/soldier.yaml"),
		Classes:    []types.ClassRef{{ID: ref("classes/fighter.yaml"), Level: 3}},
		Inventory: []types.ItemRef{
			{ID: ref("items/armor.yaml"), Quantity: 1, Equipped: true},
			{ID: ref("items/armor.yaml#1"), Quantity: 1, Equipped: true},
		},
		SelectedValues: map[string]string{
			"lineage/Elf/bonus":         "con",
			"class/Fighter/level/3/asi": "str",
		},
	}
}
