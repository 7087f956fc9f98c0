package core

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sheetforge/internal/adapters"
	"sheetforge/internal/selector"
	"sheetforge/internal/types"
)

func resolveFighter(t *testing.T, character types.Persistent) ResolvedCharacter {
	t.Helper()
	reg := testRegistry(t)
	store := seedStore(t, reg, characterFiles)
	resolver := NewResolver(store, adapters.NewDefaultDocumentAdapter(), reg)
	resolved, err := resolver.Resolve(t.Context(), character)
	require.NoError(t, err)
	return resolved
}

func TestResolveLoadsEveryReference(t *testing.T) {
	resolved := resolveFighter(t, fighter())

	require.NotNil(t, resolved.Lineage)
	assert.Equal(t, "Elf", resolved.Lineage.Name)
	assert.Equal(t, "lineage", resolved.Lineage.Kind)
	require.NotNil(t, resolved.Background)
	assert.Equal(t, "Soldier", resolved.Background.Name)
	assert.Nil(t, resolved.Upbringing)
	require.Len(t, resolved.Classes, 1)
	assert.Equal(t, 3, resolved.Classes[0].Level)
	require.Len(t, resolved.Items, 2)
	assert.Equal(t, "Chain Mail", resolved.Items[0].Item.Name)
	assert.Equal(t, "Shield", resolved.Items[1].Item.Name)
	assert.Empty(t, resolved.Missing)
	assert.True(t, resolved.Arena.Sealed())
}

func TestResolveSkipsMissingAndMistypedReferences(t *testing.T) {
	character := fighter()
	character.Upbringing = refPtr("classes/fighter.yaml")
	character.Bundles = []types.SourceId{ref("feats/missing.yaml")}
	character.Conditions = []types.SourceId{ref("conditions/hasted.yaml")}

	resolved := resolveFighter(t, character)

	want := []types.SourceId{ref("classes/fighter.yaml"), ref("feats/missing.yaml")}
	if diff := cmp.Diff(want, resolved.Missing); diff != "" {
		t.Fatalf("missing mismatch (-want +got):\n%s", diff)
	}
	assert.Nil(t, resolved.Upbringing)
	assert.Empty(t, resolved.Bundles)
	require.Len(t, resolved.Conditions, 1)
	assert.Equal(t, "Hasted", resolved.Conditions[0].Name)
}

func TestResolveRequiresDependencies(t *testing.T) {
	_, err := Resolver{}.Resolve(t.Context(), fighter())
	require.Error(t, err)
}

func TestCompileFighter(t *testing.T) {
	derived := NewCompiler().Compile(t.Context(), resolveFighter(t, fighter()))

	assert.Equal(t, 3, derived.Level)
	assert.Equal(t, 2, derived.ProficiencyBonus)
	assert.Equal(t, 17, derived.Score(types.AbilityStrength))
	assert.Equal(t, 14, derived.Score(types.AbilityDexterity))
	assert.Equal(t, 15, derived.Score(types.AbilityConstitution))
	assert.Equal(t, 28, derived.MaxHitPoints())
	assert.Equal(t, 18, derived.ArmorClass())
	assert.Equal(t, 30, derived.Speed("walk"))
	assert.Equal(t, 13, derived.PassivePerception())
	require.NotNil(t, derived.Armor)
	assert.Equal(t, "Chain Mail", derived.Armor.Name)
	assert.True(t, derived.Proficient(types.ProficiencyKindArmor, "heavy"))
	assert.Equal(t, 5, derived.SaveBonus(types.AbilityStrength))

	perception := derived.Skills[types.SkillPerception]
	assert.Equal(t, []selector.Path{"lineage/Elf", "background/Soldier"}, perception.Sources)

	var features []string
	for _, feature := range derived.Features {
		features = append(features, feature.Name+"@"+feature.Source.String())
	}
	assert.Equal(t, []string{"Second Wind@class/Fighter/level/1", "Action Surge@class/Fighter/level/2"}, features)

	assert.Equal(t, []selector.Path{"class/Fighter/level/1/skill"}, derived.MissingSelections)
}

func TestCompileHonorsClassLevel(t *testing.T) {
	character := fighter()
	character.Classes[0].Level = 1
	derived := NewCompiler().Compile(t.Context(), resolveFighter(t, character))

	assert.Equal(t, 12, derived.MaxHitPoints())
	assert.Equal(t, 16, derived.Score(types.AbilityStrength))
	assert.Len(t, derived.Features, 1)
}

func TestCompileSelectionsAndConditions(t *testing.T) {
	character := fighter()
	character.Select("class/Fighter/level/1/skill", "survival")
	character.Conditions = []types.SourceId{ref("conditions/hasted.yaml")}
	derived := NewCompiler().Compile(t.Context(), resolveFighter(t, character))

	assert.Empty(t, derived.MissingSelections)
	assert.Equal(t, []selector.Path{"class/Fighter/level/1"}, derived.Skills[types.SkillSurvival].Sources)
	assert.Equal(t, 20, derived.ArmorClass())
	actions, bonusActions, _ := derived.Actions.Totals()
	assert.Equal(t, 2, actions)
	assert.Equal(t, 1, bonusActions)
}

func TestCompileIsIdempotent(t *testing.T) {
	resolved := resolveFighter(t, fighter())
	compiler := NewCompiler()
	first := compiler.Compile(t.Context(), resolved)
	second := compiler.Compile(t.Context(), resolved)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("recompile mismatch (-want +got):\n%s", diff)
	}
}

func TestCompileUnequippedItemsContributeNothing(t *testing.T) {
	character := fighter()
	for i := range character.Inventory {
		character.Inventory[i].Equipped = false
	}
	derived := NewCompiler().Compile(t.Context(), resolveFighter(t, character))
	assert.Nil(t, derived.Armor)
	assert.Equal(t, 12, derived.ArmorClass())
}
