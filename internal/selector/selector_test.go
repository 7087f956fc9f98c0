package selector

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sheetforge/internal/document"
	"sheetforge/internal/types"
)

var skillCodec = Codec[types.Skill]{
	Parse:  types.ParseSkill,
	Format: func(s types.Skill) string { return string(s) },
}

func assigned(t *testing.T, scope Path, sel Selector[types.Skill]) *Table {
	t.Helper()
	table := NewTable()
	sel.Assign(table, scope)
	return table
}

func TestResolveRoundTrip(t *testing.T) {
	scope := Join("class", "Fighter", "level", "1")
	sel := AnyOf("skill", []types.Skill{types.SkillAthletics, types.SkillInsight}, 1, skillCodec)
	table := assigned(t, scope, sel)
	selections := map[string]string{"class/Fighter/level/1/skill": "insight"}

	state := NewState(t.Context(), table, selections)
	value, ok := Resolve(state, scope, sel)
	require.True(t, ok)
	assert.Equal(t, types.SkillInsight, value)
	assert.Empty(t, state.Missing())

	delete(selections, "class/Fighter/level/1/skill")
	state = NewState(t.Context(), table, selections)
	_, ok = Resolve(state, scope, sel)
	assert.False(t, ok)
	assert.Equal(t, []Path{"class/Fighter/level/1/skill"}, state.Missing())
}

func TestResolveStaleOption(t *testing.T) {
	scope := Join("background", "Sage")
	sel := AnyOf("skill", []types.Skill{types.SkillArcana, types.SkillHistory}, 1, skillCodec)
	state := NewState(t.Context(), assigned(t, scope, sel), map[string]string{"background/Sage/skill": "insight"})

	_, ok := Resolve(state, scope, sel)
	assert.False(t, ok, "a stored value outside the options is treated as absent")
	assert.Equal(t, []Path{"background/Sage/skill"}, state.Missing())
}

func TestResolveSpecificNeedsNoSlot(t *testing.T) {
	sel := Specific(types.SkillInsight, skillCodec)
	state := NewState(t.Context(), NewTable(), nil)

	value, ok := Resolve(state, Join("anything"), sel)
	require.True(t, ok)
	assert.Equal(t, types.SkillInsight, value)
	assert.Zero(t, state.Table().Len())
}

func TestResolveAnyRejectsUnparseable(t *testing.T) {
	scope := Join("feat", "Skilled")
	sel := Any("skill", skillCodec)
	state := NewState(t.Context(), assigned(t, scope, sel), map[string]string{"feat/Skilled/skill": "juggling"})

	_, ok := Resolve(state, scope, sel)
	assert.False(t, ok)
	assert.Equal(t, []Path{"feat/Skilled/skill"}, state.Missing())
}

func TestResolveMany(t *testing.T) {
	scope := Join("class", "Rogue", "level", "1")
	sel := AnyOf("expertise", []types.Skill{types.SkillStealth, types.SkillPerception, types.SkillInsight}, 2, skillCodec)
	table := assigned(t, scope, sel)

	state := NewState(t.Context(), table, map[string]string{
		"class/Rogue/level/1/expertise/0": "stealth",
		"class/Rogue/level/1/expertise/1": "insight",
	})
	values, ok := ResolveMany(state, scope, sel)
	require.True(t, ok)
	assert.Equal(t, []types.Skill{types.SkillStealth, types.SkillInsight}, values)

	state = NewState(t.Context(), table, map[string]string{"class/Rogue/level/1/expertise/0": "stealth"})
	_, ok = ResolveMany(state, scope, sel)
	assert.False(t, ok)
	assert.Equal(t, []Path{"class/Rogue/level/1/expertise"}, state.Missing())
}

func TestOptionsExcludeCannotMatch(t *testing.T) {
	scope := Join("lineage", "Half-Elf")
	first := AnyOf("first", []string{"str", "dex", "con"}, 1, StringCodec)
	second := AnyOf("second", []string{"str", "dex", "con"}, 1, StringCodec, "first")
	table := NewTable()
	first.Assign(table, scope)
	second.Assign(table, scope)

	options := table.Options(scope.Child("second"), map[string]string{"lineage/Half-Elf/first": "dex"})
	assert.Equal(t, []string{"str", "con"}, options)

	slot, ok := table.Lookup(scope.Child("second"))
	require.True(t, ok)
	if diff := cmp.Diff([]Path{"lineage/Half-Elf/first"}, slot.CannotMatch); diff != "" {
		t.Fatalf("cannot_match mismatch (-want +got):\n%s", diff)
	}
}

func TestParse(t *testing.T) {
	ctx := document.NewContext(nil, types.SourceId{}, false)

	tests := []struct {
		name     string
		node     *document.Node
		wantKind Kind
		wantKey  string
		wantOpts []types.Skill
		wantAmt  int
		wantErr  error
	}{
		{
			name:     "specific",
			node:     document.NewNode("proficiency", "insight"),
			wantKind: KindSpecific,
			wantAmt:  1,
		},
		{
			name:     "any keyed by node",
			node:     document.NewNode("skill").TypedArg("any", ""),
			wantKind: KindAny,
			wantKey:  "skill",
			wantAmt:  1,
		},
		{
			name: "any_of with options",
			node: document.NewNode("proficiency").TypedArg("any_of", "skill").Prop("choose", int64(2)).
				Add(document.NewNode("option", "arcana", "history")),
			wantKind: KindAnyOf,
			wantKey:  "skill",
			wantOpts: []types.Skill{types.SkillArcana, types.SkillHistory},
			wantAmt:  2,
		},
		{
			name:    "any_of without options",
			node:    document.NewNode("proficiency").TypedArg("any_of", "skill"),
			wantErr: document.ErrMissingValue,
		},
		{
			name:    "unknown skill",
			node:    document.NewNode("proficiency", "juggling"),
			wantErr: document.ErrInvalidValue,
		},
		{
			name:    "unknown annotation",
			node:    document.NewNode("proficiency").TypedArg("maybe", "skill"),
			wantErr: document.ErrInvalidValue,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, err := Parse(document.NewReader(tt.node, ctx.NextNode()), skillCodec)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, sel.Kind())
			assert.Equal(t, tt.wantKey, sel.Key())
			assert.Equal(t, tt.wantAmt, sel.Amount())
			if tt.wantOpts != nil {
				assert.Equal(t, tt.wantOpts, sel.Options())
			}
		})
	}
}

var abilityCodec = Codec[types.Ability]{
	Parse:  types.ParseAbility,
	Format: func(a types.Ability) string { return string(a) },
}

func TestResolveAcceptsEquivalentSpelling(t *testing.T) {
	ctx := document.NewContext(nil, types.SourceId{}, false)
	node := document.NewNode("bonus").TypedArg("any_of", "").
		Add(document.NewNode("option", "str", "con"))
	sel, err := Parse(document.NewReader(node, ctx.NextNode()), abilityCodec)
	require.NoError(t, err)

	scope := Join("lineage", "elf")
	table := NewTable()
	assert.Equal(t, Path("lineage/elf/bonus"), sel.Assign(table, scope))

	for _, stored := range []string{"con", "constitution", "CON"} {
		state := NewState(t.Context(), table, map[string]string{"lineage/elf/bonus": stored})
		value, ok := Resolve(state, scope, sel)
		require.True(t, ok, stored)
		assert.Equal(t, types.AbilityConstitution, value)
		assert.Empty(t, state.Missing())
	}

	options := table.Options("lineage/elf/bonus", nil)
	assert.Equal(t, []string{"strength", "constitution"}, options)
}

func TestOptionsExcludeEquivalentSpelling(t *testing.T) {
	scope := Join("lineage", "Half-Elf")
	abilities := []types.Ability{types.AbilityStrength, types.AbilityDexterity}
	first := AnyOf("first", abilities, 1, abilityCodec)
	second := AnyOf("second", abilities, 1, abilityCodec, "first")
	table := NewTable()
	first.Assign(table, scope)
	second.Assign(table, scope)

	options := table.Options(scope.Child("second"), map[string]string{"lineage/Half-Elf/first": "dex"})
	assert.Equal(t, []string{"strength"}, options)
}

func TestUnnamedSelectorsGetDistinctPaths(t *testing.T) {
	ctx := document.NewContext(nil, types.SourceId{}, false)
	parse := func(options ...any) Selector[types.Skill] {
		node := document.NewNode("mutator").TypedArg("any_of", "").Add(document.NewNode("option", options...))
		sel, err := Parse(document.NewReader(node, ctx.NextNode()), skillCodec)
		require.NoError(t, err)
		return sel
	}
	arcane := parse("arcana", "history")
	physical := parse("athletics", "acrobatics")

	scope := Join("lineage", "elf")
	table := NewTable()
	assert.Equal(t, Path("lineage/elf/mutator"), arcane.Assign(table, scope))
	assert.Equal(t, Path("lineage/elf/mutator-2"), physical.Assign(table, scope))
	assert.Equal(t, 2, table.Len())

	state := NewState(t.Context(), table, nil)
	_, ok := Resolve(state, scope, arcane)
	assert.False(t, ok)
	_, ok = Resolve(state, scope, physical)
	assert.False(t, ok)
	assert.Equal(t, []Path{"lineage/elf/mutator", "lineage/elf/mutator-2"}, state.Missing())

	state = NewState(t.Context(), table, map[string]string{"lineage/elf/mutator": "arcana"})
	value, ok := Resolve(state, scope, arcane)
	require.True(t, ok)
	assert.Equal(t, types.SkillArcana, value)
	_, ok = Resolve(state, scope, physical)
	assert.False(t, ok)
	assert.Equal(t, []Path{"lineage/elf/mutator-2"}, state.Missing())

	// assigning the same declaration again keeps its path
	assert.Equal(t, Path("lineage/elf/mutator-2"), physical.Assign(table, scope))
	assert.Equal(t, 2, table.Len())
}
