package stats

import (
	"context"
	"slices"
	"strings"

	"sheetforge/internal/selector"
	"sheetforge/internal/types"
)

// Builder accumulates one compile pass. The current provenance path is an
// explicit stack: callers Push an object's segments before applying its
// mutators and Pop afterwards.
type Builder struct {
	ctx       context.Context
	derived   *Derived
	path      []string
	depths    []int
	selectors *selector.State
}

func NewBuilder(ctx context.Context, table *selector.Table, selections map[string]string) *Builder {
	return &Builder{
		ctx:       ctx,
		derived:   newDerived(),
		selectors: selector.NewState(ctx, table, selections),
	}
}

func (b *Builder) Context() context.Context {
	return b.ctx
}

func (b *Builder) Selectors() *selector.State {
	return b.selectors
}

// Derived exposes the in-progress sheet for reads by mutators and evaluators.
func (b *Builder) Derived() *Derived {
	return b.derived
}

// Push appends segments to the provenance path; Pop removes them as a unit.
func (b *Builder) Push(segments ...string) {
	b.depths = append(b.depths, len(b.path))
	for _, segment := range segments {
		segment = strings.Trim(segment, "/")
		if segment != "" {
			b.path = append(b.path, segment)
		}
	}
}

func (b *Builder) Pop() {
	if len(b.depths) == 0 {
		return
	}
	last := b.depths[len(b.depths)-1]
	b.depths = b.depths[:len(b.depths)-1]
	b.path = b.path[:last]
}

// Depth reports how many Push calls are open.
func (b *Builder) Depth() int {
	return len(b.depths)
}

func (b *Builder) Scope() selector.Path {
	return selector.Join(b.path...)
}

// Resolve resolves a selector in the current scope.
func Resolve[T any](b *Builder, sel selector.Selector[T]) (T, bool) {
	return selector.Resolve(b.selectors, b.Scope(), sel)
}

func ResolveMany[T any](b *Builder, sel selector.Selector[T]) ([]T, bool) {
	return selector.ResolveMany(b.selectors, b.Scope(), sel)
}

func (b *Builder) contribution(value int) Contribution {
	return Contribution{Value: value, Source: b.Scope()}
}

func (b *Builder) SetBaseScores(scores map[types.Ability]int) {
	for ability, score := range scores {
		current := b.derived.Abilities[ability]
		current.Base = score
		b.derived.Abilities[ability] = current
	}
}

// SetLevel fixes total level and the proficiency bonus derived from it.
func (b *Builder) SetLevel(level int) {
	b.derived.Level = level
	b.derived.ProficiencyBonus = types.ProficiencyBonusFor(level)
}

func (b *Builder) AddAbilityBonus(ability types.Ability, amount int) {
	current := b.derived.Abilities[ability]
	current.Bonuses = append(current.Bonuses, b.contribution(amount))
	b.derived.Abilities[ability] = current
}

func (b *Builder) AddSkill(skill types.Skill, level types.ProficiencyLevel) {
	b.derived.Skills[skill] = b.derived.Skills[skill].grant(level, b.Scope())
}

func (b *Builder) AddSave(ability types.Ability, level types.ProficiencyLevel) {
	b.derived.SavingThrows[ability] = b.derived.SavingThrows[ability].grant(level, b.Scope())
}

// AddProficiency grants a named proficiency; skills and saves are routed to
// their typed tables.
func (b *Builder) AddProficiency(kind types.ProficiencyKind, name string, level types.ProficiencyLevel) error {
	switch kind {
	case types.ProficiencyKindSkill:
		skill, err := types.ParseSkill(name)
		if err != nil {
			return err
		}
		b.AddSkill(skill, level)
	case types.ProficiencyKindSave:
		ability, err := types.ParseAbility(name)
		if err != nil {
			return err
		}
		b.AddSave(ability, level)
	default:
		table := b.derived.Proficiencies[kind]
		if table == nil {
			table = map[string]Proficiency{}
			b.derived.Proficiencies[kind] = table
		}
		table[name] = table[name].grant(level, b.Scope())
	}
	return nil
}

func (b *Builder) AddArmorFormula(formula ArmorFormula) {
	formula.Source = b.Scope()
	formula.Abilities = slices.Clone(formula.Abilities)
	b.derived.ArmorFormulas = append(b.derived.ArmorFormulas, formula)
}

func (b *Builder) AddArmorBonus(amount int) {
	b.derived.ArmorBonuses = append(b.derived.ArmorBonuses, b.contribution(amount))
}

// WearArmor records body armor; a second piece replaces the first.
func (b *Builder) WearArmor(name string) {
	b.derived.Armor = &WornArmor{Name: name, Source: b.Scope()}
}

// SetSpeed raises a movement speed; the highest grant wins.
func (b *Builder) SetSpeed(kind string, value int) {
	speed := b.derived.Speeds[kind]
	if value > speed.Value {
		speed.Value = value
	}
	speed.Sources = append(slices.Clone(speed.Sources), b.Scope())
	b.derived.Speeds[kind] = speed
}

func (b *Builder) AddHitDie(faces int, count int, first bool) {
	b.derived.HitDice = append(b.derived.HitDice, HitDie{Faces: faces, Count: count, First: first, Source: b.Scope()})
}

func (b *Builder) AddMaxHitPoints(amount int) {
	b.derived.HitPointBonuses = append(b.derived.HitPointBonuses, b.contribution(amount))
}

func (b *Builder) AddInitiative(amount int) {
	b.derived.InitiativeBonuses = append(b.derived.InitiativeBonuses, b.contribution(amount))
}

func (b *Builder) AddResistance(damageType string) {
	damageType = strings.ToLower(strings.TrimSpace(damageType))
	sources := b.derived.Resistances[damageType]
	if slices.Contains(sources, b.Scope()) {
		return
	}
	b.derived.Resistances[damageType] = append(slices.Clone(sources), b.Scope())
}

func (b *Builder) AddFeature(name string, description string) {
	b.derived.Features = append(b.derived.Features, Feature{Name: name, Description: description, Source: b.Scope()})
}

func (b *Builder) AddActions(actions, bonusActions, reactions int) {
	budget := &b.derived.Actions
	if actions != 0 {
		budget.Actions = append(budget.Actions, b.contribution(actions))
	}
	if bonusActions != 0 {
		budget.BonusActions = append(budget.BonusActions, b.contribution(bonusActions))
	}
	if reactions != 0 {
		budget.Reactions = append(budget.Reactions, b.contribution(reactions))
	}
}

// Finish closes the pass and returns the snapshot with missing selections.
func (b *Builder) Finish() Derived {
	b.derived.MissingSelections = b.selectors.Missing()
	out := *b.derived
	b.derived = newDerived()
	return out
}
