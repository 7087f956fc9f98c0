package dnd5e

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"sheetforge/internal/document"
	"sheetforge/internal/registry"
	"sheetforge/internal/selector"
	"sheetforge/internal/stats"
	"sheetforge/internal/types"
)

type (
	mutator   = registry.Mutator[*stats.Builder]
	intValue  = registry.Value[*stats.Builder, int]
	boolEval  = registry.GenericEvaluator[*stats.Builder, bool]
	nestedMut = registry.GenericMutator[*stats.Builder]
)

var abilityCodec = selector.Codec[types.Ability]{
	Parse:  types.ParseAbility,
	Format: func(a types.Ability) string { return string(a) },
}

func skip(b *stats.Builder, kind string, reason string) {
	log.Ctx(b.Context()).Warn().
		Str("mutator", kind).
		Str("scope", b.Scope().String()).
		Msg(reason)
}

// addProficiency grants a proficiency chosen by a selector:
//
//	mutator (add_proficiency) "skill" (any_of)"skill" level="expertise" { option "arcana" "history" }
type addProficiency struct {
	kind  types.ProficiencyKind
	name  selector.Selector[string]
	level types.ProficiencyLevel
}

func parseAddProficiency(r *document.Reader) (mutator, error) {
	kind, err := document.NextParsed(r, types.ParseProficiencyKind)
	if err != nil {
		return nil, err
	}
	name, err := selector.Parse(r, selector.StringCodec)
	if err != nil {
		return nil, err
	}
	level, ok, err := document.GetParsedOpt(r, "level", types.ParseProficiencyLevel)
	if err != nil {
		return nil, err
	}
	if !ok {
		level = types.ProficiencyFull
	}
	if value, fixed := name.Value(); fixed && kind == types.ProficiencyKindSkill {
		if _, err := types.ParseSkill(value); err != nil {
			return nil, r.Wrap(err)
		}
	}
	return &addProficiency{kind: kind, name: name, level: level}, nil
}

func (m *addProficiency) Apply(b *stats.Builder) {
	names, ok := stats.ResolveMany(b, m.name)
	if !ok {
		return
	}
	for _, name := range names {
		if err := b.AddProficiency(m.kind, name, m.level); err != nil {
			skip(b, "add_proficiency", err.Error())
		}
	}
}

func (m *addProficiency) AssignSelectors(table *selector.Table, scope selector.Path) {
	m.name.Assign(table, scope)
}

func (m *addProficiency) Description() string {
	return fmt.Sprintf("%s proficiency (%s): %s", m.kind, m.level, m.name.Description())
}

// addAbilityScore raises an ability: `mutator (add_ability_score) "wis" amount=1`.
type addAbilityScore struct {
	ability selector.Selector[types.Ability]
	amount  intValue
}

func parseAddAbilityScore(r *document.Reader) (mutator, error) {
	ability, err := selector.Parse(r, abilityCodec)
	if err != nil {
		return nil, err
	}
	amount, err := registry.GetValueReq[*stats.Builder](r, "amount", registry.IntLiteral)
	if err != nil {
		return nil, err
	}
	return &addAbilityScore{ability: ability, amount: amount}, nil
}

func (m *addAbilityScore) Apply(b *stats.Builder) {
	abilities, ok := stats.ResolveMany(b, m.ability)
	if !ok {
		return
	}
	amount := m.amount.Evaluate(b)
	for _, ability := range abilities {
		b.AddAbilityBonus(ability, amount)
	}
}

func (m *addAbilityScore) AssignSelectors(table *selector.Table, scope selector.Path) {
	m.ability.Assign(table, scope)
	m.amount.AssignSelectors(table, scope)
}

type addArmorClass struct {
	amount intValue
}

func parseAddArmorClass(r *document.Reader) (mutator, error) {
	amount, ok, err := registry.GetValueOpt[*stats.Builder](r, "amount", registry.IntLiteral)
	if err != nil {
		return nil, err
	}
	if !ok {
		n, err := r.NextIntReq()
		if err != nil {
			return nil, err
		}
		amount = registry.Fixed[*stats.Builder](int(n))
	}
	return &addArmorClass{amount: amount}, nil
}

func (m *addArmorClass) Apply(b *stats.Builder) {
	b.AddArmorBonus(m.amount.Evaluate(b))
}

// armorFormula adds an alternative base AC such as unarmored defense.
type armorFormula struct {
	formula stats.ArmorFormula
}

func parseArmorFormula(r *document.Reader) (mutator, error) {
	name, err := r.NextStringReq()
	if err != nil {
		return nil, err
	}
	base, err := r.GetIntReq("base")
	if err != nil {
		return nil, err
	}
	formula := stats.ArmorFormula{Name: name, Base: int(base)}
	for child := range r.ChildrenNamed("ability") {
		for child.Remaining() > 0 {
			ability, err := document.NextParsed(child, types.ParseAbility)
			if err != nil {
				return nil, err
			}
			formula.Abilities = append(formula.Abilities, ability)
		}
	}
	maxDex, ok, err := r.GetIntOpt("max_dex")
	if err != nil {
		return nil, err
	}
	if ok {
		capped := int(maxDex)
		formula.MaxDex = &capped
	}
	return &armorFormula{formula: formula}, nil
}

func (m *armorFormula) Apply(b *stats.Builder) {
	b.AddArmorFormula(m.formula)
}

type speed struct {
	kind   string
	amount intValue
}

func parseSpeed(r *document.Reader) (mutator, error) {
	kind, ok, err := r.NextStringOpt()
	if err != nil {
		return nil, err
	}
	if !ok {
		kind = "walk"
	}
	amount, err := registry.GetValueReq[*stats.Builder](r, "amount", registry.IntLiteral)
	if err != nil {
		return nil, err
	}
	return &speed{kind: strings.ToLower(kind), amount: amount}, nil
}

func (m *speed) Apply(b *stats.Builder) {
	b.SetSpeed(m.kind, m.amount.Evaluate(b))
}

// addFeature records a feature and applies its nested mutators inside a
// feature/<name> scope.
type addFeature struct {
	name        string
	description string
	mutators    []nestedMut
}

func parseAddFeature(r *document.Reader) (mutator, error) {
	name, err := r.NextStringReq()
	if err != nil {
		return nil, err
	}
	description, _, err := r.GetStringOpt("description")
	if err != nil {
		return nil, err
	}
	mutators, err := registry.ParseMutators[*stats.Builder](r, "mutator")
	if err != nil {
		return nil, err
	}
	return &addFeature{name: name, description: description, mutators: mutators}, nil
}

func (m *addFeature) Apply(b *stats.Builder) {
	b.AddFeature(m.name, m.description)
	b.Push("feature", m.name)
	defer b.Pop()
	for _, nested := range m.mutators {
		nested.Apply(b)
	}
}

func (m *addFeature) AssignSelectors(table *selector.Table, scope selector.Path) {
	inner := scope.Child("feature", m.name)
	for _, nested := range m.mutators {
		nested.AssignSelectors(table, inner)
	}
}

func (m *addFeature) Description() string {
	if m.description != "" {
		return m.description
	}
	return m.name
}

type addResistance struct {
	damageTypes []string
}

func parseAddResistance(r *document.Reader) (mutator, error) {
	var damageTypes []string
	for r.Remaining() > 0 {
		damageType, err := r.NextStringReq()
		if err != nil {
			return nil, err
		}
		damageTypes = append(damageTypes, damageType)
	}
	if len(damageTypes) == 0 {
		return nil, r.Errorf(document.ErrMissingValue, "add_resistance needs a damage type")
	}
	return &addResistance{damageTypes: damageTypes}, nil
}

func (m *addResistance) Apply(b *stats.Builder) {
	for _, damageType := range m.damageTypes {
		b.AddResistance(damageType)
	}
}

type addMaxHitPoints struct {
	amount intValue
}

func parseAddMaxHitPoints(r *document.Reader) (mutator, error) {
	amount, err := registry.GetValueReq[*stats.Builder](r, "amount", registry.IntLiteral)
	if err != nil {
		return nil, err
	}
	return &addMaxHitPoints{amount: amount}, nil
}

func (m *addMaxHitPoints) Apply(b *stats.Builder) {
	b.AddMaxHitPoints(m.amount.Evaluate(b))
}

type addInitiative struct {
	amount intValue
}

func parseAddInitiative(r *document.Reader) (mutator, error) {
	amount, err := registry.GetValueReq[*stats.Builder](r, "amount", registry.IntLiteral)
	if err != nil {
		return nil, err
	}
	return &addInitiative{amount: amount}, nil
}

func (m *addInitiative) Apply(b *stats.Builder) {
	b.AddInitiative(m.amount.Evaluate(b))
}

type addActions struct {
	actions, bonusActions, reactions int
}

func parseAddActions(r *document.Reader) (mutator, error) {
	var m addActions
	for key, target := range map[string]*int{"action": &m.actions, "bonus_action": &m.bonusActions, "reaction": &m.reactions} {
		value, _, err := r.GetIntOpt(key)
		if err != nil {
			return nil, err
		}
		*target = int(value)
	}
	return &m, nil
}

func (m *addActions) Apply(b *stats.Builder) {
	b.AddActions(m.actions, m.bonusActions, m.reactions)
}

// conditional applies nested mutators when its `when` evaluator holds.
type conditional struct {
	when     boolEval
	mutators []nestedMut
}

func parseConditional(r *document.Reader) (mutator, error) {
	var when boolEval
	found := false
	for child := range r.ChildrenNamed("when") {
		evaluator, err := registry.ParseEvaluator[*stats.Builder, bool](child)
		if err != nil {
			return nil, err
		}
		when, found = evaluator, true
	}
	if !found {
		return nil, r.Errorf(document.ErrMissingValue, "if needs a when evaluator")
	}
	mutators, err := registry.ParseMutators[*stats.Builder](r, "mutator")
	if err != nil {
		return nil, err
	}
	return &conditional{when: when, mutators: mutators}, nil
}

func (m *conditional) Apply(b *stats.Builder) {
	if !m.when.Evaluate(b) {
		return
	}
	for _, nested := range m.mutators {
		nested.Apply(b)
	}
}

func (m *conditional) AssignSelectors(table *selector.Table, scope selector.Path) {
	for _, nested := range m.mutators {
		nested.AssignSelectors(table, scope)
	}
}

func (m *conditional) Description() string {
	return "if " + m.when.Description()
}
