package dnd5e

import (
	"fmt"

	"sheetforge/internal/document"
	"sheetforge/internal/registry"
	"sheetforge/internal/stats"
	"sheetforge/internal/types"
)

type (
	intEvaluator  = registry.Evaluator[*stats.Builder, int]
	boolEvaluator = registry.Evaluator[*stats.Builder, bool]
	intEval       = registry.GenericEvaluator[*stats.Builder, int]
)

type abilityModifier struct {
	ability types.Ability
}

func parseAbilityModifier(r *document.Reader) (intEvaluator, error) {
	ability, err := document.NextParsed(r, types.ParseAbility)
	if err != nil {
		return nil, err
	}
	return abilityModifier{ability: ability}, nil
}

func (e abilityModifier) Evaluate(b *stats.Builder) int {
	return b.Derived().Modifier(e.ability)
}

func (e abilityModifier) Description() string {
	return e.ability.Short() + " modifier"
}

type abilityScore struct {
	ability types.Ability
}

func parseAbilityScore(r *document.Reader) (intEvaluator, error) {
	ability, err := document.NextParsed(r, types.ParseAbility)
	if err != nil {
		return nil, err
	}
	return abilityScore{ability: ability}, nil
}

func (e abilityScore) Evaluate(b *stats.Builder) int {
	return b.Derived().Score(e.ability)
}

type proficiencyBonus struct{}

func (proficiencyBonus) Evaluate(b *stats.Builder) int {
	return b.Derived().ProficiencyBonus
}

func (proficiencyBonus) Description() string {
	return "proficiency bonus"
}

type characterLevel struct{}

func (characterLevel) Evaluate(b *stats.Builder) int {
	return b.Derived().Level
}

func (characterLevel) Description() string {
	return "character level"
}

type constant struct {
	value int
}

func (e constant) Evaluate(*stats.Builder) int {
	return e.value
}

// math folds its child evaluators with one operator:
//
//	amount (math) "add" { level; constant 2 }
type math struct {
	op       string
	operands []intEval
}

func parseMath(r *document.Reader) (intEvaluator, error) {
	op, err := r.NextStringReq()
	if err != nil {
		return nil, err
	}
	switch op {
	case "add", "sub", "mul", "div", "min", "max":
	default:
		return nil, r.Errorf(document.ErrInvalidValue, "unknown math operator %q", op)
	}
	e := math{op: op}
	for child := range r.Children() {
		operand, err := registry.ParseEvaluator[*stats.Builder, int](child)
		if err != nil {
			return nil, err
		}
		e.operands = append(e.operands, operand)
	}
	if len(e.operands) == 0 {
		return nil, r.Errorf(document.ErrMissingValue, "math %s needs operands", op)
	}
	return e, nil
}

func (e math) Evaluate(b *stats.Builder) int {
	result := e.operands[0].Evaluate(b)
	for _, operand := range e.operands[1:] {
		value := operand.Evaluate(b)
		switch e.op {
		case "add":
			result += value
		case "sub":
			result -= value
		case "mul":
			result *= value
		case "div":
			if value == 0 {
				return 0
			}
			result /= value
		case "min":
			result = min(result, value)
		case "max":
			result = max(result, value)
		}
	}
	return result
}

func (e math) Description() string {
	return fmt.Sprintf("%s of %d values", e.op, len(e.operands))
}

type isProficient struct {
	kind types.ProficiencyKind
	name string
}

func parseIsProficient(r *document.Reader) (boolEvaluator, error) {
	kind, err := document.NextParsed(r, types.ParseProficiencyKind)
	if err != nil {
		return nil, err
	}
	name, err := r.NextStringReq()
	if err != nil {
		return nil, err
	}
	return isProficient{kind: kind, name: name}, nil
}

func (e isProficient) Evaluate(b *stats.Builder) bool {
	derived := b.Derived()
	switch e.kind {
	case types.ProficiencyKindSkill:
		skill, err := types.ParseSkill(e.name)
		return err == nil && derived.Skills[skill].Level > types.ProficiencyNone
	case types.ProficiencyKindSave:
		ability, err := types.ParseAbility(e.name)
		return err == nil && derived.SavingThrows[ability].Level > types.ProficiencyNone
	default:
		return derived.Proficient(e.kind, e.name)
	}
}

func (e isProficient) Description() string {
	return fmt.Sprintf("proficient in %s %s", e.kind, e.name)
}

type hasArmorEquipped struct{}

func (hasArmorEquipped) Evaluate(b *stats.Builder) bool {
	return b.Derived().Armor != nil
}

func (hasArmorEquipped) Description() string {
	return "wearing armor"
}

type not struct {
	inner registry.GenericEvaluator[*stats.Builder, bool]
}

func parseNot(r *document.Reader) (boolEvaluator, error) {
	for child := range r.Children() {
		inner, err := registry.ParseEvaluator[*stats.Builder, bool](child)
		if err != nil {
			return nil, err
		}
		return not{inner: inner}, nil
	}
	return nil, r.Errorf(document.ErrMissingValue, "not needs an evaluator child")
}

func (e not) Evaluate(b *stats.Builder) bool {
	return !e.inner.Evaluate(b)
}

func (e not) Description() string {
	return "not " + e.inner.Description()
}
