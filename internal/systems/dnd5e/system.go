// Package dnd5e registers the mutator, evaluator and generator kinds of the
// fifth-edition content system.
package dnd5e

import (
	"sheetforge/internal/content"
	"sheetforge/internal/document"
	"sheetforge/internal/registry"
	"sheetforge/internal/stats"
)

const ID = "dnd5e"

func unit[V any](value registry.Evaluator[*stats.Builder, V]) registry.Factory[registry.Evaluator[*stats.Builder, V]] {
	return func(*document.Reader) (registry.Evaluator[*stats.Builder, V], error) {
		return value, nil
	}
}

func parseConstant(r *document.Reader) (intEvaluator, error) {
	value, err := r.NextIntReq()
	if err != nil {
		return nil, err
	}
	return constant{value: int(value)}, nil
}

// NewRegistry builds and freezes the dnd5e registry.
func NewRegistry() (*registry.Registry, error) {
	reg := registry.New(ID)

	mutators := map[string]registry.Factory[mutator]{
		"add_proficiency":   parseAddProficiency,
		"add_ability_score": parseAddAbilityScore,
		"add_armor_class":   parseAddArmorClass,
		"armor_formula":     parseArmorFormula,
		"speed":             parseSpeed,
		"add_feature":       parseAddFeature,
		"add_resistance":    parseAddResistance,
		"add_max_hp":        parseAddMaxHitPoints,
		"add_initiative":    parseAddInitiative,
		"add_actions":       parseAddActions,
		"if":                parseConditional,
	}
	for id, factory := range mutators {
		if err := registry.RegisterMutator(reg, id, factory); err != nil {
			return nil, err
		}
	}

	ints := map[string]registry.Factory[intEvaluator]{
		"ability_modifier":  parseAbilityModifier,
		"ability_score":     parseAbilityScore,
		"proficiency_bonus": unit[int](proficiencyBonus{}),
		"level":             unit[int](characterLevel{}),
		"constant":          parseConstant,
		"math":              parseMath,
	}
	for id, factory := range ints {
		if err := registry.RegisterEvaluator(reg, id, factory); err != nil {
			return nil, err
		}
	}

	bools := map[string]registry.Factory[boolEvaluator]{
		"is_proficient":      parseIsProficient,
		"has_armor_equipped": unit[bool](hasArmorEquipped{}),
		"not":                parseNot,
	}
	for id, factory := range bools {
		if err := registry.RegisterEvaluator(reg, id, factory); err != nil {
			return nil, err
		}
	}

	if err := content.RegisterDocumentKinds(reg); err != nil {
		return nil, err
	}
	reg.Freeze()
	return reg, nil
}
