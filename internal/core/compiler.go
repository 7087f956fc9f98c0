package core

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"

	"sheetforge/internal/content"
	"sheetforge/internal/selector"
	"sheetforge/internal/stats"
)

// compileStep is one object's contribution: the scope its mutators run in,
// optional fixed contributions applied first, and the mutators.
type compileStep struct {
	scope    []string
	before   func(*stats.Builder)
	mutators content.Mutators
}

// Compiler turns a resolved character into derived stats. It keeps no
// state between calls; every Compile rebuilds the sheet from scratch.
type Compiler struct{}

func NewCompiler() Compiler {
	return Compiler{}
}

// Compile assigns selector paths over the whole object tree, then applies
// every mutator in order: lineage, upbringing, background, classes,
// equipped items, conditions, extra bundles.
func (c Compiler) Compile(ctx context.Context, character ResolvedCharacter) stats.Derived {
	steps := plan(character)

	table := selector.NewTable()
	for _, step := range steps {
		step.mutators.Assign(table, selector.Join(step.scope...))
	}

	b := stats.NewBuilder(ctx, table, character.Persistent.SelectedValues)
	b.SetBaseScores(character.Persistent.AbilityScores)
	b.SetLevel(character.Persistent.TotalLevel())
	for _, step := range steps {
		b.Push(step.scope...)
		if step.before != nil {
			step.before(b)
		}
		for _, mutator := range step.mutators {
			apply(b, mutator)
		}
		b.Pop()
	}
	derived := b.Finish()
	log.Ctx(ctx).Debug().
		Str("character", character.Persistent.Name).
		Int("slots", table.Len()).
		Int("missing", len(derived.MissingSelections)).
		Msg("character compiled")
	return derived
}

// apply runs one mutator; a panicking implementation degrades to a no-op.
func apply(b *stats.Builder, mutator content.StatsMutator) {
	depth := b.Depth()
	defer func() {
		if recovered := recover(); recovered != nil {
			for b.Depth() > depth {
				b.Pop()
			}
			log.Ctx(b.Context()).Warn().
				Str("mutator", mutator.ID()).
				Str("scope", b.Scope().String()).
				Str("panic", fmt.Sprint(recovered)).
				Msg("mutator failed; skipped")
		}
	}()
	mutator.Apply(b)
}

func bundleStep(segment string, bundle *content.Bundle) compileStep {
	return compileStep{scope: []string{segment, bundle.Name}, mutators: bundle.Mutators}
}

func plan(character ResolvedCharacter) []compileStep {
	var steps []compileStep
	for _, ref := range []struct {
		segment string
		bundle  *content.Bundle
	}{
		{"lineage", character.Lineage},
		{"upbringing", character.Upbringing},
		{"background", character.Background},
	} {
		if ref.bundle != nil {
			steps = append(steps, bundleStep(ref.segment, ref.bundle))
		}
	}

	for i, resolved := range character.Classes {
		class := resolved.Class
		steps = append(steps, compileStep{
			scope: []string{"class", class.Name},
			before: func(b *stats.Builder) {
				b.AddHitDie(class.HitDie, resolved.Level, i == 0)
			},
			mutators: class.Mutators,
		})
		for _, level := range class.LevelNumbers() {
			if level > resolved.Level {
				break
			}
			steps = append(steps, compileStep{
				scope:    []string{"class", class.Name, "level", strconv.Itoa(level)},
				mutators: class.Levels[level],
			})
		}
	}

	for _, resolved := range character.Items {
		item := resolved.Item
		if !resolved.Ref.Equipped || !item.Equippable() {
			continue
		}
		equipment := item.Equipment
		steps = append(steps, compileStep{
			scope: []string{"item", item.Name},
			before: func(b *stats.Builder) {
				if armor := equipment.Armor; armor != nil {
					b.AddArmorFormula(stats.ArmorFormula{
						Name:      item.Name,
						Base:      armor.Base,
						Abilities: armor.Abilities(),
						MaxDex:    armor.MaxDex,
					})
					b.WearArmor(item.Name)
				}
				if equipment.ShieldBonus != 0 {
					b.AddArmorBonus(equipment.ShieldBonus)
				}
			},
			mutators: equipment.Mutators,
		})
	}

	for _, condition := range character.Conditions {
		steps = append(steps, compileStep{scope: []string{"condition", condition.Name}, mutators: condition.Mutators})
	}
	for _, bundle := range character.Bundles {
		steps = append(steps, bundleStep(bundle.Kind, bundle))
	}
	return steps
}
