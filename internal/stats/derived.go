// Package stats holds the derived character sheet and the builder that
// accumulates it. Every contribution carries the provenance path of the
// object that made it.
package stats

import (
	"sort"

	"sheetforge/internal/selector"
	"sheetforge/internal/types"
)

type Contribution struct {
	Value  int           `json:"value" yaml:"value"`
	Source selector.Path `json:"source" yaml:"source"`
}

func sum(contributions []Contribution) int {
	total := 0
	for _, c := range contributions {
		total += c.Value
	}
	return total
}

type AbilityScore struct {
	Base    int            `json:"base" yaml:"base"`
	Bonuses []Contribution `json:"bonuses,omitempty" yaml:"bonuses,omitempty"`
}

func (a AbilityScore) Score() int {
	return a.Base + sum(a.Bonuses)
}

func (a AbilityScore) Modifier() int {
	return types.ModifierFor(a.Score())
}

// Proficiency keeps the highest level granted and every grant's source;
// repeated grants never stack numerically.
type Proficiency struct {
	Level   types.ProficiencyLevel `json:"level" yaml:"level"`
	Sources []selector.Path        `json:"sources" yaml:"sources"`
}

func (p Proficiency) grant(level types.ProficiencyLevel, source selector.Path) Proficiency {
	if level > p.Level {
		p.Level = level
	}
	for _, existing := range p.Sources {
		if existing == source {
			return p
		}
	}
	p.Sources = append(append([]selector.Path(nil), p.Sources...), source)
	return p
}

// ArmorFormula computes a base armor class: Base plus the listed ability
// modifiers, the dexterity share capped by MaxDex when set.
type ArmorFormula struct {
	Name      string          `json:"name" yaml:"name"`
	Base      int             `json:"base" yaml:"base"`
	Abilities []types.Ability `json:"abilities,omitempty" yaml:"abilities,omitempty"`
	MaxDex    *int            `json:"max_dex,omitempty" yaml:"max_dex,omitempty"`
	Source    selector.Path   `json:"source" yaml:"source"`
}

type Speed struct {
	Value   int             `json:"value" yaml:"value"`
	Sources []selector.Path `json:"sources" yaml:"sources"`
}

type HitDie struct {
	Faces  int           `json:"faces" yaml:"faces"`
	Count  int           `json:"count" yaml:"count"`
	First  bool          `json:"first,omitempty" yaml:"first,omitempty"`
	Source selector.Path `json:"source" yaml:"source"`
}

type Feature struct {
	Name        string        `json:"name" yaml:"name"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
	Source      selector.Path `json:"source" yaml:"source"`
}

type ActionBudget struct {
	Actions      []Contribution `json:"actions,omitempty" yaml:"actions,omitempty"`
	BonusActions []Contribution `json:"bonus_actions,omitempty" yaml:"bonus_actions,omitempty"`
	Reactions    []Contribution `json:"reactions,omitempty" yaml:"reactions,omitempty"`
}

func (a ActionBudget) Totals() (actions, bonusActions, reactions int) {
	return 1 + sum(a.Actions), 1 + sum(a.BonusActions), 1 + sum(a.Reactions)
}

type WornArmor struct {
	Name   string        `json:"name" yaml:"name"`
	Source selector.Path `json:"source" yaml:"source"`
}

// Derived is the compiled sheet. It is rebuilt wholesale by every compile.
type Derived struct {
	Level             int                                              `json:"level" yaml:"level"`
	ProficiencyBonus  int                                              `json:"proficiency_bonus" yaml:"proficiency_bonus"`
	Abilities         map[types.Ability]AbilityScore                   `json:"abilities" yaml:"abilities"`
	Skills            map[types.Skill]Proficiency                      `json:"skills,omitempty" yaml:"skills,omitempty"`
	SavingThrows      map[types.Ability]Proficiency                    `json:"saving_throws,omitempty" yaml:"saving_throws,omitempty"`
	Proficiencies     map[types.ProficiencyKind]map[string]Proficiency `json:"proficiencies,omitempty" yaml:"proficiencies,omitempty"`
	ArmorFormulas     []ArmorFormula                                   `json:"armor_formulas,omitempty" yaml:"armor_formulas,omitempty"`
	ArmorBonuses      []Contribution                                   `json:"armor_bonuses,omitempty" yaml:"armor_bonuses,omitempty"`
	Armor             *WornArmor                                       `json:"armor,omitempty" yaml:"armor,omitempty"`
	Speeds            map[string]Speed                                 `json:"speeds,omitempty" yaml:"speeds,omitempty"`
	HitDice           []HitDie                                         `json:"hit_dice,omitempty" yaml:"hit_dice,omitempty"`
	HitPointBonuses   []Contribution                                   `json:"hit_point_bonuses,omitempty" yaml:"hit_point_bonuses,omitempty"`
	InitiativeBonuses []Contribution                                   `json:"initiative_bonuses,omitempty" yaml:"initiative_bonuses,omitempty"`
	Resistances       map[string][]selector.Path                       `json:"resistances,omitempty" yaml:"resistances,omitempty"`
	Features          []Feature                                        `json:"features,omitempty" yaml:"features,omitempty"`
	Actions           ActionBudget                                     `json:"actions" yaml:"actions"`
	MissingSelections []selector.Path                                  `json:"missing_selections,omitempty" yaml:"missing_selections,omitempty"`
}

func newDerived() *Derived {
	abilities := make(map[types.Ability]AbilityScore, len(types.Abilities))
	for _, ability := range types.Abilities {
		abilities[ability] = AbilityScore{Base: 10}
	}
	return &Derived{
		Abilities:     abilities,
		Skills:        map[types.Skill]Proficiency{},
		SavingThrows:  map[types.Ability]Proficiency{},
		Proficiencies: map[types.ProficiencyKind]map[string]Proficiency{},
		Speeds:        map[string]Speed{},
		Resistances:   map[string][]selector.Path{},
	}
}

func (d *Derived) Score(ability types.Ability) int {
	return d.Abilities[ability].Score()
}

func (d *Derived) Modifier(ability types.Ability) int {
	return d.Abilities[ability].Modifier()
}

func (d *Derived) SkillBonus(skill types.Skill) int {
	return d.Modifier(skill.Ability()) + d.Skills[skill].Level.Bonus(d.ProficiencyBonus)
}

func (d *Derived) SaveBonus(ability types.Ability) int {
	return d.Modifier(ability) + d.SavingThrows[ability].Level.Bonus(d.ProficiencyBonus)
}

func (d *Derived) PassivePerception() int {
	return 10 + d.SkillBonus(types.SkillPerception)
}

// ArmorClass takes the best formula (unarmored 10 + dexterity when none)
// and adds flat bonuses.
func (d *Derived) ArmorClass() int {
	best := 10 + d.Modifier(types.AbilityDexterity)
	for i, formula := range d.ArmorFormulas {
		value := formula.Base
		for _, ability := range formula.Abilities {
			modifier := d.Modifier(ability)
			if ability == types.AbilityDexterity && formula.MaxDex != nil && modifier > *formula.MaxDex {
				modifier = *formula.MaxDex
			}
			value += modifier
		}
		if i == 0 || value > best {
			best = value
		}
	}
	return best + sum(d.ArmorBonuses)
}

// MaxHitPoints averages hit dice after the first, which counts in full.
func (d *Derived) MaxHitPoints() int {
	total := 0
	levels := 0
	for _, die := range d.HitDice {
		count := die.Count
		if die.First && count > 0 {
			total += die.Faces
			count--
		}
		total += count * (die.Faces/2 + 1)
		levels += die.Count
	}
	total += levels * d.Modifier(types.AbilityConstitution)
	total += sum(d.HitPointBonuses)
	if total < levels {
		total = levels
	}
	return total
}

func (d *Derived) Initiative() int {
	return d.Modifier(types.AbilityDexterity) + sum(d.InitiativeBonuses)
}

// Speed returns the named movement speed (walk, fly, swim, climb).
func (d *Derived) Speed(kind string) int {
	return d.Speeds[kind].Value
}

func (d *Derived) Proficient(kind types.ProficiencyKind, name string) bool {
	return d.Proficiencies[kind][name].Level > types.ProficiencyNone
}

// ResistanceNames lists damage types with at least one source, sorted.
func (d *Derived) ResistanceNames() []string {
	out := make([]string, 0, len(d.Resistances))
	for name := range d.Resistances {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
