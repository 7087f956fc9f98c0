package types

import (
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
)

type Ability string

const (
	AbilityStrength     Ability = "strength"
	AbilityDexterity    Ability = "dexterity"
	AbilityConstitution Ability = "constitution"
	AbilityIntelligence Ability = "intelligence"
	AbilityWisdom       Ability = "wisdom"
	AbilityCharisma     Ability = "charisma"
)

var Abilities = []Ability{
	AbilityStrength,
	AbilityDexterity,
	AbilityConstitution,
	AbilityIntelligence,
	AbilityWisdom,
	AbilityCharisma,
}

func ParseAbility(value string) (Ability, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, ability := range Abilities {
		if string(ability) == normalized || ability.Short() == normalized {
			return ability, nil
		}
	}
	return "", notInList("ability", value)
}

func (a Ability) Short() string {
	if len(a) < 3 {
		return string(a)
	}
	return string(a)[:3]
}

type Skill string

const (
	SkillAcrobatics     Skill = "acrobatics"
	SkillAnimalHandling Skill = "animal-handling"
	SkillArcana         Skill = "arcana"
	SkillAthletics      Skill = "athletics"
	SkillDeception      Skill = "deception"
	SkillHistory        Skill = "history"
	SkillInsight        Skill = "insight"
	SkillIntimidation   Skill = "intimidation"
	SkillInvestigation  Skill = "investigation"
	SkillMedicine       Skill = "medicine"
	SkillNature         Skill = "nature"
	SkillPerception     Skill = "perception"
	SkillPerformance    Skill = "performance"
	SkillPersuasion     Skill = "persuasion"
	SkillReligion       Skill = "religion"
	SkillSleightOfHand  Skill = "sleight-of-hand"
	SkillStealth        Skill = "stealth"
	SkillSurvival       Skill = "survival"
)

var skillAbilities = map[Skill]Ability{
	SkillAcrobatics:     AbilityDexterity,
	SkillAnimalHandling: AbilityWisdom,
	SkillArcana:         AbilityIntelligence,
	SkillAthletics:      AbilityStrength,
	SkillDeception:      AbilityCharisma,
	SkillHistory:        AbilityIntelligence,
	SkillInsight:        AbilityWisdom,
	SkillIntimidation:   AbilityCharisma,
	SkillInvestigation:  AbilityIntelligence,
	SkillMedicine:       AbilityWisdom,
	SkillNature:         AbilityIntelligence,
	SkillPerception:     AbilityWisdom,
	SkillPerformance:    AbilityCharisma,
	SkillPersuasion:     AbilityCharisma,
	SkillReligion:       AbilityIntelligence,
	SkillSleightOfHand:  AbilityDexterity,
	SkillStealth:        AbilityDexterity,
	SkillSurvival:       AbilityWisdom,
}

// Skills lists every skill in display order.
var Skills = []Skill{
	SkillAcrobatics, SkillAnimalHandling, SkillArcana, SkillAthletics,
	SkillDeception, SkillHistory, SkillInsight, SkillIntimidation,
	SkillInvestigation, SkillMedicine, SkillNature, SkillPerception,
	SkillPerformance, SkillPersuasion, SkillReligion, SkillSleightOfHand,
	SkillStealth, SkillSurvival,
}

func ParseSkill(value string) (Skill, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	normalized = strings.NewReplacer(" ", "-", "_", "-").Replace(normalized)
	skill := Skill(normalized)
	if _, ok := skillAbilities[skill]; !ok {
		return "", notInList("skill", value)
	}
	return skill, nil
}

func (s Skill) Ability() Ability {
	return skillAbilities[s]
}

type ProficiencyLevel int

const (
	ProficiencyNone ProficiencyLevel = iota
	ProficiencyHalf
	ProficiencyFull
	ProficiencyDouble
)

func ParseProficiencyLevel(value string) (ProficiencyLevel, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "none":
		return ProficiencyNone, nil
	case "half":
		return ProficiencyHalf, nil
	case "full", "":
		return ProficiencyFull, nil
	case "double", "expertise":
		return ProficiencyDouble, nil
	default:
		return ProficiencyNone, notInList("proficiency level", value)
	}
}

func (p ProficiencyLevel) String() string {
	switch p {
	case ProficiencyHalf:
		return "half"
	case ProficiencyFull:
		return "full"
	case ProficiencyDouble:
		return "double"
	default:
		return "none"
	}
}

// Bonus scales a proficiency bonus by the level.
func (p ProficiencyLevel) Bonus(proficiencyBonus int) int {
	switch p {
	case ProficiencyHalf:
		return proficiencyBonus / 2
	case ProficiencyFull:
		return proficiencyBonus
	case ProficiencyDouble:
		return proficiencyBonus * 2
	default:
		return 0
	}
}

func (p ProficiencyLevel) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *ProficiencyLevel) UnmarshalText(data []byte) error {
	parsed, err := ParseProficiencyLevel(string(data))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ProficiencyKind groups the non-skill proficiency lists.
type ProficiencyKind string

const (
	ProficiencyKindSkill    ProficiencyKind = "skill"
	ProficiencyKindSave     ProficiencyKind = "save"
	ProficiencyKindLanguage ProficiencyKind = "language"
	ProficiencyKindTool     ProficiencyKind = "tool"
	ProficiencyKindWeapon   ProficiencyKind = "weapon"
	ProficiencyKindArmor    ProficiencyKind = "armor"
)

func ParseProficiencyKind(value string) (ProficiencyKind, error) {
	switch kind := ProficiencyKind(strings.ToLower(strings.TrimSpace(value))); kind {
	case ProficiencyKindSkill, ProficiencyKindSave, ProficiencyKindLanguage,
		ProficiencyKindTool, ProficiencyKindWeapon, ProficiencyKindArmor:
		return kind, nil
	default:
		return "", notInList("proficiency kind", value)
	}
}

// ModifierFor returns the standard ability modifier for a score.
func ModifierFor(score int) int {
	if score >= 10 {
		return (score - 10) / 2
	}
	return -((11 - score) / 2)
}

// ProficiencyBonusFor returns the proficiency bonus for a total character level.
func ProficiencyBonusFor(level int) int {
	if level < 1 {
		return 2
	}
	return 2 + (level-1)/4
}

func notInList(kind string, value string) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(fmt.Sprintf("%q is not a valid %s", value, kind))
}
