package testutil

// CoreFiles is a small dnd5e module: one lineage, background, class, armor
// set and condition, plus weapons and a variant generator.
var CoreFiles = map[string]string{
	"lineages/elf.yaml": `
- bundle:
    args: [Elf]
    category: lineage
    children:
      - mutator: {args: [add_ability_score, dex], amount: 2}
      - mutator: {args: [add_proficiency, skill, perception]}
      - mutator: {args: [speed], amount: 30}
`,
	"backgrounds/soldier.hcl": `
bundle "Soldier" {
  category = "background"

  mutator "add_proficiency" "skill" "athletics" {}
}
`,
	"classes/fighter.yaml": `
- class:
    args: [Fighter]
    hit_die: 10
    children:
      - mutator: {args: [add_proficiency, save, str]}
      - level:
          args: [1]
          children:
            - mutator: !add_proficiency
                args: [skill, !any_of skill]
                children:
                  - option: [acrobatics, intimidation, survival]
            - mutator: {args: [add_feature, Second Wind]}
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
`,
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
`,
	"generators/plus-one.yaml": `
- generator: !item_variants
    args: [Plus One]
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
	"conditions/hasted.yaml": `
- condition:
    args: [Hasted]
    children:
      - mutator: {args: [add_armor_class, 2]}
`,
}

// FighterYAML is a level 1 elf fighter built from CoreFiles installed as
// local://core.
const FighterYAML = `name: Aelar
system: dnd5e
ability_scores:
  strength: 16
  dexterity: 12
  constitution: 14
  intelligence: 10
  wisdom: 12
  charisma: 8
lineage: local://core@dnd5e/lineages/elf.yaml
background: local://core@dnd5e/backgrounds/soldier.hcl
classes:
  - id: local://core@dnd5e/classes/fighter.yaml
    level: 1
inventory:
  - id: local://core@dnd5e/items/armor.yaml
    quantity: 1
    equipped: true
hit_points:
  current: 12
`
