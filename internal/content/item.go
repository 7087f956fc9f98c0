package content

import (
	"strings"

	"sheetforge/internal/document"
	"sheetforge/internal/types"
)

type ArmorKind string

const (
	ArmorLight  ArmorKind = "light"
	ArmorMedium ArmorKind = "medium"
	ArmorHeavy  ArmorKind = "heavy"
)

// Armor describes worn body armor. Light armor adds full dexterity,
// medium caps it (at 2 unless MaxDex says otherwise), heavy ignores it.
type Armor struct {
	Kind   ArmorKind
	Base   int
	MaxDex *int
}

// Equipment is what an item contributes while equipped.
type Equipment struct {
	Armor       *Armor
	ShieldBonus int
	Mutators    Mutators
}

type Item struct {
	Header
	Rarity    string
	Weight    float64
	Worth     types.Wallet
	Tags      []string
	Equipment *Equipment
}

func (i *Item) Category() types.Category { return types.CategoryItem }

func (i *Item) Equippable() bool {
	return i.Equipment != nil
}

func (i *Item) Metadata() map[string]any {
	meta := i.metadata()
	if i.Rarity != "" {
		meta["rarity"] = i.Rarity
	}
	meta["weight"] = i.Weight
	meta["worth"] = i.Worth.TotalValue()
	tags := make([]any, 0, len(i.Tags))
	for _, tag := range i.Tags {
		tags = append(tags, tag)
	}
	meta["tags"] = tags
	if i.Equipment != nil {
		equipment := map[string]any{"mutators": i.Equipment.Mutators.ids()}
		if i.Equipment.Armor != nil {
			equipment["armor"] = string(i.Equipment.Armor.Kind)
		}
		if i.Equipment.ShieldBonus != 0 {
			equipment["shield"] = i.Equipment.ShieldBonus
		}
		meta["equipment"] = equipment
	}
	return meta
}

func ParseItem(r *document.Reader) (*Item, error) {
	header, err := parseHeader(r)
	if err != nil {
		return nil, err
	}
	item := &Item{Header: header}
	if item.Rarity, _, err = r.GetStringOpt("rarity"); err != nil {
		return nil, err
	}
	if item.Weight, _, err = r.GetFloatOpt("weight"); err != nil {
		return nil, err
	}
	worth, ok, err := document.GetParsedOpt(r, "worth", types.ParseWallet)
	if err != nil {
		return nil, err
	}
	if ok {
		item.Worth = worth
	}
	if item.Tags, err = stringsOf(r, "tag"); err != nil {
		return nil, err
	}
	for child := range r.ChildrenNamed("equipment") {
		equipment, err := parseEquipment(child)
		if err != nil {
			return nil, err
		}
		item.Equipment = equipment
	}
	return item, nil
}

func parseEquipment(r *document.Reader) (*Equipment, error) {
	equipment := &Equipment{}
	for child := range r.ChildrenNamed("armor") {
		armor, err := parseArmor(child)
		if err != nil {
			return nil, err
		}
		equipment.Armor = armor
	}
	for child := range r.ChildrenNamed("shield") {
		bonus, err := child.NextIntReq()
		if err != nil {
			return nil, err
		}
		equipment.ShieldBonus = int(bonus)
	}
	mutators, err := parseMutators(r)
	if err != nil {
		return nil, err
	}
	equipment.Mutators = mutators
	return equipment, nil
}

func parseArmor(r *document.Reader) (*Armor, error) {
	kind, err := r.NextStringReq()
	if err != nil {
		return nil, err
	}
	armor := &Armor{Kind: ArmorKind(strings.ToLower(kind))}
	switch armor.Kind {
	case ArmorLight, ArmorHeavy:
	case ArmorMedium:
		two := 2
		armor.MaxDex = &two
	default:
		return nil, r.Errorf(document.ErrInvalidValue, "armor kind %q is not light, medium or heavy", kind)
	}
	base, err := r.GetIntReq("base")
	if err != nil {
		return nil, err
	}
	armor.Base = int(base)
	maxDex, ok, err := r.GetIntOpt("max_dex")
	if err != nil {
		return nil, err
	}
	if ok {
		capped := int(maxDex)
		armor.MaxDex = &capped
	}
	return armor, nil
}

// Abilities lists the modifiers the armor adds to its base.
func (a *Armor) Abilities() []types.Ability {
	if a.Kind == ArmorHeavy {
		return nil
	}
	return []types.Ability{types.AbilityDexterity}
}
