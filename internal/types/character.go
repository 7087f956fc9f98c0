package types

import (
	"maps"
	"slices"
)

type ClassRef struct {
	ID    SourceId `yaml:"id" json:"id"`
	Level int      `yaml:"level" json:"level"`
}

type ItemRef struct {
	ID       SourceId `yaml:"id" json:"id"`
	Quantity int      `yaml:"quantity,omitempty" json:"quantity,omitempty"`
	Equipped bool     `yaml:"equipped,omitempty" json:"equipped,omitempty"`
}

type HitPoints struct {
	Current   int `yaml:"current" json:"current"`
	Temporary int `yaml:"temporary,omitempty" json:"temporary,omitempty"`
}

// Persistent is the user-editable, serializable character state. Derived
// stats are never stored; they are recompiled from this value.
type Persistent struct {
	Name           string            `yaml:"name" json:"name"`
	System         string            `yaml:"system" json:"system"`
	AbilityScores  map[Ability]int   `yaml:"ability_scores" json:"ability_scores"`
	Lineage        *SourceId         `yaml:"lineage,omitempty" json:"lineage,omitempty"`
	Upbringing     *SourceId         `yaml:"upbringing,omitempty" json:"upbringing,omitempty"`
	Background     *SourceId         `yaml:"background,omitempty" json:"background,omitempty"`
	Classes        []ClassRef        `yaml:"classes,omitempty" json:"classes,omitempty"`
	Bundles        []SourceId        `yaml:"bundles,omitempty" json:"bundles,omitempty"`
	Inventory      []ItemRef         `yaml:"inventory,omitempty" json:"inventory,omitempty"`
	Conditions     []SourceId        `yaml:"conditions,omitempty" json:"conditions,omitempty"`
	Wallet         Wallet            `yaml:"wallet,omitempty" json:"wallet,omitempty"`
	HitPoints      HitPoints         `yaml:"hit_points" json:"hit_points"`
	SelectedValues map[string]string `yaml:"selected_values,omitempty" json:"selected_values,omitempty"`
}

// Clone returns a deep copy so queued edits never alias a snapshot that a
// compile pass is reading.
func (p Persistent) Clone() Persistent {
	out := p
	out.AbilityScores = maps.Clone(p.AbilityScores)
	out.Lineage = cloneId(p.Lineage)
	out.Upbringing = cloneId(p.Upbringing)
	out.Background = cloneId(p.Background)
	out.Classes = slices.Clone(p.Classes)
	out.Bundles = slices.Clone(p.Bundles)
	out.Inventory = slices.Clone(p.Inventory)
	out.Conditions = slices.Clone(p.Conditions)
	out.SelectedValues = maps.Clone(p.SelectedValues)
	return out
}

// TotalLevel sums the levels of every class.
func (p Persistent) TotalLevel() int {
	total := 0
	for _, class := range p.Classes {
		total += class.Level
	}
	return total
}

func (p *Persistent) Select(path string, value string) {
	if p.SelectedValues == nil {
		p.SelectedValues = map[string]string{}
	}
	p.SelectedValues[path] = value
}

func (p *Persistent) Unselect(path string) {
	delete(p.SelectedValues, path)
}

func cloneId(id *SourceId) *SourceId {
	if id == nil {
		return nil
	}
	copied := *id
	return &copied
}
