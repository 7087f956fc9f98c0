package content

import (
	"sheetforge/internal/document"
	"sheetforge/internal/types"
)

type Condition struct {
	Header
	Mutators Mutators
}

func (c *Condition) Category() types.Category { return types.CategoryCondition }

func (c *Condition) Metadata() map[string]any {
	meta := c.metadata()
	meta["mutators"] = c.Mutators.ids()
	return meta
}

func ParseCondition(r *document.Reader) (*Condition, error) {
	header, err := parseHeader(r)
	if err != nil {
		return nil, err
	}
	mutators, err := parseMutators(r)
	if err != nil {
		return nil, err
	}
	return &Condition{Header: header, Mutators: mutators}, nil
}
