package content

import (
	"sheetforge/internal/document"
	"sheetforge/internal/types"
)

// Bundle is a named group of mutators: a lineage, upbringing, background,
// feat or any other category the content system defines.
type Bundle struct {
	Header
	Kind     string
	Mutators Mutators
}

func (b *Bundle) Category() types.Category { return types.CategoryBundle }

func (b *Bundle) Metadata() map[string]any {
	meta := b.metadata()
	meta["category"] = b.Kind
	meta["mutators"] = b.Mutators.ids()
	return meta
}

func ParseBundle(r *document.Reader) (*Bundle, error) {
	header, err := parseHeader(r)
	if err != nil {
		return nil, err
	}
	kind, ok, err := r.GetStringOpt("category")
	if err != nil {
		return nil, err
	}
	if !ok {
		kind = "feat"
	}
	mutators, err := parseMutators(r)
	if err != nil {
		return nil, err
	}
	return &Bundle{Header: header, Kind: kind, Mutators: mutators}, nil
}
