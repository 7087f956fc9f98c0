package content

import (
	"context"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"

	"sheetforge/internal/document"
	"sheetforge/internal/registry"
	"sheetforge/internal/types"
)

// DocumentMutator rewrites a content node; generators use them to derive
// variants from base entries.
type DocumentMutator = registry.GenericMutator[*document.Node]

type variantRule struct {
	name     string
	mutators []DocumentMutator
}

// itemVariants derives one variant per (matching base entry, rule).
type itemVariants struct {
	category types.Category
	filter   types.Criteria
	rules    []variantRule
}

func parseItemVariants(r *document.Reader) (GeneratorKind, error) {
	kind := &itemVariants{category: types.CategoryItem, filter: types.All()}
	category, ok, err := r.GetStringOpt("category")
	if err != nil {
		return nil, err
	}
	if ok {
		kind.category = types.Category(category)
	}
	for child := range r.ChildrenNamed("filter") {
		filter, err := ParseFilter(child)
		if err != nil {
			return nil, err
		}
		kind.filter = filter
	}
	for child := range r.ChildrenNamed("variant") {
		name, err := child.NextStringReq()
		if err != nil {
			return nil, err
		}
		mutators, err := registry.ParseMutators[*document.Node](child, "mutator")
		if err != nil {
			return nil, err
		}
		kind.rules = append(kind.rules, variantRule{name: name, mutators: mutators})
	}
	if len(kind.rules) == 0 {
		return nil, r.Errorf(document.ErrMissingValue, "item_variants needs at least one variant")
	}
	return kind, nil
}

func (k *itemVariants) Execute(ctx context.Context, self *Generator, env GeneratorEnv) (GeneratorOutput, error) {
	filter := k.filter
	bases, err := env.Catalog.QueryEntries(ctx, types.Query{
		System:   env.System,
		Category: k.category,
		Origin:   types.OriginAuthored,
		Criteria: &filter,
	})
	if err != nil {
		return GeneratorOutput{}, err
	}
	slices.SortFunc(bases, func(a, b types.Entry) int { return strings.Compare(a.ID, b.ID) })

	var out GeneratorOutput
	for _, base := range bases {
		baseID, err := base.SourceId()
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("entry", base.ID).Msg("skipping base entry with invalid id")
			continue
		}
		node, err := DecodeEntryNode(env.Decoder, base)
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("entry", base.ID).Msg("skipping undecodable base entry")
			continue
		}
		for _, rule := range k.rules {
			variant := node.Clone()
			for _, mutator := range rule.mutators {
				mutator.Apply(variant)
			}
			id := VariantID(self.ID, baseID, rule.name)
			entry, err := Project(env, id, variant, types.GeneratedFilePrefix+self.ID.Key())
			if err != nil {
				log.Ctx(ctx).Warn().Err(err).Str("variant", id.String()).Msg("variant does not parse; dropped")
				continue
			}
			out.Variants = append(out.Variants, entry)
		}
	}
	return out, nil
}

// generatorList emits its inline child generators.
type generatorList struct {
	children []*Generator
}

func parseGeneratorList(r *document.Reader) (GeneratorKind, error) {
	parent, err := r.Context().ParseSourceReq(r)
	if err != nil {
		return nil, err
	}
	list := &generatorList{}
	for child := range r.ChildrenNamed("generator") {
		generator, err := ParseGenerator(child)
		if err != nil {
			return nil, err
		}
		generator.ID = childGeneratorID(parent, generator.Name)
		list.children = append(list.children, generator)
	}
	return list, nil
}

func (l *generatorList) Execute(ctx context.Context, self *Generator, env GeneratorEnv) (GeneratorOutput, error) {
	return GeneratorOutput{Generators: slices.Clone(l.children)}, nil
}

// rename replaces the name; `{name}` expands to the current name.
type rename struct {
	template string
}

func (m rename) Apply(node *document.Node) {
	current := ""
	if positional := node.Positional(); len(positional) > 0 {
		current = positional[0].Value.String()
	}
	node.SetPositional(0, document.String(strings.ReplaceAll(m.template, "{name}", current)))
}

type setProperty struct {
	key   string
	value document.Value
}

func (m setProperty) Apply(node *document.Node) {
	node.SetKeyed(m.key, m.value)
}

type addTags struct {
	tags []string
}

func (m addTags) Apply(node *document.Node) {
	existing := map[string]struct{}{}
	for _, tag := range node.ChildrenNamed("tag") {
		for _, entry := range tag.Positional() {
			existing[entry.Value.String()] = struct{}{}
		}
	}
	for _, tag := range m.tags {
		if _, ok := existing[tag]; ok {
			continue
		}
		node.Add(document.NewNode("tag", tag))
	}
}

type removeTags struct {
	tags []string
}

func (m removeTags) Apply(node *document.Node) {
	var kept []*document.Node
	for _, child := range node.Children {
		if child.Name == "tag" {
			var entries []document.Entry
			for _, entry := range child.Entries {
				if entry.Positional() && slices.Contains(m.tags, entry.Value.String()) {
					continue
				}
				entries = append(entries, entry)
			}
			if len(entries) == 0 {
				continue
			}
			child.Entries = entries
		}
		kept = append(kept, child)
	}
	node.Children = kept
}

// equipMutators appends mutator nodes to the item's equipment block,
// creating the block when the base has none.
type equipMutators struct {
	nodes []*document.Node
}

func (m equipMutators) Apply(node *document.Node) {
	var equipment *document.Node
	if found := node.ChildrenNamed("equipment"); len(found) > 0 {
		equipment = found[len(found)-1]
	} else {
		equipment = document.NewNode("equipment")
		node.Add(equipment)
	}
	for _, child := range m.nodes {
		equipment.Add(child.Clone())
	}
}

func positionalStrings(r *document.Reader) ([]string, error) {
	var out []string
	for r.Remaining() > 0 {
		value, err := r.NextStringReq()
		if err != nil {
			return nil, err
		}
		out = append(out, value)
	}
	return out, nil
}

// RegisterDocumentKinds registers the node-rewriting mutators and the
// generator kinds every content system shares.
func RegisterDocumentKinds(reg *registry.Registry) error {
	mutators := map[string]registry.Factory[registry.Mutator[*document.Node]]{
		"rename": func(r *document.Reader) (registry.Mutator[*document.Node], error) {
			template, err := r.NextStringReq()
			if err != nil {
				return nil, err
			}
			return rename{template: template}, nil
		},
		"set_property": func(r *document.Reader) (registry.Mutator[*document.Node], error) {
			key, err := r.NextStringReq()
			if err != nil {
				return nil, err
			}
			entry, err := r.NextEntryReq()
			if err != nil {
				return nil, err
			}
			return setProperty{key: key, value: entry.Value}, nil
		},
		"add_tag": func(r *document.Reader) (registry.Mutator[*document.Node], error) {
			tags, err := positionalStrings(r)
			if err != nil {
				return nil, err
			}
			return addTags{tags: tags}, nil
		},
		"remove_tag": func(r *document.Reader) (registry.Mutator[*document.Node], error) {
			tags, err := positionalStrings(r)
			if err != nil {
				return nil, err
			}
			return removeTags{tags: tags}, nil
		},
		"equip_mutator": func(r *document.Reader) (registry.Mutator[*document.Node], error) {
			nodes := r.Node().ChildrenNamed("mutator")
			if len(nodes) == 0 {
				return nil, r.Errorf(document.ErrMissingValue, "equip_mutator needs mutator children")
			}
			return equipMutators{nodes: nodes}, nil
		},
	}
	for id, factory := range mutators {
		if err := registry.RegisterMutator(reg, id, factory); err != nil {
			return err
		}
	}
	if err := RegisterGeneratorKind(reg, "item_variants", parseItemVariants); err != nil {
		return err
	}
	return RegisterGeneratorKind(reg, "generator_list", parseGeneratorList)
}
