// Package content turns document nodes into strongly typed game objects:
// bundles, classes, items, conditions and generators. Each object projects
// a JSON metadata view used for criteria filtering.
package content

import (
	"fmt"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"sheetforge/internal/document"
	"sheetforge/internal/registry"
	"sheetforge/internal/selector"
	"sheetforge/internal/stats"
	"sheetforge/internal/types"
)

// StatsMutator is a mutator applied while compiling a character.
type StatsMutator = registry.GenericMutator[*stats.Builder]

// Object is any parsed top-level content node.
type Object interface {
	Category() types.Category
	Source() types.SourceId
	DisplayName() string
	Metadata() map[string]any
}

// Header carries the fields every object shares.
type Header struct {
	ID          types.SourceId
	Name        string
	Description string
}

func (h Header) Source() types.SourceId { return h.ID }
func (h Header) DisplayName() string    { return h.Name }

func (h Header) metadata() map[string]any {
	meta := map[string]any{"name": h.Name}
	if h.Description != "" {
		meta["description"] = h.Description
	}
	return meta
}

// parseHeader consumes the leading name and reads source and description.
func parseHeader(r *document.Reader) (Header, error) {
	id, err := r.Context().ParseSourceReq(r)
	if err != nil {
		return Header{}, err
	}
	name, err := r.NextStringReq()
	if err != nil {
		return Header{}, err
	}
	description, err := textOpt(r, "description")
	if err != nil {
		return Header{}, err
	}
	return Header{ID: id, Name: name, Description: description}, nil
}

// textOpt reads a keyed string or the first string of a child node.
func textOpt(r *document.Reader, key string) (string, error) {
	value, ok, err := r.GetStringOpt(key)
	if err != nil || ok {
		return value, err
	}
	for child := range r.ChildrenNamed(key) {
		return child.NextStringReq()
	}
	return "", nil
}

// stringsOf reads every positional string of every child named key.
func stringsOf(r *document.Reader, key string) ([]string, error) {
	var out []string
	for child := range r.ChildrenNamed(key) {
		for child.Remaining() > 0 {
			value, err := child.NextStringReq()
			if err != nil {
				return nil, err
			}
			out = append(out, value)
		}
	}
	return out, nil
}

// Mutators is an ordered list of stats mutators owned by one object.
type Mutators []StatsMutator

func parseMutators(r *document.Reader) (Mutators, error) {
	return registry.ParseMutators[*stats.Builder](r, "mutator")
}

// Assign assigns selector paths for every mutator under scope.
func (m Mutators) Assign(table *selector.Table, scope selector.Path) {
	for _, mutator := range m {
		mutator.AssignSelectors(table, scope)
	}
}

func (m Mutators) ids() []any {
	out := make([]any, 0, len(m))
	for _, mutator := range m {
		out = append(out, mutator.ID())
	}
	return out
}

// Parse dispatches on the node name.
func Parse(r *document.Reader) (Object, error) {
	switch types.Category(r.Name()) {
	case types.CategoryBundle:
		return ParseBundle(r)
	case types.CategoryClass:
		return ParseClass(r)
	case types.CategoryItem:
		return ParseItem(r)
	case types.CategoryCondition:
		return ParseCondition(r)
	case types.CategoryGenerator:
		return ParseGenerator(r)
	default:
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("unknown content category %q", r.Name()))
	}
}
