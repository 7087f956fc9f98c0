package registry

import (
	"fmt"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"sheetforge/internal/document"
	"sheetforge/internal/selector"
)

// Mutator changes a target when applied.
type Mutator[T any] interface {
	Apply(target T)
}

// Evaluator computes a value from a read-only context.
type Evaluator[C, V any] interface {
	Evaluate(ctx C) V
}

// Describer is implemented by kinds that can explain themselves in a sheet.
type Describer interface {
	Description() string
}

// SelectorOwner is implemented by kinds holding user choices; it is called
// during the path-assignment walk that precedes every compile.
type SelectorOwner interface {
	AssignSelectors(table *selector.Table, scope selector.Path)
}

// GenericMutator is a small handle to a parsed mutator. Copies share the
// same implementation.
type GenericMutator[T any] struct {
	arena  *Arena
	handle Handle
}

func (m GenericMutator[T]) Valid() bool {
	return m.arena != nil
}

func (m GenericMutator[T]) ID() string {
	return m.arena.slot(m.handle).id
}

func (m GenericMutator[T]) Handle() Handle {
	return m.handle
}

// Node returns the document form the mutator was parsed from.
func (m GenericMutator[T]) Node() *document.Node {
	return m.arena.slot(m.handle).node
}

func (m GenericMutator[T]) Apply(target T) {
	m.arena.slot(m.handle).impl.(Mutator[T]).Apply(target)
}

func (m GenericMutator[T]) Description() string {
	return describe(m.arena.slot(m.handle))
}

func (m GenericMutator[T]) AssignSelectors(table *selector.Table, scope selector.Path) {
	if owner, ok := m.arena.slot(m.handle).impl.(SelectorOwner); ok {
		owner.AssignSelectors(table, scope)
	}
}

func (m GenericMutator[T]) Equal(other GenericMutator[T]) bool {
	return m.arena == other.arena && m.handle == other.handle
}

// GenericEvaluator is the evaluator counterpart of GenericMutator.
type GenericEvaluator[C, V any] struct {
	arena  *Arena
	handle Handle
}

func (e GenericEvaluator[C, V]) Valid() bool {
	return e.arena != nil
}

func (e GenericEvaluator[C, V]) ID() string {
	return e.arena.slot(e.handle).id
}

func (e GenericEvaluator[C, V]) Handle() Handle {
	return e.handle
}

func (e GenericEvaluator[C, V]) Node() *document.Node {
	return e.arena.slot(e.handle).node
}

func (e GenericEvaluator[C, V]) Evaluate(ctx C) V {
	return e.arena.slot(e.handle).impl.(Evaluator[C, V]).Evaluate(ctx)
}

func (e GenericEvaluator[C, V]) Description() string {
	return describe(e.arena.slot(e.handle))
}

func (e GenericEvaluator[C, V]) AssignSelectors(table *selector.Table, scope selector.Path) {
	if owner, ok := e.arena.slot(e.handle).impl.(SelectorOwner); ok {
		owner.AssignSelectors(table, scope)
	}
}

func (e GenericEvaluator[C, V]) Equal(other GenericEvaluator[C, V]) bool {
	return e.arena == other.arena && e.handle == other.handle
}

func describe(slot arenaSlot) string {
	if d, ok := slot.impl.(Describer); ok {
		return d.Description()
	}
	return slot.id
}

// Loader is the content-system handle threaded through document.Context.
type Loader struct {
	Registry *Registry
	Arena    *Arena
}

func NewLoader(reg *Registry, arena *Arena) *Loader {
	return &Loader{Registry: reg, Arena: arena}
}

// LoaderFrom recovers the loader stored in a reader's context.
func LoaderFrom(r *document.Reader) (*Loader, error) {
	loader, ok := r.Context().System().(*Loader)
	if !ok || loader == nil || loader.Registry == nil || loader.Arena == nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("node %q parsed without a content system", r.Name()))
	}
	return loader, nil
}

// KindOf reads the tag naming the implementation: the node's type
// annotation when present, else the first positional string of a generic
// node (`mutator`, `evaluator`, `generator`), else the node name itself.
func KindOf(r *document.Reader, family Family) (string, error) {
	if r.Type() != "" {
		return r.Type(), nil
	}
	if r.Name() != string(family) {
		return r.Name(), nil
	}
	return r.NextStringReq()
}

func parseInto[T any](r *document.Reader, family Family) (string, *Loader, T, error) {
	var zero T
	loader, err := LoaderFrom(r)
	if err != nil {
		return "", nil, zero, err
	}
	kind, err := KindOf(r, family)
	if err != nil {
		return "", nil, zero, err
	}
	factory, err := FactoryFor[T](loader.Registry, family, kind)
	if err != nil {
		return kind, nil, zero, r.Wrap(err)
	}
	impl, err := factory(r)
	if err != nil {
		return kind, nil, zero, err
	}
	return kind, loader, impl, nil
}

// ParseMutator parses the reader's node into a registered mutator.
func ParseMutator[T any](r *document.Reader) (GenericMutator[T], error) {
	kind, loader, impl, err := parseInto[Mutator[T]](r, FamilyMutator)
	if err != nil {
		return GenericMutator[T]{}, err
	}
	handle, err := loader.Arena.add(kind, r.Node(), impl)
	if err != nil {
		return GenericMutator[T]{}, err
	}
	return GenericMutator[T]{arena: loader.Arena, handle: handle}, nil
}

// ParseEvaluator parses the reader's node into a registered evaluator.
func ParseEvaluator[C, V any](r *document.Reader) (GenericEvaluator[C, V], error) {
	kind, loader, impl, err := parseInto[Evaluator[C, V]](r, FamilyEvaluator)
	if err != nil {
		return GenericEvaluator[C, V]{}, err
	}
	handle, err := loader.Arena.add(kind, r.Node(), impl)
	if err != nil {
		return GenericEvaluator[C, V]{}, err
	}
	return GenericEvaluator[C, V]{arena: loader.Arena, handle: handle}, nil
}

// ParseMutators parses every direct child matching name as a mutator.
func ParseMutators[T any](r *document.Reader, name string) ([]GenericMutator[T], error) {
	var out []GenericMutator[T]
	for child := range r.ChildrenNamed(name) {
		mutator, err := ParseMutator[T](child)
		if err != nil {
			return nil, err
		}
		out = append(out, mutator)
	}
	return out, nil
}
