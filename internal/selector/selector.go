// Package selector models values a player must choose. A selector is
// either fixed by the content or keyed by a structural path whose value is
// looked up in the character's recorded selections.
//
// Paths are assigned in a separate walk over the object tree (Table.Assign)
// before any resolution happens; resolution itself is read-only.
package selector

import (
	"fmt"
	"slices"
	"strings"

	"sheetforge/internal/document"
)

type Kind int

const (
	KindSpecific Kind = iota
	KindAny
	KindAnyOf
)

func (k Kind) String() string {
	switch k {
	case KindAny:
		return "any"
	case KindAnyOf:
		return "any_of"
	default:
		return "specific"
	}
}

// Path is a slash-joined structural path, e.g. class/Fighter/level/1/skill.
type Path string

func Join(segments ...string) Path {
	var parts []string
	for _, segment := range segments {
		segment = strings.Trim(segment, "/")
		if segment != "" {
			parts = append(parts, segment)
		}
	}
	return Path(strings.Join(parts, "/"))
}

func (p Path) Child(segments ...string) Path {
	return Join(append([]string{string(p)}, segments...)...)
}

func (p Path) Index(i int) Path {
	return p.Child(fmt.Sprint(i))
}

func (p Path) String() string {
	return string(p)
}

// Codec converts between a selector's value type and its stored string.
type Codec[T any] struct {
	Parse  func(string) (T, error)
	Format func(T) string
}

var StringCodec = Codec[string]{
	Parse:  func(value string) (string, error) { return value, nil },
	Format: func(value string) string { return value },
}

// Selector is Specific, Any or AnyOf.
type Selector[T any] struct {
	kind        Kind
	value       T
	key         string
	options     []T
	amount      int
	cannotMatch []string
	codec       Codec[T]

	// owner and entry locate the declaration in its document
	owner *document.Node
	entry int
}

func (s Selector[T]) origin(scope Path) origin {
	from := origin{scope: scope, key: s.key, entry: s.entry}
	if s.owner != nil {
		from.node = s.owner
	}
	return from
}

func Specific[T any](value T, codec Codec[T]) Selector[T] {
	return Selector[T]{kind: KindSpecific, value: value, amount: 1, codec: codec}
}

func Any[T any](key string, codec Codec[T], cannotMatch ...string) Selector[T] {
	return Selector[T]{kind: KindAny, key: key, amount: 1, cannotMatch: cannotMatch, codec: codec}
}

func AnyOf[T any](key string, options []T, amount int, codec Codec[T], cannotMatch ...string) Selector[T] {
	if amount < 1 {
		amount = 1
	}
	return Selector[T]{kind: KindAnyOf, key: key, options: options, amount: amount, cannotMatch: cannotMatch, codec: codec}
}

func (s Selector[T]) Kind() Kind      { return s.kind }
func (s Selector[T]) Key() string     { return s.key }
func (s Selector[T]) Amount() int     { return s.amount }
func (s Selector[T]) Options() []T    { return slices.Clone(s.options) }
func (s Selector[T]) NeedsUser() bool { return s.kind != KindSpecific }

// Value returns the fixed value of a Specific selector.
func (s Selector[T]) Value() (T, bool) {
	return s.value, s.kind == KindSpecific
}

func (s Selector[T]) formattedOptions() []string {
	out := make([]string, 0, len(s.options))
	for _, option := range s.options {
		out = append(out, s.codec.Format(option))
	}
	return out
}

// Assign records this selector's slot under scope and returns the path it
// was given. Specific selectors own no slot.
func (s Selector[T]) Assign(table *Table, scope Path) Path {
	if s.kind == KindSpecific {
		return ""
	}
	slot := Slot{
		Path:    scope.Child(s.key),
		Kind:    s.kind,
		Options: s.formattedOptions(),
		Amount:  s.amount,
		canonical: func(value string) (string, bool) {
			parsed, err := s.codec.Parse(value)
			if err != nil {
				return "", false
			}
			return s.codec.Format(parsed), true
		},
	}
	for _, ref := range s.cannotMatch {
		slot.CannotMatch = append(slot.CannotMatch, resolveRef(scope, ref))
	}
	return table.put(s.origin(scope), slot)
}

func (s Selector[T]) Description() string {
	switch s.kind {
	case KindSpecific:
		return s.codec.Format(s.value)
	case KindAnyOf:
		return fmt.Sprintf("choose %d of %s", s.amount, strings.Join(s.formattedOptions(), ", "))
	default:
		return fmt.Sprintf("choose any %s", s.key)
	}
}

// resolveRef interprets a cannot_match entry: absolute when it starts with
// "/", otherwise a sibling key in the same scope.
func resolveRef(scope Path, ref string) Path {
	if strings.HasPrefix(ref, "/") {
		return Join(ref)
	}
	return scope.Child(ref)
}

// Parse reads the next positional entry as a selector. Entries annotated
// `any` or `any_of` become user choices keyed by their value (or by the node
// name when the value is empty; unnamed choices sharing a scope are numbered
// when their paths are assigned); `any_of` options come from `option`
// children. The keyed entry `choose` sets how many options are picked and
// `cannot_match` children exclude values chosen elsewhere.
func Parse[T any](r *document.Reader, codec Codec[T]) (Selector[T], error) {
	position := r.Context().PeekIdx()
	entry, err := r.NextEntryReq()
	if err != nil {
		return Selector[T]{}, err
	}
	switch entry.Type {
	case "", "specific":
		if entry.Value.Kind != document.KindString {
			return Selector[T]{}, r.Errorf(document.ErrWrongType, "selector value must be a string, found %s", entry.Value.Kind)
		}
		value, err := codec.Parse(entry.Value.Str)
		if err != nil {
			return Selector[T]{}, r.Wrap(err)
		}
		return Specific(value, codec), nil
	case "any", "any_of":
	default:
		return Selector[T]{}, r.Errorf(document.ErrInvalidValue, "unknown selector annotation %q", entry.Type)
	}

	key := r.Name()
	if entry.Value.Kind == document.KindString && entry.Value.Str != "" {
		key = entry.Value.Str
	}
	var cannotMatch []string
	for child := range r.ChildrenNamed("cannot_match") {
		for child.Remaining() > 0 {
			ref, err := child.NextStringReq()
			if err != nil {
				return Selector[T]{}, err
			}
			cannotMatch = append(cannotMatch, ref)
		}
	}
	if entry.Type == "any" {
		sel := Any(key, codec, cannotMatch...)
		sel.owner, sel.entry = r.Node(), position
		return sel, nil
	}

	amount, _, err := r.GetIntOpt("choose")
	if err != nil {
		return Selector[T]{}, err
	}
	var options []T
	for child := range r.ChildrenNamed("option") {
		for child.Remaining() > 0 {
			option, err := document.NextParsed(child, codec.Parse)
			if err != nil {
				return Selector[T]{}, err
			}
			options = append(options, option)
		}
	}
	if len(options) == 0 {
		return Selector[T]{}, r.Errorf(document.ErrMissingValue, "any_of selector %q has no options", key)
	}
	sel := AnyOf(key, options, int(amount), codec, cannotMatch...)
	sel.owner, sel.entry = r.Node(), position
	return sel, nil
}
