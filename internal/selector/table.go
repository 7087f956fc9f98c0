package selector

import (
	"context"
	"fmt"
	"slices"
	"sort"

	assert "github.com/ZanzyTHEbar/assert-lib"
)

// Slot is the resolved definition of one user choice.
type Slot struct {
	Path        Path
	Kind        Kind
	Options     []string
	Amount      int
	CannotMatch []Path

	canonical func(string) (string, bool)
}

// Canonical parses a stored value and formats it back, so "con" and
// "constitution" compare equal when the codec accepts both.
func (s Slot) Canonical(value string) (string, bool) {
	if s.canonical == nil {
		return value, true
	}
	return s.canonical(value)
}

// origin identifies one selector declaration: the node that owns it and the
// positional entry it was read from.
type origin struct {
	scope Path
	node  any
	entry int
	key   string
}

// Table maps assigned paths to slots. It is filled once per compile before
// resolution and only read afterwards.
type Table struct {
	slots    map[Path]Slot
	assigned map[origin]Path
}

func NewTable() *Table {
	return &Table{slots: map[Path]Slot{}, assigned: map[origin]Path{}}
}

// put stores slot under the first free path derived from its preferred one.
// Two declarations that want the same path get numbered suffixes in
// assignment order: mutator, mutator-2, mutator-3.
func (t *Table) put(from origin, slot Slot) Path {
	if path, ok := t.assigned[from]; ok {
		slot.Path = path
		t.slots[path] = slot
		return path
	}
	base := slot.Path
	for n := 2; ; n++ {
		if _, taken := t.slots[slot.Path]; !taken {
			break
		}
		slot.Path = Path(fmt.Sprintf("%s-%d", base, n))
	}
	t.slots[slot.Path] = slot
	t.assigned[from] = slot.Path
	return slot.Path
}

func (t *Table) pathOf(from origin) (Path, bool) {
	path, ok := t.assigned[from]
	return path, ok
}

func (t *Table) Lookup(path Path) (Slot, bool) {
	slot, ok := t.slots[path]
	return slot, ok
}

func (t *Table) Len() int {
	return len(t.slots)
}

// Slots lists every slot ordered by path.
func (t *Table) Slots() []Slot {
	out := make([]Slot, 0, len(t.slots))
	for _, slot := range t.slots {
		out = append(out, slot)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Options returns the presentable options of a slot with values chosen at
// its cannot_match paths removed.
func (t *Table) Options(path Path, selections map[string]string) []string {
	slot, ok := t.slots[path]
	if !ok {
		return nil
	}
	excluded := map[string]struct{}{}
	for _, ref := range slot.CannotMatch {
		for _, value := range storedValues(ref, selections) {
			if canonical, ok := slot.Canonical(value); ok {
				excluded[canonical] = struct{}{}
			}
		}
	}
	var out []string
	for _, option := range slot.Options {
		if _, skip := excluded[option]; !skip {
			out = append(out, option)
		}
	}
	return out
}

// storedValues collects the value at path and at indexed subpaths.
func storedValues(path Path, selections map[string]string) []string {
	var out []string
	if value, ok := selections[string(path)]; ok {
		out = append(out, value)
	}
	for i := 0; ; i++ {
		value, ok := selections[string(path.Index(i))]
		if !ok {
			break
		}
		out = append(out, value)
	}
	return out
}

// State resolves selectors against recorded selections during one compile
// and collects the paths still waiting for a choice.
type State struct {
	ctx        context.Context
	table      *Table
	selections map[string]string
	missing    map[Path]struct{}
}

func NewState(ctx context.Context, table *Table, selections map[string]string) *State {
	if selections == nil {
		selections = map[string]string{}
	}
	return &State{ctx: ctx, table: table, selections: selections, missing: map[Path]struct{}{}}
}

func (s *State) Table() *Table {
	return s.table
}

func (s *State) MarkMissing(path Path) {
	s.missing[path] = struct{}{}
}

// Missing returns the unresolved paths, sorted.
func (s *State) Missing() []Path {
	out := make([]Path, 0, len(s.missing))
	for path := range s.missing {
		out = append(out, path)
	}
	slices.Sort(out)
	return out
}

func (s *State) slot(from origin) Slot {
	path, _ := s.table.pathOf(from)
	assert.NotEmpty(s.ctx, string(path), fmt.Sprintf("selector %q in %q resolved before its path was assigned", from.key, from.scope))
	slot, _ := s.table.Lookup(path)
	return slot
}

// lookup parses the value stored at path. An any_of value is compared with
// the options in canonical form; one the content no longer offers is stale.
func lookup[T any](s *State, slot Slot, path Path, codec Codec[T]) (T, bool) {
	var zero T
	raw, ok := s.selections[string(path)]
	if !ok {
		return zero, false
	}
	value, err := codec.Parse(raw)
	if err != nil {
		return zero, false
	}
	if slot.Kind == KindAnyOf && !slices.Contains(slot.Options, codec.Format(value)) {
		return zero, false
	}
	return value, true
}

// Resolve returns the selector's value. A missing, stale or unparseable
// selection yields false and records the slot path as missing.
func Resolve[T any](s *State, scope Path, sel Selector[T]) (T, bool) {
	if sel.kind == KindSpecific {
		return sel.value, true
	}
	slot := s.slot(sel.origin(scope))
	value, ok := lookup(s, slot, slot.Path, sel.codec)
	if !ok {
		s.MarkMissing(slot.Path)
	}
	return value, ok
}

// ResolveMany resolves a selector with Amount > 1; choices are stored at
// path/0 … path/n-1. Any missing index reports the whole slot missing.
func ResolveMany[T any](s *State, scope Path, sel Selector[T]) ([]T, bool) {
	if sel.kind == KindSpecific {
		return []T{sel.value}, true
	}
	if sel.amount <= 1 {
		value, ok := Resolve(s, scope, sel)
		if !ok {
			return nil, false
		}
		return []T{value}, true
	}
	slot := s.slot(sel.origin(scope))
	out := make([]T, 0, sel.amount)
	for i := range sel.amount {
		value, ok := lookup(s, slot, slot.Path.Index(i), sel.codec)
		if !ok {
			s.MarkMissing(slot.Path)
			return nil, false
		}
		out = append(out, value)
	}
	return out, true
}
