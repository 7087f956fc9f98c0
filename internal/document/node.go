// Package document is the format-agnostic content tree: nodes with a name,
// an optional type annotation, ordered positional and keyed entries, and
// child nodes. Decoders for concrete text formats live in the adapters
// package; everything above them reads documents through Reader.
package document

import (
	"strconv"
)

type ValueKind int

const (
	KindNull ValueKind = iota
	KindString
	KindInt
	KindFloat
	KindBool
)

func (k ValueKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	default:
		return "null"
	}
}

// Value is a scalar entry value.
type Value struct {
	Kind  ValueKind
	Str   string
	Int   int64
	Float float64
	Bool  bool
}

func String(value string) Value { return Value{Kind: KindString, Str: value} }
func Int(value int64) Value     { return Value{Kind: KindInt, Int: value} }
func Float(value float64) Value { return Value{Kind: KindFloat, Float: value} }
func Bool(value bool) Value     { return Value{Kind: KindBool, Bool: value} }
func Null() Value               { return Value{Kind: KindNull} }

// Raw returns the Go value held.
func (v Value) Raw() any {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindInt:
		return v.Int
	case KindFloat:
		return v.Float
	case KindBool:
		return v.Bool
	default:
		return nil
	}
}

func (v Value) String() string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	default:
		return "null"
	}
}

// Entry is one argument of a node. Key is empty for positional entries.
type Entry struct {
	Key   string
	Type  string
	Value Value
}

func (e Entry) Positional() bool {
	return e.Key == ""
}

type Node struct {
	Name     string
	Type     string
	Entries  []Entry
	Children []*Node
	Line     int
}

func NewNode(name string, args ...any) *Node {
	node := &Node{Name: name}
	for _, arg := range args {
		node.Entries = append(node.Entries, Entry{Value: ValueOf(arg)})
	}
	return node
}

// ValueOf converts a Go scalar into a Value.
func ValueOf(value any) Value {
	switch typed := value.(type) {
	case Value:
		return typed
	case string:
		return String(typed)
	case int:
		return Int(int64(typed))
	case int64:
		return Int(typed)
	case uint64:
		return Int(int64(typed))
	case float64:
		return Float(typed)
	case bool:
		return Bool(typed)
	default:
		return Null()
	}
}

// Positional returns the positional entries in order.
func (n *Node) Positional() []Entry {
	var out []Entry
	for _, entry := range n.Entries {
		if entry.Positional() {
			out = append(out, entry)
		}
	}
	return out
}

// Keyed returns the last entry with the key; later entries override earlier ones.
func (n *Node) Keyed(key string) (Entry, bool) {
	for i := len(n.Entries) - 1; i >= 0; i-- {
		if n.Entries[i].Key == key {
			return n.Entries[i], true
		}
	}
	return Entry{}, false
}

// SetKeyed replaces or appends a keyed entry.
func (n *Node) SetKeyed(key string, value Value) {
	for i := range n.Entries {
		if n.Entries[i].Key == key {
			n.Entries[i].Value = value
			n.Entries[i].Type = ""
			return
		}
	}
	n.Entries = append(n.Entries, Entry{Key: key, Value: value})
}

func (n *Node) Add(child *Node) *Node {
	n.Children = append(n.Children, child)
	return n
}

// Arg appends a positional entry and returns the node for chaining.
func (n *Node) Arg(value any) *Node {
	n.Entries = append(n.Entries, Entry{Value: ValueOf(value)})
	return n
}

// TypedArg appends a positional entry carrying a type annotation.
func (n *Node) TypedArg(annotation string, value any) *Node {
	n.Entries = append(n.Entries, Entry{Type: annotation, Value: ValueOf(value)})
	return n
}

// Prop appends a keyed entry.
func (n *Node) Prop(key string, value any) *Node {
	n.Entries = append(n.Entries, Entry{Key: key, Value: ValueOf(value)})
	return n
}

func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := &Node{Name: n.Name, Type: n.Type, Line: n.Line}
	out.Entries = append([]Entry(nil), n.Entries...)
	for _, child := range n.Children {
		out.Children = append(out.Children, child.Clone())
	}
	return out
}

// ChildrenNamed returns direct children with the name.
func (n *Node) ChildrenNamed(name string) []*Node {
	var out []*Node
	for _, child := range n.Children {
		if child.Name == name {
			out = append(out, child)
		}
	}
	return out
}

// RemoveChildren drops direct children with the name and reports how many went.
func (n *Node) RemoveChildren(name string) int {
	kept := n.Children[:0]
	removed := 0
	for _, child := range n.Children {
		if child.Name == name {
			removed++
			continue
		}
		kept = append(kept, child)
	}
	n.Children = kept
	return removed
}

// SetPositional replaces the i-th positional entry; false when out of range.
func (n *Node) SetPositional(i int, value Value) bool {
	seen := 0
	for idx := range n.Entries {
		if !n.Entries[idx].Positional() {
			continue
		}
		if seen == i {
			n.Entries[idx].Value = value
			return true
		}
		seen++
	}
	return false
}

// Equal compares two trees structurally, ignoring line numbers.
func (n *Node) Equal(other *Node) bool {
	if n == nil || other == nil {
		return n == other
	}
	if n.Name != other.Name || n.Type != other.Type || len(n.Entries) != len(other.Entries) || len(n.Children) != len(other.Children) {
		return false
	}
	for i := range n.Entries {
		if n.Entries[i] != other.Entries[i] {
			return false
		}
	}
	for i := range n.Children {
		if !n.Children[i].Equal(other.Children[i]) {
			return false
		}
	}
	return true
}
