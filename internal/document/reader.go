package document

import (
	"fmt"
	"iter"
)

// Reader is an order-preserving, type-checked cursor over one node. It never
// mutates the node; consuming entries only advances the context cursor.
type Reader struct {
	node       *Node
	ctx        *Context
	positional []Entry
}

func NewReader(node *Node, ctx *Context) *Reader {
	return &Reader{node: node, ctx: ctx, positional: node.Positional()}
}

func (r *Reader) Name() string       { return r.node.Name }
func (r *Reader) Type() string       { return r.node.Type }
func (r *Reader) Node() *Node        { return r.node }
func (r *Reader) Context() *Context  { return r.ctx }
func (r *Reader) Remaining() int     { return len(r.positional) - r.ctx.PeekIdx() }
func (r *Reader) PositionalLen() int { return len(r.positional) }

// Child returns a reader for a node with a fresh cursor.
func (r *Reader) Child(node *Node) *Reader {
	return NewReader(node, r.ctx.NextNode())
}

// Children yields readers over direct children, each with a fresh context.
func (r *Reader) Children() iter.Seq[*Reader] {
	return func(yield func(*Reader) bool) {
		for _, child := range r.node.Children {
			if !yield(r.Child(child)) {
				return
			}
		}
	}
}

// ChildrenNamed yields readers over direct children with the name.
func (r *Reader) ChildrenNamed(name string) iter.Seq[*Reader] {
	return func(yield func(*Reader) bool) {
		for _, child := range r.node.Children {
			if child.Name != name {
				continue
			}
			if !yield(r.Child(child)) {
				return
			}
		}
	}
}

// Errorf builds a document error located at this node.
func (r *Reader) Errorf(kind error, format string, args ...any) error {
	return newError(kind, r.node, -1, "", fmt.Sprintf(format, args...))
}

// Wrap locates a foreign error (for example a FromStr-style parse failure) at this node.
func (r *Reader) Wrap(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*Error); ok {
		return err
	}
	return &Error{Kind: ErrInvalidValue, Node: r.node.Name, Line: r.node.Line, Index: -1, Cause: err}
}

func (r *Reader) NextEntryOpt() (Entry, bool) {
	idx := r.ctx.PeekIdx()
	if idx >= len(r.positional) {
		return Entry{}, false
	}
	r.ctx.ConsumeIdx()
	return r.positional[idx], true
}

func (r *Reader) NextEntryReq() (Entry, error) {
	idx := r.ctx.PeekIdx()
	entry, ok := r.NextEntryOpt()
	if !ok {
		return Entry{}, newError(ErrMissingValue, r.node, idx, "", "")
	}
	return entry, nil
}

func (r *Reader) PeekEntryOpt() (Entry, bool) {
	idx := r.ctx.PeekIdx()
	if idx >= len(r.positional) {
		return Entry{}, false
	}
	return r.positional[idx], true
}

func (r *Reader) GetEntryOpt(key string) (Entry, bool) {
	return r.node.Keyed(key)
}

func (r *Reader) NextStringReq() (string, error) { return nextReq(r, asString) }
func (r *Reader) NextStringOpt() (string, bool, error) {
	return nextOpt(r, asString)
}
func (r *Reader) NextIntReq() (int64, error) { return nextReq(r, asInt) }
func (r *Reader) NextIntOpt() (int64, bool, error) {
	return nextOpt(r, asInt)
}
func (r *Reader) NextFloatReq() (float64, error) { return nextReq(r, asFloat) }
func (r *Reader) NextFloatOpt() (float64, bool, error) {
	return nextOpt(r, asFloat)
}
func (r *Reader) NextBoolReq() (bool, error) { return nextReq(r, asBool) }
func (r *Reader) NextBoolOpt() (bool, bool, error) {
	return nextOpt(r, asBool)
}

func (r *Reader) PeekStringReq() (string, error) { return peekReq(r, asString) }
func (r *Reader) PeekStringOpt() (string, bool, error) {
	return peekOpt(r, asString)
}
func (r *Reader) PeekIntReq() (int64, error) { return peekReq(r, asInt) }
func (r *Reader) PeekIntOpt() (int64, bool, error) {
	return peekOpt(r, asInt)
}
func (r *Reader) PeekFloatReq() (float64, error) { return peekReq(r, asFloat) }
func (r *Reader) PeekFloatOpt() (float64, bool, error) {
	return peekOpt(r, asFloat)
}
func (r *Reader) PeekBoolReq() (bool, error) { return peekReq(r, asBool) }
func (r *Reader) PeekBoolOpt() (bool, bool, error) {
	return peekOpt(r, asBool)
}

func (r *Reader) GetStringReq(key string) (string, error) { return getReq(r, key, asString) }
func (r *Reader) GetStringOpt(key string) (string, bool, error) {
	return getOpt(r, key, asString)
}
func (r *Reader) GetIntReq(key string) (int64, error) { return getReq(r, key, asInt) }
func (r *Reader) GetIntOpt(key string) (int64, bool, error) {
	return getOpt(r, key, asInt)
}
func (r *Reader) GetFloatReq(key string) (float64, error) { return getReq(r, key, asFloat) }
func (r *Reader) GetFloatOpt(key string) (float64, bool, error) {
	return getOpt(r, key, asFloat)
}
func (r *Reader) GetBoolReq(key string) (bool, error) { return getReq(r, key, asBool) }
func (r *Reader) GetBoolOpt(key string) (bool, bool, error) {
	return getOpt(r, key, asBool)
}

// NextParsed consumes the next positional string and parses it.
func NextParsed[T any](r *Reader, parse func(string) (T, error)) (T, error) {
	var zero T
	value, err := r.NextStringReq()
	if err != nil {
		return zero, err
	}
	parsed, err := parse(value)
	if err != nil {
		return zero, &Error{Kind: ErrInvalidValue, Node: r.node.Name, Line: r.node.Line, Index: r.ctx.PeekIdx() - 1, Cause: err}
	}
	return parsed, nil
}

// NextParsedOpt is NextParsed that tolerates an absent entry.
func NextParsedOpt[T any](r *Reader, parse func(string) (T, error)) (T, bool, error) {
	var zero T
	value, ok, err := r.NextStringOpt()
	if err != nil || !ok {
		return zero, false, err
	}
	parsed, err := parse(value)
	if err != nil {
		return zero, false, &Error{Kind: ErrInvalidValue, Node: r.node.Name, Line: r.node.Line, Index: r.ctx.PeekIdx() - 1, Cause: err}
	}
	return parsed, true, nil
}

// GetParsedOpt parses a keyed string entry when present.
func GetParsedOpt[T any](r *Reader, key string, parse func(string) (T, error)) (T, bool, error) {
	var zero T
	value, ok, err := r.GetStringOpt(key)
	if err != nil || !ok {
		return zero, false, err
	}
	parsed, err := parse(value)
	if err != nil {
		return zero, false, &Error{Kind: ErrInvalidValue, Node: r.node.Name, Line: r.node.Line, Index: -1, Key: key, Cause: err}
	}
	return parsed, true, nil
}

type coerce[T any] func(Value) (T, bool)

func asString(v Value) (string, bool) {
	return v.Str, v.Kind == KindString
}

func asInt(v Value) (int64, bool) {
	return v.Int, v.Kind == KindInt
}

func asFloat(v Value) (float64, bool) {
	switch v.Kind {
	case KindFloat:
		return v.Float, true
	case KindInt:
		return float64(v.Int), true
	default:
		return 0, false
	}
}

func asBool(v Value) (bool, bool) {
	return v.Bool, v.Kind == KindBool
}

func kindName[T any]() string {
	var zero T
	switch any(zero).(type) {
	case string:
		return "string"
	case int64:
		return "int"
	case float64:
		return "float"
	case bool:
		return "bool"
	default:
		return fmt.Sprintf("%T", zero)
	}
}

func nextOpt[T any](r *Reader, convert coerce[T]) (T, bool, error) {
	var zero T
	idx := r.ctx.PeekIdx()
	if idx >= len(r.positional) {
		return zero, false, nil
	}
	value, ok := convert(r.positional[idx].Value)
	if !ok {
		return zero, false, newError(ErrWrongType, r.node, idx, "", fmt.Sprintf("expected %s, found %s", kindName[T](), r.positional[idx].Value.Kind))
	}
	r.ctx.ConsumeIdx()
	return value, true, nil
}

func nextReq[T any](r *Reader, convert coerce[T]) (T, error) {
	idx := r.ctx.PeekIdx()
	value, ok, err := nextOpt(r, convert)
	if err != nil {
		return value, err
	}
	if !ok {
		return value, newError(ErrMissingValue, r.node, idx, "", fmt.Sprintf("expected %s", kindName[T]()))
	}
	return value, nil
}

func peekOpt[T any](r *Reader, convert coerce[T]) (T, bool, error) {
	var zero T
	idx := r.ctx.PeekIdx()
	if idx >= len(r.positional) {
		return zero, false, nil
	}
	value, ok := convert(r.positional[idx].Value)
	if !ok {
		return zero, false, newError(ErrWrongType, r.node, idx, "", fmt.Sprintf("expected %s, found %s", kindName[T](), r.positional[idx].Value.Kind))
	}
	return value, true, nil
}

func peekReq[T any](r *Reader, convert coerce[T]) (T, error) {
	value, ok, err := peekOpt(r, convert)
	if err != nil {
		return value, err
	}
	if !ok {
		return value, newError(ErrMissingValue, r.node, r.ctx.PeekIdx(), "", fmt.Sprintf("expected %s", kindName[T]()))
	}
	return value, nil
}

func getOpt[T any](r *Reader, key string, convert coerce[T]) (T, bool, error) {
	var zero T
	entry, found := r.node.Keyed(key)
	if !found {
		return zero, false, nil
	}
	value, ok := convert(entry.Value)
	if !ok {
		return zero, false, newError(ErrWrongType, r.node, -1, key, fmt.Sprintf("expected %s, found %s", kindName[T](), entry.Value.Kind))
	}
	return value, true, nil
}

func getReq[T any](r *Reader, key string, convert coerce[T]) (T, error) {
	value, ok, err := getOpt(r, key, convert)
	if err != nil {
		return value, err
	}
	if !ok {
		return value, newError(ErrMissingValue, r.node, -1, key, fmt.Sprintf("expected %s", kindName[T]()))
	}
	return value, nil
}
