package document

import (
	"sheetforge/internal/types"
)

// Context is the per-node parse state threaded through recursive descent.
// The positional cursor belongs to exactly one node; NextNode derives a
// fresh context for every child so sibling cursors never alias.
type Context struct {
	idx           int
	system        any
	root          types.SourceId
	inheritSource bool
}

// NewContext starts a top-level document parse. system is the opaque
// content-system handle the registry package stores and retrieves.
func NewContext(system any, root types.SourceId, inheritSource bool) *Context {
	return &Context{system: system, root: root, inheritSource: inheritSource}
}

// ConsumeIdx returns the cursor and advances it.
func (c *Context) ConsumeIdx() int {
	idx := c.idx
	c.idx++
	return idx
}

// PeekIdx returns the cursor without advancing it.
func (c *Context) PeekIdx() int {
	return c.idx
}

// NextNode derives the context for a child node.
func (c *Context) NextNode() *Context {
	return &Context{system: c.system, root: c.root, inheritSource: c.inheritSource}
}

// WithRoot derives a context whose root id points at another top-level node.
func (c *Context) WithRoot(root types.SourceId) *Context {
	return &Context{system: c.system, root: root, inheritSource: c.inheritSource}
}

func (c *Context) System() any {
	return c.system
}

func (c *Context) Root() types.SourceId {
	return c.root
}

func (c *Context) InheritSource() bool {
	return c.inheritSource
}

// ParseSourceOpt resolves the node's origin: an explicit `source` child or
// keyed entry wins (resolved relative to the root), otherwise the root id is
// inherited when the context allows it.
func (c *Context) ParseSourceOpt(r *Reader) (types.SourceId, bool, error) {
	raw, ok := "", false
	if entry, found := r.node.Keyed("source"); found {
		if entry.Value.Kind != KindString {
			return types.SourceId{}, false, newError(ErrWrongType, r.node, -1, "source", "expected string")
		}
		raw, ok = entry.Value.Str, true
	}
	for _, child := range r.node.ChildrenNamed("source") {
		positional := child.Positional()
		if len(positional) == 0 || positional[0].Value.Kind != KindString {
			return types.SourceId{}, false, newError(ErrMissingValue, child, 0, "", "source requires an id")
		}
		raw, ok = positional[0].Value.Str, true
	}
	if ok {
		id, err := types.ParseSourceId(raw)
		if err != nil {
			return types.SourceId{}, false, &Error{Kind: ErrInvalidValue, Node: r.node.Name, Line: r.node.Line, Index: -1, Key: "source", Cause: err}
		}
		return id.WithRelativeBasis(c.root), true, nil
	}
	if c.inheritSource {
		return c.root, true, nil
	}
	return types.SourceId{}, false, nil
}

func (c *Context) ParseSourceReq(r *Reader) (types.SourceId, error) {
	id, ok, err := c.ParseSourceOpt(r)
	if err != nil {
		return types.SourceId{}, err
	}
	if !ok {
		return types.SourceId{}, newError(ErrMissingValue, r.node, -1, "source", "node declares no source and does not inherit one")
	}
	return id, nil
}
