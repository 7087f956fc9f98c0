package content

import (
	"context"
	"errors"
	"fmt"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"sheetforge/internal/document"
	"sheetforge/internal/ports"
	"sheetforge/internal/registry"
	"sheetforge/internal/types"
)

// DecodeEntryNode decodes an entry's raw content and selects its node.
func DecodeEntryNode(decoder ports.DocumentDecoderPort, entry types.Entry) (*document.Node, error) {
	id, err := entry.SourceId()
	if err != nil {
		return nil, err
	}
	nodes, err := decoder.Decode(entry.FileID, []byte(entry.RawContent))
	if err != nil {
		return nil, err
	}
	if id.NodeIdx >= len(nodes) {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("entry %s: document has %d nodes, no node %d", entry.ID, len(nodes), id.NodeIdx))
	}
	return nodes[id.NodeIdx], nil
}

// ParseNode parses one top-level node whose identity is id.
func ParseNode(loader *registry.Loader, id types.SourceId, node *document.Node) (Object, error) {
	ctx := document.NewContext(loader, id, true)
	return Parse(document.NewReader(node, ctx))
}

// NewEntry builds the persisted record of a parsed object.
func NewEntry(id types.SourceId, object Object, raw string, fileID string) types.Entry {
	module := ""
	if id.Module != nil {
		module = id.Module.String()
	}
	return types.Entry{
		ID:         id.Key(),
		Module:     module,
		System:     id.System,
		Category:   object.Category(),
		Version:    id.Version,
		Metadata:   object.Metadata(),
		RawContent: raw,
		FileID:     fileID,
	}
}

// Project parses a generated node and encodes it into a standalone entry.
func Project(env GeneratorEnv, id types.SourceId, node *document.Node, fileID string) (types.Entry, error) {
	object, err := ParseNode(env.Loader, id, node)
	if err != nil {
		return types.Entry{}, err
	}
	raw, err := env.Decoder.Encode([]*document.Node{node})
	if err != nil {
		return types.Entry{}, err
	}
	return NewEntry(id, object, string(raw), fileID), nil
}

// Getter is the read side of the content store used by GetTyped.
type Getter interface {
	GetEntry(ctx context.Context, id string) (types.Entry, bool, error)
}

// GetTyped fetches an entry, decodes and parses it, and checks that it is a T.
func GetTyped[T Object](ctx context.Context, db Getter, decoder ports.DocumentDecoderPort, loader *registry.Loader, id types.SourceId) (T, bool, error) {
	var zero T
	entry, ok, err := db.GetEntry(ctx, id.Key())
	if err != nil || !ok {
		return zero, false, err
	}
	node, err := DecodeEntryNode(decoder, entry)
	if err != nil {
		return zero, false, err
	}
	entryID, err := entry.SourceId()
	if err != nil {
		return zero, false, err
	}
	object, err := ParseNode(loader, entryID, node)
	if err != nil {
		return zero, false, err
	}
	typed, ok := object.(T)
	if !ok {
		return zero, false, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("entry %s is a %s, not %T", entry.ID, entry.Category, zero))
	}
	return typed, true, nil
}

// EntriesFromFile parses every top-level node of an authored document into
// entries. base names the file: module, system, path and revision. Every
// entry keeps the whole document as raw content and selects its node by
// index.
//
// A node that fails to parse is left out; the returned error joins one
// failure per such node while the entries of the other nodes are still
// returned. A document that does not decode yields no entries.
func EntriesFromFile(decoder ports.DocumentDecoderPort, loader *registry.Loader, base types.SourceId, raw []byte) ([]types.Entry, error) {
	nodes, err := decoder.Decode(base.Path, raw)
	if err != nil {
		return nil, err
	}
	entries := make([]types.Entry, 0, len(nodes))
	var failures []error
	for i, node := range nodes {
		id := base.WithNode(i)
		object, err := ParseNode(loader, id, node)
		if err != nil {
			failures = append(failures, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("%s: node %d (%s)", base.Path, i, node.Name)).
				WithCause(err))
			continue
		}
		entries = append(entries, NewEntry(id, object, string(raw), base.Path))
	}
	return entries, errors.Join(failures...)
}
