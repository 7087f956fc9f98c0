package ports

import "sheetforge/internal/document"

// DocumentDecoderPort turns document text into top-level nodes. Encode is
// the inverse used to persist generated variants.
type DocumentDecoderPort interface {
	Extensions() []string
	Decode(name string, content []byte) ([]*document.Node, error)
	Encode(nodes []*document.Node) ([]byte, error)
}
