package adapters

import (
	"path"
	"strings"

	"sheetforge/internal/document"
	"sheetforge/internal/ports"
	"sheetforge/internal/types"
)

// MultiDocumentAdapter picks a decoder by file extension. Generated
// variants and names without a known extension use the primary decoder,
// which also encodes.
type MultiDocumentAdapter struct {
	primary ports.DocumentDecoderPort
	byExt   map[string]ports.DocumentDecoderPort
}

func NewMultiDocumentAdapter(primary ports.DocumentDecoderPort, others ...ports.DocumentDecoderPort) MultiDocumentAdapter {
	adapter := MultiDocumentAdapter{primary: primary, byExt: map[string]ports.DocumentDecoderPort{}}
	for _, decoder := range append([]ports.DocumentDecoderPort{primary}, others...) {
		for _, ext := range decoder.Extensions() {
			if _, taken := adapter.byExt[ext]; !taken {
				adapter.byExt[ext] = decoder
			}
		}
	}
	return adapter
}

// NewDefaultDocumentAdapter reads YAML and HCL and encodes YAML.
func NewDefaultDocumentAdapter() MultiDocumentAdapter {
	return NewMultiDocumentAdapter(NewYAMLDocumentAdapter(), NewHCLDocumentAdapter())
}

func (a MultiDocumentAdapter) Extensions() []string {
	out := make([]string, 0, len(a.byExt))
	for ext := range a.byExt {
		out = append(out, ext)
	}
	return out
}

// Supports reports whether a file name has a registered extension.
func (a MultiDocumentAdapter) Supports(name string) bool {
	_, ok := a.byExt[strings.ToLower(path.Ext(name))]
	return ok
}

func (a MultiDocumentAdapter) decoderFor(name string) ports.DocumentDecoderPort {
	if strings.HasPrefix(name, types.GeneratedFilePrefix) {
		return a.primary
	}
	if decoder, ok := a.byExt[strings.ToLower(path.Ext(name))]; ok {
		return decoder
	}
	return a.primary
}

func (a MultiDocumentAdapter) Decode(name string, content []byte) ([]*document.Node, error) {
	return a.decoderFor(name).Decode(name, content)
}

func (a MultiDocumentAdapter) Encode(nodes []*document.Node) ([]byte, error) {
	return a.primary.Encode(nodes)
}
