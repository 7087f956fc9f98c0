package content

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"

	"sheetforge/internal/document"
	"sheetforge/internal/ports"
	"sheetforge/internal/registry"
	"sheetforge/internal/types"
)

// Catalog is the read-only view of the content store a generator runs
// against.
type Catalog interface {
	QueryEntries(ctx context.Context, query types.Query) ([]types.Entry, error)
}

// GeneratorEnv is everything a generator may touch while executing.
type GeneratorEnv struct {
	System  string
	Catalog Catalog
	Decoder ports.DocumentDecoderPort
	Loader  *registry.Loader
}

// GeneratorOutput holds follow-up generators and produced variant entries.
type GeneratorOutput struct {
	Generators []*Generator
	Variants   []types.Entry
}

// GeneratorKind is the registered behavior behind a generator node.
type GeneratorKind interface {
	Execute(ctx context.Context, self *Generator, env GeneratorEnv) (GeneratorOutput, error)
}

type Generator struct {
	Header
	Kind     string
	Priority int
	impl     GeneratorKind
}

func (g *Generator) Category() types.Category { return types.CategoryGenerator }

func (g *Generator) Metadata() map[string]any {
	meta := g.metadata()
	meta["kind"] = g.Kind
	meta["priority"] = g.Priority
	return meta
}

func (g *Generator) Execute(ctx context.Context, env GeneratorEnv) (GeneratorOutput, error) {
	return g.impl.Execute(ctx, g, env)
}

// RegisterGeneratorKind registers a generator behavior under id.
func RegisterGeneratorKind(reg *registry.Registry, id string, factory registry.Factory[GeneratorKind]) error {
	return registry.Register(reg, registry.FamilyGenerator, id, factory)
}

// ParseGenerator reads `generator (kind) "name" priority=N { ... }`.
func ParseGenerator(r *document.Reader) (*Generator, error) {
	loader, err := registry.LoaderFrom(r)
	if err != nil {
		return nil, err
	}
	kind, err := registry.KindOf(r, registry.FamilyGenerator)
	if err != nil {
		return nil, err
	}
	header, err := parseHeader(r)
	if err != nil {
		return nil, err
	}
	priority, _, err := r.GetIntOpt("priority")
	if err != nil {
		return nil, err
	}
	factory, err := registry.FactoryFor[GeneratorKind](loader.Registry, registry.FamilyGenerator, kind)
	if err != nil {
		return nil, r.Wrap(err)
	}
	impl, err := factory(r)
	if err != nil {
		return nil, err
	}
	return &Generator{Header: header, Kind: kind, Priority: int(priority), impl: impl}, nil
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Slug lowercases a display name into a path segment.
func Slug(name string) string {
	slug := slugPattern.ReplaceAllString(strings.ToLower(name), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return "unnamed"
	}
	return slug
}

func trimExt(p string) string {
	return strings.TrimSuffix(p, path.Ext(p))
}

// VariantID is the identity of the variant a generator produces from a
// base entry. It depends only on the generator's and base's unversioned
// ids and the variant name, so repeated passes converge on the same id.
func VariantID(generator types.SourceId, base types.SourceId, variant string) types.SourceId {
	basePath := base.Path
	if base.NodeIdx > 0 {
		basePath = fmt.Sprintf("%s.%d", basePath, base.NodeIdx)
	}
	segments := []string{trimExt(generator.Path)}
	if generator.NodeIdx > 0 {
		segments = append(segments, fmt.Sprint(generator.NodeIdx))
	}
	segments = append(segments, Slug(variant), basePath)
	return types.SourceId{
		Module:  generator.Module,
		System:  generator.System,
		Path:    path.Join(segments...),
		Version: generator.Version,
	}
}

// childGeneratorID names an inline child generator below its parent.
func childGeneratorID(parent types.SourceId, name string) types.SourceId {
	id := parent
	id.Path = path.Join(parent.Path, Slug(name))
	if parent.NodeIdx > 0 {
		id.Path = path.Join(parent.Path, fmt.Sprint(parent.NodeIdx), Slug(name))
	}
	id.NodeIdx = 0
	return id
}
