package app

import (
	"fmt"
	"slices"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"sheetforge/internal/adapters"
	"sheetforge/internal/ports"
	"sheetforge/internal/registry"
	"sheetforge/internal/systems/dnd5e"
)

// SystemFactory builds the frozen registry of one content system.
type SystemFactory func() (*registry.Registry, error)

// DocumentDecoder is a decoder that can tell which file names it reads.
type DocumentDecoder interface {
	ports.DocumentDecoderPort
	Supports(name string) bool
}

type Service struct {
	Store      ports.StorePort
	Sources    ports.ModuleSourcePort
	Decoder    DocumentDecoder
	Characters adapters.CharacterFileAdapter
	Systems    map[string]SystemFactory
}

// NewService wires the default adapters around store. Modules are read
// from moduleRoot.
func NewService(store ports.StorePort, moduleRoot string) Service {
	decoder := adapters.NewDefaultDocumentAdapter()
	return Service{
		Store:      store,
		Sources:    adapters.NewLocalModuleSource(moduleRoot, decoder.Supports),
		Decoder:    decoder,
		Characters: adapters.NewCharacterFileAdapter(),
		Systems: map[string]SystemFactory{
			dnd5e.ID: dnd5e.NewRegistry,
		},
	}
}

func (s Service) registryFor(system string) (*registry.Registry, error) {
	system = strings.TrimSpace(system)
	if system == "" {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("content system is required")
	}
	factory, ok := s.Systems[system]
	if !ok {
		known := make([]string, 0, len(s.Systems))
		for id := range s.Systems {
			known = append(known, id)
		}
		slices.Sort(known)
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("unknown content system %q (known: %s)", system, strings.Join(known, ", ")))
	}
	return factory()
}

func (s Service) requireStore() error {
	if s.Store == nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("content store is not configured")
	}
	return nil
}
