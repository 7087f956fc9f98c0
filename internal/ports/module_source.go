package ports

import (
	"context"

	"sheetforge/internal/types"
)

// ModuleFile is one content document of a module snapshot.
type ModuleFile struct {
	Path    string
	Content []byte
}

// ModuleSnapshot is a version-stamped set of files for one module and system.
type ModuleSnapshot struct {
	Module  types.ModuleId
	System  string
	Version string
	Files   []ModuleFile
}

// ModuleSourcePort supplies module content; it is any versioned blob store.
type ModuleSourcePort interface {
	Fetch(ctx context.Context, module types.ModuleId, system string) (ModuleSnapshot, error)
}
