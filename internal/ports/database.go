package ports

import (
	"context"

	"sheetforge/internal/types"
)

// DatabasePort is the content store: entries keyed by unversioned source
// id with secondary lookup by (system, category) and metadata criteria.
type DatabasePort interface {
	GetEntry(ctx context.Context, id string) (types.Entry, bool, error)
	QueryEntries(ctx context.Context, query types.Query) ([]types.Entry, error)
	// Mutate commits every put and delete of a transaction, or none of them.
	Mutate(ctx context.Context, tx types.Transaction) error
	Close() error
}

// ModuleRegistryPort records which module revisions are installed.
type ModuleRegistryPort interface {
	GetModule(ctx context.Context, module string, system string) (types.ModuleRecord, bool, error)
	PutModule(ctx context.Context, record types.ModuleRecord) error
	ListModules(ctx context.Context, system string) ([]types.ModuleRecord, error)
}

// StorePort is a database that also tracks installed modules.
type StorePort interface {
	DatabasePort
	ModuleRegistryPort
}
