package adapters

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"sheetforge/internal/types"
)

// MemoryStore keeps content in process. It backs tests and dry runs.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]types.Entry
	modules map[string]types.ModuleRecord
}

func NewMemoryStore(entries ...types.Entry) *MemoryStore {
	store := &MemoryStore{entries: map[string]types.Entry{}, modules: map[string]types.ModuleRecord{}}
	for _, entry := range entries {
		store.entries[entry.ID] = copyEntry(entry)
	}
	return store
}

func copyEntry(entry types.Entry) types.Entry {
	entry.Metadata = maps.Clone(entry.Metadata)
	return entry
}

func moduleKey(module string, system string) string {
	return module + "\x00" + system
}

func (s *MemoryStore) GetEntry(ctx context.Context, id string) (types.Entry, bool, error) {
	if err := ctx.Err(); err != nil {
		return types.Entry{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[id]
	if !ok {
		return types.Entry{}, false, nil
	}
	return copyEntry(entry), true, nil
}

func (s *MemoryStore) QueryEntries(ctx context.Context, query types.Query) ([]types.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []types.Entry
	for _, entry := range s.entries {
		if query.Matches(entry) {
			out = append(out, copyEntry(entry))
		}
	}
	slices.SortFunc(out, func(a, b types.Entry) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

func (s *MemoryStore) Mutate(ctx context.Context, tx types.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, entry := range tx.Put {
		if strings.TrimSpace(entry.ID) == "" {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("entry id is required")
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range tx.Delete {
		delete(s.entries, id)
	}
	for _, entry := range tx.Put {
		s.entries[entry.ID] = copyEntry(entry)
	}
	return nil
}

func (s *MemoryStore) GetModule(ctx context.Context, module string, system string) (types.ModuleRecord, bool, error) {
	if err := ctx.Err(); err != nil {
		return types.ModuleRecord{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.modules[moduleKey(module, system)]
	return record, ok, nil
}

func (s *MemoryStore) PutModule(ctx context.Context, record types.ModuleRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modules[moduleKey(record.Module, record.System)] = record
	return nil
}

func (s *MemoryStore) ListModules(ctx context.Context, system string) ([]types.ModuleRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []types.ModuleRecord
	for _, record := range s.modules {
		if system == "" || record.System == system {
			out = append(out, record)
		}
	}
	slices.SortFunc(out, func(a, b types.ModuleRecord) int {
		return strings.Compare(moduleKey(a.Module, a.System), moduleKey(b.Module, b.System))
	})
	return out, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
