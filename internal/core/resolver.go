package core

import (
	"context"
	"sync"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"sheetforge/internal/content"
	"sheetforge/internal/ports"
	"sheetforge/internal/registry"
	"sheetforge/internal/types"
)

const defaultResolveWorkers = 4

// Resolver fetches and parses everything a character references so the
// compiler can run without touching storage.
type Resolver struct {
	DB       content.Getter
	Decoder  ports.DocumentDecoderPort
	Registry *registry.Registry
	Workers  int
}

type ResolvedClass struct {
	Class *content.Class
	Level int
}

type ResolvedItem struct {
	Item *content.Item
	Ref  types.ItemRef
}

// ResolvedCharacter is a character with its references replaced by parsed
// objects. Missing lists references that could not be loaded.
type ResolvedCharacter struct {
	Persistent types.Persistent
	Lineage    *content.Bundle
	Upbringing *content.Bundle
	Background *content.Bundle
	Classes    []ResolvedClass
	Items      []ResolvedItem
	Conditions []*content.Condition
	Bundles    []*content.Bundle
	Missing    []types.SourceId
	Arena      *registry.Arena
}

func NewResolver(db content.Getter, decoder ports.DocumentDecoderPort, reg *registry.Registry) Resolver {
	return Resolver{DB: db, Decoder: decoder, Registry: reg, Workers: defaultResolveWorkers}
}

type fetchJob struct {
	id    types.SourceId
	store func(content.Object) bool
}

// Resolve loads every referenced object. Content that is missing or fails
// to parse is logged and skipped; only cancellation aborts.
func (r Resolver) Resolve(ctx context.Context, character types.Persistent) (ResolvedCharacter, error) {
	if r.DB == nil || r.Decoder == nil || r.Registry == nil {
		return ResolvedCharacter{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("resolver requires store, decoder and registry")
	}
	resolved := ResolvedCharacter{
		Persistent: character.Clone(),
		Classes:    make([]ResolvedClass, len(character.Classes)),
		Items:      make([]ResolvedItem, len(character.Inventory)),
		Conditions: make([]*content.Condition, len(character.Conditions)),
		Bundles:    make([]*content.Bundle, len(character.Bundles)),
		Arena:      registry.NewArena(),
	}
	jobs := r.jobs(&resolved, character)
	loader := registry.NewLoader(r.Registry, resolved.Arena)

	missing, err := r.run(ctx, loader, jobs)
	if err != nil {
		return ResolvedCharacter{}, err
	}
	resolved.Arena.Seal()
	resolved.Missing = missing
	resolved.Classes = compact(resolved.Classes, func(c ResolvedClass) bool { return c.Class != nil })
	resolved.Items = compact(resolved.Items, func(i ResolvedItem) bool { return i.Item != nil })
	resolved.Conditions = compact(resolved.Conditions, func(c *content.Condition) bool { return c != nil })
	resolved.Bundles = compact(resolved.Bundles, func(b *content.Bundle) bool { return b != nil })
	return resolved, nil
}

func bundleInto(target **content.Bundle) func(content.Object) bool {
	return func(object content.Object) bool {
		bundle, ok := object.(*content.Bundle)
		*target = bundle
		return ok
	}
}

func (r Resolver) jobs(resolved *ResolvedCharacter, character types.Persistent) []fetchJob {
	var jobs []fetchJob
	for _, ref := range []struct {
		id     *types.SourceId
		target **content.Bundle
	}{
		{character.Lineage, &resolved.Lineage},
		{character.Upbringing, &resolved.Upbringing},
		{character.Background, &resolved.Background},
	} {
		if ref.id != nil {
			jobs = append(jobs, fetchJob{id: *ref.id, store: bundleInto(ref.target)})
		}
	}
	for i, class := range character.Classes {
		jobs = append(jobs, fetchJob{id: class.ID, store: func(object content.Object) bool {
			parsed, ok := object.(*content.Class)
			resolved.Classes[i] = ResolvedClass{Class: parsed, Level: class.Level}
			return ok
		}})
	}
	for i, ref := range character.Inventory {
		jobs = append(jobs, fetchJob{id: ref.ID, store: func(object content.Object) bool {
			parsed, ok := object.(*content.Item)
			resolved.Items[i] = ResolvedItem{Item: parsed, Ref: ref}
			return ok
		}})
	}
	for i, id := range character.Conditions {
		jobs = append(jobs, fetchJob{id: id, store: func(object content.Object) bool {
			parsed, ok := object.(*content.Condition)
			resolved.Conditions[i] = parsed
			return ok
		}})
	}
	for i, id := range character.Bundles {
		jobs = append(jobs, fetchJob{id: id, store: bundleInto(&resolved.Bundles[i])})
	}
	return jobs
}

// run fetches jobs on a bounded worker pool. Each job writes only its own
// slot, so results need no locking.
func (r Resolver) run(ctx context.Context, loader *registry.Loader, jobs []fetchJob) ([]types.SourceId, error) {
	workerCount := min(max(r.Workers, 1), len(jobs))
	if workerCount == 0 {
		return nil, nil
	}
	tasks := make(chan int)
	results := make(chan *types.SourceId, len(jobs))
	var wg sync.WaitGroup
	for range workerCount {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range tasks {
				if ctx.Err() != nil {
					results <- nil
					continue
				}
				results <- r.fetch(ctx, loader, jobs[i])
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()
	for i := range jobs {
		tasks <- i
	}
	close(tasks)

	var missing []types.SourceId
	for id := range results {
		if id != nil {
			missing = append(missing, *id)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sortIDs(missing)
	return missing, nil
}

// fetch loads one job and returns its id when it could not be resolved.
func (r Resolver) fetch(ctx context.Context, loader *registry.Loader, job fetchJob) *types.SourceId {
	logger := log.Ctx(ctx).With().Str("source", job.id.String()).Logger()
	object, ok, err := content.GetTyped[content.Object](ctx, r.DB, r.Decoder, loader, job.id)
	switch {
	case err != nil:
		logger.Warn().Err(err).Msg("referenced content failed to load; skipped")
		return &job.id
	case !ok:
		logger.Warn().Msg("referenced content not found; skipped")
		return &job.id
	case !job.store(object):
		logger.Warn().Str("category", string(object.Category())).Msg("referenced content has the wrong category; skipped")
		return &job.id
	}
	return nil
}

func compact[T any](items []T, keep func(T) bool) []T {
	out := items[:0]
	for _, item := range items {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}
