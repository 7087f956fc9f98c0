package core

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"sheetforge/internal/content"
	"sheetforge/internal/ports"
	"sheetforge/internal/registry"
	"sheetforge/internal/types"
)

const defaultMaxProcessed = 10000

func sortIDs(ids []types.SourceId) {
	slices.SortFunc(ids, func(a, b types.SourceId) int { return a.Compare(b) })
}

// Queue is the work list of one generator pass. Seeds run by priority,
// highest first, then by unversioned id; generators emitted while draining
// run after everything already queued, in emission order.
type Queue struct {
	items     []*content.Generator
	processed int
}

func NewQueue(seeds []*content.Generator) *Queue {
	items := slices.Clone(seeds)
	slices.SortStableFunc(items, func(a, b *content.Generator) int {
		if byPriority := cmp.Compare(b.Priority, a.Priority); byPriority != 0 {
			return byPriority
		}
		return cmp.Compare(a.ID.Key(), b.ID.Key())
	})
	return &Queue{items: items}
}

func (q *Queue) Push(generators ...*content.Generator) {
	q.items = append(q.items, generators...)
}

// Pop removes the next generator and counts it as processed.
func (q *Queue) Pop() (*content.Generator, bool) {
	if len(q.items) == 0 {
		return nil, false
	}
	next := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	q.processed++
	return next, true
}

func (q *Queue) Len() int {
	return len(q.items)
}

func (q *Queue) Processed() int {
	return q.processed
}

type VariantChange int

const (
	VariantUnchanged VariantChange = iota
	VariantAdded
	VariantUpdated
)

func (c VariantChange) String() string {
	switch c {
	case VariantAdded:
		return "added"
	case VariantUpdated:
		return "updated"
	default:
		return "unchanged"
	}
}

// VariantDiff is what a pass must write: puts for added and updated
// variants, deletes for stale keys.
type VariantDiff struct {
	Added   []types.Entry
	Updated []types.Entry
	Stale   []string
}

func (d VariantDiff) Transaction() types.Transaction {
	tx := types.Transaction{Delete: slices.Clone(d.Stale)}
	tx.Put = append(tx.Put, d.Added...)
	tx.Put = append(tx.Put, d.Updated...)
	return tx
}

func (d VariantDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Updated) == 0 && len(d.Stale) == 0
}

// VariantCache compares the variants a pass emits against those persisted
// by earlier passes. Identity is the entry's unversioned id.
type VariantCache struct {
	previous map[string]types.Entry
	emitted  map[string]types.Entry
	changes  map[string]VariantChange
}

func NewVariantCache(previous []types.Entry) *VariantCache {
	cache := &VariantCache{
		previous: make(map[string]types.Entry, len(previous)),
		emitted:  map[string]types.Entry{},
		changes:  map[string]VariantChange{},
	}
	for _, entry := range previous {
		cache.previous[entry.Key()] = entry
	}
	return cache
}

// Observe records an emitted variant. Emitting the same id twice in one
// pass keeps the later entry.
func (c *VariantCache) Observe(entry types.Entry) VariantChange {
	key := entry.Key()
	change := VariantAdded
	if previous, ok := c.previous[key]; ok {
		change = VariantUpdated
		if sameEntry(previous, entry) {
			change = VariantUnchanged
		}
	}
	c.emitted[key] = entry
	c.changes[key] = change
	return change
}

// Diff partitions the pass result. Every previous variant that was not
// emitted again is stale.
func (c *VariantCache) Diff() VariantDiff {
	var diff VariantDiff
	for _, key := range sortedKeys(c.emitted) {
		switch c.changes[key] {
		case VariantAdded:
			diff.Added = append(diff.Added, c.emitted[key])
		case VariantUpdated:
			diff.Updated = append(diff.Updated, c.emitted[key])
		}
	}
	for _, key := range sortedKeys(c.previous) {
		if _, ok := c.emitted[key]; !ok {
			diff.Stale = append(diff.Stale, key)
		}
	}
	return diff
}

func sortedKeys(entries map[string]types.Entry) []string {
	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

// sameEntry compares entries field by field; metadata is compared in its
// JSON form since stored metadata comes back with float64 numbers.
func sameEntry(a, b types.Entry) bool {
	if a.ID != b.ID || a.Module != b.Module || a.System != b.System || a.Category != b.Category ||
		a.Version != b.Version || a.RawContent != b.RawContent || a.FileID != b.FileID {
		return false
	}
	left, err := json.Marshal(a.Metadata)
	if err != nil {
		return false
	}
	right, err := json.Marshal(b.Metadata)
	if err != nil {
		return false
	}
	return bytes.Equal(left, right)
}

// PassReport summarizes one generator pass.
type PassReport struct {
	System    string   `json:"system"`
	Seeds     int      `json:"seeds"`
	Processed int      `json:"processed"`
	Failed    int      `json:"failed"`
	Added     []string `json:"added"`
	Updated   []string `json:"updated"`
	Stale     []string `json:"stale"`
}

// GeneratorPass regenerates every variant of a system. Passes for the same
// system are serialized.
type GeneratorPass struct {
	Store        ports.DatabasePort
	Decoder      ports.DocumentDecoderPort
	Registry     *registry.Registry
	MaxProcessed int
	DryRun       bool

	locks sync.Map
}

func NewGeneratorPass(store ports.DatabasePort, decoder ports.DocumentDecoderPort, reg *registry.Registry) *GeneratorPass {
	return &GeneratorPass{Store: store, Decoder: decoder, Registry: reg, MaxProcessed: defaultMaxProcessed}
}

func (p *GeneratorPass) lock(system string) func() {
	value, _ := p.locks.LoadOrStore(system, &sync.Mutex{})
	mu := value.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Run drains the generator queue of a system and commits the variant diff
// in one transaction once the queue is empty. Variants written by this pass
// are never visible to its own generators.
func (p *GeneratorPass) Run(ctx context.Context, system string) (PassReport, error) {
	if p.Store == nil || p.Decoder == nil || p.Registry == nil {
		return PassReport{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("generator pass requires store, decoder and registry")
	}
	unlock := p.lock(system)
	defer unlock()

	logger := log.Ctx(ctx).With().Str("system", system).Logger()
	ctx = logger.WithContext(ctx)
	arena := registry.NewArena()
	loader := registry.NewLoader(p.Registry, arena)

	seeds, err := p.seeds(ctx, system, loader)
	if err != nil {
		return PassReport{}, err
	}
	previous, err := p.Store.QueryEntries(ctx, types.Query{System: system, Origin: types.OriginGenerated})
	if err != nil {
		return PassReport{}, storeError("load persisted variants", err)
	}

	cache := NewVariantCache(previous)
	queue := NewQueue(seeds)
	env := content.GeneratorEnv{System: system, Catalog: p.Store, Decoder: p.Decoder, Loader: loader}
	report := PassReport{System: system, Seeds: len(seeds)}

	limit := cmp.Or(p.MaxProcessed, defaultMaxProcessed)
	for {
		generator, ok := queue.Pop()
		if !ok {
			break
		}
		if queue.Processed() > limit {
			return PassReport{}, errbuilder.New().
				WithCode(errbuilder.CodeFailedPrecondition).
				WithMsg(fmt.Sprintf("generator pass for %s exceeded %d generators; generators likely emit each other in a cycle", system, limit))
		}
		output, err := execute(ctx, generator, env)
		if err != nil {
			report.Failed++
			logger.Warn().Err(err).Str("generator", generator.ID.String()).Msg("generator failed; output dropped")
			continue
		}
		queue.Push(output.Generators...)
		for _, variant := range output.Variants {
			cache.Observe(variant)
		}
	}
	arena.Seal()
	report.Processed = queue.Processed()

	diff := cache.Diff()
	for _, entry := range diff.Added {
		report.Added = append(report.Added, entry.ID)
	}
	for _, entry := range diff.Updated {
		report.Updated = append(report.Updated, entry.ID)
	}
	report.Stale = diff.Stale

	if !diff.Empty() && !p.DryRun {
		if err := p.Store.Mutate(ctx, diff.Transaction()); err != nil {
			return PassReport{}, storeError("commit variants", err)
		}
	}
	logger.Info().
		Int("processed", report.Processed).
		Int("failed", report.Failed).
		Int("added", len(report.Added)).
		Int("updated", len(report.Updated)).
		Int("stale", len(report.Stale)).
		Bool("dry_run", p.DryRun).
		Msg("generator pass complete")
	return report, nil
}

// seeds parses every authored generator entry; broken ones are skipped.
func (p *GeneratorPass) seeds(ctx context.Context, system string, loader *registry.Loader) ([]*content.Generator, error) {
	entries, err := p.Store.QueryEntries(ctx, types.Query{System: system, Category: types.CategoryGenerator})
	if err != nil {
		return nil, storeError("load generators", err)
	}
	var out []*content.Generator
	for _, entry := range entries {
		generator, err := parseGenerator(p.Decoder, loader, entry)
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("generator", entry.ID).Msg("generator does not parse; skipped")
			continue
		}
		out = append(out, generator)
	}
	return out, nil
}

func parseGenerator(decoder ports.DocumentDecoderPort, loader *registry.Loader, entry types.Entry) (*content.Generator, error) {
	id, err := entry.SourceId()
	if err != nil {
		return nil, err
	}
	node, err := content.DecodeEntryNode(decoder, entry)
	if err != nil {
		return nil, err
	}
	object, err := content.ParseNode(loader, id, node)
	if err != nil {
		return nil, err
	}
	generator, ok := object.(*content.Generator)
	if !ok {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("entry %s is a %s, not a generator", entry.ID, object.Category()))
	}
	return generator, nil
}

// execute runs one generator; a panic counts as a failure.
func execute(ctx context.Context, generator *content.Generator, env content.GeneratorEnv) (output content.GeneratorOutput, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg(fmt.Sprintf("generator %s panicked: %v", generator.ID, recovered))
		}
	}()
	return generator.Execute(ctx, env)
}

func storeError(action string, err error) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg(action).
		WithCause(err)
}
