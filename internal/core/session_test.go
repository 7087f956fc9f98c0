package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sheetforge/internal/adapters"
	"sheetforge/internal/content"
	"sheetforge/internal/types"
)

// gatedGetter holds the first lookup until release is closed.
type gatedGetter struct {
	content.Getter
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedGetter) GetEntry(ctx context.Context, id string) (types.Entry, bool, error) {
	g.once.Do(func() {
		close(g.entered)
		<-g.release
	})
	return g.Getter.GetEntry(ctx, id)
}

func newTestSession(t *testing.T, db content.Getter) *Session {
	t.Helper()
	resolver := NewResolver(db, adapters.NewDefaultDocumentAdapter(), testRegistry(t))
	return NewSession(resolver, NewCompiler(), fighter())
}

func TestSessionUpdateCompiles(t *testing.T) {
	reg := testRegistry(t)
	session := newTestSession(t, seedStore(t, reg, characterFiles))

	queued, err := session.Update(t.Context(), func(p *types.Persistent) {
		p.Select("class/Fighter/level/1/skill", "intimidation")
	})
	require.NoError(t, err)
	assert.False(t, queued)

	character, derived, revision := session.Snapshot()
	assert.Equal(t, uint64(1), revision)
	assert.Equal(t, "intimidation", character.SelectedValues["class/Fighter/level/1/skill"])
	assert.Empty(t, derived.MissingSelections)
	assert.Empty(t, session.Missing())
}

func TestSessionQueuesEditsDuringCompile(t *testing.T) {
	reg := testRegistry(t)
	gate := &gatedGetter{
		Getter:  seedStore(t, reg, characterFiles),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	session := newTestSession(t, gate)

	firstDone := make(chan error, 1)
	go func() {
		_, err := session.Update(context.Background(), func(p *types.Persistent) { p.Name = "first" })
		firstDone <- err
	}()

	select {
	case <-gate.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("first compile never reached the store")
	}

	queued, err := session.Update(t.Context(),
		func(p *types.Persistent) { p.Name = "second" },
		func(p *types.Persistent) { p.Conditions = append(p.Conditions, ref("conditions/hasted.yaml")) },
	)
	require.NoError(t, err)
	assert.True(t, queued)

	close(gate.release)
	require.NoError(t, <-firstDone)
	require.NoError(t, session.Wait(t.Context()))

	character, derived, revision := session.Snapshot()
	assert.Equal(t, uint64(2), revision)
	assert.Equal(t, "second", character.Name)
	assert.Len(t, character.Conditions, 1)
	assert.Equal(t, 20, derived.ArmorClass())
}

func TestSessionReportsMissingContent(t *testing.T) {
	reg := testRegistry(t)
	session := newTestSession(t, seedStore(t, reg, characterFiles))

	_, err := session.Update(t.Context(), func(p *types.Persistent) {
		p.Bundles = []types.SourceId{ref("feats/missing.yaml")}
	})
	require.NoError(t, err)
	assert.Equal(t, []types.SourceId{ref("feats/missing.yaml")}, session.Missing())
}

func TestSessionSnapshotIsIsolated(t *testing.T) {
	reg := testRegistry(t)
	session := newTestSession(t, seedStore(t, reg, characterFiles))

	character, _, _ := session.Snapshot()
	character.AbilityScores[types.AbilityStrength] = 3
	character.Select("lineage/Elf/bonus", "str")

	again, _, revision := session.Snapshot()
	assert.Equal(t, uint64(0), revision)
	assert.Equal(t, 16, again.AbilityScores[types.AbilityStrength])
	assert.Equal(t, "con", again.SelectedValues["lineage/Elf/bonus"])
	require.NoError(t, session.Wait(t.Context()))
}
