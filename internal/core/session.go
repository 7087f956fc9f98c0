package core

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"sheetforge/internal/stats"
	"sheetforge/internal/types"
)

// Edit changes the persistent state of a character.
type Edit func(*types.Persistent)

// Session owns one character and keeps its derived stats current. At most
// one compile runs at a time; edits that arrive meanwhile are queued and
// replayed together against the next snapshot.
type Session struct {
	resolver Resolver
	compiler Compiler

	mu       sync.Mutex
	current  types.Persistent
	derived  stats.Derived
	missing  []types.SourceId
	revision uint64
	inFlight bool
	pending  []Edit
	idle     chan struct{}
}

func NewSession(resolver Resolver, compiler Compiler, character types.Persistent) *Session {
	return &Session{resolver: resolver, compiler: compiler, current: character.Clone()}
}

// Snapshot returns the latest committed state and the number of compiles
// committed so far.
func (s *Session) Snapshot() (types.Persistent, stats.Derived, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone(), s.derived, s.revision
}

// Missing lists content the last compile could not load.
func (s *Session) Missing() []types.SourceId {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.SourceId(nil), s.missing...)
}

// Update applies edits and recompiles. If a compile is already running the
// edits are queued for it and Update returns true at once. Otherwise the
// caller runs compiles until no edits remain queued. A started compile is
// not cancelled by ctx.
func (s *Session) Update(ctx context.Context, edits ...Edit) (bool, error) {
	s.mu.Lock()
	if s.inFlight {
		s.pending = append(s.pending, edits...)
		s.mu.Unlock()
		return true, nil
	}
	s.inFlight = true
	s.idle = make(chan struct{})
	s.mu.Unlock()

	return false, s.drain(context.WithoutCancel(ctx), edits)
}

// finish ends the busy period; the caller holds s.mu.
func (s *Session) finish() {
	s.inFlight = false
	s.pending = nil
	close(s.idle)
}

func (s *Session) drain(ctx context.Context, edits []Edit) error {
	for {
		s.mu.Lock()
		next := s.current.Clone()
		s.mu.Unlock()
		for _, edit := range edits {
			edit(&next)
		}

		resolved, err := s.resolver.Resolve(ctx, next)
		if err != nil {
			s.mu.Lock()
			queued := len(s.pending)
			s.finish()
			s.mu.Unlock()
			log.Ctx(ctx).Error().Err(err).Int("dropped_edits", queued).Msg("recompile failed")
			return err
		}
		derived := s.compiler.Compile(ctx, resolved)

		s.mu.Lock()
		s.current = next
		s.derived = derived
		s.missing = resolved.Missing
		s.revision++
		edits = s.pending
		s.pending = nil
		if len(edits) == 0 {
			s.finish()
			s.mu.Unlock()
			return nil
		}
		s.mu.Unlock()

		log.Ctx(ctx).Debug().Int("edits", len(edits)).Msg("replaying queued edits")
	}
}

// Wait blocks until no compile is in flight.
func (s *Session) Wait(ctx context.Context) error {
	s.mu.Lock()
	if !s.inFlight {
		s.mu.Unlock()
		return nil
	}
	idle := s.idle
	s.mu.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
