package app

import (
	"context"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"sheetforge/internal/core"
	"sheetforge/internal/types"
)

// Compile loads a character file, applies selection edits and compiles the
// sheet against installed content. With Write the edited character is
// saved back.
func (s Service) Compile(ctx context.Context, req CompileRequest) (CompileResult, error) {
	if err := s.requireStore(); err != nil {
		return CompileResult{}, err
	}
	path := strings.TrimSpace(req.CharacterPath)
	if path == "" {
		return CompileResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("character path is required")
	}
	character, err := s.Characters.Load(path)
	if err != nil {
		return CompileResult{}, err
	}
	reg, err := s.registryFor(character.System)
	if err != nil {
		return CompileResult{}, err
	}

	session := core.NewSession(core.NewResolver(s.Store, s.Decoder, reg), core.NewCompiler(), character)
	if _, err := session.Update(ctx, selectionEdits(req)...); err != nil {
		return CompileResult{}, err
	}
	current, derived, _ := session.Snapshot()
	result := CompileResult{Character: current, Derived: derived, Missing: session.Missing()}
	result.Hints = compileHints(result)

	if req.Write && (len(req.Select) > 0 || len(req.Unselect) > 0) {
		if err := s.Characters.Save(path, current); err != nil {
			return CompileResult{}, err
		}
	}
	return result, nil
}

func selectionEdits(req CompileRequest) []core.Edit {
	var edits []core.Edit
	for _, path := range req.Unselect {
		edits = append(edits, func(p *types.Persistent) { p.Unselect(path) })
	}
	for path, value := range req.Select {
		edits = append(edits, func(p *types.Persistent) { p.Select(path, value) })
	}
	return edits
}
