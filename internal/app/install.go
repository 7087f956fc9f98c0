package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"sheetforge/internal/content"
	"sheetforge/internal/core"
	"sheetforge/internal/registry"
	"sheetforge/internal/types"
)

// Install fetches a module revision and replaces the module's authored
// entries in one transaction. Entries of the previous revision that the new
// one no longer declares are deleted. Downgrades need Force.
//
// A node or document that does not parse is skipped with a warning and
// reported in the result's Problems; the rest of the revision still installs.
func (s Service) Install(ctx context.Context, req InstallRequest) (InstallResult, error) {
	if err := s.requireStore(); err != nil {
		return InstallResult{}, err
	}
	module, err := types.ParseModuleId(req.Module)
	if err != nil {
		return InstallResult{}, err
	}
	reg, err := s.registryFor(req.System)
	if err != nil {
		return InstallResult{}, err
	}
	system := reg.System()
	logger := log.Ctx(ctx).With().Str("module", module.String()).Str("system", system).Logger()

	snapshot, err := s.Sources.Fetch(ctx, module, system)
	if err != nil {
		return InstallResult{}, err
	}
	result := InstallResult{Module: module.String(), System: system, Version: snapshot.Version, Files: len(snapshot.Files)}

	installed, ok, err := s.Store.GetModule(ctx, module.String(), system)
	if err != nil {
		return InstallResult{}, err
	}
	if ok {
		result.Previous = installed.Version
		if err := core.CheckUpgrade(installed.Version, snapshot.Version, req.Force); err != nil {
			return InstallResult{}, err
		}
	}

	loader := registry.NewLoader(reg, registry.NewArena())
	var tx types.Transaction
	declared := map[string]struct{}{}
	for _, file := range snapshot.Files {
		base := types.SourceId{Module: &module, System: system, Path: file.Path, Version: snapshot.Version}
		entries, err := content.EntriesFromFile(s.Decoder, loader, base, file.Content)
		if err != nil {
			logger.Warn().Err(err).Str("file", file.Path).Int("kept", len(entries)).Msg("content skipped")
			result.Problems = append(result.Problems, ValidateProblem{Path: file.Path, Message: err.Error()})
		}
		for _, entry := range entries {
			declared[entry.ID] = struct{}{}
		}
		tx.Put = append(tx.Put, entries...)
	}

	previous, err := s.Store.QueryEntries(ctx, types.Query{System: system, Module: module.String(), Origin: types.OriginAuthored})
	if err != nil {
		return InstallResult{}, err
	}
	for _, entry := range previous {
		if _, ok := declared[entry.ID]; !ok {
			tx.Delete = append(tx.Delete, entry.ID)
		}
	}
	if err := s.Store.Mutate(ctx, tx); err != nil {
		return InstallResult{}, err
	}
	if err := s.Store.PutModule(ctx, types.ModuleRecord{Module: module.String(), System: system, Version: snapshot.Version}); err != nil {
		return InstallResult{}, err
	}
	result.Entries = len(tx.Put)
	result.Removed = len(tx.Delete)
	logger.Info().
		Str("version", snapshot.Version).
		Str("previous", result.Previous).
		Int("entries", result.Entries).
		Int("removed", result.Removed).
		Int("problems", len(result.Problems)).
		Msg("module installed")

	if req.Generate {
		report, err := s.Generate(ctx, GenerateRequest{System: system})
		if err != nil {
			return result, err
		}
		result.Generation = &report
	}
	return result, nil
}
