package app

import (
	"context"

	"sheetforge/internal/core"
)

// Generate runs one generator pass over every installed module of a system.
func (s Service) Generate(ctx context.Context, req GenerateRequest) (core.PassReport, error) {
	if err := s.requireStore(); err != nil {
		return core.PassReport{}, err
	}
	reg, err := s.registryFor(req.System)
	if err != nil {
		return core.PassReport{}, err
	}
	pass := core.NewGeneratorPass(s.Store, s.Decoder, reg)
	pass.DryRun = req.DryRun
	if req.MaxProcessed > 0 {
		pass.MaxProcessed = req.MaxProcessed
	}
	return pass.Run(ctx, reg.System())
}
