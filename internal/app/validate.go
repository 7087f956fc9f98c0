package app

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"sheetforge/internal/content"
	"sheetforge/internal/registry"
	"sheetforge/internal/types"
)

// Validate parses every content document under Path without touching the
// store. Problems are reported per file; the error is set when any file
// fails.
func (s Service) Validate(ctx context.Context, req ValidateRequest) (ValidateResult, error) {
	root := strings.TrimSpace(req.Path)
	if root == "" {
		return ValidateResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("content path is required")
	}
	reg, err := s.registryFor(req.System)
	if err != nil {
		return ValidateResult{}, err
	}
	files, err := s.contentFiles(root)
	if err != nil {
		return ValidateResult{}, err
	}

	loader := registry.NewLoader(reg, registry.NewArena())
	result := ValidateResult{}
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return ValidateResult{}, err
		}
		raw, err := os.ReadFile(file.abs)
		if err != nil {
			return ValidateResult{}, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg(fmt.Sprintf("failed to read %s", file.rel)).
				WithCause(err)
		}
		base := types.SourceId{System: reg.System(), Path: file.rel}
		entries, err := content.EntriesFromFile(s.Decoder, loader, base, raw)
		result.Files++
		result.Entries += len(entries)
		if err != nil {
			result.Problems = append(result.Problems, ValidateProblem{Path: file.rel, Message: err.Error()})
		}
	}
	log.Ctx(ctx).Debug().
		Int("files", result.Files).
		Int("entries", result.Entries).
		Int("problems", len(result.Problems)).
		Msg("content validated")
	if len(result.Problems) > 0 {
		return result, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("%d of %d files failed validation", len(result.Problems), result.Files))
	}
	return result, nil
}

type contentFile struct {
	abs string
	rel string
}

// contentFiles lists decodable files below root, or root itself when it is
// a file.
func (s Service) contentFiles(root string) ([]contentFile, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("content path %s not found", root)).
			WithCause(err)
	}
	if !info.IsDir() {
		return []contentFile{{abs: root, rel: filepath.ToSlash(filepath.Base(root))}}, nil
	}
	var files []contentFile
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !s.Decoder.Supports(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, contentFile{abs: path, rel: filepath.ToSlash(rel)})
		return nil
	})
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to walk content path").
			WithCause(err)
	}
	return files, nil
}
