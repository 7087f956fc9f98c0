package adapters

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"sheetforge/internal/ports"
	"sheetforge/internal/types"
)

const versionFile = "VERSION"

// LocalModuleSource reads modules from a directory laid out as
// <root>/<module>/<system>/**. The module revision is the first line of
// <root>/<module>/VERSION, or a content hash when that file is absent.
type LocalModuleSource struct {
	Root     string
	Supports func(name string) bool
}

func NewLocalModuleSource(root string, supports func(name string) bool) LocalModuleSource {
	return LocalModuleSource{Root: root, Supports: supports}
}

func (s LocalModuleSource) Fetch(ctx context.Context, module types.ModuleId, system string) (ports.ModuleSnapshot, error) {
	if module.Kind != types.ModuleKindLocal {
		return ports.ModuleSnapshot{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("module %s is not a local module", module))
	}
	if strings.TrimSpace(s.Root) == "" {
		return ports.ModuleSnapshot{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("module root is empty")
	}
	moduleDir := filepath.Join(s.Root, module.Name)
	systemDir := filepath.Join(moduleDir, system)
	if info, err := os.Stat(systemDir); err != nil || !info.IsDir() {
		return ports.ModuleSnapshot{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("module %s has no content for system %s", module, system)).
			WithCause(err)
	}

	var files []ports.ModuleFile
	err := filepath.WalkDir(systemDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != systemDir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if s.Supports != nil && !s.Supports(d.Name()) {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(systemDir, path)
		if err != nil {
			return err
		}
		files = append(files, ports.ModuleFile{Path: filepath.ToSlash(rel), Content: content})
		return nil
	})
	if err != nil {
		return ports.ModuleSnapshot{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("failed to read module %s", module)).
			WithCause(err)
	}
	slices.SortFunc(files, func(a, b ports.ModuleFile) int { return strings.Compare(a.Path, b.Path) })

	version, err := readVersion(moduleDir)
	if err != nil {
		return ports.ModuleSnapshot{}, err
	}
	if version == "" {
		version = contentHash(files)
	}
	return ports.ModuleSnapshot{Module: module, System: system, Version: version, Files: files}, nil
}

func readVersion(moduleDir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(moduleDir, versionFile))
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read module version").
			WithCause(err)
	}
	line, _, _ := strings.Cut(string(data), "\n")
	return strings.TrimSpace(line), nil
}

// contentHash is an opaque revision: it changes with any file but does not
// order against other revisions.
func contentHash(files []ports.ModuleFile) string {
	h := sha256.New()
	for _, file := range files {
		h.Write([]byte(file.Path))
		h.Write([]byte{0})
		h.Write(file.Content)
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:12]
}
