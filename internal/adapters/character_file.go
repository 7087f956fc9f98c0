package adapters

import (
	"os"
	"path/filepath"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"gopkg.in/yaml.v3"

	"sheetforge/internal/types"
)

// CharacterFileAdapter loads and saves the persistent state of a character
// as YAML.
type CharacterFileAdapter struct{}

func NewCharacterFileAdapter() CharacterFileAdapter {
	return CharacterFileAdapter{}
}

func (a CharacterFileAdapter) Load(path string) (types.Persistent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Persistent{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("character file not found").
			WithCause(err)
	}
	var character types.Persistent
	if err := yaml.Unmarshal(data, &character); err != nil {
		return types.Persistent{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to parse character yaml").
			WithCause(err)
	}
	if character.System == "" {
		return types.Persistent{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("character system is required")
	}
	return character, nil
}

func (a CharacterFileAdapter) Save(path string, character types.Persistent) error {
	data, err := yaml.Marshal(character)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to encode character").
			WithCause(err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create character directory").
			WithCause(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write character file").
			WithCause(err)
	}
	return nil
}
