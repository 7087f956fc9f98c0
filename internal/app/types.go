package app

import (
	"sheetforge/internal/core"
	"sheetforge/internal/stats"
	"sheetforge/internal/types"
)

type ValidateRequest struct {
	Path   string
	System string
}

type ValidateProblem struct {
	Path    string
	Message string
}

type ValidateResult struct {
	Files    int
	Entries  int
	Problems []ValidateProblem
}

type InstallRequest struct {
	Module   string
	System   string
	Force    bool
	Generate bool
}

type InstallResult struct {
	Module     string
	System     string
	Version    string
	Previous   string
	Files      int
	Entries    int
	Removed    int
	Problems   []ValidateProblem
	Generation *core.PassReport
}

type GenerateRequest struct {
	System       string
	DryRun       bool
	MaxProcessed int
}

type CompileRequest struct {
	CharacterPath string
	Select        map[string]string
	Unselect      []string
	Write         bool
}

type CompileResult struct {
	Character types.Persistent
	Derived   stats.Derived
	Missing   []types.SourceId
	Hints     []string
}

type QueryRequest struct {
	System   string
	Category string
	Module   string
	Origin   string
	Name     string
	Where    string
}

type QueryResult struct {
	Entries []types.Entry
}

type ModulesRequest struct {
	System string
}

type ModulesResult struct {
	Modules []types.ModuleRecord
}
