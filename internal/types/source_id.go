package types

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
)

type ModuleKind string

const (
	ModuleKindLocal  ModuleKind = "local"
	ModuleKindGithub ModuleKind = "github"
)

// ModuleId names the module a piece of content was installed from.
type ModuleId struct {
	Kind ModuleKind
	Name string
	Org  string
	Repo string
}

func LocalModule(name string) ModuleId {
	return ModuleId{Kind: ModuleKindLocal, Name: name}
}

func GithubModule(org, repo string) ModuleId {
	return ModuleId{Kind: ModuleKindGithub, Org: org, Repo: repo}
}

func (m ModuleId) String() string {
	switch m.Kind {
	case ModuleKindGithub:
		return fmt.Sprintf("github://%s/%s", m.Org, m.Repo)
	default:
		return fmt.Sprintf("local://%s", m.Name)
	}
}

func ParseModuleId(value string) (ModuleId, error) {
	trimmed := strings.TrimSpace(value)
	switch {
	case strings.HasPrefix(trimmed, "local://"):
		name := strings.TrimPrefix(trimmed, "local://")
		if name == "" || strings.Contains(name, "/") {
			return ModuleId{}, invalidSourceId(value, "local module name must be a single segment")
		}
		return LocalModule(name), nil
	case strings.HasPrefix(trimmed, "github://"):
		parts := strings.Split(strings.TrimPrefix(trimmed, "github://"), "/")
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return ModuleId{}, invalidSourceId(value, "github module must be org/repo")
		}
		return GithubModule(parts[0], parts[1]), nil
	default:
		return ModuleId{}, invalidSourceId(value, "unknown module scheme")
	}
}

// SourceId identifies the origin of a piece of content. Two ids differing
// only in Version are revisions of the same logical content.
type SourceId struct {
	Module  *ModuleId
	System  string
	Path    string
	Version string
	NodeIdx int
}

// ParseSourceId accepts the canonical form
// `<module>@<system>/<path>?version=<v>#<idx>` as well as bare relative paths.
func ParseSourceId(value string) (SourceId, error) {
	rest := strings.TrimSpace(value)
	if rest == "" {
		return SourceId{}, invalidSourceId(value, "empty source id")
	}
	var id SourceId
	if hash := strings.LastIndex(rest, "#"); hash >= 0 {
		idx, err := strconv.Atoi(rest[hash+1:])
		if err != nil || idx < 0 {
			return SourceId{}, invalidSourceId(value, "node index must be a non-negative integer")
		}
		id.NodeIdx = idx
		rest = rest[:hash]
	}
	if q := strings.Index(rest, "?"); q >= 0 {
		query := rest[q+1:]
		rest = rest[:q]
		if !strings.HasPrefix(query, "version=") {
			return SourceId{}, invalidSourceId(value, "only the version query is supported")
		}
		id.Version = strings.TrimPrefix(query, "version=")
	}
	if strings.Contains(rest, "://") {
		at := strings.Index(rest, "@")
		if at < 0 {
			return SourceId{}, invalidSourceId(value, "missing @system separator")
		}
		module, err := ParseModuleId(rest[:at])
		if err != nil {
			return SourceId{}, err
		}
		id.Module = &module
		rest = rest[at+1:]
		slash := strings.Index(rest, "/")
		if slash <= 0 {
			return SourceId{}, invalidSourceId(value, "missing system segment")
		}
		id.System = rest[:slash]
		rest = rest[slash+1:]
	}
	if rest == "" {
		return SourceId{}, invalidSourceId(value, "missing path")
	}
	id.Path = rest
	return id, nil
}

func MustParseSourceId(value string) SourceId {
	id, err := ParseSourceId(value)
	if err != nil {
		panic(err)
	}
	return id
}

func (s SourceId) String() string {
	var builder strings.Builder
	if s.Module != nil {
		builder.WriteString(s.Module.String())
		builder.WriteString("@")
		builder.WriteString(s.System)
		builder.WriteString("/")
	}
	builder.WriteString(s.Path)
	if s.Version != "" {
		builder.WriteString("?version=")
		builder.WriteString(s.Version)
	}
	if s.NodeIdx != 0 {
		builder.WriteString("#")
		builder.WriteString(strconv.Itoa(s.NodeIdx))
	}
	return builder.String()
}

// IsRelative reports whether the id still needs a basis to be located.
func (s SourceId) IsRelative() bool {
	return s.Module == nil
}

// Unversioned strips the version so the id can serve as a stable dedup key.
func (s SourceId) Unversioned() SourceId {
	s.Version = ""
	return s
}

// Key is the cache identity of the content: the unversioned canonical string.
func (s SourceId) Key() string {
	return s.Unversioned().String()
}

// WithNode returns the id of another top-level node of the same document.
func (s SourceId) WithNode(idx int) SourceId {
	s.NodeIdx = idx
	return s
}

// WithRelativeBasis resolves a relative id against the document it was
// declared in. Absolute ids are returned unchanged.
func (s SourceId) WithRelativeBasis(basis SourceId) SourceId {
	if !s.IsRelative() {
		return s
	}
	resolved := s
	resolved.Module = basis.Module
	resolved.System = basis.System
	if resolved.Version == "" {
		resolved.Version = basis.Version
	}
	switch {
	case strings.HasPrefix(s.Path, "/"):
		resolved.Path = strings.TrimPrefix(path.Clean(s.Path), "/")
	case strings.HasPrefix(s.Path, "./") || strings.HasPrefix(s.Path, "../"):
		resolved.Path = strings.TrimPrefix(path.Clean(path.Join(path.Dir(basis.Path), s.Path)), "/")
	default:
		resolved.Path = path.Clean(s.Path)
	}
	return resolved
}

func (s SourceId) Equal(other SourceId) bool {
	return s.Compare(other) == 0
}

// Compare orders ids structurally: module, system, path, version, node index.
func (s SourceId) Compare(other SourceId) int {
	if c := strings.Compare(moduleKey(s.Module), moduleKey(other.Module)); c != 0 {
		return c
	}
	if c := strings.Compare(s.System, other.System); c != 0 {
		return c
	}
	if c := strings.Compare(s.Path, other.Path); c != 0 {
		return c
	}
	if c := strings.Compare(s.Version, other.Version); c != 0 {
		return c
	}
	switch {
	case s.NodeIdx < other.NodeIdx:
		return -1
	case s.NodeIdx > other.NodeIdx:
		return 1
	default:
		return 0
	}
}

func (s SourceId) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *SourceId) UnmarshalText(data []byte) error {
	parsed, err := ParseSourceId(string(data))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func moduleKey(module *ModuleId) string {
	if module == nil {
		return ""
	}
	return module.String()
}

func invalidSourceId(value string, reason string) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(fmt.Sprintf("invalid source id %q: %s", value, reason))
}
