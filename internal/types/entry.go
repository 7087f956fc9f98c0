package types

import "strings"

type Category string

const (
	CategoryBundle    Category = "bundle"
	CategoryClass     Category = "class"
	CategoryItem      Category = "item"
	CategoryCondition Category = "condition"
	CategoryGenerator Category = "generator"
)

// GeneratedFilePrefix marks the FileID of entries produced by a generator
// rather than authored in a module file.
const GeneratedFilePrefix = "generated:"

// Entry is the persisted unit of content. ID is the unversioned source id;
// Version carries the revision. Metadata is a JSON projection of the parsed
// object used for criteria filtering without a re-parse.
type Entry struct {
	ID         string         `json:"id"`
	Module     string         `json:"module"`
	System     string         `json:"system"`
	Category   Category       `json:"category"`
	Version    string         `json:"version"`
	Metadata   map[string]any `json:"metadata"`
	RawContent string         `json:"raw_content"`
	FileID     string         `json:"file_id,omitempty"`
}

// SourceId returns the versioned id of the entry.
func (e Entry) SourceId() (SourceId, error) {
	id, err := ParseSourceId(e.ID)
	if err != nil {
		return SourceId{}, err
	}
	id.Version = e.Version
	return id, nil
}

// Key is the unversioned identity of the entry.
func (e Entry) Key() string {
	id, err := ParseSourceId(e.ID)
	if err != nil {
		return e.ID
	}
	return id.Key()
}

// IsGenerated reports whether the entry is a generator variant.
func (e Entry) IsGenerated() bool {
	return strings.HasPrefix(e.FileID, GeneratedFilePrefix)
}

// GeneratedBy returns the key of the generator that produced the entry.
func (e Entry) GeneratedBy() string {
	return strings.TrimPrefix(e.FileID, GeneratedFilePrefix)
}

// Transaction groups writes so they are committed together.
type Transaction struct {
	Put    []Entry
	Delete []string
}

func (t Transaction) Empty() bool {
	return len(t.Put) == 0 && len(t.Delete) == 0
}

// ModuleRecord tracks which revision of a module is installed for a system.
type ModuleRecord struct {
	Module  string `json:"module"`
	System  string `json:"system"`
	Version string `json:"version"`
}

// Origin filters entries by how they were produced.
type Origin int

const (
	OriginAny Origin = iota
	OriginAuthored
	OriginGenerated
)

// Query selects entries of one system. Empty fields do not filter.
type Query struct {
	System   string
	Category Category
	Module   string
	Origin   Origin
	Criteria *Criteria
}

// Matches applies the query in memory.
func (q Query) Matches(entry Entry) bool {
	if q.System != "" && entry.System != q.System {
		return false
	}
	if q.Category != "" && entry.Category != q.Category {
		return false
	}
	if q.Module != "" && entry.Module != q.Module {
		return false
	}
	switch q.Origin {
	case OriginAuthored:
		if entry.IsGenerated() {
			return false
		}
	case OriginGenerated:
		if !entry.IsGenerated() {
			return false
		}
	}
	return q.Criteria == nil || q.Criteria.MatchesEntry(entry)
}
