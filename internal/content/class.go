package content

import (
	"slices"

	"sheetforge/internal/document"
	"sheetforge/internal/types"
)

// Class grants mutators per level. Class-wide mutators apply once, before
// the level blocks.
type Class struct {
	Header
	HitDie   int
	Mutators Mutators
	Levels   map[int]Mutators
}

func (c *Class) Category() types.Category { return types.CategoryClass }

// LevelNumbers lists the levels with content, ascending.
func (c *Class) LevelNumbers() []int {
	levels := make([]int, 0, len(c.Levels))
	for level := range c.Levels {
		levels = append(levels, level)
	}
	slices.Sort(levels)
	return levels
}

// MutatorsUpTo returns the class-wide mutators followed by those of levels
// 1..level in order.
func (c *Class) MutatorsUpTo(level int) Mutators {
	out := slices.Clone(c.Mutators)
	for _, n := range c.LevelNumbers() {
		if n > level {
			break
		}
		out = append(out, c.Levels[n]...)
	}
	return out
}

func (c *Class) Metadata() map[string]any {
	meta := c.metadata()
	meta["hit_die"] = c.HitDie
	levels := make([]any, 0, len(c.Levels))
	for _, n := range c.LevelNumbers() {
		levels = append(levels, n)
	}
	meta["levels"] = levels
	return meta
}

func ParseClass(r *document.Reader) (*Class, error) {
	header, err := parseHeader(r)
	if err != nil {
		return nil, err
	}
	hitDie, err := r.GetIntReq("hit_die")
	if err != nil {
		return nil, err
	}
	mutators, err := parseMutators(r)
	if err != nil {
		return nil, err
	}
	class := &Class{Header: header, HitDie: int(hitDie), Mutators: mutators, Levels: map[int]Mutators{}}
	for level := range r.ChildrenNamed("level") {
		n, err := level.NextIntReq()
		if err != nil {
			return nil, err
		}
		if n < 1 || n > 20 {
			return nil, level.Errorf(document.ErrInvalidValue, "level %d out of range 1..20", n)
		}
		if _, dup := class.Levels[int(n)]; dup {
			return nil, level.Errorf(document.ErrInvalidValue, "level %d declared twice", n)
		}
		levelMutators, err := parseMutators(level)
		if err != nil {
			return nil, err
		}
		class.Levels[int(n)] = levelMutators
	}
	return class, nil
}
