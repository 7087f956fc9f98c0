package registry

import (
	"fmt"
	"sync"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"sheetforge/internal/document"
)

// Handle indexes a parsed implementation inside an Arena.
type Handle uint32

type arenaSlot struct {
	id   string
	node *document.Node
	impl any
}

// Arena owns every mutator and evaluator parsed for one module load.
// Slots are append-only; once sealed, the arena rejects new slots and is
// shared read-only by the objects holding handles into it.
type Arena struct {
	mu     sync.RWMutex
	slots  []arenaSlot
	sealed bool
}

func NewArena() *Arena {
	return &Arena{}
}

func (a *Arena) add(id string, node *document.Node, impl any) (Handle, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sealed {
		return 0, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(fmt.Sprintf("arena is sealed; cannot add %q", id))
	}
	a.slots = append(a.slots, arenaSlot{id: id, node: node, impl: impl})
	return Handle(len(a.slots) - 1), nil
}

func (a *Arena) slot(h Handle) arenaSlot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.slots[h]
}

// Seal freezes the arena after a module load completes.
func (a *Arena) Seal() {
	a.mu.Lock()
	a.sealed = true
	a.mu.Unlock()
}

func (a *Arena) Sealed() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.sealed
}

func (a *Arena) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.slots)
}
