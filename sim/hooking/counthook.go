package hooking

import (
	"sync"
)

// CountHook counts how many times each hook position is invoked.
type CountHook struct {
	lock     sync.Mutex
	posNames []string
	counts   map[string]uint64
}

// NewCountHook creates a new CountHook
func NewCountHook() *CountHook {
	return &CountHook{
		counts: make(map[string]uint64),
	}
}

// Func counts the invocation.
func (h *CountHook) Func(ctx HookCtx) {
	h.lock.Lock()
	defer h.lock.Unlock()

	name := ctx.Pos.Name

	_, ok := h.counts[name]
	if !ok {
		h.posNames = append(h.posNames, name)
	}

	h.counts[name]++
}

// PosNames returns the names of the positions seen, in the order they were
// first invoked.
func (h *CountHook) PosNames() []string {
	h.lock.Lock()
	defer h.lock.Unlock()

	return append([]string(nil), h.posNames...)
}

// Count returns the number of invocations of the named position.
func (h *CountHook) Count(posName string) uint64 {
	h.lock.Lock()
	defer h.lock.Unlock()

	return h.counts[posName]
}
