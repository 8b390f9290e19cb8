package cache

import (
	"github.com/sarchlab/avdcache/mem/mem"
	"github.com/sarchlab/avdcache/sim/hooking"
)

// Hook positions invoked by a Cache.
var (
	// HookPosAccess is invoked after every access with an AccessEvent.
	HookPosAccess = &hooking.HookPos{Name: "CacheAccess"}

	// HookPosLifecycle is invoked after a resize, flush, statistics reset
	// or destroy with a LifecycleEvent.
	HookPosLifecycle = &hooking.HookPos{Name: "CacheLifecycle"}
)

// AccessEvent describes one access to a cache.
type AccessEvent struct {
	Address    uint64
	Type       mem.AccessType
	Hit        bool
	SetID      int
	WayID      int
	Tag        uint64
	Evicted    bool
	EvictedTag uint64
}

// LifecycleOp names a state transition of a cache.
type LifecycleOp string

// Lifecycle operations.
const (
	OpResize          LifecycleOp = "resize"
	OpFlush           LifecycleOp = "flush"
	OpResetStatistics LifecycleOp = "reset_statistics"
	OpDestroy         LifecycleOp = "destroy"
)

// LifecycleEvent describes a state transition of a cache.
type LifecycleEvent struct {
	Op       LifecycleOp
	Geometry Geometry
}

func (c *Cache) traceAccess(event AccessEvent) {
	if c.NumHooks() == 0 {
		return
	}

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    HookPosAccess,
		Item:   event,
	})
}

func (c *Cache) traceLifecycle(op LifecycleOp) {
	if c.NumHooks() == 0 {
		return
	}

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    HookPosLifecycle,
		Item: LifecycleEvent{
			Op:       op,
			Geometry: c.geometry,
		},
	})
}
