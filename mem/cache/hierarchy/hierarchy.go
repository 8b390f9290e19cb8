// Package hierarchy composes two caches into a two-level memory hierarchy.
//
// A reference goes to the first level. Only a first-level miss goes on to the
// second level. Each level keeps its own statistics, so the second level only
// counts references that missed the first level.
//
// No line is copied between levels explicitly. A first-level miss always
// installs the line in the first level as part of that miss, whether the
// second level then hits or misses. A line evicted from the first level stays
// in the second level until the second level evicts it on its own, so the
// hierarchy is neither strictly inclusive nor exclusive.
package hierarchy

import (
	"github.com/sarchlab/avdcache/mem/cache"
	"github.com/sarchlab/avdcache/mem/mem"
	"github.com/sarchlab/avdcache/sim/hooking"
)

// HookPosAccess is invoked after every hierarchy access with an AccessEvent.
var HookPosAccess = &hooking.HookPos{Name: "HierarchyAccess"}

// Outcome tells where a reference was satisfied.
type Outcome int

// Possible outcomes.
const (
	// HitL1 means the first level had the line.
	HitL1 Outcome = iota
	// HitL2 means the first level missed and the second level had the line.
	HitL2
	// Miss means the reference missed both levels.
	Miss
)

// Hit tells if the reference was satisfied without going to memory.
func (o Outcome) Hit() bool {
	return o != Miss
}

func (o Outcome) String() string {
	switch o {
	case HitL1:
		return "L1 hit"
	case HitL2:
		return "L2 hit"
	case Miss:
		return "miss"
	default:
		return "unknown"
	}
}

// AccessEvent describes one access to the hierarchy.
type AccessEvent struct {
	Address uint64
	Type    mem.AccessType
	Outcome Outcome
}

// TwoLevel owns a first-level and a second-level cache. It is not safe for
// concurrent use.
type TwoLevel struct {
	hooking.HookableBase

	name string
	l1   *cache.Cache
	l2   *cache.Cache
}

// NewTwoLevel creates a hierarchy that takes ownership of l1 and l2.
func NewTwoLevel(name string, l1, l2 *cache.Cache) *TwoLevel {
	if l1 == nil || l2 == nil {
		panic("both levels are required")
	}

	if l1 == l2 {
		panic("the two levels must be different caches")
	}

	return &TwoLevel{
		name: name,
		l1:   l1,
		l2:   l2,
	}
}

// Name returns the name of the hierarchy.
func (h *TwoLevel) Name() string {
	return h.name
}

// L1 returns the first-level cache.
func (h *TwoLevel) L1() *cache.Cache {
	return h.l1
}

// L2 returns the second-level cache.
func (h *TwoLevel) L2() *cache.Cache {
	return h.l2
}

// Access sends a reference through the hierarchy and tells if it hit in
// either level.
func (h *TwoLevel) Access(addr uint64, accessType mem.AccessType) bool {
	return h.AccessOutcome(addr, accessType).Hit()
}

// AccessOutcome sends a reference through the hierarchy and tells which level
// satisfied it.
func (h *TwoLevel) AccessOutcome(
	addr uint64,
	accessType mem.AccessType,
) Outcome {
	outcome := Miss

	switch {
	case h.l1.Access(addr, accessType):
		outcome = HitL1
	case h.l2.Access(addr, accessType):
		outcome = HitL2
	}

	if h.NumHooks() > 0 {
		h.InvokeHook(hooking.HookCtx{
			Domain: h,
			Pos:    HookPosAccess,
			Item: AccessEvent{
				Address: addr,
				Type:    accessType,
				Outcome: outcome,
			},
		})
	}

	return outcome
}

// Flush invalidates both levels.
func (h *TwoLevel) Flush() {
	h.l1.Flush()
	h.l2.Flush()
}

// ResetStatistics clears the statistics of both levels.
func (h *TwoLevel) ResetStatistics() {
	h.l1.ResetStatistics()
	h.l2.ResetStatistics()
}

// Describe renders both levels.
func (h *TwoLevel) Describe() string {
	return h.l1.Describe() + h.l2.Describe()
}

// Destroy destroys both levels.
func (h *TwoLevel) Destroy() {
	h.l1.Destroy()
	h.l2.Destroy()
}
