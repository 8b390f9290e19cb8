// Package cache provides a metadata-only model of a set-associative cache.
//
// A Cache classifies each access as a hit or a miss and keeps read and write
// counters. It stores tags only, never data. A Cache is not safe for
// concurrent use; callers that share one across goroutines must serialize
// the calls.
package cache

import (
	"fmt"
	"strings"

	"github.com/sarchlab/avdcache/mem/cache/internal/tagging"
	"github.com/sarchlab/avdcache/mem/mem"
	"github.com/sarchlab/avdcache/sim/hooking"
)

// A Cache is a single level of cache.
type Cache struct {
	hooking.HookableBase

	name         string
	geometry     Geometry
	policy       Policy
	victimFinder tagging.VictimFinder
	tags         tagging.Tags
	stats        Statistics
	destroyed    bool
}

// New creates a cache with the given geometry and replacement policy name.
func New(geometry Geometry, policyName string) (*Cache, error) {
	return MakeBuilder().
		WithGeometry(geometry).
		WithReplacePolicy(policyName).
		Build("Cache")
}

// Name returns the name of the cache.
func (c *Cache) Name() string {
	return c.name
}

// Geometry returns the current geometry.
func (c *Cache) Geometry() Geometry {
	return c.geometry
}

// Policy returns the replacement policy.
func (c *Cache) Policy() Policy {
	return c.policy
}

// Stats returns a snapshot of the statistics.
func (c *Cache) Stats() Statistics {
	return c.stats
}

// Access looks up the address. On a miss the line is installed, evicting
// another line of the same set if the set is full. It returns whether the
// access hit.
func (c *Cache) Access(addr uint64, accessType mem.AccessType) bool {
	c.mustBeAlive()

	res := c.tags.Access(addr)
	c.stats.Record(accessType, res.Hit)

	c.traceAccess(AccessEvent{
		Address:    addr,
		Type:       accessType,
		Hit:        res.Hit,
		SetID:      res.SetID,
		WayID:      res.WayID,
		Tag:        res.Tag,
		Evicted:    res.HasEvicted,
		EvictedTag: res.Evicted.Tag,
	})

	return res.Hit
}

// Contains tells if the line holding addr is present. It does not count as
// an access and does not change the replacement order.
func (c *Cache) Contains(addr uint64) bool {
	c.mustBeAlive()

	_, found := c.tags.Lookup(addr)

	return found
}

// Resize replaces the geometry. All lines are discarded, statistics are kept.
// If the new geometry is invalid, the cache is left unchanged.
func (c *Cache) Resize(geometry Geometry) error {
	if c.destroyed {
		return ErrDestroyed
	}

	if err := geometry.Validate(); err != nil {
		return err
	}

	c.geometry = geometry
	c.tags = newTags(geometry, c.victimFinder)

	c.traceLifecycle(OpResize)

	return nil
}

// Flush invalidates all the lines. Statistics and geometry are kept.
func (c *Cache) Flush() {
	c.mustBeAlive()

	c.tags.Reset()

	c.traceLifecycle(OpFlush)
}

// ResetStatistics clears the statistics. The content is kept.
func (c *Cache) ResetStatistics() {
	c.mustBeAlive()

	c.stats = Statistics{}

	c.traceLifecycle(OpResetStatistics)
}

// Destroy releases the storage. The cache must not be used afterwards.
func (c *Cache) Destroy() {
	if c.destroyed {
		return
	}

	c.traceLifecycle(OpDestroy)

	c.tags = nil
	c.victimFinder = nil
	c.destroyed = true
}

// Describe renders the geometry and policy.
func (c *Cache) Describe() string {
	g := c.geometry

	b := new(strings.Builder)
	fmt.Fprintf(b, "Cache %s\n", c.name)
	fmt.Fprintf(b, "  Size: %d bytes\n", g.ByteSize)
	fmt.Fprintf(b, "  Line size: %d bytes\n", g.BlockSize)
	fmt.Fprintf(b, "  Associativity: %d\n", g.Associativity)
	fmt.Fprintf(b, "  Sets: %d\n", g.NumSets())
	fmt.Fprintf(b, "  Policy: %s\n", c.policy)

	if c.destroyed {
		fmt.Fprintf(b, "  (destroyed)\n")
	}

	return b.String()
}

func (c *Cache) mustBeAlive() {
	if c.destroyed {
		panic(fmt.Errorf("%s: %w", c.name, ErrDestroyed))
	}
}

func newTags(g Geometry, victimFinder tagging.VictimFinder) tagging.Tags {
	return tagging.NewTags(
		g.NumSets(),
		g.Associativity,
		int(g.BlockSize),
		victimFinder,
	)
}
