package hierarchy

import (
	"github.com/sarchlab/avdcache/mem/cache"
	"github.com/sarchlab/avdcache/sim/hooking"
)

// An Aggregator counts end-to-end reads, writes and misses of a hierarchy. A
// reference counts as a miss only if it missed both levels. Attach it to a
// TwoLevel with AcceptHook.
type Aggregator struct {
	stats cache.Statistics
}

// NewAggregator creates an Aggregator with zeroed counters.
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Func counts hierarchy accesses and ignores everything else.
func (a *Aggregator) Func(ctx hooking.HookCtx) {
	if ctx.Pos != HookPosAccess {
		return
	}

	event := ctx.Item.(AccessEvent)
	a.stats.Record(event.Type, event.Outcome.Hit())
}

// Stats returns a snapshot of the end-to-end counters.
func (a *Aggregator) Stats() cache.Statistics {
	return a.stats
}

// Reset zeroes the counters.
func (a *Aggregator) Reset() {
	a.stats = cache.Statistics{}
}
