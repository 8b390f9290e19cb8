package hierarchy

import (
	"fmt"

	"github.com/sarchlab/avdcache/mem/cache"
)

// Builder can build two-level hierarchies.
type Builder struct {
	l1 cache.Builder
	l2 cache.Builder
}

// MakeBuilder creates a builder whose levels use the cache defaults.
func MakeBuilder() Builder {
	return Builder{
		l1: cache.MakeBuilder(),
		l2: cache.MakeBuilder(),
	}
}

// WithL1 sets how the first level is built.
func (b Builder) WithL1(l1 cache.Builder) Builder {
	b.l1 = l1
	return b
}

// WithL2 sets how the second level is built.
func (b Builder) WithL2(l2 cache.Builder) Builder {
	b.l2 = l2
	return b
}

// Build builds both levels. The levels are named after the hierarchy, with
// ".L1" and ".L2" appended.
func (b Builder) Build(name string) (*TwoLevel, error) {
	l1, err := b.l1.Build(name + ".L1")
	if err != nil {
		return nil, fmt.Errorf("building L1: %w", err)
	}

	l2, err := b.l2.Build(name + ".L2")
	if err != nil {
		l1.Destroy()
		return nil, fmt.Errorf("building L2: %w", err)
	}

	return NewTwoLevel(name, l1, l2), nil
}
