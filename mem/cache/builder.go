package cache

import "github.com/sarchlab/avdcache/mem/mem"

// Builder can build caches.
type Builder struct {
	byteSize         uint64
	blockSize        uint64
	wayAssociativity int
	replacePolicy    string
	seed             uint64
}

// MakeBuilder creates a new builder. By default it builds a 16 KB, 4-way
// LRU cache with 64-byte lines.
func MakeBuilder() Builder {
	return Builder{
		byteSize:         16 * mem.KB,
		blockSize:        64,
		wayAssociativity: 4,
		replacePolicy:    string(LRU),
	}
}

// WithByteSize sets the capacity of the cache.
func (b Builder) WithByteSize(byteSize uint64) Builder {
	b.byteSize = byteSize
	return b
}

// WithBlockSize sets the cache line size.
func (b Builder) WithBlockSize(blockSize uint64) Builder {
	b.blockSize = blockSize
	return b
}

// WithWayAssociativity sets the number of ways in each set.
func (b Builder) WithWayAssociativity(wayAssociativity int) Builder {
	b.wayAssociativity = wayAssociativity
	return b
}

// WithGeometry sets the capacity, line size and associativity at once.
func (b Builder) WithGeometry(g Geometry) Builder {
	b.byteSize = g.ByteSize
	b.blockSize = g.BlockSize
	b.wayAssociativity = g.Associativity

	return b
}

// WithReplacePolicy sets the replacement policy by name. One of "LRU",
// "FIFO" and "RANDOM".
func (b Builder) WithReplacePolicy(name string) Builder {
	b.replacePolicy = name
	return b
}

// WithSeed sets the seed of the random replacement policy.
func (b Builder) WithSeed(seed uint64) Builder {
	b.seed = seed
	return b
}

// Geometry returns the geometry the builder is configured with.
func (b Builder) Geometry() Geometry {
	return Geometry{
		ByteSize:      b.byteSize,
		BlockSize:     b.blockSize,
		Associativity: b.wayAssociativity,
	}
}

// Build builds a cache. Nothing is allocated unless the configuration is
// valid.
func (b Builder) Build(name string) (*Cache, error) {
	geometry := b.Geometry()
	if err := geometry.Validate(); err != nil {
		return nil, err
	}

	policy, err := ParsePolicy(b.replacePolicy)
	if err != nil {
		return nil, err
	}

	c := &Cache{
		name:         name,
		geometry:     geometry,
		policy:       policy,
		victimFinder: createVictimFinder(policy, b.seed),
	}
	c.tags = newTags(geometry, c.victimFinder)

	return c, nil
}
