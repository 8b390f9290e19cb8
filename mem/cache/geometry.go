package cache

import (
	"math/bits"

	"github.com/sarchlab/avdcache/mem/cache/internal/tagging"
)

// MaxStorageBytes bounds the memory the tag array of a single cache may take.
const MaxStorageBytes = 1 << 30

// Geometry describes the shape of a set-associative cache.
type Geometry struct {
	// ByteSize is the total capacity in bytes.
	ByteSize uint64
	// BlockSize is the number of bytes in a cache line.
	BlockSize uint64
	// Associativity is the number of ways in each set.
	Associativity int
}

// NumSets returns the number of sets. It is only meaningful for a geometry
// that passes Validate.
func (g Geometry) NumSets() int {
	return int(g.ByteSize / (g.BlockSize * uint64(g.Associativity)))
}

// StorageBytes estimates the memory taken by the tag array of a cache with
// this geometry. It is only meaningful for a geometry whose sets divide the
// size evenly.
func (g Geometry) StorageBytes() uint64 {
	ways := uint64(g.Associativity)
	return tagging.StorageBytes(g.ByteSize/(g.BlockSize*ways), ways)
}

// Validate checks that the geometry can be used to build a cache.
func (g Geometry) Validate() error {
	if g.ByteSize == 0 {
		return &ConstructionError{Field: "size", Value: 0, Err: ErrNonPositive}
	}

	if g.BlockSize == 0 {
		return &ConstructionError{Field: "line size", Value: 0, Err: ErrNonPositive}
	}

	if g.Associativity <= 0 {
		return &ConstructionError{
			Field: "associativity",
			Value: int64(g.Associativity),
			Err:   ErrNonPositive,
		}
	}

	if !isPowerOfTwo(g.BlockSize) {
		return &ConstructionError{
			Field: "line size",
			Value: int64(g.BlockSize),
			Err:   ErrNotPowerOfTwo,
		}
	}

	if !isPowerOfTwo(uint64(g.Associativity)) {
		return &ConstructionError{
			Field: "associativity",
			Value: int64(g.Associativity),
			Err:   ErrNotPowerOfTwo,
		}
	}

	hi, setSize := bits.Mul64(g.BlockSize, uint64(g.Associativity))
	if hi != 0 || g.ByteSize%setSize != 0 {
		return &ConstructionError{
			Field: "size",
			Value: int64(g.ByteSize),
			Err:   ErrNonMultipleSize,
		}
	}

	numSets := g.ByteSize / setSize
	if !isPowerOfTwo(numSets) {
		return &ConstructionError{
			Field: "sets",
			Value: int64(numSets),
			Err:   ErrNotPowerOfTwo,
		}
	}

	if storage := g.StorageBytes(); storage > MaxStorageBytes {
		return &AllocationError{
			Blocks: g.ByteSize / g.BlockSize,
			Bytes:  storage,
		}
	}

	return nil
}

// Decode returns the set an address maps to and the tag of its line.
func (g Geometry) Decode(addr uint64) (setID int, tag uint64) {
	return tagging.Decode(
		addr,
		uint(bits.TrailingZeros64(g.BlockSize)),
		uint(bits.TrailingZeros64(uint64(g.NumSets()))),
	)
}

func isPowerOfTwo(n uint64) bool {
	return n != 0 && n&(n-1) == 0
}
