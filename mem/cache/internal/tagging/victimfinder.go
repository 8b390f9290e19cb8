package tagging

import "math/rand/v2"

// A VictimFinder decides which block should be evicted and keeps the
// per-set bookkeeping that the decision depends on.
type VictimFinder interface {
	// Visit is called when a lookup hits wayID.
	Visit(set *Set, wayID int)

	// Fill is called after a miss has installed a new line in wayID.
	Fill(set *Set, wayID int)

	// FindVictim picks the way to evict from a set that has no invalid way.
	FindVictim(set *Set) int
}

// LRUVictimFinder evicts the least recently used block.
type LRUVictimFinder struct {
}

// NewLRUVictimFinder returns a newly constructed lru evictor.
func NewLRUVictimFinder() *LRUVictimFinder {
	e := new(LRUVictimFinder)
	return e
}

// Visit makes the way the most recently used.
func (e *LRUVictimFinder) Visit(set *Set, wayID int) {
	set.MoveToBack(wayID)
}

// Fill makes the newly filled way the most recently used.
func (e *LRUVictimFinder) Fill(set *Set, wayID int) {
	set.MoveToBack(wayID)
}

// FindVictim returns the least recently used way in a set.
func (e *LRUVictimFinder) FindVictim(set *Set) int {
	return set.LRUQueue[0]
}

// FIFOVictimFinder evicts the block that was filled the earliest. Hits do not
// change the eviction order.
type FIFOVictimFinder struct {
}

// NewFIFOVictimFinder returns a newly constructed fifo evictor.
func NewFIFOVictimFinder() *FIFOVictimFinder {
	return &FIFOVictimFinder{}
}

// Visit does nothing.
func (e *FIFOVictimFinder) Visit(_ *Set, _ int) {
}

// Fill stamps the way with the current fill time of the set.
func (e *FIFOVictimFinder) Fill(set *Set, wayID int) {
	set.Blocks[wayID].FillTime = set.NextFillTime()
}

// FindVictim returns the way with the oldest fill time.
func (e *FIFOVictimFinder) FindVictim(set *Set) int {
	victim := 0
	for i := 1; i < len(set.Blocks); i++ {
		if set.Blocks[i].FillTime < set.Blocks[victim].FillTime {
			victim = i
		}
	}

	return victim
}

// RandomVictimFinder evicts a uniformly chosen way.
type RandomVictimFinder struct {
	rng *rand.Rand
}

// NewRandomVictimFinder returns a random evictor. Two evictors created with
// the same seed evict the same sequence of ways.
func NewRandomVictimFinder(seed uint64) *RandomVictimFinder {
	return &RandomVictimFinder{
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Visit does nothing.
func (e *RandomVictimFinder) Visit(_ *Set, _ int) {
}

// Fill does nothing.
func (e *RandomVictimFinder) Fill(_ *Set, _ int) {
}

// FindVictim returns a random way.
func (e *RandomVictimFinder) FindVictim(set *Set) int {
	return e.rng.IntN(len(set.Blocks))
}
