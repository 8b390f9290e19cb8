// Package tagging holds the tag array of a set-associative cache and the
// replacement policies that manage it.
package tagging

import (
	"math"
	"math/bits"
	"unsafe"
)

// Per-line and per-set heap cost of a tag array, as laid out by NewTagArray.
const (
	BytesPerBlock = uint64(unsafe.Sizeof(Block{}) + unsafe.Sizeof(int(0)))
	BytesPerSet   = uint64(unsafe.Sizeof(Set{}))
)

// StorageBytes estimates the memory a tag array of numSets sets and numWays
// ways holds. It saturates at math.MaxUint64.
func StorageBytes(numSets, numWays uint64) uint64 {
	hi, numBlocks := bits.Mul64(numSets, numWays)
	if hi != 0 {
		return math.MaxUint64
	}

	hi, blockBytes := bits.Mul64(numBlocks, BytesPerBlock)
	if hi != 0 {
		return math.MaxUint64
	}

	hi, setBytes := bits.Mul64(numSets, BytesPerSet)
	if hi != 0 {
		return math.MaxUint64
	}

	total, carry := bits.Add64(blockBytes, setBytes, 0)
	if carry != 0 {
		return math.MaxUint64
	}

	return total
}

// Decode splits an address into the set it maps to and the tag that tells
// lines in that set apart. Both the block size and the number of sets must be
// powers of two, given here as their log2.
func Decode(addr uint64, log2BlockSize, log2NumSets uint) (setID int, tag uint64) {
	lineAddr := addr >> log2BlockSize
	setID = int(lineAddr & (uint64(1)<<log2NumSets - 1))
	tag = lineAddr >> log2NumSets

	return setID, tag
}

// A Block of a cache is the information that is associated with a cache line.
type Block struct {
	Tag      uint64
	SetID    int
	WayID    int
	IsValid  bool
	FillTime uint64
}

// A Set is a list of blocks where a certain piece of memory can be stored at.
type Set struct {
	Blocks []Block

	// LRUQueue lists way IDs from the least recently touched to the most
	// recently touched.
	LRUQueue []int

	fillCount uint64
}

// FirstInvalid returns the lowest way that holds no line, or -1 if the set is
// full.
func (s *Set) FirstInvalid() int {
	for i := range s.Blocks {
		if !s.Blocks[i].IsValid {
			return i
		}
	}

	return -1
}

// NextFillTime returns a fill stamp that is larger than every stamp handed
// out by this set since the last reset.
func (s *Set) NextFillTime() uint64 {
	s.fillCount++
	return s.fillCount
}

// MoveToBack makes wayID the most recently touched way.
func (s *Set) MoveToBack(wayID int) {
	pos := -1

	for i, w := range s.LRUQueue {
		if w == wayID {
			pos = i
			break
		}
	}

	if pos < 0 || pos == len(s.LRUQueue)-1 {
		return
	}

	copy(s.LRUQueue[pos:], s.LRUQueue[pos+1:])
	s.LRUQueue[len(s.LRUQueue)-1] = wayID
}

func (s *Set) reset() {
	for i := range s.Blocks {
		s.Blocks[i].Tag = 0
		s.Blocks[i].IsValid = false
		s.Blocks[i].FillTime = 0
		s.LRUQueue[i] = i
	}

	s.fillCount = 0
}

// AccessResult tells what a tag array access did.
type AccessResult struct {
	Hit   bool
	SetID int
	WayID int
	Tag   uint64

	// Evicted is the line that was replaced by a miss. It is only valid if
	// HasEvicted is set.
	Evicted    Block
	HasEvicted bool
}

// Tags is the metadata store of a cache.
type Tags interface {
	// NumSets returns the number of sets.
	NumSets() int

	// NumWays returns the number of ways in each set.
	NumWays() int

	// BlockSize returns the number of bytes covered by each line.
	BlockSize() int

	// GetSet returns the set that an address maps to.
	GetSet(addr uint64) (set *Set, setID int)

	// Lookup checks if the line holding addr is present, without touching
	// the replacement state.
	Lookup(addr uint64) (Block, bool)

	// Access looks the address up and, on a miss, installs its line.
	Access(addr uint64) AccessResult

	// Reset invalidates all the lines.
	Reset()
}

// NewTags creates a tag array with numSets sets of numWays ways each. Both
// numSets and blockSize must be powers of two. The blocks of all the sets
// share a single backing slice.
func NewTags(
	numSets, numWays, blockSize int,
	victimFinder VictimFinder,
) Tags {
	t := &tagArrayImpl{
		numSets:       numSets,
		numWays:       numWays,
		blockSize:     blockSize,
		log2BlockSize: log2(uint64(blockSize)),
		log2NumSets:   log2(uint64(numSets)),
		victimFinder:  victimFinder,
	}

	t.allocate()

	return t
}

type tagArrayImpl struct {
	numSets       int
	numWays       int
	blockSize     int
	log2BlockSize uint
	log2NumSets   uint

	victimFinder VictimFinder

	sets   []Set
	blocks []Block
	queues []int
}

func (t *tagArrayImpl) NumSets() int {
	return t.numSets
}

func (t *tagArrayImpl) NumWays() int {
	return t.numWays
}

func (t *tagArrayImpl) BlockSize() int {
	return t.blockSize
}

// TotalSize returns the maximum number of bytes can be stored in the cache.
func (t *tagArrayImpl) TotalSize() uint64 {
	return uint64(t.numSets) * uint64(t.numWays) * uint64(t.blockSize)
}

func (t *tagArrayImpl) GetSet(addr uint64) (set *Set, setID int) {
	setID, _ = Decode(addr, t.log2BlockSize, t.log2NumSets)
	set = &t.sets[setID]

	return set, setID
}

func (t *tagArrayImpl) Lookup(addr uint64) (Block, bool) {
	setID, tag := Decode(addr, t.log2BlockSize, t.log2NumSets)
	set := &t.sets[setID]

	wayID := findWay(set, tag)
	if wayID < 0 {
		return Block{}, false
	}

	return set.Blocks[wayID], true
}

func (t *tagArrayImpl) Access(addr uint64) AccessResult {
	setID, tag := Decode(addr, t.log2BlockSize, t.log2NumSets)
	set := &t.sets[setID]

	res := AccessResult{SetID: setID, Tag: tag}

	wayID := findWay(set, tag)
	if wayID >= 0 {
		t.victimFinder.Visit(set, wayID)

		res.Hit = true
		res.WayID = wayID

		return res
	}

	wayID = set.FirstInvalid()
	if wayID < 0 {
		wayID = t.victimFinder.FindVictim(set)
		res.Evicted = set.Blocks[wayID]
		res.HasEvicted = true
	}

	block := &set.Blocks[wayID]
	block.Tag = tag
	block.IsValid = true
	t.victimFinder.Fill(set, wayID)

	res.WayID = wayID

	return res
}

func findWay(set *Set, tag uint64) int {
	for i := range set.Blocks {
		if set.Blocks[i].IsValid && set.Blocks[i].Tag == tag {
			return i
		}
	}

	return -1
}

func (t *tagArrayImpl) Reset() {
	for i := range t.sets {
		t.sets[i].reset()
	}
}

func (t *tagArrayImpl) allocate() {
	t.blocks = make([]Block, t.numSets*t.numWays)
	t.queues = make([]int, t.numSets*t.numWays)
	t.sets = make([]Set, t.numSets)

	for i := 0; i < t.numSets; i++ {
		start := i * t.numWays
		end := start + t.numWays

		set := &t.sets[i]
		set.Blocks = t.blocks[start:end:end]
		set.LRUQueue = t.queues[start:end:end]

		for j := 0; j < t.numWays; j++ {
			set.Blocks[j].SetID = i
			set.Blocks[j].WayID = j
			set.LRUQueue[j] = j
		}
	}
}

func log2(n uint64) uint {
	var l uint
	for n > 1 {
		n >>= 1
		l++
	}

	return l
}
