package tagging

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func fullSet(numWays int) *Set {
	set := &Set{
		Blocks:   make([]Block, numWays),
		LRUQueue: make([]int, numWays),
	}

	for i := 0; i < numWays; i++ {
		set.Blocks[i].WayID = i
		set.Blocks[i].IsValid = true
		set.Blocks[i].Tag = uint64(i)
		set.LRUQueue[i] = i
	}

	return set
}

var _ = Describe("LRUVictimFinder", func() {
	var (
		finder *LRUVictimFinder
		set    *Set
	)

	BeforeEach(func() {
		finder = NewLRUVictimFinder()
		set = fullSet(4)
	})

	It("should evict the least recently used way", func() {
		Expect(finder.FindVictim(set)).To(Equal(0))
	})

	It("should refresh recency on visit", func() {
		finder.Visit(set, 0)
		finder.Visit(set, 2)

		Expect(set.LRUQueue).To(Equal([]int{1, 3, 0, 2}))
		Expect(finder.FindVictim(set)).To(Equal(1))
	})

	It("should make a filled way most recently used", func() {
		finder.Fill(set, 0)

		Expect(finder.FindVictim(set)).To(Equal(1))
	})

	It("should never evict a way that keeps being hit", func() {
		for i := 0; i < 16; i++ {
			finder.Visit(set, 3)
			victim := finder.FindVictim(set)
			Expect(victim).NotTo(Equal(3))
			finder.Fill(set, victim)
		}
	})
})

var _ = Describe("FIFOVictimFinder", func() {
	var (
		finder *FIFOVictimFinder
		set    *Set
	)

	BeforeEach(func() {
		finder = NewFIFOVictimFinder()
		set = fullSet(4)
		for i := 0; i < 4; i++ {
			finder.Fill(set, i)
		}
	})

	It("should evict the earliest filled way", func() {
		Expect(finder.FindVictim(set)).To(Equal(0))
	})

	It("should not change order on visit", func() {
		finder.Visit(set, 0)
		finder.Visit(set, 0)

		Expect(finder.FindVictim(set)).To(Equal(0))
	})

	It("should move a refilled way to the end", func() {
		finder.Fill(set, 0)

		Expect(finder.FindVictim(set)).To(Equal(1))
	})

	It("should cycle through ways in fill order", func() {
		victims := []int{}
		for i := 0; i < 8; i++ {
			victim := finder.FindVictim(set)
			victims = append(victims, victim)
			finder.Fill(set, victim)
		}

		Expect(victims).To(Equal([]int{0, 1, 2, 3, 0, 1, 2, 3}))
	})
})

var _ = Describe("RandomVictimFinder", func() {
	It("should stay within the set", func() {
		finder := NewRandomVictimFinder(1)
		set := fullSet(8)

		for i := 0; i < 1000; i++ {
			victim := finder.FindVictim(set)
			Expect(victim).To(BeNumerically(">=", 0))
			Expect(victim).To(BeNumerically("<", 8))
		}
	})

	It("should be repeatable with the same seed", func() {
		a := NewRandomVictimFinder(42)
		b := NewRandomVictimFinder(42)
		set := fullSet(16)

		for i := 0; i < 100; i++ {
			Expect(a.FindVictim(set)).To(Equal(b.FindVictim(set)))
		}
	})

	It("should pick every way eventually", func() {
		finder := NewRandomVictimFinder(7)
		set := fullSet(4)

		seen := map[int]int{}
		for i := 0; i < 4000; i++ {
			seen[finder.FindVictim(set)]++
		}

		Expect(seen).To(HaveLen(4))
		for _, n := range seen {
			Expect(n).To(BeNumerically(">", 800))
		}
	})

	It("should always pick way 0 in a direct-mapped set", func() {
		finder := NewRandomVictimFinder(3)
		set := fullSet(1)

		Expect(finder.FindVictim(set)).To(Equal(0))
	})
})
