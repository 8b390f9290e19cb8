package tagging

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Decode", func() {
	It("should split an address into set and tag", func() {
		// 64B lines, 8 sets.
		setID, tag := Decode(0x1C0, 6, 3)
		Expect(setID).To(Equal(7))
		Expect(tag).To(Equal(uint64(0)))

		setID, tag = Decode(0x240, 6, 3)
		Expect(setID).To(Equal(1))
		Expect(tag).To(Equal(uint64(1)))
	})

	It("should map addresses one cache size apart to the same set", func() {
		for _, addr := range []uint64{0, 64, 0x1C0, 0x12345} {
			setA, tagA := Decode(addr, 6, 3)
			setB, tagB := Decode(addr+512, 6, 3)
			Expect(setB).To(Equal(setA))
			Expect(tagB).To(Equal(tagA + 1))
		}
	})

	It("should put everything in set 0 when there is one set", func() {
		setID, tag := Decode(0xFFC0, 6, 0)
		Expect(setID).To(Equal(0))
		Expect(tag).To(Equal(uint64(0x3FF)))
	})
})

var _ = Describe("StorageBytes", func() {
	It("should charge every line and every set", func() {
		Expect(StorageBytes(4, 2)).To(Equal(8*BytesPerBlock + 4*BytesPerSet))
	})

	It("should saturate instead of wrapping", func() {
		Expect(StorageBytes(1<<40, 1<<30)).To(Equal(uint64(math.MaxUint64)))
		Expect(StorageBytes(1<<62, 1)).To(Equal(uint64(math.MaxUint64)))
	})
})

var _ = Describe("Tags", func() {
	var (
		tags *tagArrayImpl
	)

	BeforeEach(func() {
		tags = NewTags(1024, 4, 64, NewLRUVictimFinder()).(*tagArrayImpl)
	})

	It("should be able to get total size", func() {
		Expect(tags.TotalSize()).To(Equal(uint64(262144)))
	})

	It("should give every block exactly one set", func() {
		Expect(tags.blocks).To(HaveLen(1024 * 4))

		for i, set := range tags.sets {
			Expect(set.Blocks).To(HaveLen(4))

			for j, block := range set.Blocks {
				Expect(block.SetID).To(Equal(i))
				Expect(block.WayID).To(Equal(j))
				Expect(block.IsValid).To(BeFalse())
			}
		}
	})

	It("should get set", func() {
		_, setID := tags.GetSet(0x10040)
		Expect(setID).To(Equal(1))
	})

	It("should miss when lookup cannot find block", func() {
		block, ok := tags.Lookup(0x100)
		Expect(ok).To(BeFalse())
		Expect(block).To(BeZero())
	})

	It("should miss if block is invalid", func() {
		set, _ := tags.GetSet(0x100)
		set.Blocks[0].Tag = 0
		set.Blocks[0].IsValid = false

		_, ok := tags.Lookup(0x100)
		Expect(ok).To(BeFalse())
	})

	It("should install the line on a miss and hit afterwards", func() {
		res := tags.Access(0x100)
		Expect(res.Hit).To(BeFalse())
		Expect(res.SetID).To(Equal(4))
		Expect(res.WayID).To(Equal(0))
		Expect(res.HasEvicted).To(BeFalse())

		res = tags.Access(0x13F)
		Expect(res.Hit).To(BeTrue())
		Expect(res.WayID).To(Equal(0))

		block, ok := tags.Lookup(0x100)
		Expect(ok).To(BeTrue())
		Expect(block.IsValid).To(BeTrue())
	})

	It("should fill the first invalid way", func() {
		set, _ := tags.GetSet(0)
		set.Blocks[0].IsValid = true
		set.Blocks[0].Tag = 7
		set.Blocks[2].IsValid = true
		set.Blocks[2].Tag = 8

		res := tags.Access(0)
		Expect(res.Hit).To(BeFalse())
		Expect(res.WayID).To(Equal(1))
	})

	It("should report the evicted line", func() {
		stride := uint64(1024 * 64)
		for i := uint64(0); i < 4; i++ {
			tags.Access(i * stride)
		}

		res := tags.Access(4 * stride)
		Expect(res.Hit).To(BeFalse())
		Expect(res.HasEvicted).To(BeTrue())
		Expect(res.Evicted.Tag).To(Equal(uint64(0)))
		Expect(res.WayID).To(Equal(0))
	})

	It("should invalidate everything on reset", func() {
		tags.Access(0x100)
		tags.Access(0x200)

		tags.Reset()

		_, ok := tags.Lookup(0x100)
		Expect(ok).To(BeFalse())
		_, ok = tags.Lookup(0x200)
		Expect(ok).To(BeFalse())

		set, _ := tags.GetSet(0x100)
		Expect(set.LRUQueue).To(Equal([]int{0, 1, 2, 3}))
	})

	It("should update LRU queue when visiting a block", func() {
		set, _ := tags.GetSet(0x100)

		set.MoveToBack(1)

		Expect(set.LRUQueue).To(Equal([]int{0, 2, 3, 1}))
	})
})
