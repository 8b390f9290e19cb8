package cache

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/avdcache/mem/mem"
)

var _ = Describe("Statistics", func() {
	It("should count reads and writes separately", func() {
		s := Statistics{}

		s.Record(mem.Read, true)
		s.Record(mem.Read, false)
		s.Record(mem.Write, false)

		Expect(s).To(Equal(Statistics{
			Reads: 2, ReadMisses: 1, Writes: 1, WriteMisses: 1,
		}))
		Expect(s.Accesses()).To(Equal(uint64(3)))
		Expect(s.Misses()).To(Equal(uint64(2)))
		Expect(s.Hits()).To(Equal(uint64(1)))
	})

	It("should panic on unknown access types", func() {
		s := Statistics{}
		Expect(func() { s.Record(mem.AccessType(7), true) }).To(Panic())
	})

	It("should compute the miss ratio", func() {
		s := Statistics{Reads: 3, ReadMisses: 1, Writes: 1, WriteMisses: 0}

		ratio, ok := s.MissRatio()

		Expect(ok).To(BeTrue())
		Expect(ratio).To(BeNumerically("~", 25.0))
	})

	It("should leave the miss ratio undefined without accesses", func() {
		ratio, ok := Statistics{}.MissRatio()

		Expect(ok).To(BeFalse())
		Expect(ratio).To(BeZero())
	})

	It("should write a report", func() {
		buf := new(bytes.Buffer)
		s := Statistics{Reads: 3, ReadMisses: 1, Writes: 1, WriteMisses: 1}

		Expect(WriteReport(buf, "L1 Cache", s)).To(Succeed())

		Expect(buf.String()).To(Equal("L1 Cache statistics:\n" +
			"  Writes: 1\n" +
			"  Write Misses: 1\n" +
			"  Reads: 3\n" +
			"  Read Misses: 1\n" +
			"  Misses: 2\n" +
			"  Accesses: 4\n" +
			"  Miss Ratio: 50%\n"))
	})

	It("should report no accesses instead of a ratio", func() {
		buf := new(bytes.Buffer)

		Expect(WriteReport(buf, "L2 Cache", Statistics{})).To(Succeed())

		Expect(buf.String()).To(ContainSubstring("Miss Ratio: no accesses"))
		Expect(buf.String()).NotTo(ContainSubstring("NaN"))
	})
})
