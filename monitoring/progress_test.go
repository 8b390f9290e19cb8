package monitoring

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ProgressBar", func() {
	It("should accumulate finished bytes", func() {
		bar := &ProgressBar{Total: 10}

		bar.IncrementFinished(3)
		bar.IncrementFinished(0)
		bar.IncrementFinished(2)

		Expect(bar.Finished).To(Equal(uint64(5)))
		Expect(bar.Total).To(Equal(uint64(10)))
	})
})
