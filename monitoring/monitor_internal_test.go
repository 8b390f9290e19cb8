package monitoring

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/avdcache/mem/cache"
	"github.com/sarchlab/avdcache/mem/cache/hierarchy"
	"github.com/sarchlab/avdcache/mem/mem"
)

type countingLocker struct {
	sync.Mutex
	locks int
}

func (l *countingLocker) Lock() {
	l.Mutex.Lock()
	l.locks++
}

var _ = Describe("Monitor", func() {
	var (
		m      *Monitor
		h      *hierarchy.TwoLevel
		agg    *hierarchy.Aggregator
		locker *countingLocker
	)

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		m.router().ServeHTTP(rec, req)

		return rec
	}

	BeforeEach(func() {
		var err error
		h, err = hierarchy.MakeBuilder().
			WithL1(cache.MakeBuilder().WithByteSize(512).WithWayAssociativity(1)).
			WithL2(cache.MakeBuilder().WithByteSize(4 * mem.KB)).
			Build("H")
		Expect(err).NotTo(HaveOccurred())

		agg = hierarchy.NewAggregator()
		h.AcceptHook(agg)

		locker = &countingLocker{}
		m = NewMonitor().WithLocker(locker)
		m.RegisterHierarchy(h, agg)
	})

	It("should register both levels of a hierarchy", func() {
		Expect(m.caches).To(HaveLen(2))
		Expect(m.hierarchies).To(HaveLen(1))
	})

	It("should list caches", func() {
		rec := get("/api/caches")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(MatchJSON(`["H","H.L1","H.L2"]`))
	})

	It("should report cache statistics under the lock", func() {
		h.Access(0, mem.Read)
		h.Access(0, mem.Read)

		rec := get("/api/stats/H.L1")

		Expect(rec.Code).To(Equal(http.StatusOK))
		rsp := map[string]any{}
		Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp["reads"]).To(BeNumerically("==", 2))
		Expect(rsp["read_misses"]).To(BeNumerically("==", 1))
		Expect(rsp["miss_ratio"]).To(BeNumerically("==", 50))
		Expect(rsp["has_miss_ratio"]).To(BeTrue())
		Expect(locker.locks).To(Equal(1))
	})

	It("should report hierarchy statistics from the aggregator", func() {
		rec := get("/api/stats/H")

		Expect(rec.Code).To(Equal(http.StatusOK))
		rsp := map[string]any{}
		Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp["accesses"]).To(BeNumerically("==", 0))
		Expect(rsp["has_miss_ratio"]).To(BeFalse())
	})

	It("should describe caches and hierarchies", func() {
		rec := get("/api/describe/H.L2")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("Cache H.L2"))

		rec = get("/api/describe/H")
		Expect(rec.Body.String()).To(ContainSubstring("Cache H.L1"))
	})

	It("should serialize a cache", func() {
		rec := get("/api/cache/H.L1")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.Len()).To(BeNumerically(">", 0))
	})

	It("should return 404 for unknown caches", func() {
		Expect(get("/api/stats/nope").Code).To(Equal(http.StatusNotFound))
		Expect(get("/api/cache/nope").Code).To(Equal(http.StatusNotFound))
		Expect(get("/api/describe/nope").Code).To(Equal(http.StatusNotFound))
	})

	It("should track progress bars", func() {
		bar := m.CreateProgressBar("trace", 100)
		bar.IncrementFinished(3)

		rec := get("/api/progress")
		Expect(rec.Body.String()).To(ContainSubstring(`"total":100`))
		Expect(rec.Body.String()).To(ContainSubstring(`"finished":3`))

		m.CompleteProgressBar(bar)
		Expect(get("/api/progress").Body.String()).To(MatchJSON(`[]`))
	})

	It("should report resource usage", func() {
		rec := get("/api/resource")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("memory_size"))
	})

	It("should collect a profile", func() {
		m.profileTime = 20 * time.Millisecond

		rec := get("/api/profile")

		Expect(rec.Code).To(Equal(http.StatusOK))
	})

	It("should serve the dashboard", func() {
		rec := get("/index.html")

		Expect(rec.Code).To(BeNumerically("<", 400))
	})

	It("should refuse privileged ports", func() {
		Expect(NewMonitor().WithPortNumber(80).portNumber).To(Equal(0))
		Expect(NewMonitor().WithPortNumber(8080).portNumber).To(Equal(8080))
	})
})
