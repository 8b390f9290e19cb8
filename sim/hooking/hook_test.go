package hooking

import (
	"bytes"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type namedHookable struct {
	HookableBase
	name string
}

func (n *namedHookable) Name() string {
	return n.name
}

type countingHook struct {
	count int
}

func (h *countingHook) Func(_ HookCtx) {
	h.count++
}

var _ = Describe("HookableBase", func() {
	var (
		domain *namedHookable
		pos    *HookPos
	)

	BeforeEach(func() {
		domain = &namedHookable{name: "Domain"}
		pos = &HookPos{Name: "Pos"}
	})

	It("should invoke every registered hook", func() {
		a := &countingHook{}
		b := &countingHook{}
		domain.AcceptHook(a)
		domain.AcceptHook(b)

		domain.InvokeHook(HookCtx{Domain: domain, Pos: pos})

		Expect(domain.NumHooks()).To(Equal(2))
		Expect(domain.Hooks()).To(ConsistOf(a, b))
		Expect(a.count).To(Equal(1))
		Expect(b.count).To(Equal(1))
	})

	It("should panic on duplicated hook", func() {
		a := &countingHook{}
		domain.AcceptHook(a)

		Expect(func() { domain.AcceptHook(a) }).To(Panic())
	})

	It("should accept plain functions", func() {
		var got *HookPos
		domain.AcceptHook(HookFunc(func(ctx HookCtx) { got = ctx.Pos }))
		domain.AcceptHook(HookFunc(func(HookCtx) {}))

		domain.InvokeHook(HookCtx{Domain: domain, Pos: pos})

		Expect(got).To(BeIdenticalTo(pos))
	})
})

var _ = Describe("LogHook", func() {
	var (
		buf    *bytes.Buffer
		domain *namedHookable
		pos    *HookPos
	)

	BeforeEach(func() {
		buf = new(bytes.Buffer)
		domain = &namedHookable{name: "L1"}
		pos = &HookPos{Name: "CacheAccess"}
	})

	It("should skip positions below the logger level", func() {
		logger := slog.New(slog.NewTextHandler(buf,
			&slog.HandlerOptions{Level: slog.LevelInfo}))
		hook := NewLogHook(logger)

		hook.Func(HookCtx{Domain: domain, Pos: pos, Item: 1})

		Expect(buf.String()).To(BeEmpty())
	})

	It("should log at the configured level", func() {
		logger := slog.New(slog.NewTextHandler(buf,
			&slog.HandlerOptions{Level: slog.LevelInfo}))
		hook := NewLogHook(logger).WithLevel(pos, slog.LevelInfo)

		hook.Func(HookCtx{Domain: domain, Pos: pos, Item: 1, Detail: "x"})

		Expect(buf.String()).To(ContainSubstring("msg=CacheAccess"))
		Expect(buf.String()).To(ContainSubstring("where=L1"))
		Expect(buf.String()).To(ContainSubstring("item=1"))
		Expect(buf.String()).To(ContainSubstring("detail=x"))
	})
})
