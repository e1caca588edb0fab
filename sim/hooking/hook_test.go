package hooking

import (
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type countingHook struct {
	lock  sync.Mutex
	count int
	last  *HookPos
}

func (h *countingHook) Func(ctx HookCtx) {
	h.lock.Lock()
	defer h.lock.Unlock()

	h.count++
	h.last = ctx.Pos
}

var _ = Describe("HookableBase", func() {
	var (
		base *HookableBase
		pos  = &HookPos{Name: "Test"}
	)

	BeforeEach(func() {
		base = &HookableBase{}
	})

	It("should invoke registered hooks", func() {
		hook := &countingHook{}
		base.AcceptHook(hook)

		base.InvokeHook(HookCtx{Domain: base, Pos: pos})

		Expect(hook.count).To(Equal(1))
		Expect(hook.last).To(BeIdenticalTo(pos))
		Expect(base.NumHooks()).To(Equal(1))
	})

	It("should panic on duplicated hooks", func() {
		hook := &countingHook{}
		base.AcceptHook(hook)

		Expect(func() { base.AcceptHook(hook) }).To(Panic())
	})

	It("should accept several function hooks", func() {
		calls := 0
		base.AcceptHook(HookFunc(func(HookCtx) { calls++ }))
		base.AcceptHook(HookFunc(func(HookCtx) { calls += 10 }))

		base.InvokeHook(HookCtx{Pos: pos})

		Expect(calls).To(Equal(11))
		Expect(base.Hooks()).To(HaveLen(2))
	})

	It("should allow concurrent invocation", func() {
		hook := &countingHook{}
		base.AcceptHook(hook)

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				base.InvokeHook(HookCtx{Pos: pos})
			}()
		}
		wg.Wait()

		Expect(hook.count).To(Equal(8))
	})
})
