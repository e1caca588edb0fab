package timing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type countingTicker struct {
	engine *SerialEngine
	ticks  []VTimeInSec
	limit  int
	sched  *TickScheduler
}

func (c *countingTicker) Handle(e Event) error {
	c.ticks = append(c.ticks, e.Time())
	if len(c.ticks) < c.limit {
		c.sched.TickLater()
	}

	return nil
}

var _ = Describe("TickScheduler", func() {
	var (
		engine *SerialEngine
		ticker *countingTicker
	)

	BeforeEach(func() {
		engine = NewSerialEngine()
		ticker = &countingTicker{engine: engine, limit: 3}
		ticker.sched = NewTickScheduler(ticker, engine, 1*KHz)
	})

	It("should tick once per period", func() {
		ticker.sched.TickLater()

		Expect(engine.Run()).To(Succeed())

		Expect(ticker.ticks).To(HaveLen(3))
		Expect(ticker.ticks[0]).To(BeNumerically("~", 0.001, 1e-12))
		Expect(ticker.ticks[1]).To(BeNumerically("~", 0.002, 1e-12))
		Expect(ticker.ticks[2]).To(BeNumerically("~", 0.003, 1e-12))
	})

	It("should not schedule the same tick twice", func() {
		ticker.limit = 1
		ticker.sched.TickLater()
		ticker.sched.TickLater()

		Expect(engine.Pending()).To(Equal(1))
		Expect(ticker.sched.NextTickTime()).To(BeNumerically("~", 0.001, 1e-12))
	})

	It("should tick now", func() {
		ticker.limit = 1
		ticker.sched.TickNow()

		Expect(engine.Run()).To(Succeed())
		Expect(ticker.ticks).To(Equal([]VTimeInSec{0}))
	})
})
