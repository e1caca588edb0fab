package timing

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/cosim/sim/hooking"
)

func mockEventAt(
	ctrl *gomock.Controller,
	t VTimeInSec,
	handler Handler,
	secondary bool,
) *MockEvent {
	evt := NewMockEvent(ctrl)
	evt.EXPECT().Time().Return(t).AnyTimes()
	evt.EXPECT().Handler().Return(handler).AnyTimes()
	evt.EXPECT().IsSecondary().Return(secondary).AnyTimes()

	return evt
}

var _ = Describe("SerialEngine", func() {
	var (
		mockCtrl *gomock.Controller
		engine   *SerialEngine
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		engine = NewSerialEngine()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should schedule events", func() {
		handler1 := NewMockHandler(mockCtrl)
		handler2 := NewMockHandler(mockCtrl)
		evt1 := mockEventAt(mockCtrl, 4.0, handler1, false)
		evt2 := mockEventAt(mockCtrl, 2.0, handler2, false)
		evt3 := mockEventAt(mockCtrl, 3.0, handler1, false)
		evt4 := mockEventAt(mockCtrl, 5.0, handler1, false)

		handleEvt2 := handler2.EXPECT().Handle(evt2).Do(func(e Event) {
			engine.Schedule(evt3)
			engine.Schedule(evt4)
		})
		handleEvt3 := handler1.EXPECT().Handle(evt3).After(handleEvt2)
		handleEvt1 := handler1.EXPECT().Handle(evt1).After(handleEvt3)
		handler1.EXPECT().Handle(evt4).After(handleEvt1)

		engine.Schedule(evt1)
		engine.Schedule(evt2)

		Expect(engine.Run()).To(Succeed())
		Expect(engine.Now()).To(BeNumerically("==", 5.0))
	})

	It("should run same-time events in scheduling order", func() {
		handler := NewMockHandler(mockCtrl)
		evt1 := mockEventAt(mockCtrl, 1.0, handler, false)
		evt2 := mockEventAt(mockCtrl, 1.0, handler, false)
		evt3 := mockEventAt(mockCtrl, 1.0, handler, false)

		first := handler.EXPECT().Handle(evt1)
		second := handler.EXPECT().Handle(evt2).After(first)
		handler.EXPECT().Handle(evt3).After(second)

		engine.Schedule(evt1)
		engine.Schedule(evt2)
		engine.Schedule(evt3)

		Expect(engine.Run()).To(Succeed())
	})

	It("should consider secondary events", func() {
		handler1 := NewMockHandler(mockCtrl)
		handler2 := NewMockHandler(mockCtrl)
		evt1 := mockEventAt(mockCtrl, 2.0, handler1, true)
		evt2 := mockEventAt(mockCtrl, 2.0, handler2, false)

		primary := handler2.EXPECT().Handle(evt2)
		handler1.EXPECT().Handle(evt1).After(primary)

		engine.Schedule(evt1)
		engine.Schedule(evt2)

		Expect(engine.Run()).To(Succeed())
	})

	It("should panic when scheduling an event in the past", func() {
		handler := NewMockHandler(mockCtrl)
		evt1 := mockEventAt(mockCtrl, 2.0, handler, false)
		evt2 := mockEventAt(mockCtrl, 1.0, handler, false)

		handler.EXPECT().Handle(evt1).Do(func(e Event) {
			Expect(func() { engine.Schedule(evt2) }).To(Panic())
		})

		engine.Schedule(evt1)
		Expect(engine.Run()).To(Succeed())
	})

	It("should stop and keep the remaining events", func() {
		handler := NewMockHandler(mockCtrl)
		evt1 := mockEventAt(mockCtrl, 1.0, handler, false)
		evt2 := mockEventAt(mockCtrl, 2.0, handler, false)

		handler.EXPECT().Handle(evt1).Do(func(e Event) {
			engine.Stop()
		})

		engine.Schedule(evt1)
		engine.Schedule(evt2)

		Expect(engine.Run()).To(Succeed())
		Expect(engine.Pending()).To(Equal(1))
	})

	It("should return handler errors", func() {
		handler := NewMockHandler(mockCtrl)
		evt1 := mockEventAt(mockCtrl, 1.0, handler, false)
		evt2 := mockEventAt(mockCtrl, 2.0, handler, false)
		boom := errors.New("boom")

		handler.EXPECT().Handle(evt1).Return(boom)

		engine.Schedule(evt1)
		engine.Schedule(evt2)

		err := engine.Run()
		Expect(errors.Is(err, boom)).To(BeTrue())
		Expect(engine.Pending()).To(Equal(1))
	})

	It("should invoke hooks around each event", func() {
		handler := NewMockHandler(mockCtrl)
		evt := mockEventAt(mockCtrl, 1.0, handler, false)
		handler.EXPECT().Handle(evt)

		var positions []*hooking.HookPos
		engine.AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
			positions = append(positions, ctx.Pos)
		}))

		engine.Schedule(evt)
		Expect(engine.Run()).To(Succeed())

		Expect(positions).To(Equal([]*hooking.HookPos{
			HookPosBeforeEvent, HookPosAfterEvent,
		}))
	})
})
