package rtl

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/cosim/sim/timing"
)

var _ = Describe("Synchronizer", func() {
	var (
		mockCtrl *gomock.Controller
		advancer *MockTimeAdvancer
		engine   *timing.SerialEngine
		syncer   *Synchronizer
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		advancer = NewMockTimeAdvancer(mockCtrl)
		engine = timing.NewSerialEngine()
		syncer = NewSynchronizer(
			"Sync", engine, 1*timing.Millisecond, advancer)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should advance one unit per interval until stopped", func() {
		calls := 0
		advancer.EXPECT().
			AdvanceTime(gomock.Any(), uint64(1)).
			DoAndReturn(func(context.Context, uint64) error {
				calls++
				if calls == 3 {
					syncer.Stop()
				}

				return nil
			}).
			Times(3)

		syncer.Start()
		err := engine.Run()

		Expect(err).NotTo(HaveOccurred())
		Expect(syncer.Ticks()).To(Equal(uint64(3)))
		Expect(engine.Now()).To(BeNumerically("~", 4*timing.Millisecond, 1e-9))
	})

	It("should keep a single tick chain when started twice", func() {
		syncer.Start()
		syncer.Start()

		Expect(engine.Pending()).To(Equal(1))
		Expect(syncer.Running()).To(BeTrue())
	})

	It("should ignore a tick scheduled before it was stopped", func() {
		syncer.Start()
		syncer.Stop()

		err := engine.Run()

		Expect(err).NotTo(HaveOccurred())
		Expect(syncer.Ticks()).To(BeZero())
	})

	It("should stop and report a lost transport", func() {
		advancer.EXPECT().
			AdvanceTime(gomock.Any(), uint64(1)).
			Return(ErrTransportLost)

		syncer.Start()
		err := engine.Run()

		Expect(errors.Is(err, ErrTransportLost)).To(BeTrue())
		Expect(syncer.Running()).To(BeFalse())
	})

	It("should keep going after a timeout", func() {
		calls := 0
		advancer.EXPECT().
			AdvanceTime(gomock.Any(), uint64(1)).
			DoAndReturn(func(context.Context, uint64) error {
				calls++
				if calls == 2 {
					syncer.Stop()
					return nil
				}

				return ErrTimeout
			}).
			Times(2)

		syncer.Start()

		Expect(engine.Run()).To(Succeed())
		Expect(syncer.Ticks()).To(Equal(uint64(2)))
	})
})
