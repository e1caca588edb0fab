package session

import (
	"context"
	"io"
	"log"
	"net"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/cosim/config"
	"github.com/sarchlab/cosim/monitoring"
	"github.com/sarchlab/cosim/rtl"
	"github.com/sarchlab/cosim/rtl/echosim"
	"github.com/sarchlab/cosim/tracing"
)

func mustParse(script string) []Op {
	ops, err := ParseScript(strings.NewReader(script))
	Expect(err).NotTo(HaveOccurred())

	return ops
}

var _ = Describe("Session", func() {
	const base = 0xE0000000

	var (
		server  *echosim.Server
		near    net.Conn
		far     net.Conn
		served  chan error
		cancel  context.CancelFunc
		builder Builder
		cfg     config.Config
	)

	BeforeEach(func() {
		var ctx context.Context
		ctx, cancel = context.WithCancel(context.Background())

		server = echosim.NewServer(
			echosim.WithIRQRegister(base+0x100),
			echosim.WithLogger(log.New(io.Discard, "", 0)),
		)

		near, far = net.Pipe()
		served = make(chan error, 1)
		go func() { served <- server.Serve(ctx, far) }()

		cfg = config.Default()
		cfg.SyncInterval = 10 * time.Microsecond
		cfg.Timeout = time.Second

		builder = MakeBuilder().
			WithConfig(cfg).
			WithLogger(log.New(io.Discard, "", 0))
	})

	AfterEach(func() {
		cancel()
		Eventually(served).Should(Receive())
	})

	It("should play a script against the simulator", func() {
		s := builder.Build("Session", near)
		defer s.Close()

		s.Play(mustParse(`
			0  write 0xE0000008 4 0x11223344
			1  write 0xE0000009 1 0xAA
			2  read  0xE0000008 4
			3  read  0xE0000009 1
		`))

		Expect(s.Run(context.Background())).To(Succeed())

		results := s.Results()
		Expect(results).To(HaveLen(4))
		for _, r := range results {
			Expect(r.Err).NotTo(HaveOccurred())
		}
		Expect(results[2].Value).To(Equal(uint64(0x1122AA44)))
		Expect(results[3].Value).To(Equal(uint64(0xAA)))
		Expect(server.Resets()).To(Equal(1))
	})

	It("should keep the simulator in step with virtual time", func() {
		s := builder.Build("Session", near)
		defer s.Close()

		s.Play(mustParse("55 read 0xE0000000 4"))

		Expect(s.Run(context.Background())).To(Succeed())
		Expect(s.Bridge().Synchronizer().Running()).To(BeFalse())
		Expect(s.Bridge().Synchronizer().Ticks()).To(Equal(uint64(5)))
		Expect(server.Now()).To(Equal(uint32(5)))
	})

	It("should advance through the control register", func() {
		s := builder.Build("Session", near)
		defer s.Close()

		s.Play(mustParse("0 advance 7"))

		Expect(s.Run(context.Background())).To(Succeed())
		Expect(s.Results()[0].Err).NotTo(HaveOccurred())
		Expect(server.Now()).To(Equal(uint32(7)))
	})

	It("should drive the interrupt pin inside the event loop", func() {
		s := builder.Build("Session", near)
		defer s.Close()

		var levels []uint32
		s.IRQPin().OnChange(func(level uint32) {
			levels = append(levels, level)
		})

		s.Play(mustParse(`
			0 write 0xE0000100 4 3
			1 write 0xE0000100 4 0
		`))

		Expect(s.Run(context.Background())).To(Succeed())
		Expect(s.Results()[0].IRQLevel).To(Equal(uint32(3)))
		Expect(levels).To(Equal([]uint32{3, 0}))
		Expect(s.IRQPin().Level()).To(Equal(uint32(0)))
	})

	It("should stop the simulator and skip the rest of the script", func() {
		s := builder.Build("Session", near)
		defer s.Close()

		s.Play(mustParse(`
			0 write 0xE0000008 4 1
			5 stop
			9 read 0xE0000008 4
		`))

		Expect(s.Run(context.Background())).To(Succeed())
		Expect(s.Stopped()).To(BeTrue())
		Expect(s.Results()).To(HaveLen(2))
		Eventually(served).Should(Receive(BeNil()))
		served <- nil
	})

	It("should record failed accesses and keep going", func() {
		s := builder.Build("Session", near)
		defer s.Close()

		s.Play(mustParse(`
			0 read 0x10 4
			1 read 0xE0000000 4
		`))

		Expect(s.Run(context.Background())).To(Succeed())
		results := s.Results()
		Expect(results[0].Err).To(MatchError(rtl.ErrInvalidAccess))
		Expect(results[1].Err).NotTo(HaveOccurred())
	})

	It("should stop when the transport is lost", func() {
		s := builder.Build("Session", near)
		defer s.Close()

		s.Play(mustParse("100 read 0xE0000000 4"))
		cancel()
		Eventually(served).Should(Receive())

		err := s.Run(context.Background())

		Expect(err).To(MatchError(rtl.ErrTransportLost))
		served <- nil
	})

	It("should leave the simulator alone without a reset", func() {
		s := builder.WithoutResetOnStart().Build("Session", near)
		defer s.Close()

		s.Play(mustParse("30 read 0xE0000000 4"))

		Expect(s.Run(context.Background())).To(Succeed())
		Expect(server.Resets()).To(Equal(0))
		Expect(s.Bridge().Synchronizer().Ticks()).To(BeZero())
	})

	It("should feed tracers and the monitor", func() {
		tracer := tracing.NewAverageTimeTracer(
			tracing.KindFilter(rtl.TransactionWrite))
		monitor := monitoring.NewMonitor()

		s := builder.
			WithTracer(tracer).
			WithMonitor(monitor).
			Build("Session", near)

		s.Play(mustParse(`
			0 write 0xE0000000 4 1
			1 write 0xE0000004 4 2
		`))

		Expect(s.Run(context.Background())).To(Succeed())
		Expect(tracer.TotalCount()).To(Equal(uint64(2)))
		Expect(s.ID()).NotTo(BeEmpty())

		s.Close()
	})
})
