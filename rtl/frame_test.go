package rtl

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Frame", func() {
	It("should pad frames to twelve bytes", func() {
		f := MakeFrame("I=3")

		Expect(string(f[:])).To(Equal("I=3       \r\n"))
		Expect(f.String()).To(Equal("I=3"))
		Expect(f.IsIRQReport()).To(BeTrue())
	})

	It("should panic on oversized payloads", func() {
		Expect(func() { MakeFrame("R=0123456789") }).To(Panic())
	})

	It("should encode commands at fixed width", func() {
		cmd, err := encodeRead(0xE0000004)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(cmd)).To(Equal("R:E0000004\r\n"))

		cmd, err = encodeWrite(0xE0000006, 0xABCD0000, 0xC)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(cmd)).To(Equal("W:E0000006<=ABCD0000|C\r\n"))
		Expect(cmd).To(HaveLen(24))

		cmd, err = encodeAdvance(1)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(cmd)).To(Equal("T:00000001\r\n"))

		Expect(cmdReset).To(HaveLen(FrameSize))
		Expect(cmdStop).To(HaveLen(FrameSize))
	})

	It("should refuse fields that do not fit", func() {
		_, err := encodeRead(0x1_0000_0000)
		Expect(err).To(MatchError(ErrCommandTooLong))

		_, err = encodeAdvance(0x1_2345_6789)
		Expect(err).To(MatchError(ErrCommandTooLong))
	})

	It("should parse replies", func() {
		v, ok := parseReadReply(ReadReply(0xDEADBEEF))
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal(uint64(0xDEADBEEF)))

		_, ok = parseReadReply(MakeFrame("R=zz"))
		Expect(ok).To(BeFalse())

		Expect(isWriteAck(WriteAck())).To(BeTrue())
		Expect(isWriteAck(MakeFrame("W=OK"))).To(BeTrue())
		Expect(isWriteAck(MakeFrame("W=NO"))).To(BeFalse())
		Expect(isAdvanceAck(AdvanceAck(7))).To(BeTrue())
		Expect(isRunning(RunningAck())).To(BeTrue())
		Expect(isRunning(MakeFrame("X=RUN"))).To(BeFalse())

		level, ok := parseIRQReport(IRQReport(0x1F))
		Expect(ok).To(BeTrue())
		Expect(level).To(Equal(uint32(0x1F)))
	})

	It("should parse commands", func() {
		cmd, err := ParseCommand([]byte("W:E0000006<=ABCD0000|C\r\n"))
		Expect(err).NotTo(HaveOccurred())
		Expect(cmd).To(Equal(Command{
			Kind:    CommandWrite,
			Address: 0xE0000006,
			Data:    0xABCD0000,
			Mask:    0xC,
		}))

		cmd, err = ParseCommand([]byte("R:E0000004\r\n"))
		Expect(err).NotTo(HaveOccurred())
		Expect(cmd.Kind).To(Equal(CommandRead))
		Expect(cmd.Address).To(Equal(uint32(0xE0000004)))

		cmd, err = ParseCommand([]byte("T:00000010"))
		Expect(err).NotTo(HaveOccurred())
		Expect(cmd.Count).To(Equal(uint32(0x10)))

		cmd, err = ParseCommand(cmdReset)
		Expect(err).NotTo(HaveOccurred())
		Expect(cmd.Kind).To(Equal(CommandReset))

		cmd, err = ParseCommand(cmdStop)
		Expect(err).NotTo(HaveOccurred())
		Expect(cmd.Kind).To(Equal(CommandStop))

		_, err = ParseCommand([]byte("W:E0000006=ABCD0000|C"))
		Expect(err).To(HaveOccurred())

		_, err = ParseCommand([]byte("Q:1"))
		Expect(err).To(HaveOccurred())
	})
})
