package rtl

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Relay", func() {
	var relay *Relay

	BeforeEach(func() {
		relay = NewRelay()
	})

	It("should be empty at first", func() {
		_, ok := relay.Poll()
		Expect(ok).To(BeFalse())
	})

	It("should deliver a report once", func() {
		relay.Report(3)

		level, ok := relay.Poll()
		Expect(ok).To(BeTrue())
		Expect(level).To(Equal(uint32(3)))

		_, ok = relay.Poll()
		Expect(ok).To(BeFalse())
	})

	It("should keep only the latest level", func() {
		relay.Report(1)
		relay.Report(2)
		relay.Report(0)

		Expect(relay.C()).To(Receive(Equal(uint32(0))))
		Expect(relay.Reported()).To(Equal(uint64(3)))
		Expect(relay.Coalesced()).To(Equal(uint64(2)))
	})

	It("should mirror the last level across consumption", func() {
		relay.Report(4)
		Expect(relay.Take()).To(Equal(uint32(4)))

		_, ok := relay.Poll()
		Expect(ok).To(BeFalse())
		Expect(relay.Level()).To(Equal(uint32(4)))
		Expect(relay.Take()).To(Equal(uint32(4)))
	})

	It("should clear the waiting and mirrored levels", func() {
		relay.Report(5)
		relay.Clear()

		_, ok := relay.Poll()
		Expect(ok).To(BeFalse())
		Expect(relay.Level()).To(BeZero())
	})
})
