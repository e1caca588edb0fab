package serial

import (
	"io"
	"log"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/sys/unix"
)

var _ = Describe("PTY", func() {
	var (
		pty  *PTY
		link string
	)

	BeforeEach(func() {
		if _, err := os.Stat("/dev/ptmx"); err != nil {
			Skip("no /dev/ptmx")
		}

		link = filepath.Join(GinkgoT().TempDir(), "ttyRTL")

		var err error
		pty, err = OpenPTY(link)
		if err != nil {
			Skip("cannot open a pseudo-terminal: " + err.Error())
		}
	})

	AfterEach(func() {
		if pty != nil {
			Expect(pty.Close()).To(Succeed())
		}
	})

	It("should link the slave", func() {
		target, err := os.Readlink(link)

		Expect(err).NotTo(HaveOccurred())
		Expect(target).To(Equal(pty.Name()))
	})

	It("should remove the link on close", func() {
		Expect(pty.Close()).To(Succeed())

		_, err := os.Lstat(link)
		Expect(os.IsNotExist(err)).To(BeTrue())
	})

	It("should carry symbols to a terminal attached to the link", func() {
		transport := MakeTransportBuilder().
			WithLogger(log.New(io.Discard, "", 0)).
			Build("Line", pty)

		_, ok := transport.Receive()
		Expect(ok).To(BeFalse())

		term, err := os.OpenFile(link, os.O_RDWR|unix.O_NOCTTY, 0)
		Expect(err).NotTo(HaveOccurred())

		next := func() Symbol {
			s, ok := transport.Receive()
			if !ok {
				return Symbol(0xFFFF)
			}

			return s
		}

		Eventually(next).Should(Equal(Idle))

		_, err = term.Write([]byte{'A'})
		Expect(err).NotTo(HaveOccurred())
		Eventually(next).Should(Equal(DataSymbol('A')))

		transport.Emit(DataSymbol('B'))
		buf := make([]byte, 1)
		_, err = io.ReadFull(term, buf)
		Expect(err).NotTo(HaveOccurred())
		Expect(buf[0]).To(Equal(byte('B')))

		Expect(term.Close()).To(Succeed())
		Eventually(next).Should(Equal(Break))
	})
})
