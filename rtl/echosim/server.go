// Package echosim provides a stand-in for an RTL simulator. It answers the
// bridge protocol from a register file, keeps a time counter, and can raise
// interrupts. It serves one connection at a time.
package echosim

import (
	"bufio"
	"context"
	"io"
	"log"
	"net"
	"os"
	"sync"

	"github.com/pkg/errors"

	"github.com/sarchlab/cosim/rtl"
)

// Server is a register-file RTL simulator.
type Server struct {
	lock      sync.Mutex
	regs      map[uint32]uint32
	now       uint32
	irqLevel  uint32
	irqReg    uint32
	hasIRQReg bool
	resets    int
	commands  int
	logger    *log.Logger

	writeLock sync.Mutex
	conn      io.ReadWriteCloser
}

// An Option configures a Server.
type Option func(s *Server)

// WithIRQRegister makes writes to addr set the interrupt level. The level is
// reported before the write is acknowledged.
func WithIRQRegister(addr uint32) Option {
	return func(s *Server) {
		s.irqReg = addr &^ 3
		s.hasIRQReg = true
	}
}

// WithLogger sets the logger of the server.
func WithLogger(logger *log.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a Server with all registers zero.
func NewServer(opts ...Option) *Server {
	s := &Server{
		regs:   make(map[uint32]uint32),
		logger: log.New(os.Stderr, "echosim: ", log.LstdFlags),
	}

	for _, o := range opts {
		o(s)
	}

	return s
}

// Register returns the word at the aligned address addr.
func (s *Server) Register(addr uint32) uint32 {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.regs[addr&^3]
}

// Now returns the number of time units run so far.
func (s *Server) Now() uint32 {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.now
}

// Resets returns the number of reset commands served.
func (s *Server) Resets() int {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.resets
}

// Commands returns the number of commands served.
func (s *Server) Commands() int {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.commands
}

// RaiseIRQ sends an unsolicited interrupt report on the current connection.
func (s *Server) RaiseIRQ(level uint32) error {
	s.lock.Lock()
	s.irqLevel = level
	s.lock.Unlock()

	return s.send(rtl.IRQReport(level))
}

// ListenAndServe accepts connections on address and serves them one after
// another until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, network, address string) error {
	var lc net.ListenConfig

	l, err := lc.Listen(ctx, network, address)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", address)
	}

	s.logger.Printf("listening on %s", l.Addr())

	go func() {
		<-ctx.Done()
		_ = l.Close()
	}()

	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			return errors.Wrap(err, "accept")
		}

		err = s.Serve(ctx, conn)
		if err != nil {
			s.logger.Printf("connection from %s: %v", conn.RemoteAddr(), err)
		}
	}
}

// Serve answers commands on conn until the peer sends STOP, closes the
// connection, or ctx is done. It closes conn before returning.
func (s *Server) Serve(ctx context.Context, conn io.ReadWriteCloser) error {
	s.writeLock.Lock()
	s.conn = conn
	s.writeLock.Unlock()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	defer func() {
		s.writeLock.Lock()
		s.conn = nil
		s.writeLock.Unlock()
		_ = conn.Close()
	}()

	reader := bufio.NewReader(conn)

	for {
		line, err := reader.ReadBytes('\n')
		if err == io.EOF || ctx.Err() != nil {
			return nil
		}

		if err != nil {
			return errors.Wrap(err, "read command")
		}

		cmd, err := rtl.ParseCommand(line)
		if err != nil {
			s.logger.Printf("%v", err)

			if err := s.send(rtl.MakeFrame("E=BADCMD")); err != nil {
				return err
			}

			continue
		}

		if cmd.Kind == rtl.CommandStop {
			s.logger.Printf("stopped at time %d", s.Now())
			return nil
		}

		if err := s.serveCommand(cmd); err != nil {
			return err
		}
	}
}

func (s *Server) serveCommand(cmd rtl.Command) error {
	s.lock.Lock()
	s.commands++

	var (
		reply    rtl.Frame
		irq      bool
		irqLevel uint32
	)

	switch cmd.Kind {
	case rtl.CommandRead:
		reply = rtl.ReadReply(s.regs[cmd.Address&^3])
	case rtl.CommandWrite:
		word := cmd.Address &^ 3
		s.regs[word] = merge(s.regs[word], cmd.Data, cmd.Mask)

		if s.hasIRQReg && word == s.irqReg {
			s.irqLevel = s.regs[word]
			irq = true
			irqLevel = s.irqLevel
		}

		reply = rtl.WriteAck()
	case rtl.CommandAdvance:
		s.now += cmd.Count
		reply = rtl.AdvanceAck(s.now)
	case rtl.CommandReset:
		s.regs = make(map[uint32]uint32)
		s.now = 0
		s.irqLevel = 0
		s.resets++
		reply = rtl.RunningAck()
	}
	s.lock.Unlock()

	if irq {
		if err := s.send(rtl.IRQReport(irqLevel)); err != nil {
			return err
		}
	}

	return s.send(reply)
}

// merge replaces the bytes of word selected by mask with those of data.
func merge(word, data uint32, mask uint8) uint32 {
	for i := 0; i < 4; i++ {
		if mask&(1<<i) == 0 {
			continue
		}

		m := uint32(0xFF) << (8 * i)
		word = word&^m | data&m
	}

	return word
}

func (s *Server) send(f rtl.Frame) error {
	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	if s.conn == nil {
		return errors.New("no connection")
	}

	_, err := s.conn.Write(f[:])

	return errors.Wrapf(err, "send %q", f.String())
}
