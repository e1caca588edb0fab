package rtl

import (
	"bytes"
	"fmt"
	"strconv"
)

// FrameSize is the length of every reply the RTL simulator sends, including
// the trailing CR+LF.
const FrameSize = 12

// A Frame is one fixed-size reply record read from the RTL simulator.
type Frame [FrameSize]byte

const (
	readCmdLen  = 12 // R:AAAAAAAA\r\n
	writeCmdLen = 24 // W:AAAAAAAA<=DDDDDDDD|M\r\n
	timeCmdLen  = 12 // T:NNNNNNNN\r\n
)

var (
	cmdReset = []byte("X:RESET   \r\n")
	cmdStop  = []byte("X:STOP    \r\n")

	replyWriteOK = []byte("W=OK      \r\n")
	replyRunning = []byte("X=RUNNING \r\n")
)

// MakeFrame pads s with spaces and terminates it with CR+LF. It panics if s
// does not fit.
func MakeFrame(s string) Frame {
	var f Frame

	if len(s) > FrameSize-2 {
		panic(fmt.Sprintf("frame payload %q is longer than %d bytes",
			s, FrameSize-2))
	}

	copy(f[:], s)
	for i := len(s); i < FrameSize-2; i++ {
		f[i] = ' '
	}

	f[FrameSize-2] = '\r'
	f[FrameSize-1] = '\n'

	return f
}

// String returns the payload of the frame without padding and line ending.
func (f Frame) String() string {
	return string(bytes.TrimRight(f[:], " \r\n\x00"))
}

// IsIRQReport tells if the frame is an unsolicited interrupt-level report.
func (f Frame) IsIRQReport() bool {
	return f[0] == 'I'
}

func encodeRead(addr uint64) ([]byte, error) {
	return fitCommand(fmt.Sprintf("R:%08X\r\n", addr), readCmdLen)
}

func encodeWrite(addr, data uint64, mask uint8) ([]byte, error) {
	return fitCommand(
		fmt.Sprintf("W:%08X<=%08X|%01X\r\n", addr, data, mask), writeCmdLen)
}

func encodeAdvance(n uint64) ([]byte, error) {
	return fitCommand(fmt.Sprintf("T:%08X\r\n", n), timeCmdLen)
}

func fitCommand(cmd string, length int) ([]byte, error) {
	if len(cmd) != length {
		return nil, fmt.Errorf("%w: %q", ErrCommandTooLong, cmd)
	}

	return []byte(cmd), nil
}

// leadingHex parses the hexadecimal digits at the start of b, the way
// sscanf's %x does.
func leadingHex(b []byte) (uint64, bool) {
	n := 0
	for n < len(b) && isHexDigit(b[n]) {
		n++
	}

	if n == 0 {
		return 0, false
	}

	v, err := strconv.ParseUint(string(b[:n]), 16, 64)
	if err != nil {
		return 0, false
	}

	return v, true
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') ||
		(c >= 'a' && c <= 'f') ||
		(c >= 'A' && c <= 'F')
}

func parseReadReply(f Frame) (uint64, bool) {
	if f[0] != 'R' || f[1] != '=' {
		return 0, false
	}

	v, ok := leadingHex(f[2:])
	if !ok || v > 0xFFFFFFFF {
		return 0, false
	}

	return v, true
}

// isWriteAck accepts both acknowledgements, as the control register turns a
// write into a time advance.
func isWriteAck(f Frame) bool {
	return bytes.Equal(f[:], replyWriteOK) || isAdvanceAck(f)
}

func isAdvanceAck(f Frame) bool {
	return f[0] == 'T' && f[1] == '='
}

func isRunning(f Frame) bool {
	return bytes.Equal(f[:], replyRunning)
}

func parseIRQReport(f Frame) (uint32, bool) {
	if f[0] != 'I' || f[1] != '=' {
		return 0, false
	}

	v, ok := leadingHex(f[2:])
	if !ok || v > 0xFFFFFFFF {
		return 0, false
	}

	return uint32(v), true
}

// ReadReply builds the reply to a read command.
func ReadReply(value uint32) Frame {
	return MakeFrame(fmt.Sprintf("R=%08X", value))
}

// WriteAck builds the reply to a write command.
func WriteAck() Frame {
	var f Frame
	copy(f[:], replyWriteOK)

	return f
}

// AdvanceAck builds the reply to a time-advance command, carrying the
// simulator's current time.
func AdvanceAck(now uint32) Frame {
	return MakeFrame(fmt.Sprintf("T=%08X", now))
}

// RunningAck builds the reply to a reset command.
func RunningAck() Frame {
	var f Frame
	copy(f[:], replyRunning)

	return f
}

// IRQReport builds an unsolicited interrupt-level report.
func IRQReport(level uint32) Frame {
	return MakeFrame(fmt.Sprintf("I=%X", level))
}

// CommandKind tells which command a line received by the RTL side carries.
type CommandKind int

// Commands the bridge sends.
const (
	CommandRead CommandKind = iota
	CommandWrite
	CommandAdvance
	CommandReset
	CommandStop
)

func (k CommandKind) String() string {
	switch k {
	case CommandRead:
		return "read"
	case CommandWrite:
		return "write"
	case CommandAdvance:
		return "advance"
	case CommandReset:
		return "reset"
	case CommandStop:
		return "stop"
	default:
		return "unknown"
	}
}

// A Command is a decoded command line, as seen by the RTL simulator side.
type Command struct {
	Kind    CommandKind
	Address uint32
	Data    uint32
	Mask    uint8
	Count   uint32
}

// ParseCommand decodes one command line, with or without its line ending.
func ParseCommand(line []byte) (Command, error) {
	line = bytes.TrimRight(line, "\r\n")

	if len(line) < 2 || line[1] != ':' {
		return Command{}, fmt.Errorf("malformed command %q", line)
	}

	switch line[0] {
	case 'R':
		addr, err := parseHexField(line[2:], 8)
		if err != nil {
			return Command{}, fmt.Errorf("read command %q: %w", line, err)
		}

		return Command{Kind: CommandRead, Address: uint32(addr)}, nil
	case 'W':
		return parseWriteCommand(line)
	case 'T':
		n, err := parseHexField(line[2:], 8)
		if err != nil {
			return Command{}, fmt.Errorf("time command %q: %w", line, err)
		}

		return Command{Kind: CommandAdvance, Count: uint32(n)}, nil
	case 'X':
		switch string(bytes.TrimRight(line[2:], " ")) {
		case "RESET":
			return Command{Kind: CommandReset}, nil
		case "STOP":
			return Command{Kind: CommandStop}, nil
		}
	}

	return Command{}, fmt.Errorf("unknown command %q", line)
}

func parseWriteCommand(line []byte) (Command, error) {
	// W:AAAAAAAA<=DDDDDDDD|M
	if len(line) != writeCmdLen-2 ||
		string(line[10:12]) != "<=" || line[20] != '|' {
		return Command{}, fmt.Errorf("malformed write command %q", line)
	}

	addr, err := parseHexField(line[2:10], 8)
	if err != nil {
		return Command{}, fmt.Errorf("write command %q: %w", line, err)
	}

	data, err := parseHexField(line[12:20], 8)
	if err != nil {
		return Command{}, fmt.Errorf("write command %q: %w", line, err)
	}

	mask, err := parseHexField(line[21:22], 1)
	if err != nil {
		return Command{}, fmt.Errorf("write command %q: %w", line, err)
	}

	return Command{
		Kind:    CommandWrite,
		Address: uint32(addr),
		Data:    uint32(data),
		Mask:    uint8(mask),
	}, nil
}

func parseHexField(b []byte, width int) (uint64, error) {
	if len(b) != width {
		return 0, fmt.Errorf("want %d hex digits, got %q", width, b)
	}

	return strconv.ParseUint(string(b), 16, 32)
}
