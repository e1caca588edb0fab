// Package serial carries UART symbols between a simulated UART and a
// pseudo-terminal. Symbols are data bytes or line events; on the wire, events
// travel as escape sequences in the style of the termios PARMRK marking.
package serial

import "fmt"

// A Symbol is a data byte (0x00 to 0xFF) or a line event.
type Symbol uint16

// Line events.
const (
	Idle         Symbol = 0x100
	Break        Symbol = 0x104
	FramingError Symbol = 0x115
	FIFOEmpty    Symbol = 0x119
	Noise        Symbol = 0x11A
)

// DataSymbol returns the symbol that carries b.
func DataSymbol(b byte) Symbol {
	return Symbol(b)
}

// IsData tells if the symbol carries a data byte.
func (s Symbol) IsData() bool {
	return s < 0x100
}

// Byte returns the data byte of a data symbol.
func (s Symbol) Byte() byte {
	return byte(s)
}

// Valid tells if s is a data byte or one of the named events.
func (s Symbol) Valid() bool {
	switch s {
	case Idle, Break, FramingError, FIFOEmpty, Noise:
		return true
	default:
		return s.IsData()
	}
}

func (s Symbol) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Break:
		return "BREAK"
	case FramingError:
		return "FRAMING-ERROR"
	case FIFOEmpty:
		return "FIFO-EMPTY"
	case Noise:
		return "NOISE"
	}

	if s.IsData() {
		return fmt.Sprintf("%02X", byte(s))
	}

	return fmt.Sprintf("INVALID(%03X)", uint16(s))
}
