package serial

// Escape starts an escape sequence on the wire.
const Escape = 0xFF

// Encode appends the wire bytes of s to dst. Noise, Break, FIFOEmpty, and
// invalid symbols produce nothing.
func Encode(dst []byte, s Symbol) []byte {
	switch {
	case s == Idle:
		return append(dst, Escape, 0x00, 0x00)
	case s == FramingError:
		return append(dst, Escape, 0x00, 0x15)
	case s == Escape:
		return append(dst, Escape, Escape)
	case s.IsData():
		return append(dst, byte(s))
	default:
		return dst
	}
}

type decoderState int

const (
	stateData decoderState = iota
	stateEscape
	stateEvent
)

// A Decoder turns wire bytes back into symbols. The zero value is ready to
// use.
type Decoder struct {
	state decoderState
	out   [2]Symbol
}

// Decode consumes one byte and returns the symbols it completes. The returned
// slice is only valid until the next call.
func (d *Decoder) Decode(b byte) []Symbol {
	switch d.state {
	case stateEscape:
		d.state = stateData

		switch b {
		case Escape:
			return d.emit(DataSymbol(Escape))
		case 0x00:
			d.state = stateEvent
			return nil
		default:
			return d.emit(FramingError, DataSymbol(b))
		}
	case stateEvent:
		d.state = stateData

		if b == 0x00 {
			return d.emit(Idle)
		}

		return d.emit(FramingError)
	}

	if b == Escape {
		d.state = stateEscape
		return nil
	}

	return d.emit(DataSymbol(b))
}

// Pending tells if the decoder is inside an escape sequence.
func (d *Decoder) Pending() bool {
	return d.state != stateData
}

func (d *Decoder) emit(symbols ...Symbol) []Symbol {
	n := copy(d.out[:], symbols)
	return d.out[:n]
}
