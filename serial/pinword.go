package serial

// The HDL side of the UART exchanges symbols as integer pin words.
//
// A transmit word with bit 0 set is noise. Otherwise the word shifted right
// by one is either below 0x100, an event that is idle when zero and a framing
// error otherwise, or a data byte in its low eight bits. Negative words carry
// nothing. A receive word is the symbol itself, or -1 when there is none.

// DecodePinWord converts a transmit word to a symbol.
func DecodePinWord(w int) (Symbol, bool) {
	if w < 0 {
		return 0, false
	}

	if w&1 != 0 {
		return Noise, true
	}

	w >>= 1
	if w < 0x100 {
		if w == 0 {
			return Idle, true
		}

		return FramingError, true
	}

	return DataSymbol(byte(w)), true
}

// EncodeTransmitWord converts a symbol to the transmit word the HDL side
// would produce for it.
func EncodeTransmitWord(s Symbol) int {
	switch {
	case s == Noise:
		return 1
	case s == Idle:
		return 0
	case s.IsData():
		return (0x100 | int(s)) << 1
	default:
		return 0x15 << 1
	}
}

// EncodePinWord converts a received symbol to a receive word.
func EncodePinWord(s Symbol, ok bool) int {
	if !ok {
		return -1
	}

	return int(s)
}
