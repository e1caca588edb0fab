package rtl

import "errors"

var (
	// ErrTransportLost is returned once the connection to the RTL simulator
	// has failed. Every later operation fails with it too.
	ErrTransportLost = errors.New("rtl: transport lost")

	// ErrTimeout is returned when a reply does not arrive in time. The request
	// remains outstanding until its late reply arrives.
	ErrTimeout = errors.New("rtl: timed out waiting for the simulator")

	// ErrProtocolViolation is returned when the reply does not match the
	// command that was sent.
	ErrProtocolViolation = errors.New("rtl: protocol violation")

	// ErrInvalidAccess is returned for accesses outside the register window,
	// with an unsupported size, or that cross a 32-bit word boundary.
	ErrInvalidAccess = errors.New("rtl: invalid access")

	// ErrCommandTooLong is returned when a field does not fit the fixed-width
	// command format. No command is sent.
	ErrCommandTooLong = errors.New("rtl: command does not fit its format")

	// ErrShutdown is returned after the bridge has been shut down.
	ErrShutdown = errors.New("rtl: bridge shut down")
)
