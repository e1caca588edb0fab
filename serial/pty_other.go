//go:build !linux

package serial

import (
	"errors"
	"time"
)

var errNoPTY = errors.New("serial: pseudo-terminals are only supported on linux")

// PTY is the master side of a pseudo-terminal.
type PTY struct{}

// OpenPTY is not supported on this platform.
func OpenPTY(link string) (*PTY, error) {
	return nil, errNoPTY
}

// Name returns the slave device path.
func (p *PTY) Name() string { return "" }

// Link returns the symlink to the slave, if any.
func (p *PTY) Link() string { return "" }

// Poll is not supported on this platform.
func (p *PTY) Poll(time.Duration) (PollResult, error) { return PollResult{}, errNoPTY }

// Read is not supported on this platform.
func (p *PTY) Read([]byte) (int, error) { return 0, errNoPTY }

// Write is not supported on this platform.
func (p *PTY) Write([]byte) (int, error) { return 0, errNoPTY }

// Close does nothing.
func (p *PTY) Close() error { return nil }

// MakeRaw is not supported on this platform.
func MakeRaw(fd int) (func() error, error) {
	return nil, errNoPTY
}
