package serial

import "time"

// PollResult tells what a poll found on an endpoint.
type PollResult struct {
	Readable bool
	HungUp   bool
}

// An Endpoint is the host side of a serial line.
type Endpoint interface {
	// Poll waits up to timeout for the endpoint to become readable. HungUp
	// reports that no peer holds the other side.
	Poll(timeout time.Duration) (PollResult, error)
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
	Name() string
}
