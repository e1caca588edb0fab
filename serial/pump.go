package serial

import (
	"context"
)

// Pump moves symbols between the line and a UART until ctx is done. Symbols
// from tx are emitted; received symbols are sent to rx. A nil tx or rx
// disables that direction.
func Pump(
	ctx context.Context,
	t *LineTransport,
	tx <-chan Symbol,
	rx chan<- Symbol,
) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case s, ok := <-tx:
			if !ok {
				tx = nil
				continue
			}

			t.Emit(s)

			continue
		default:
		}

		if rx == nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case s, ok := <-tx:
				if !ok {
					tx = nil
					continue
				}

				t.Emit(s)
			}

			continue
		}

		s, ok := t.Receive()
		if !ok {
			continue
		}

		select {
		case rx <- s:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Loopback echoes every data byte received back to the line until ctx is
// done. Line events are reported to onEvent, which may be nil.
func Loopback(ctx context.Context, t *LineTransport, onEvent func(Symbol)) error {
	for ctx.Err() == nil {
		s, ok := t.Receive()
		if !ok {
			continue
		}

		if !s.IsData() {
			if onEvent != nil {
				onEvent(s)
			}

			continue
		}

		t.Emit(s)
	}

	return ctx.Err()
}
