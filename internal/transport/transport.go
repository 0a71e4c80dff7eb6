// Package transport performs interrupt-endpoint report I/O against a bound
// USB gadget.
//
// Two strategies are provided: USB talks to the device's raw interrupt
// endpoints through libusb, HIDG talks to the gadget's /dev/hidgN character
// device. Both require the gadget to be in the active (bound) state and
// fail fast otherwise.
package transport

import (
	"context"
	"errors"
	"io"
	"time"
)

// DefaultTimeout bounds a single interrupt transfer.
const DefaultTimeout = 100 * time.Millisecond

// ErrTimeout is a bounded transfer that did not complete in time. It is
// retryable: the caller may re-send the same or a fresher report.
var ErrTimeout = errors.New("interrupt transfer timed out")

// ErrClosed is an operation on a closed transport.
var ErrClosed = errors.New("transport is closed")

// Transport exchanges HID reports with the host.
type Transport interface {
	// Send writes one input report to the host. A timeout surfaces as
	// ErrTimeout; any other failure is fatal to the session.
	Send(ctx context.Context, report []byte) error

	// Receive reads one host-originated output report (rumble, LEDs).
	// No data within the timeout yields an empty result and no error.
	Receive(ctx context.Context) ([]byte, error)

	io.Closer
}
