package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"github.com/hombit/sweam/internal/gadget"
)

// HIDG exchanges reports through the gadget's /dev/hidgN character
// device. Unlike USB it needs no host-side handle: the hid function
// driver bridges writes to the interrupt IN endpoint and surfaces host
// output reports as reads.
type HIDG struct {
	f         *os.File
	timeout   time.Duration
	reportLen int
	logger    *slog.Logger
	closed    bool
}

// OpenHIDG resolves and opens the gadget's character device. The gadget
// must be bound to a UDC so the device node exists.
func OpenHIDG(g *gadget.Gadget, timeout time.Duration, logger *slog.Logger) (*HIDG, error) {
	if !g.Active() {
		return nil, gadget.ErrNotActive
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	path, err := g.DevicePath()
	if err != nil {
		return nil, err
	}
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	logger.Debug("opened gadget character device", slog.String("path", path))
	return &HIDG{
		f:         os.NewFile(uintptr(fd), path),
		timeout:   timeout,
		reportLen: g.Config().ReportLength,
		logger:    logger,
	}, nil
}

func (t *HIDG) Send(ctx context.Context, report []byte) error {
	if t.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	// A hidg write blocks until the host polls the endpoint; with the
	// descriptor in nonblocking mode that surfaces as EAGAIN, so wait for
	// writability within the transfer budget.
	deadline := time.Now().Add(t.timeout)
	for {
		_, err := t.f.Write(report)
		if err == nil {
			return nil
		}
		if !isAgain(err) {
			return fmt.Errorf("writing input report: %w", err)
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return ErrTimeout
		}
		ready, err := t.poll(unix.POLLOUT, remaining)
		if err != nil {
			return fmt.Errorf("waiting for endpoint: %w", err)
		}
		if !ready {
			return ErrTimeout
		}
	}
}

func (t *HIDG) Receive(ctx context.Context) ([]byte, error) {
	if t.closed {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ready, err := t.poll(unix.POLLIN, t.timeout)
	if err != nil {
		return nil, fmt.Errorf("waiting for output report: %w", err)
	}
	if !ready {
		return nil, nil
	}
	buf := make([]byte, t.readSize())
	n, err := t.f.Read(buf)
	if err != nil {
		if isAgain(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading output report: %w", err)
	}
	return buf[:n], nil
}

func (t *HIDG) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	return t.f.Close()
}

func (t *HIDG) readSize() int {
	if t.reportLen > 0 {
		return t.reportLen
	}
	return 64
}

func (t *HIDG) poll(events int16, timeout time.Duration) (bool, error) {
	fds := []unix.PollFd{{Fd: int32(t.f.Fd()), Events: events}}
	for {
		n, err := unix.Poll(fds, int(timeout.Milliseconds()))
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return false, err
		}
		return n > 0, nil
	}
}

func isAgain(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK)
}
