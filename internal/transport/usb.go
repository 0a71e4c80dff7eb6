package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/gousb"

	"github.com/hombit/sweam/internal/gadget"
)

// USB exchanges reports over the gadget's raw interrupt endpoints via
// libusb. Input reports go out on the interrupt OUT endpoint and host
// output reports come back on the interrupt IN endpoint, matching how a
// host-side handle addresses the device.
type USB struct {
	uctx    *gousb.Context
	device  *gousb.Device
	cfg     *gousb.Config
	intf    *gousb.Interface
	inEp    *gousb.InEndpoint
	outEp   *gousb.OutEndpoint
	timeout time.Duration
	logger  *slog.Logger
	closed  bool
}

// OpenUSB locates the gadget's USB device by vendor and product ID and
// claims its single HID interface. The gadget must be bound to a UDC.
func OpenUSB(g *gadget.Gadget, timeout time.Duration, logger *slog.Logger) (*USB, error) {
	if !g.Active() {
		return nil, gadget.ErrNotActive
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	cfg := g.Config()

	uctx := gousb.NewContext()
	dev, err := uctx.OpenDeviceWithVIDPID(gousb.ID(cfg.VendorID), gousb.ID(cfg.ProductID))
	if err != nil {
		uctx.Close()
		return nil, fmt.Errorf("could not open device %04x:%04x: %w", cfg.VendorID, cfg.ProductID, err)
	}
	if dev == nil {
		uctx.Close()
		return nil, fmt.Errorf("device %04x:%04x not found", cfg.VendorID, cfg.ProductID)
	}

	if err := dev.SetAutoDetach(true); err != nil {
		dev.Close()
		uctx.Close()
		return nil, fmt.Errorf("error setting auto-detach: %w", err)
	}

	cfgNum, err := dev.ActiveConfigNum()
	if err != nil {
		dev.Close()
		uctx.Close()
		return nil, fmt.Errorf("error getting active configuration: %w", err)
	}

	ucfg, err := dev.Config(cfgNum)
	if err != nil {
		dev.Close()
		uctx.Close()
		return nil, fmt.Errorf("error getting configuration %d: %w", cfgNum, err)
	}

	intf, err := ucfg.Interface(0, 0)
	if err != nil {
		ucfg.Close()
		dev.Close()
		uctx.Close()
		return nil, fmt.Errorf("error claiming interface 0: %w", err)
	}

	var (
		inEp  *gousb.InEndpoint
		outEp *gousb.OutEndpoint
	)
	for _, ep := range intf.Setting.Endpoints {
		var err error
		if ep.Direction == gousb.EndpointDirectionIn {
			inEp, err = intf.InEndpoint(ep.Number)
		} else {
			outEp, err = intf.OutEndpoint(ep.Number)
		}
		if err != nil {
			intf.Close()
			ucfg.Close()
			dev.Close()
			uctx.Close()
			return nil, fmt.Errorf("error opening endpoint %d: %w", ep.Number, err)
		}
	}
	if inEp == nil || outEp == nil {
		intf.Close()
		ucfg.Close()
		dev.Close()
		uctx.Close()
		return nil, errors.New("interface is missing an interrupt endpoint pair")
	}

	logger.Debug("claimed usb interface",
		slog.String("in", inEp.Desc.Address.String()),
		slog.String("out", outEp.Desc.Address.String()))

	return &USB{
		uctx:    uctx,
		device:  dev,
		cfg:     ucfg,
		intf:    intf,
		inEp:    inEp,
		outEp:   outEp,
		timeout: timeout,
		logger:  logger,
	}, nil
}

func (t *USB) Send(ctx context.Context, report []byte) error {
	if t.closed {
		return ErrClosed
	}
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	if _, err := t.outEp.WriteContext(ctx, report); err != nil {
		if isTransferTimeout(err) {
			return ErrTimeout
		}
		return fmt.Errorf("writing input report: %w", err)
	}
	return nil
}

func (t *USB) Receive(ctx context.Context) ([]byte, error) {
	if t.closed {
		return nil, ErrClosed
	}
	buf := make([]byte, t.inEp.Desc.MaxPacketSize)
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	n, err := t.inEp.ReadContext(ctx, buf)
	if err != nil {
		if isTransferTimeout(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading output report: %w", err)
	}
	return buf[:n], nil
}

func (t *USB) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	var errs error
	if t.intf != nil {
		t.intf.Close()
	}
	if t.cfg != nil {
		if err := t.cfg.Close(); err != nil {
			errs = errors.Join(errs, err)
		}
	}
	if t.device != nil {
		if err := t.device.Close(); err != nil {
			errs = errors.Join(errs, err)
		}
	}
	if t.uctx != nil {
		if err := t.uctx.Close(); err != nil {
			errs = errors.Join(errs, err)
		}
	}
	return errs
}

func isTransferTimeout(err error) bool {
	return errors.Is(err, gousb.TransferTimedOut) || errors.Is(err, context.DeadlineExceeded)
}
