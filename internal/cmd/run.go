package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/hombit/sweam/device/procon"
	"github.com/hombit/sweam/internal/emulator"
	"github.com/hombit/sweam/internal/gadget"
	"github.com/hombit/sweam/internal/kmod"
	"github.com/hombit/sweam/internal/log"
	"github.com/hombit/sweam/internal/transport"
)

// GadgetFlags describe the configfs gadget to create. Defaults emulate a
// Pro Controller byte for byte.
type GadgetFlags struct {
	Name         string `help:"Configfs gadget name" default:"sweam" env:"SWEAM_GADGET_NAME"`
	UDC          string `help:"UDC to bind; empty picks the first controller in /sys/class/udc" env:"SWEAM_UDC"`
	VendorID     uint16 `help:"USB vendor ID" default:"0x057e" env:"SWEAM_VENDOR_ID"`
	ProductID    uint16 `help:"USB product ID" default:"0x2009" env:"SWEAM_PRODUCT_ID"`
	Manufacturer string `help:"USB manufacturer string" default:"Nintendo" env:"SWEAM_MANUFACTURER"`
	Product      string `help:"USB product string" default:"Pro Controller" env:"SWEAM_PRODUCT"`
	SkipModules  bool   `help:"Assume libcomposite and usb_f_hid are already loaded" env:"SWEAM_SKIP_MODULES"`
}

func (f *GadgetFlags) gadgetConfig() gadget.Config {
	return gadget.Config{
		Name:         f.Name,
		VendorID:     f.VendorID,
		ProductID:    f.ProductID,
		Manufacturer: f.Manufacturer,
		Product:      f.Product,
		Protocol:     0,
		Subclass:     0,
		ReportLength: procon.InputReportSize,
		ReportDesc:   procon.ReportDescriptorBytes(),
		UDC:          f.UDC,
	}
}

func (f *GadgetFlags) newGadget(logger *slog.Logger) (*gadget.Gadget, error) {
	var modules gadget.ModuleLoader
	if !f.SkipModules {
		modules = kmod.New(logger)
	}
	return gadget.New(f.gadgetConfig(), logger, modules)
}

// Run is the main command: provision the gadget, bind it and drive the
// interactive controller session from stdin.
type Run struct {
	GadgetFlags `embed:"" prefix:"gadget."`

	Transport string        `help:"Report transport backend" enum:"usb,hidg" default:"usb" env:"SWEAM_TRANSPORT"`
	Timeout   time.Duration `help:"Interrupt transfer timeout" default:"100ms" env:"SWEAM_TIMEOUT"`
	Idle      bool          `help:"Keep the gadget bound after the command stream ends; exit on SIGTERM" env:"SWEAM_IDLE"`
}

// Run is called by Kong when the run command is executed.
func (r *Run) Run(logger *slog.Logger, reports log.ReportLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		// Restore default signal handling once shutdown begins so a
		// second signal kills the process instead of being swallowed.
		<-ctx.Done()
		stop()
	}()

	g, err := r.newGadget(logger)
	if err != nil {
		return err
	}
	if err := g.Up(ctx); err != nil {
		return err
	}
	defer func() {
		if err := g.Down(); err != nil {
			logger.Error("gadget teardown failed", "error", err)
		}
	}()
	logger.Info("gadget bound", "name", r.Name, "udc", g.BoundUDC())

	tr, err := r.openTransport(g, logger)
	if err != nil {
		return err
	}
	defer tr.Close()

	session := emulator.NewSession(tr, logger, reports)

	if term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Println("Enter commands (" + strings.Join(emulator.Tokens(), ", ") + "):")
	}

	err = session.Run(ctx, os.Stdin)
	if errors.Is(err, context.Canceled) {
		logger.Info("interrupted, shutting down")
		return nil
	}
	if err != nil {
		return err
	}

	// Under a service manager stdin is /dev/null and the command stream
	// ends immediately; idle mode keeps the gadget bound until a
	// termination signal arrives.
	if r.Idle {
		logger.Info("command stream ended, keeping gadget bound until terminated")
		<-ctx.Done()
	}
	return nil
}

func (r *Run) openTransport(g *gadget.Gadget, logger *slog.Logger) (transport.Transport, error) {
	switch r.Transport {
	case "hidg":
		return transport.OpenHIDG(g, r.Timeout, logger)
	default:
		return transport.OpenUSB(g, r.Timeout, logger)
	}
}
