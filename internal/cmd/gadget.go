package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/hombit/sweam/internal/gadget"
)

// GadgetCommand groups gadget lifecycle subcommands for use without an
// interactive session.
type GadgetCommand struct {
	Up     GadgetUp     `cmd:"" help:"Provision the gadget and bind it to a UDC"`
	Down   GadgetDown   `cmd:"" help:"Unbind the gadget and remove its configfs subtree"`
	Status GadgetStatus `cmd:"" help:"Show the gadget's provisioning and binding state"`
}

// GadgetUp provisions and binds, then exits leaving the gadget active.
type GadgetUp struct {
	GadgetFlags `embed:"" prefix:"gadget."`
}

func (c *GadgetUp) Run(logger *slog.Logger) error {
	g, err := c.newGadget(logger)
	if err != nil {
		return err
	}
	if err := g.Up(context.Background()); err != nil {
		return err
	}
	logger.Info("gadget bound", "name", c.Name, "udc", g.BoundUDC())
	return nil
}

// GadgetDown tears down a gadget subtree, including one provisioned by a
// previous process.
type GadgetDown struct {
	GadgetFlags `embed:"" prefix:"gadget."`
}

func (c *GadgetDown) Run(logger *slog.Logger) error {
	g, err := c.newGadget(logger)
	if err != nil {
		return err
	}
	if err := g.Down(); err != nil {
		return err
	}
	logger.Info("gadget removed", "name", c.Name)
	return nil
}

// GadgetStatus inspects the on-disk configfs state without mutating it.
type GadgetStatus struct {
	Name string `help:"Configfs gadget name" default:"sweam" env:"SWEAM_GADGET_NAME"`
}

func (c *GadgetStatus) Run(logger *slog.Logger) error {
	udcAttr := filepath.Join(gadget.DefaultConfigFSRoot, "usb_gadget", c.Name, "UDC")
	data, err := os.ReadFile(udcAttr)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Printf("gadget %q: not provisioned\n", c.Name)
			return nil
		}
		return fmt.Errorf("reading %s: %w", udcAttr, err)
	}
	udc := strings.TrimSpace(string(data))
	if udc == "" {
		fmt.Printf("gadget %q: provisioned, not bound\n", c.Name)
	} else {
		fmt.Printf("gadget %q: bound to %s\n", c.Name, udc)
	}
	return nil
}
