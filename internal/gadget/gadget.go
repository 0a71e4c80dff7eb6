// Package gadget provisions a Linux USB HID gadget through configfs and
// guarantees its teardown.
//
// The kernel owns the gadget subtree; this package is the only writer to it
// within the process. Provisioning is idempotent: any previous state for the
// same gadget name is unbound and removed before new structure is created,
// and every failure path runs the same cleanup as normal teardown so a
// failed attempt never leaves a partial subtree behind.
package gadget

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// State identifies the lifecycle phase of a Gadget.
type State int

const (
	StateUninitialized State = iota
	StatePrerequisites
	StateProvisioned
	StateActive
	StateTornDown
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StatePrerequisites:
		return "prerequisites-loaded"
	case StateProvisioned:
		return "provisioned"
	case StateActive:
		return "active"
	case StateTornDown:
		return "torn-down"
	}
	return "unknown"
}

// requiredModules are the kernel modules a composite HID gadget depends on.
var requiredModules = []string{"libcomposite", "usb_f_hid"}

// ModuleLoader loads a kernel module by name, treating already-loaded as
// success.
type ModuleLoader interface {
	Load(ctx context.Context, name string) error
}

// Gadget owns the configfs subtree for one emulated device. The instance
// that provisions the subtree is the one that must tear it down.
type Gadget struct {
	cfg     Config
	logger  *slog.Logger
	modules ModuleLoader

	configfsRoot string
	udcClassDir  string
	devDir       string

	// writeFile is swapped out by tests to inject attribute write
	// failures.
	writeFile func(path string, data []byte) error

	state    State
	boundUDC string
}

// New validates the config and returns an unprovisioned Gadget.
func New(cfg Config, logger *slog.Logger, modules ModuleLoader) (*Gadget, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Gadget{
		cfg:          cfg,
		logger:       logger,
		modules:      modules,
		configfsRoot: DefaultConfigFSRoot,
		udcClassDir:  DefaultUDCClassDir,
		devDir:       "/dev",
		writeFile: func(path string, data []byte) error {
			return os.WriteFile(path, data, 0o644)
		},
	}, nil
}

// Config returns the gadget's configuration.
func (g *Gadget) Config() Config { return g.cfg }

// State returns the current lifecycle state.
func (g *Gadget) State() State { return g.state }

// Active reports whether the gadget is bound to a UDC.
func (g *Gadget) Active() bool { return g.state == StateActive }

// BoundUDC returns the controller name the gadget is currently bound to.
func (g *Gadget) BoundUDC() string { return g.boundUDC }

func (g *Gadget) gadgetDir() string {
	return filepath.Join(g.configfsRoot, "usb_gadget", g.cfg.Name)
}

func (g *Gadget) stringsDir() string {
	return filepath.Join(g.gadgetDir(), "strings", "0x409")
}

func (g *Gadget) functionDir() string {
	return filepath.Join(g.gadgetDir(), "functions", "hid.usb0")
}

func (g *Gadget) configDir() string {
	return filepath.Join(g.gadgetDir(), "configs", "c.1")
}

func (g *Gadget) linkPath() string {
	return filepath.Join(g.configDir(), "hid.usb0")
}

func (g *Gadget) udcAttr() string {
	return filepath.Join(g.gadgetDir(), "UDC")
}

// Up runs the full startup sequence: kernel module prerequisites, configfs
// provisioning, UDC bind. A failed bind tears the freshly provisioned
// subtree back down so Up never leaves partial state behind.
func (g *Gadget) Up(ctx context.Context) error {
	if err := g.LoadPrerequisites(ctx); err != nil {
		return err
	}
	if err := g.Provision(); err != nil {
		return err
	}
	if err := g.Bind(g.cfg.UDC); err != nil {
		if cerr := g.cleanup(); cerr != nil {
			g.logger.Error("cleanup after failed bind", "gadget", g.cfg.Name, "error", cerr)
		}
		g.state = StateTornDown
		return err
	}
	return nil
}

// LoadPrerequisites ensures the required kernel modules are present.
func (g *Gadget) LoadPrerequisites(ctx context.Context) error {
	if g.modules == nil {
		g.state = StatePrerequisites
		return nil
	}
	for _, name := range requiredModules {
		if err := g.modules.Load(ctx, name); err != nil {
			return err
		}
	}
	g.state = StatePrerequisites
	return nil
}

// Provision builds the configfs subtree for the gadget. Any previous
// subtree for the same name is torn down first, and a failed attempt is
// cleaned up before the error is returned, so the filesystem is never left
// in a half-provisioned state.
func (g *Gadget) Provision() error {
	if err := g.cleanup(); err != nil {
		return fmt.Errorf("removing previous gadget state: %w", err)
	}

	if err := g.provision(); err != nil {
		if cerr := g.cleanup(); cerr != nil {
			g.logger.Error("cleanup after failed provisioning", "gadget", g.cfg.Name, "error", cerr)
		}
		return err
	}

	g.state = StateProvisioned
	g.boundUDC = ""
	g.logger.Info("gadget provisioned", "gadget", g.cfg.Name, "path", g.gadgetDir())
	return nil
}

// provision writes the subtree in dependency order: device descriptors,
// string descriptors, HID function, configuration, function symlink. The
// kernel rejects later writes if earlier structure is missing.
func (g *Gadget) provision() error {
	if err := g.mkdir(g.gadgetDir()); err != nil {
		return err
	}

	deviceAttrs := []struct {
		name  string
		value string
	}{
		{"idVendor", fmt.Sprintf("0x%04x", g.cfg.VendorID)},
		{"idProduct", fmt.Sprintf("0x%04x", g.cfg.ProductID)},
		{"bcdDevice", fmt.Sprintf("0x%04x", g.cfg.BcdDevice)},
		{"bcdUSB", fmt.Sprintf("0x%04x", g.cfg.BcdUSB)},
		{"bDeviceClass", "0x00"},
		{"bDeviceSubClass", "0x00"},
		{"bDeviceProtocol", "0x00"},
		{"bMaxPacketSize0", "64"},
	}
	for _, a := range deviceAttrs {
		if err := g.writeAttr(filepath.Join(g.gadgetDir(), a.name), []byte(a.value)); err != nil {
			return err
		}
	}

	if err := g.mkdir(g.stringsDir()); err != nil {
		return err
	}
	if err := g.writeAttr(filepath.Join(g.stringsDir(), "manufacturer"), []byte(g.cfg.Manufacturer)); err != nil {
		return err
	}
	if err := g.writeAttr(filepath.Join(g.stringsDir(), "product"), []byte(g.cfg.Product)); err != nil {
		return err
	}

	if err := g.mkdir(g.functionDir()); err != nil {
		return err
	}
	functionAttrs := []struct {
		name  string
		value []byte
	}{
		{"protocol", []byte(strconv.Itoa(g.cfg.Protocol))},
		{"subclass", []byte(strconv.Itoa(g.cfg.Subclass))},
		{"report_length", []byte(strconv.Itoa(g.cfg.ReportLength))},
		{"report_desc", g.cfg.ReportDesc},
	}
	for _, a := range functionAttrs {
		if err := g.writeAttr(filepath.Join(g.functionDir(), a.name), a.value); err != nil {
			return err
		}
	}

	if err := g.mkdir(g.configDir()); err != nil {
		return err
	}
	if err := g.writeAttr(filepath.Join(g.configDir(), "MaxPower"), []byte(strconv.Itoa(g.cfg.MaxPower))); err != nil {
		return err
	}

	if err := os.Symlink(g.functionDir(), g.linkPath()); err != nil {
		return &StructureError{Path: g.linkPath(), Err: err}
	}
	return nil
}

func (g *Gadget) mkdir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &StructureError{Path: dir, Err: err}
	}
	return nil
}

func (g *Gadget) writeAttr(path string, value []byte) error {
	if err := g.writeFile(path, value); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	return nil
}

// Bind writes the UDC name into the gadget's UDC attribute, making the
// device visible to the connected host. An empty name selects the first
// available controller.
func (g *Gadget) Bind(udc string) error {
	if g.state != StateProvisioned {
		return fmt.Errorf("cannot bind gadget in state %s: provision it first", g.state)
	}
	if udc == "" {
		resolved, err := g.resolveUDC()
		if err != nil {
			return err
		}
		udc = resolved
	}
	if err := g.writeAttr(g.udcAttr(), []byte(udc)); err != nil {
		return err
	}
	g.state = StateActive
	g.boundUDC = udc
	g.logger.Info("gadget bound", "gadget", g.cfg.Name, "udc", udc)
	return nil
}

// Unbind detaches the gadget from its UDC without touching the provisioned
// subtree; Bind can then attach it to a different controller. Unbinding an
// unbound or unprovisioned gadget is a no-op.
func (g *Gadget) Unbind() error {
	if err := g.writeUDC(""); err != nil {
		return err
	}
	if g.state == StateActive {
		g.state = StateProvisioned
	}
	g.boundUDC = ""
	return nil
}

// Down tears the gadget down: unbind from the UDC, then remove the function
// symlink, then the subtree. The order is load-bearing: removing the
// symlink while still bound is undefined. Down is safe to call at any time,
// including when nothing was ever provisioned.
func (g *Gadget) Down() error {
	err := g.cleanup()
	g.state = StateTornDown
	g.boundUDC = ""
	if err == nil {
		g.logger.Info("gadget torn down", "gadget", g.cfg.Name)
	}
	return err
}

// Close makes Gadget usable with guaranteed-release patterns.
func (g *Gadget) Close() error { return g.Down() }

func (g *Gadget) cleanup() error {
	if err := g.writeUDC(""); err != nil {
		return err
	}
	return g.removeSubtree()
}

// writeUDC writes name into the UDC attribute. A missing attribute (gadget
// never provisioned) and an already-unbound gadget are normalized to
// success when unbinding.
func (g *Gadget) writeUDC(name string) error {
	if _, err := os.Stat(g.udcAttr()); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := g.writeFile(g.udcAttr(), []byte(name)); err != nil {
		if name == "" && (errors.Is(err, unix.ENODEV) || errors.Is(err, fs.ErrNotExist)) {
			return nil
		}
		return &WriteError{Path: g.udcAttr(), Err: err}
	}
	return nil
}

// removeSubtree removes the whole gadget subtree, tolerating already-absent
// paths. Attribute files inside configfs cannot be unlinked; they disappear
// with their directory's rmdir, so per-file removal failures are ignored
// and only the final absence of the gadget directory is checked.
func (g *Gadget) removeSubtree() error {
	gd := g.gadgetDir()
	if _, err := os.Lstat(gd); errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	_ = os.Remove(g.linkPath())

	removeDir(g.configDir())
	removeDir(g.functionDir())
	removeDir(g.stringsDir())
	for _, d := range []string{"configs", "functions", "strings", "os_desc"} {
		removeDir(filepath.Join(gd, d))
	}
	removeDir(gd)

	if _, err := os.Lstat(gd); err == nil {
		return fmt.Errorf("gadget subtree %s still present after removal", gd)
	}
	return nil
}

func removeDir(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if !e.IsDir() {
			_ = os.Remove(filepath.Join(dir, e.Name()))
		}
	}
	_ = os.Remove(dir)
}

func (g *Gadget) resolveUDC() (string, error) {
	entries, err := os.ReadDir(g.udcClassDir)
	if err != nil {
		return "", fmt.Errorf("listing %s: %w", g.udcClassDir, err)
	}
	if len(entries) == 0 {
		return "", ErrNoUDC
	}
	return entries[0].Name(), nil
}

// DevicePath resolves the /dev character device backing the gadget's HID
// function by matching the function's dev attribute (major:minor) against
// the device nodes. The node only exists while the gadget is bound.
func (g *Gadget) DevicePath() (string, error) {
	if !g.Active() {
		return "", ErrNotActive
	}

	data, err := os.ReadFile(filepath.Join(g.functionDir(), "dev"))
	if err != nil {
		return "", fmt.Errorf("reading HID function dev attribute: %w", err)
	}
	parts := strings.SplitN(strings.TrimSpace(string(data)), ":", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("malformed dev attribute %q", strings.TrimSpace(string(data)))
	}
	major, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return "", fmt.Errorf("malformed dev attribute %q: %w", string(data), err)
	}
	minor, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return "", fmt.Errorf("malformed dev attribute %q: %w", string(data), err)
	}

	entries, err := os.ReadDir(g.devDir)
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		if e.Type()&fs.ModeCharDevice == 0 {
			continue
		}
		path := filepath.Join(g.devDir, e.Name())
		var st unix.Stat_t
		if err := unix.Stat(path, &st); err != nil {
			continue
		}
		if unix.Major(uint64(st.Rdev)) == uint32(major) && unix.Minor(uint64(st.Rdev)) == uint32(minor) {
			return path, nil
		}
	}
	return "", fmt.Errorf("no device node with major:minor %d:%d under %s", major, minor, g.devDir)
}
