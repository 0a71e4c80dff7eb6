package gadget

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testReportDesc = []byte{0x05, 0x01, 0x09, 0x05, 0xA1, 0x01, 0xC0}

func newTestGadget(t *testing.T) *Gadget {
	t.Helper()

	cfg := Config{
		Name:         "switch_pro",
		VendorID:     0x057E,
		ProductID:    0x2009,
		Manufacturer: "Nintendo",
		Product:      "Pro Controller",
		ReportLength: 8,
		ReportDesc:   testReportDesc,
	}
	g, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	require.NoError(t, err)

	root := t.TempDir()
	g.configfsRoot = root

	udcDir := filepath.Join(root, "class", "udc")
	require.NoError(t, os.MkdirAll(udcDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(udcDir, "fe800000.usb"), nil, 0o644))
	g.udcClassDir = udcDir

	return g
}

func readAttr(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := New(Config{}, logger, nil)
	assert.Error(t, err)

	_, err = New(Config{Name: "g", ReportLength: 8}, logger, nil)
	assert.Error(t, err, "missing report descriptor")

	_, err = New(Config{Name: "g", ReportDesc: testReportDesc}, logger, nil)
	assert.Error(t, err, "missing report length")
}

func TestProvisionWritesAttributes(t *testing.T) {
	g := newTestGadget(t)
	require.NoError(t, g.Provision())
	assert.Equal(t, StateProvisioned, g.State())

	gd := g.gadgetDir()
	assert.Equal(t, "0x057e", readAttr(t, filepath.Join(gd, "idVendor")))
	assert.Equal(t, "0x2009", readAttr(t, filepath.Join(gd, "idProduct")))
	assert.Equal(t, "0x0100", readAttr(t, filepath.Join(gd, "bcdDevice")))
	assert.Equal(t, "0x0200", readAttr(t, filepath.Join(gd, "bcdUSB")))
	assert.Equal(t, "0x00", readAttr(t, filepath.Join(gd, "bDeviceClass")))
	assert.Equal(t, "0x00", readAttr(t, filepath.Join(gd, "bDeviceSubClass")))
	assert.Equal(t, "0x00", readAttr(t, filepath.Join(gd, "bDeviceProtocol")))
	assert.Equal(t, "64", readAttr(t, filepath.Join(gd, "bMaxPacketSize0")))

	assert.Equal(t, "Nintendo", readAttr(t, filepath.Join(gd, "strings", "0x409", "manufacturer")))
	assert.Equal(t, "Pro Controller", readAttr(t, filepath.Join(gd, "strings", "0x409", "product")))

	fn := filepath.Join(gd, "functions", "hid.usb0")
	assert.Equal(t, "0", readAttr(t, filepath.Join(fn, "protocol")))
	assert.Equal(t, "0", readAttr(t, filepath.Join(fn, "subclass")))
	assert.Equal(t, "8", readAttr(t, filepath.Join(fn, "report_length")))
	desc, err := os.ReadFile(filepath.Join(fn, "report_desc"))
	require.NoError(t, err)
	assert.Equal(t, testReportDesc, desc)

	assert.Equal(t, "500", readAttr(t, filepath.Join(gd, "configs", "c.1", "MaxPower")))

	target, err := os.Readlink(filepath.Join(gd, "configs", "c.1", "hid.usb0"))
	require.NoError(t, err)
	assert.Equal(t, fn, target)
}

func TestProvisionWriteOrder(t *testing.T) {
	g := newTestGadget(t)

	var order []string
	orig := g.writeFile
	g.writeFile = func(path string, data []byte) error {
		order = append(order, filepath.Base(path))
		return orig(path, data)
	}

	require.NoError(t, g.Provision())

	indexOf := func(name string) int {
		for i, n := range order {
			if n == name {
				return i
			}
		}
		t.Fatalf("attribute %s was never written (order: %v)", name, order)
		return -1
	}

	// Device descriptors before strings, before the HID function, before
	// the configuration's power budget.
	assert.Less(t, indexOf("idVendor"), indexOf("manufacturer"))
	assert.Less(t, indexOf("manufacturer"), indexOf("protocol"))
	assert.Less(t, indexOf("report_desc"), indexOf("MaxPower"))
}

func TestProvisionTwiceLeavesSingleValidSubtree(t *testing.T) {
	g := newTestGadget(t)

	require.NoError(t, g.Provision())
	require.NoError(t, g.Bind(""))
	require.NoError(t, g.Provision())

	assert.Equal(t, StateProvisioned, g.State())
	assert.Empty(t, g.BoundUDC())

	// Exactly one gadget subtree, rebuilt and unbound.
	entries, err := os.ReadDir(filepath.Join(g.configfsRoot, "usb_gadget"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "switch_pro", entries[0].Name())
	assert.Equal(t, "0x057e", readAttr(t, filepath.Join(g.gadgetDir(), "idVendor")))
}

func TestDownWithoutProvisionIsSafe(t *testing.T) {
	g := newTestGadget(t)
	assert.NoError(t, g.Down())
	assert.Equal(t, StateTornDown, g.State())

	// And again.
	assert.NoError(t, g.Down())
}

func TestDownRemovesSubtree(t *testing.T) {
	g := newTestGadget(t)
	require.NoError(t, g.Provision())
	require.NoError(t, g.Bind("fe800000.usb"))

	require.NoError(t, g.Down())

	_, err := os.Lstat(g.gadgetDir())
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.False(t, g.Active())
}

func TestDownUnbindsBeforeRemovingLink(t *testing.T) {
	g := newTestGadget(t)
	require.NoError(t, g.Provision())
	require.NoError(t, g.Bind(""))

	var sawUnbind bool
	orig := g.writeFile
	g.writeFile = func(path string, data []byte) error {
		if filepath.Base(path) == "UDC" && len(data) == 0 {
			// The function symlink must still exist at unbind time.
			_, err := os.Lstat(g.linkPath())
			assert.NoError(t, err, "symlink removed before UDC unbind")
			sawUnbind = true
		}
		return orig(path, data)
	}

	require.NoError(t, g.Down())
	assert.True(t, sawUnbind)
}

func TestProvisionFailureLeavesNoSubtree(t *testing.T) {
	attrs := []string{
		"idVendor", "idProduct", "bcdDevice", "bcdUSB",
		"bDeviceClass", "bDeviceSubClass", "bDeviceProtocol", "bMaxPacketSize0",
		"manufacturer", "product",
		"protocol", "subclass", "report_length", "report_desc",
		"MaxPower",
	}

	for _, attr := range attrs {
		t.Run(attr, func(t *testing.T) {
			g := newTestGadget(t)

			orig := g.writeFile
			g.writeFile = func(path string, data []byte) error {
				if filepath.Base(path) == attr {
					return fmt.Errorf("injected failure")
				}
				return orig(path, data)
			}

			err := g.Provision()
			require.Error(t, err)

			var werr *WriteError
			require.True(t, errors.As(err, &werr))
			assert.True(t, strings.HasSuffix(werr.Path, attr), "error path %q should end in %q", werr.Path, attr)

			_, statErr := os.Lstat(g.gadgetDir())
			assert.True(t, errors.Is(statErr, os.ErrNotExist), "subtree must be fully absent after failed provisioning")
			assert.NotEqual(t, StateProvisioned, g.State())
		})
	}
}

func TestBindRequiresProvisioning(t *testing.T) {
	g := newTestGadget(t)
	assert.Error(t, g.Bind("fe800000.usb"))
}

func TestBindResolvesDefaultUDC(t *testing.T) {
	g := newTestGadget(t)
	require.NoError(t, g.Provision())
	require.NoError(t, g.Bind(""))

	assert.True(t, g.Active())
	assert.Equal(t, "fe800000.usb", g.BoundUDC())
	assert.Equal(t, "fe800000.usb", readAttr(t, g.udcAttr()))
}

func TestBindFailsWithoutAnyUDC(t *testing.T) {
	g := newTestGadget(t)
	require.NoError(t, os.RemoveAll(g.udcClassDir))
	require.NoError(t, os.MkdirAll(g.udcClassDir, 0o755))
	require.NoError(t, g.Provision())

	err := g.Bind("")
	assert.True(t, errors.Is(err, ErrNoUDC))
}

func TestUpFailedBindLeavesNoSubtree(t *testing.T) {
	t.Run("no UDC available", func(t *testing.T) {
		g := newTestGadget(t)
		require.NoError(t, os.RemoveAll(g.udcClassDir))
		require.NoError(t, os.MkdirAll(g.udcClassDir, 0o755))

		err := g.Up(context.Background())
		require.ErrorIs(t, err, ErrNoUDC)

		_, statErr := os.Lstat(g.gadgetDir())
		assert.True(t, errors.Is(statErr, os.ErrNotExist), "subtree must be torn down after failed bind")
		assert.Equal(t, StateTornDown, g.State())
	})

	t.Run("UDC write rejected", func(t *testing.T) {
		g := newTestGadget(t)

		orig := g.writeFile
		g.writeFile = func(path string, data []byte) error {
			if filepath.Base(path) == "UDC" && len(data) > 0 {
				return fmt.Errorf("injected failure")
			}
			return orig(path, data)
		}

		err := g.Up(context.Background())
		require.Error(t, err)
		var werr *WriteError
		require.True(t, errors.As(err, &werr))

		_, statErr := os.Lstat(g.gadgetDir())
		assert.True(t, errors.Is(statErr, os.ErrNotExist), "subtree must be torn down after failed bind")
		assert.False(t, g.Active())
	})
}

func TestRebindWithDifferentUDC(t *testing.T) {
	g := newTestGadget(t)
	require.NoError(t, g.Provision())
	require.NoError(t, g.Bind("fe800000.usb"))

	require.NoError(t, g.Unbind())
	assert.Equal(t, StateProvisioned, g.State())

	// Re-binding must not require re-provisioning the descriptors.
	require.NoError(t, g.Bind("dummy_udc.0"))
	assert.Equal(t, "dummy_udc.0", readAttr(t, g.udcAttr()))
	assert.Equal(t, "dummy_udc.0", g.BoundUDC())
	assert.Equal(t, "0x057e", readAttr(t, filepath.Join(g.gadgetDir(), "idVendor")))
}

func TestUnbindWithoutBindIsSafe(t *testing.T) {
	g := newTestGadget(t)
	assert.NoError(t, g.Unbind())

	require.NoError(t, g.Provision())
	assert.NoError(t, g.Unbind())
	assert.Equal(t, StateProvisioned, g.State())
}

func TestDevicePathRequiresActive(t *testing.T) {
	g := newTestGadget(t)
	require.NoError(t, g.Provision())

	_, err := g.DevicePath()
	assert.True(t, errors.Is(err, ErrNotActive))
}

func TestUpRunsPrerequisites(t *testing.T) {
	g := newTestGadget(t)
	loader := &fakeLoader{}
	g.modules = loader

	require.NoError(t, g.Up(context.Background()))
	assert.Equal(t, []string{"libcomposite", "usb_f_hid"}, loader.loaded)
	assert.True(t, g.Active())
}

func TestUpSurfacesModuleFailure(t *testing.T) {
	g := newTestGadget(t)
	g.modules = &fakeLoader{err: errors.New("modprobe failed")}

	err := g.Up(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateUninitialized, g.State())
}

type fakeLoader struct {
	loaded []string
	err    error
}

func (f *fakeLoader) Load(_ context.Context, name string) error {
	if f.err != nil {
		return f.err
	}
	f.loaded = append(f.loaded, name)
	return nil
}
