package kmod

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLoader(t *testing.T, procModules string) (*Loader, *[]string) {
	t.Helper()

	dir := t.TempDir()
	p := filepath.Join(dir, "modules")
	require.NoError(t, os.WriteFile(p, []byte(procModules), 0o644))

	var calls []string
	l := New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	l.procModulesPath = p
	l.modprobe = func(_ context.Context, name string) error {
		calls = append(calls, name)
		return nil
	}
	return l, &calls
}

func TestLoadAlreadyPresentIsSuccess(t *testing.T) {
	l, calls := newTestLoader(t, "libcomposite 12345 0 - Live 0x0000000000000000\nusb_f_hid 20480 1 libcomposite, Live 0x0000000000000000\n")

	assert.NoError(t, l.Load(context.Background(), "libcomposite"))
	assert.NoError(t, l.Load(context.Background(), "usb_f_hid"))
	assert.Empty(t, *calls)
}

func TestLoadMissingModuleRunsModprobe(t *testing.T) {
	l, calls := newTestLoader(t, "loop 32768 0 - Live 0x0000000000000000\n")

	assert.NoError(t, l.Load(context.Background(), "usb_f_hid"))
	assert.Equal(t, []string{"usb_f_hid"}, *calls)
}

func TestLoadNormalizesDashes(t *testing.T) {
	l, calls := newTestLoader(t, "usb_f_hid 20480 0 - Live 0x0000000000000000\n")

	assert.NoError(t, l.Load(context.Background(), "usb-f-hid"))
	assert.Empty(t, *calls)
}

func TestLoadSurfacesModprobeFailure(t *testing.T) {
	l, _ := newTestLoader(t, "")
	l.modprobe = func(context.Context, string) error {
		return errors.New("exit status 1")
	}

	err := l.Load(context.Background(), "usb_f_hid")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "usb_f_hid")
}

func TestLoadToleratesLostRace(t *testing.T) {
	l, _ := newTestLoader(t, "")
	l.modprobe = func(context.Context, string) error {
		// Simulate another process loading the module first.
		require.NoError(t, os.WriteFile(l.procModulesPath, []byte("usb_f_hid 20480 0 - Live 0x0\n"), 0o644))
		return errors.New("exit status 1")
	}

	assert.NoError(t, l.Load(context.Background(), "usb_f_hid"))
}
