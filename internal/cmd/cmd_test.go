package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hombit/sweam/device/procon"
)

func TestGadgetFlagsConfig(t *testing.T) {
	f := GadgetFlags{
		Name:         "sweam",
		UDC:          "fe800000.usb",
		VendorID:     0x057e,
		ProductID:    0x2009,
		Manufacturer: "Nintendo",
		Product:      "Pro Controller",
	}

	cfg := f.gadgetConfig()
	assert.Equal(t, "sweam", cfg.Name)
	assert.Equal(t, uint16(0x057e), cfg.VendorID)
	assert.Equal(t, uint16(0x2009), cfg.ProductID)
	assert.Equal(t, "fe800000.usb", cfg.UDC)
	assert.EqualValues(t, 0, cfg.Protocol)
	assert.EqualValues(t, 0, cfg.Subclass)
	assert.Equal(t, procon.InputReportSize, cfg.ReportLength)
	assert.Equal(t, procon.ReportDescriptorBytes(), cfg.ReportDesc)
}

func TestConfigInitGeneratesRunTemplate(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "run.json")
	c := ConfigInit{Command: "run", Format: "json", Output: dest}
	require.NoError(t, c.Run())

	data, err := os.ReadFile(dest)
	require.NoError(t, err)

	var root map[string]any
	require.NoError(t, json.Unmarshal(data, &root))

	gadgetSection, ok := root["gadget"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "sweam", gadgetSection["name"])
	assert.Equal(t, "Pro Controller", gadgetSection["product"])
	assert.Equal(t, "usb", root["transport"])
	assert.Equal(t, "100ms", root["timeout"])
}

func TestConfigInitRefusesOverwrite(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "run.json")
	require.NoError(t, os.WriteFile(dest, []byte("{}"), 0o644))

	c := ConfigInit{Command: "run", Format: "json", Output: dest}
	assert.Error(t, c.Run())

	c.Force = true
	assert.NoError(t, c.Run())
}
