package gadget

import (
	"errors"
	"fmt"
)

// Default configfs locations on Linux.
const (
	DefaultConfigFSRoot = "/sys/kernel/config"
	DefaultUDCClassDir  = "/sys/class/udc"
)

// Config is the immutable description of one configfs-backed HID gadget.
// The zero values of the descriptor fields are filled in by withDefaults;
// Name, ReportLength and ReportDesc must be set by the caller.
type Config struct {
	// Name is the gadget directory name under usb_gadget/.
	Name string

	VendorID  uint16
	ProductID uint16
	BcdDevice uint16
	BcdUSB    uint16

	Manufacturer string
	Product      string

	// HID function attributes.
	Protocol     int
	Subclass     int
	ReportLength int
	ReportDesc   []byte

	// MaxPower is the configuration's power budget in mA.
	MaxPower int

	// UDC is the controller to bind to. Empty means the first entry of
	// the UDC class directory.
	UDC string
}

func (c Config) withDefaults() Config {
	if c.BcdDevice == 0 {
		c.BcdDevice = 0x0100
	}
	if c.BcdUSB == 0 {
		c.BcdUSB = 0x0200
	}
	if c.MaxPower == 0 {
		c.MaxPower = 500
	}
	return c
}

func (c Config) validate() error {
	var errs []error
	if c.Name == "" {
		errs = append(errs, errors.New("gadget name must be set"))
	}
	if c.ReportLength <= 0 {
		errs = append(errs, errors.New("report length must be positive"))
	}
	if len(c.ReportDesc) == 0 {
		errs = append(errs, errors.New("report descriptor must not be empty"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid gadget config: %w", errors.Join(errs...))
	}
	return nil
}
