package procon

import (
	"github.com/hombit/sweam/usb/hid"
)

// ReportDescriptor is the Game-Pad report descriptor the gadget presents to
// the host: 16 buttons, a 4-bit hat switch with 4 bits of constant padding,
// and four 8-bit absolute axes (X, Y, Z, Rz).
//
// The input-report layout in BuildReport and InputReportSize must stay in
// sync with this tree; descriptor_test.go pins both the exact byte stream
// and the total input bit width.
func ReportDescriptor() hid.ReportDescriptor {
	return hid.ReportDescriptor{Items: []hid.Item{
		hid.UsagePage{Page: hid.UsagePageGenericDesktop},
		hid.Usage{Usage: hid.UsageGamePad},
		hid.Collection{Kind: hid.CollectionApplication, Items: []hid.Item{
			// 16 one-bit buttons.
			hid.LogicalMinimum{Min: 0},
			hid.LogicalMaximum{Max: 1},
			hid.PhysicalMinimum{Min: 0},
			hid.PhysicalMaximum{Max: 1},
			hid.ReportSize{Bits: 1},
			hid.ReportCount{Count: 16},
			hid.UsagePage{Page: hid.UsagePageButton},
			hid.UsageMinimum{Min: 0x01},
			hid.UsageMaximum{Max: 0x10},
			hid.Input{Flags: hid.MainData | hid.MainVar | hid.MainAbs},

			// Hat switch: 4 bits, logical 0-7, 45 degree steps.
			hid.UsagePage{Page: hid.UsagePageGenericDesktop},
			hid.LogicalMaximum{Max: 7},
			hid.PhysicalMaximum{Max: 315},
			hid.ReportSize{Bits: 4},
			hid.ReportCount{Count: 1},
			hid.Unit{Unit: hid.UnitDegrees},
			hid.Usage{Usage: hid.UsageHatSwitch},
			hid.Input{Flags: hid.MainData | hid.MainVar | hid.MainAbs | hid.MainNullState},

			// Constant padding for the hat's unused nibble.
			hid.Unit{Unit: hid.UnitNone},
			hid.ReportCount{Count: 1},
			hid.Input{Flags: hid.MainConst},

			// Four 8-bit absolute axes.
			hid.LogicalMaximum{Max: 255},
			hid.PhysicalMaximum{Max: 255},
			hid.Usage{Usage: hid.UsageX},
			hid.Usage{Usage: hid.UsageY},
			hid.Usage{Usage: hid.UsageZ},
			hid.Usage{Usage: hid.UsageRz},
			hid.ReportSize{Bits: 8},
			hid.ReportCount{Count: 4},
			hid.Input{Flags: hid.MainData | hid.MainVar | hid.MainAbs},
		}},
	}}
}

// ReportDescriptorBytes returns the encoded descriptor written to the HID
// function's report_desc attribute. The descriptor is a fixed tree, so a
// build failure is a programming error and panics.
func ReportDescriptorBytes() []byte {
	b, err := ReportDescriptor().Bytes()
	if err != nil {
		panic(err)
	}
	return b
}
