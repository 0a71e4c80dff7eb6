package hid_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hombit/sweam/usb/hid"
)

func TestItemEncoding(t *testing.T) {
	type testCase struct {
		name     string
		item     hid.Item
		expected []byte
	}

	cases := []testCase{
		{name: "usage page one byte", item: hid.UsagePage{Page: 0x01}, expected: []byte{0x05, 0x01}},
		{name: "usage page two bytes", item: hid.UsagePage{Page: 0xFF00}, expected: []byte{0x06, 0x00, 0xFF}},
		{name: "usage", item: hid.Usage{Usage: 0x39}, expected: []byte{0x09, 0x39}},
		{name: "logical min zero", item: hid.LogicalMinimum{Min: 0}, expected: []byte{0x15, 0x00}},
		{name: "logical max byte boundary", item: hid.LogicalMaximum{Max: 127}, expected: []byte{0x25, 0x7F}},
		{name: "logical max widens past 127", item: hid.LogicalMaximum{Max: 255}, expected: []byte{0x26, 0xFF, 0x00}},
		{name: "physical max 315", item: hid.PhysicalMaximum{Max: 315}, expected: []byte{0x46, 0x3B, 0x01}},
		{name: "negative logical min", item: hid.LogicalMinimum{Min: -127}, expected: []byte{0x15, 0x81}},
		{name: "unit degrees", item: hid.Unit{Unit: hid.UnitDegrees}, expected: []byte{0x65, 0x14}},
		{name: "unit none keeps a data byte", item: hid.Unit{Unit: hid.UnitNone}, expected: []byte{0x65, 0x00}},
		{name: "unit exponent nibble code", item: hid.UnitExponent{Exp: 0x0F}, expected: []byte{0x55, 0x0F}},
		{name: "report size", item: hid.ReportSize{Bits: 8}, expected: []byte{0x75, 0x08}},
		{name: "report count", item: hid.ReportCount{Count: 4}, expected: []byte{0x95, 0x04}},
		{name: "input", item: hid.Input{Flags: hid.MainData | hid.MainVar | hid.MainAbs}, expected: []byte{0x81, 0x02}},
		{name: "input null state", item: hid.Input{Flags: hid.MainVar | hid.MainNullState}, expected: []byte{0x81, 0x42}},
		{name: "output", item: hid.Output{Flags: hid.MainVar}, expected: []byte{0x91, 0x02}},
		{name: "feature", item: hid.Feature{Flags: hid.MainVar}, expected: []byte{0xB1, 0x02}},
		{name: "any item", item: hid.AnyItem{Type: hid.ItemTypeGlobal, Tag: 0x5, Data: hid.Data{0x00}}, expected: []byte{0x55, 0x00}},
		{
			name: "collection wraps children",
			item: hid.Collection{Kind: hid.CollectionApplication, Items: []hid.Item{
				hid.Usage{Usage: 0x01},
			}},
			expected: []byte{0xA1, 0x01, 0x09, 0x01, 0xC0},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := hid.ReportDescriptor{Items: []hid.Item{tc.item}}.Bytes()
			require.NoError(t, err)
			assert.Equal(t, tc.expected, []byte(b))
		})
	}
}

func TestNilItemRejected(t *testing.T) {
	_, err := hid.ReportDescriptor{Items: []hid.Item{nil}}.Bytes()
	assert.Error(t, err)
}

func TestAnyItemBadSizeRejected(t *testing.T) {
	_, err := hid.ReportDescriptor{Items: []hid.Item{
		hid.AnyItem{Type: hid.ItemTypeGlobal, Tag: 0x1, Data: hid.Data{1, 2, 3}},
	}}.Bytes()
	assert.Error(t, err)
}

func TestInputBitWidth(t *testing.T) {
	desc := hid.ReportDescriptor{Items: []hid.Item{
		hid.Collection{Kind: hid.CollectionApplication, Items: []hid.Item{
			hid.ReportSize{Bits: 1},
			hid.ReportCount{Count: 16},
			hid.Input{Flags: hid.MainVar},
			hid.ReportSize{Bits: 4},
			hid.ReportCount{Count: 2},
			hid.Input{Flags: hid.MainVar},
			hid.ReportSize{Bits: 8},
			hid.ReportCount{Count: 4},
			hid.Input{Flags: hid.MainVar},
		}},
	}}

	bits, err := desc.InputBitWidth()
	require.NoError(t, err)
	assert.Equal(t, 16+8+32, bits)
}
