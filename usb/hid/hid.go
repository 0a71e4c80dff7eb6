// Package hid models HID report descriptors as typed Go values.
//
// A report descriptor is a byte-coded item stream. Building it as a tree of
// item structs (with nested collections) keeps the descriptor reviewable and
// lets tests compare the encoded bytes against the exact stream a host driver
// will parse.
package hid

import (
	"fmt"
)

// Data is the payload of a single descriptor item.
type Data []uint8

// ItemType is the HID short item "type" field (HID 1.11 §6.2.2.2).
type ItemType uint8

const (
	ItemTypeMain     ItemType = 0
	ItemTypeGlobal   ItemType = 1
	ItemTypeLocal    ItemType = 2
	ItemTypeReserved ItemType = 3
)

// Item is one node in a report descriptor.
type Item interface {
	encode(e *encoder) error
}

// ReportDescriptor is a complete descriptor (wValue type 0x22).
type ReportDescriptor struct {
	Items []Item
}

// Bytes encodes the descriptor into the wire byte stream.
func (r ReportDescriptor) Bytes() (Data, error) {
	e := &encoder{}
	for _, it := range r.Items {
		if it == nil {
			return nil, fmt.Errorf("hid: nil item")
		}
		if err := it.encode(e); err != nil {
			return nil, err
		}
	}
	return Data(e.buf), nil
}

// InputBitWidth walks the descriptor and sums the bit width of all Input main
// items (ReportSize * ReportCount at the point of each Input). It is used to
// verify that the declared report length and the report encoder agree with
// the descriptor.
func (r ReportDescriptor) InputBitWidth() (int, error) {
	w := &widthWalker{}
	if err := w.walk(r.Items); err != nil {
		return 0, err
	}
	return w.bits, nil
}

type widthWalker struct {
	size  int
	count int
	bits  int
}

func (w *widthWalker) walk(items []Item) error {
	for _, it := range items {
		switch v := it.(type) {
		case ReportSize:
			w.size = int(v.Bits)
		case ReportCount:
			w.count = int(v.Count)
		case Input:
			w.bits += w.size * w.count
		case Collection:
			if err := w.walk(v.Items); err != nil {
				return err
			}
		}
	}
	return nil
}

// AnyItem is an escape hatch for items this package has no dedicated type
// for. Data must be 0, 1, 2, or 4 bytes.
type AnyItem struct {
	Type ItemType
	Tag  uint8
	Data Data
}

func (a AnyItem) encode(e *encoder) error {
	return e.short(a.Tag, a.Type, a.Data)
}

type encoder struct {
	buf []byte
}

func (e *encoder) short(tag uint8, typ ItemType, data Data) error {
	var sizeCode uint8
	switch len(data) {
	case 0:
		sizeCode = 0
	case 1:
		sizeCode = 1
	case 2:
		sizeCode = 2
	case 4:
		sizeCode = 3
	default:
		return fmt.Errorf("hid: short item data must be 0/1/2/4 bytes, got %d", len(data))
	}
	e.buf = append(e.buf, (tag<<4)|(uint8(typ)<<2)|sizeCode)
	e.buf = append(e.buf, data...)
	return nil
}

// dataU32 encodes an unsigned value in the fewest bytes a short item allows.
func dataU32(v uint32) Data {
	if v <= 0xFF {
		return Data{uint8(v)}
	}
	if v <= 0xFFFF {
		return Data{uint8(v), uint8(v >> 8)}
	}
	return Data{uint8(v), uint8(v >> 8), uint8(v >> 16), uint8(v >> 24)}
}

// dataI32 encodes a signed value in the fewest bytes a short item allows.
func dataI32(v int32) Data {
	if v >= -128 && v <= 127 {
		return Data{uint8(v)}
	}
	if v >= -32768 && v <= 32767 {
		uv := uint16(int16(v))
		return Data{uint8(uv), uint8(uv >> 8)}
	}
	uv := uint32(v)
	return Data{uint8(uv), uint8(uv >> 8), uint8(uv >> 16), uint8(uv >> 24)}
}
