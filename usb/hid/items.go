package hid

// Global items.

// UsagePage sets the current usage page (Global, tag 0x0).
type UsagePage struct{ Page uint16 }

func (u UsagePage) encode(e *encoder) error {
	return e.short(0x0, ItemTypeGlobal, dataU32(uint32(u.Page)))
}

// LogicalMinimum (Global, tag 0x1).
type LogicalMinimum struct{ Min int32 }

func (l LogicalMinimum) encode(e *encoder) error {
	return e.short(0x1, ItemTypeGlobal, dataI32(l.Min))
}

// LogicalMaximum (Global, tag 0x2).
type LogicalMaximum struct{ Max int32 }

func (l LogicalMaximum) encode(e *encoder) error {
	return e.short(0x2, ItemTypeGlobal, dataI32(l.Max))
}

// PhysicalMinimum (Global, tag 0x3).
type PhysicalMinimum struct{ Min int32 }

func (p PhysicalMinimum) encode(e *encoder) error {
	return e.short(0x3, ItemTypeGlobal, dataI32(p.Min))
}

// PhysicalMaximum (Global, tag 0x4).
type PhysicalMaximum struct{ Max int32 }

func (p PhysicalMaximum) encode(e *encoder) error {
	return e.short(0x4, ItemTypeGlobal, dataI32(p.Max))
}

// UnitExponent (Global, tag 0x5).
type UnitExponent struct{ Exp uint8 }

func (u UnitExponent) encode(e *encoder) error {
	return e.short(0x5, ItemTypeGlobal, Data{u.Exp})
}

// Unit (Global, tag 0x6). The value is the nibble-coded unit system from the
// HID spec; UnitNone (0) clears it.
type Unit struct{ Unit uint32 }

func (u Unit) encode(e *encoder) error {
	return e.short(0x6, ItemTypeGlobal, dataU32(u.Unit))
}

// ReportSize sets the field width in bits (Global, tag 0x7).
type ReportSize struct{ Bits uint8 }

func (r ReportSize) encode(e *encoder) error {
	return e.short(0x7, ItemTypeGlobal, Data{r.Bits})
}

// ReportCount sets the number of fields (Global, tag 0x9).
type ReportCount struct{ Count uint16 }

func (r ReportCount) encode(e *encoder) error {
	return e.short(0x9, ItemTypeGlobal, dataU32(uint32(r.Count)))
}

// Local items.

// Usage (Local, tag 0x0).
type Usage struct{ Usage uint16 }

func (u Usage) encode(e *encoder) error {
	return e.short(0x0, ItemTypeLocal, dataU32(uint32(u.Usage)))
}

// UsageMinimum (Local, tag 0x1).
type UsageMinimum struct{ Min uint16 }

func (u UsageMinimum) encode(e *encoder) error {
	return e.short(0x1, ItemTypeLocal, dataU32(uint32(u.Min)))
}

// UsageMaximum (Local, tag 0x2).
type UsageMaximum struct{ Max uint16 }

func (u UsageMaximum) encode(e *encoder) error {
	return e.short(0x2, ItemTypeLocal, dataU32(uint32(u.Max)))
}

// Main items.

// Collection begins a collection (Main, tag 0xA) and encodes the matching
// End Collection after its children.
type Collection struct {
	Kind  CollectionKind
	Items []Item
}

func (c Collection) encode(e *encoder) error {
	if err := e.short(0xA, ItemTypeMain, Data{uint8(c.Kind)}); err != nil {
		return err
	}
	for _, it := range c.Items {
		if err := it.encode(e); err != nil {
			return err
		}
	}
	return e.short(0xC, ItemTypeMain, nil)
}

// Input (Main, tag 0x8).
type Input struct{ Flags MainFlags }

func (i Input) encode(e *encoder) error {
	return e.short(0x8, ItemTypeMain, Data{uint8(i.Flags)})
}

// Output (Main, tag 0x9).
type Output struct{ Flags MainFlags }

func (o Output) encode(e *encoder) error {
	return e.short(0x9, ItemTypeMain, Data{uint8(o.Flags)})
}

// Feature (Main, tag 0xB).
type Feature struct{ Flags MainFlags }

func (f Feature) encode(e *encoder) error {
	return e.short(0xB, ItemTypeMain, Data{uint8(f.Flags)})
}
