package device

// ReportBuilder is implemented by device input states that can encode
// themselves into the fixed-size HID input report sent over the wire.
type ReportBuilder interface {
	// BuildReport encodes the input state into the report byte layout the
	// device's report descriptor declares. The returned slice always has
	// the device's fixed report length.
	BuildReport() []byte
}
