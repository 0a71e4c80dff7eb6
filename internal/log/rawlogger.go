package log

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"time"
)

// ReportLogger records raw HID report traffic.
type ReportLogger interface {
	Log(in bool, data []byte)
}

// reportLogger implements ReportLogger with thread-safe writes.
type reportLogger struct {
	w  io.Writer
	mu sync.Mutex
}

// NewReportLogger creates a ReportLogger. A nil writer yields a no-op
// logger.
func NewReportLogger(w io.Writer) ReportLogger {
	return &reportLogger{w: w}
}

// Log emits a single-line hex dump with timestamp and direction.
// in=true means host->gadget (output report), in=false gadget->host
// (input report).
func (r *reportLogger) Log(in bool, data []byte) {
	if len(data) == 0 || r.w == nil {
		return
	}

	dir := "IN "
	if in {
		dir = "OUT"
	}

	var hexbuf bytes.Buffer
	const hexdigits = "0123456789abcdef"
	for i, b := range data {
		if i > 0 {
			hexbuf.WriteByte(' ')
		}
		hexbuf.WriteByte(hexdigits[b>>4])
		hexbuf.WriteByte(hexdigits[b&0x0f])
	}

	line := fmt.Sprintf("%s %s report: %d bytes, hex: %s\n",
		time.Now().Format("2006/01/02 15:04:05"),
		dir,
		len(data),
		hexbuf.String())

	r.mu.Lock()
	_, _ = r.w.Write([]byte(line))
	r.mu.Unlock()
}
