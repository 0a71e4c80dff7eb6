package gadget

import (
	"errors"
	"fmt"
)

// ErrNotActive is returned when an operation needs the gadget bound to a
// UDC and it is not.
var ErrNotActive = errors.New("gadget is not bound to a UDC")

// ErrNoUDC is returned when no USB device controller is available for
// binding.
var ErrNoUDC = errors.New("no UDC available")

// WriteError is a failed write to a configfs attribute. Path identifies the
// attribute so a provisioning failure can be diagnosed without a trace.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("writing %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// StructureError is a failed mkdir or symlink while building the configfs
// subtree.
type StructureError struct {
	Path string
	Err  error
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("creating %s: %v", e.Path, e.Err)
}

func (e *StructureError) Unwrap() error { return e.Err }
