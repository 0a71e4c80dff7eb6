package procon

import (
	"math"

	"github.com/hombit/sweam/device"
)

var _ device.ReportBuilder = InputState{}

// StickState is the absolute position of one analog stick. Both axes span
// the full byte range; 128 is the semantic center.
type StickState struct {
	X uint8
	Y uint8
}

// InputState is the in-memory controller state one input report is built
// from. It is a plain value: build one per report cycle, mutate it, encode
// it, throw it away.
type InputState struct {
	// Buttons holds one flag per Button bit position. Bits 14-15 are
	// reserved and never set by Press.
	Buttons    uint32
	LeftStick  StickState
	RightStick StickState
}

// NeutralInput returns an InputState with every button released and both
// sticks centered.
func NeutralInput() InputState {
	return InputState{
		LeftStick:  StickState{X: StickCenter, Y: StickCenter},
		RightStick: StickState{X: StickCenter, Y: StickCenter},
	}
}

// Press sets the button's bit. Pressing an already-pressed button is a
// no-op.
func (s *InputState) Press(b Button) {
	s.Buttons |= b.Mask()
}

// Release clears the button's bit.
func (s *InputState) Release(b Button) {
	s.Buttons &^= b.Mask()
}

// SetLeftStick sets the left stick to an absolute position.
func (s *InputState) SetLeftStick(x, y uint8) {
	s.LeftStick = StickState{X: x, Y: y}
}

// SetRightStick sets the right stick to an absolute position.
func (s *InputState) SetRightStick(x, y uint8) {
	s.RightStick = StickState{X: x, Y: y}
}

// SetLeftStickAngle points the left stick at angleDegrees with the given
// intensity (0 centered, 1 full deflection).
func (s *InputState) SetLeftStickAngle(angleDegrees, intensity float64) {
	s.LeftStick = stickFromAngle(angleDegrees, intensity)
}

// SetRightStickAngle points the right stick at angleDegrees with the given
// intensity (0 centered, 1 full deflection).
func (s *InputState) SetRightStickAngle(angleDegrees, intensity float64) {
	s.RightStick = stickFromAngle(angleDegrees, intensity)
}

// stickFromAngle converts polar coordinates to stick axes. The clamp happens
// in float space, before narrowing to uint8: narrowing first would wrap
// negative or >255 results instead of saturating them.
func stickFromAngle(angleDegrees, intensity float64) StickState {
	radians := angleDegrees * math.Pi / 180
	x := StickCenter + math.Round(math.Cos(radians)*127*intensity)
	y := StickCenter + math.Round(math.Sin(radians)*127*intensity)
	return StickState{X: clampAxis(x), Y: clampAxis(y)}
}

func clampAxis(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// BuildReport encodes the state into the fixed InputReportSize input report.
//
// Report layout:
//
//	Byte 0:   Report ID (0x00)
//	Byte 1:   Button bits 0-7
//	Byte 2:   Button bits 8-15
//	Byte 3:   Left stick X
//	Byte 4:   Left stick Y
//	Byte 5:   Right stick X
//	Byte 6:   Right stick Y
//	Byte 7:   Zero padding up to the declared report length
func (s InputState) BuildReport() []byte {
	b := make([]byte, InputReportSize)
	b[0] = ReportID
	b[1] = uint8(s.Buttons)
	b[2] = uint8(s.Buttons >> 8)
	b[3] = s.LeftStick.X
	b[4] = s.LeftStick.Y
	b[5] = s.RightStick.X
	b[6] = s.RightStick.Y
	return b
}
