package procon

// USB identity of a Switch Pro Controller.
const (
	DefaultVID = 0x057E // Nintendo
	DefaultPID = 0x2009 // Pro Controller

	DefaultManufacturer = "Nintendo"
	DefaultProduct      = "Pro Controller"
)

// Interrupt endpoint addresses of the HID function.
const (
	EndpointIn  = 0x81
	EndpointOut = 0x01
)

const (
	// InputReportSize is the fixed wire size of one input report: the
	// report ID byte plus the 56 bits of input fields the report
	// descriptor declares.
	InputReportSize = 8

	// ReportID is the fixed first byte of every input report.
	ReportID = 0x00
)

// StickCenter is the rest position of both axes of both sticks.
const StickCenter = 128

// Button identifies a bit position in the 24-bit button set.
//
// The bit layout follows the hid-nintendo kernel driver's standard input
// report: positions 14 and 15 are placeholder bits in the physical protocol
// and are deliberately absent from this enumeration.
type Button uint8

const (
	ButtonY       Button = 0
	ButtonX       Button = 1
	ButtonB       Button = 2
	ButtonA       Button = 3
	ButtonSRRight Button = 4
	ButtonSLRight Button = 5
	ButtonR       Button = 6
	ButtonZR      Button = 7
	ButtonMinus   Button = 8
	ButtonPlus    Button = 9
	ButtonRStick  Button = 10
	ButtonLStick  Button = 11
	ButtonHome    Button = 12
	ButtonCapture Button = 13

	// bits 14-15 reserved

	ButtonDown   Button = 16
	ButtonUp     Button = 17
	ButtonRight  Button = 18
	ButtonLeft   Button = 19
	ButtonSRLeft Button = 20
	ButtonSLLeft Button = 21
	ButtonL      Button = 22
	ButtonZL     Button = 23
)

// Buttons lists every defined button, in bit order.
var Buttons = []Button{
	ButtonY, ButtonX, ButtonB, ButtonA,
	ButtonSRRight, ButtonSLRight, ButtonR, ButtonZR,
	ButtonMinus, ButtonPlus, ButtonRStick, ButtonLStick,
	ButtonHome, ButtonCapture,
	ButtonDown, ButtonUp, ButtonRight, ButtonLeft,
	ButtonSRLeft, ButtonSLLeft, ButtonL, ButtonZL,
}

// Mask returns the button's bit in the button set.
func (b Button) Mask() uint32 {
	return 1 << uint32(b)
}

func (b Button) String() string {
	switch b {
	case ButtonY:
		return "Y"
	case ButtonX:
		return "X"
	case ButtonB:
		return "B"
	case ButtonA:
		return "A"
	case ButtonSRRight:
		return "SR(R)"
	case ButtonSLRight:
		return "SL(R)"
	case ButtonR:
		return "R"
	case ButtonZR:
		return "ZR"
	case ButtonMinus:
		return "Minus"
	case ButtonPlus:
		return "Plus"
	case ButtonRStick:
		return "RStick"
	case ButtonLStick:
		return "LStick"
	case ButtonHome:
		return "Home"
	case ButtonCapture:
		return "Capture"
	case ButtonDown:
		return "Down"
	case ButtonUp:
		return "Up"
	case ButtonRight:
		return "Right"
	case ButtonLeft:
		return "Left"
	case ButtonSRLeft:
		return "SR(L)"
	case ButtonSLLeft:
		return "SL(L)"
	case ButtonL:
		return "L"
	case ButtonZL:
		return "ZL"
	}
	return "Unknown"
}
