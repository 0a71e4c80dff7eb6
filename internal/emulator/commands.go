package emulator

import (
	"sort"

	"github.com/hombit/sweam/device/procon"
)

// QuitToken ends the session loop.
const QuitToken = "quit"

// Command mutates a fresh controller state for a single report cycle.
type Command func(st *procon.InputState)

func press(b procon.Button) Command {
	return func(st *procon.InputState) { st.Press(b) }
}

func leftStick(x, y uint8) Command {
	return func(st *procon.InputState) { st.SetLeftStick(x, y) }
}

// Directional tokens steer the left stick rather than the dpad buttons.
var commands = map[string]Command{
	"a":       press(procon.ButtonA),
	"b":       press(procon.ButtonB),
	"x":       press(procon.ButtonX),
	"y":       press(procon.ButtonY),
	"l":       press(procon.ButtonL),
	"r":       press(procon.ButtonR),
	"zl":      press(procon.ButtonZL),
	"zr":      press(procon.ButtonZR),
	"minus":   press(procon.ButtonMinus),
	"plus":    press(procon.ButtonPlus),
	"lstick":  press(procon.ButtonLStick),
	"rstick":  press(procon.ButtonRStick),
	"home":    press(procon.ButtonHome),
	"capture": press(procon.ButtonCapture),
	"up":      leftStick(procon.StickCenter, 0),
	"down":    leftStick(procon.StickCenter, 255),
	"left":    leftStick(0, procon.StickCenter),
	"right":   leftStick(255, procon.StickCenter),
	"center":  leftStick(procon.StickCenter, procon.StickCenter),
}

// Lookup resolves a lowercased token to its state mutation.
func Lookup(token string) (Command, bool) {
	cmd, ok := commands[token]
	return cmd, ok
}

// Tokens lists every recognized token plus QuitToken, sorted.
func Tokens() []string {
	out := make([]string, 0, len(commands)+1)
	for tok := range commands {
		out = append(out, tok)
	}
	out = append(out, QuitToken)
	sort.Strings(out)
	return out
}
