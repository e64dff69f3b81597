package tracking

import (
	"fmt"
	"strings"
	"time"

	"github.com/banshee-data/motionscript/internal/axis"
)

// Button is a bitmask of controller buttons.
type Button uint8

const (
	ButtonTrigger Button = 1 << iota
	ButtonA
	ButtonB
	ButtonGrip
)

// Buttons lists the individual buttons in bit order.
var Buttons = []Button{ButtonTrigger, ButtonA, ButtonB, ButtonGrip}

func (b Button) String() string {
	var parts []string
	for _, x := range Buttons {
		if b&x == 0 {
			continue
		}
		switch x {
		case ButtonTrigger:
			parts = append(parts, "trigger")
		case ButtonA:
			parts = append(parts, "a")
		case ButtonB:
			parts = append(parts, "b")
		case ButtonGrip:
			parts = append(parts, "grip")
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Has reports whether every bit of x is set in b.
func (b Button) Has(x Button) bool { return x != 0 && b&x == x }

// ParseButton accepts trigger, a, b or grip.
func ParseButton(s string) (Button, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trigger":
		return ButtonTrigger, nil
	case "a", "a_button":
		return ButtonA, nil
	case "b", "b_button":
		return ButtonB, nil
	case "grip":
		return ButtonGrip, nil
	}
	return 0, fmt.Errorf("unknown button %q", s)
}

// RawSample is one reading from a tracking source.
type RawSample struct {
	// Position is x, y, z in metres.
	Position [3]float64 `json:"position"`
	// Rotation is pitch, yaw, roll in degrees.
	Rotation   [3]float64 `json:"rotation"`
	Tracked    bool       `json:"tracked"`
	Buttons    Button     `json:"buttons"`
	Thumbstick [2]float64 `json:"thumbstick"`
}

// Axes returns the sample indexed by axis.Axis.
func (s RawSample) Axes() [axis.Count]float64 {
	return [axis.Count]float64{
		axis.X:     s.Position[0],
		axis.Y:     s.Position[1],
		axis.Z:     s.Position[2],
		axis.Pitch: s.Rotation[0],
		axis.Yaw:   s.Rotation[1],
		axis.Roll:  s.Rotation[2],
	}
}

// ControllerState is the published result of one poll.
type ControllerState struct {
	Seq     uint64
	Time    time.Time
	Tracked bool
	// Filtered holds the per-axis values after pre-filtering and axis
	// locks, in source units, as fed to calibration.
	Filtered   [axis.Count]float64
	Mapped     [axis.Count]int
	Buttons    Button
	Thumbstick [2]float64
}

// Pressed reports whether button b was held during this poll.
func (s ControllerState) Pressed(b Button) bool { return s.Buttons.Has(b) }
