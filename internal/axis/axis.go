// Package axis enumerates the six controller degrees of freedom.
package axis

import (
	"fmt"
	"strings"
)

// Axis identifies one controller degree of freedom.
type Axis int

const (
	X Axis = iota
	Y
	Z
	Pitch
	Yaw
	Roll
)

// Count is the number of axes. Per-axis state is stored in [Count]T arrays
// indexed by Axis.
const Count = 6

// All lists every axis in index order.
var All = [Count]Axis{X, Y, Z, Pitch, Yaw, Roll}

var names = [Count]string{"x", "y", "z", "pitch", "yaw", "roll"}

var labels = [Count]string{
	"X (left/right)",
	"Y (up/down)",
	"Z (forward/back)",
	"Pitch",
	"Yaw",
	"Roll",
}

// String returns the short lower-case name used in persisted maps.
func (a Axis) String() string {
	if !a.Valid() {
		return fmt.Sprintf("axis(%d)", int(a))
	}
	return names[a]
}

// Label returns a human readable description.
func (a Axis) Label() string {
	if !a.Valid() {
		return a.String()
	}
	return labels[a]
}

// Valid reports whether a is one of the six defined axes.
func (a Axis) Valid() bool { return a >= X && a <= Roll }

// IsRotation reports whether the axis is measured in degrees rather than
// meters.
func (a Axis) IsRotation() bool { return a == Pitch || a == Yaw || a == Roll }

// Parse maps a short name ("x", "pitch", ...) back to an Axis.
func Parse(s string) (Axis, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range names {
		if n == s {
			return Axis(i), nil
		}
	}
	return 0, fmt.Errorf("unknown axis %q", s)
}
