// Package calibration maps stabilized raw controller readings onto the
// 0-100 output scale.
//
// A calibration Set holds one AxisCalibration per axis. Hosts that display
// or edit calibration from several places share a single *State handle
// instead of a package-level variable.
package calibration

import (
	"fmt"
	"math"

	"github.com/banshee-data/motionscript/internal/axis"
	"github.com/banshee-data/motionscript/internal/plainmap"
)

// Midpoint is returned when a calibration window has zero width.
const Midpoint = 50

// AxisCalibration is the affine window for one axis.
type AxisCalibration struct {
	Min         float64 `json:"min_val" yaml:"min_val"`
	Max         float64 `json:"max_val" yaml:"max_val"`
	Inverted    bool    `json:"inverted" yaml:"inverted"`
	Deadzone    float64 `json:"deadzone" yaml:"deadzone"`
	Sensitivity float64 `json:"sensitivity" yaml:"sensitivity"`
}

// New returns a calibration over [min, max] with unit sensitivity.
func New(min, max float64) AxisCalibration {
	return AxisCalibration{Min: min, Max: max, Deadzone: 0.02, Sensitivity: 1}
}

// MapValue maps raw onto 0-100. Sensitivity scales around the centre of the
// window before clamping, so values beyond 1 saturate sooner. A zero-width
// window maps everything to Midpoint.
func (c AxisCalibration) MapValue(raw float64) int {
	span := c.Max - c.Min
	if span == 0 {
		return Midpoint
	}
	n := (raw - c.Min) / span
	if c.Sensitivity != 1 {
		n = (n-0.5)*c.Sensitivity + 0.5
	}
	n = math.Max(0, math.Min(1, n))
	if c.Inverted {
		n = 1 - n
	}
	return int(math.Round(n * 100))
}

// Recenter shifts the window so raw maps to Midpoint, keeping its width.
// Windows with no positive width are left alone and false is returned.
func (c *AxisCalibration) Recenter(raw float64) bool {
	half := (c.Max - c.Min) / 2
	if half <= 0 {
		return false
	}
	c.Min, c.Max = raw-half, raw+half
	return true
}

func (c AxisCalibration) ToMap() map[string]any {
	return map[string]any{
		"min_val":     c.Min,
		"max_val":     c.Max,
		"inverted":    c.Inverted,
		"deadzone":    c.Deadzone,
		"sensitivity": c.Sensitivity,
	}
}

// FromMap decodes the output of ToMap. Missing keys keep the values of base.
func FromMap(m map[string]any, base AxisCalibration) (AxisCalibration, error) {
	c := base
	r := plainmap.NewReader(m)
	r.Float("min_val", &c.Min)
	r.Float("max_val", &c.Max)
	r.Bool("inverted", &c.Inverted)
	r.Float("deadzone", &c.Deadzone)
	r.Float("sensitivity", &c.Sensitivity)
	if err := r.Err(); err != nil {
		return AxisCalibration{}, fmt.Errorf("axis calibration: %w", err)
	}
	return c, nil
}

// Set holds one calibration per axis, indexed by axis.Axis.
type Set [axis.Count]AxisCalibration

// DefaultSet is a comfortable standing range: 30 cm either side on X and Z,
// 0.3-1.2 m height on Y and 90 degrees either way on each rotation axis.
func DefaultSet() Set {
	return Set{
		axis.X:     New(-0.3, 0.3),
		axis.Y:     New(0.3, 1.2),
		axis.Z:     New(-0.3, 0.3),
		axis.Pitch: New(-90, 90),
		axis.Yaw:   New(-90, 90),
		axis.Roll:  New(-90, 90),
	}
}

// Map applies every axis calibration to a raw reading.
func (s *Set) Map(raw [axis.Count]float64) [axis.Count]int {
	var out [axis.Count]int
	for i := range s {
		out[i] = s[i].MapValue(raw[i])
	}
	return out
}

// Recenter recenters every axis on the given raw reading.
func (s *Set) Recenter(raw [axis.Count]float64) {
	for i := range s {
		s[i].Recenter(raw[i])
	}
}

// SetSensitivity applies one sensitivity to every axis.
func (s *Set) SetSensitivity(v float64) {
	for i := range s {
		s[i].Sensitivity = v
	}
}

// ToMap keys each axis calibration by axis name.
func (s *Set) ToMap() map[string]any {
	out := make(map[string]any, axis.Count)
	for _, a := range axis.All {
		out[a.String()] = s[a].ToMap()
	}
	return out
}

// SetFromMap decodes the output of Set.ToMap. Axes absent from m keep their
// defaults.
func SetFromMap(m map[string]any) (Set, error) {
	s := DefaultSet()
	for _, a := range axis.All {
		raw, ok := m[a.String()]
		if !ok || raw == nil {
			continue
		}
		am, ok := raw.(map[string]any)
		if !ok {
			return Set{}, fmt.Errorf("calibration %s: want object, got %T", a, raw)
		}
		c, err := FromMap(am, s[a])
		if err != nil {
			return Set{}, fmt.Errorf("calibration %s: %w", a, err)
		}
		s[a] = c
	}
	return s, nil
}
