package stabilize

import (
	"errors"
	"fmt"

	"github.com/banshee-data/motionscript/internal/axis"
	"github.com/banshee-data/motionscript/internal/plainmap"
)

// RotationScale converts raw-unit thresholds tuned for meters into degrees.
const RotationScale = 60.0

// Preset names.
const (
	PresetOff     = "off"
	PresetLight   = "light"
	PresetMedium  = "medium"
	PresetHeavy   = "heavy"
	PresetCustom  = "custom"
	DefaultPreset = PresetMedium
)

// ErrUnknownPreset is returned for preset names outside PresetNames.
var ErrUnknownPreset = errors.New("unknown stabilization preset")

// Config enables and parameterises each stabilization stage. Spike, slew and
// jerk values are in raw position units (meters); deadzone and hysteresis
// are in mapped 0-100 units.
type Config struct {
	SpikeRejectionEnabled bool    `json:"spike_rejection_enabled" yaml:"spike_rejection_enabled"`
	SpikeThreshold        float64 `json:"spike_threshold" yaml:"spike_threshold"`

	OneEuroEnabled   bool    `json:"one_euro_enabled" yaml:"one_euro_enabled"`
	OneEuroMinCutoff float64 `json:"one_euro_min_cutoff" yaml:"one_euro_min_cutoff"`
	OneEuroBeta      float64 `json:"one_euro_beta" yaml:"one_euro_beta"`

	SlewRateEnabled bool    `json:"slew_rate_enabled" yaml:"slew_rate_enabled"`
	SlewMaxRate     float64 `json:"slew_max_rate" yaml:"slew_max_rate"`

	JerkLimiterEnabled bool    `json:"jerk_limiter_enabled" yaml:"jerk_limiter_enabled"`
	JerkMaxJerk        float64 `json:"jerk_max_jerk" yaml:"jerk_max_jerk"`

	DeadzoneEnabled   bool    `json:"deadzone_enabled" yaml:"deadzone_enabled"`
	DeadzoneThreshold float64 `json:"deadzone_threshold" yaml:"deadzone_threshold"`

	HysteresisEnabled bool    `json:"hysteresis_enabled" yaml:"hysteresis_enabled"`
	HysteresisBand    float64 `json:"hysteresis_band" yaml:"hysteresis_band"`
}

// DefaultConfig is the medium preset.
func DefaultConfig() Config {
	return presets[PresetMedium]
}

var presets = map[string]Config{
	PresetOff: {
		SpikeThreshold:    0.5,
		OneEuroMinCutoff:  1.5,
		OneEuroBeta:       0.007,
		SlewMaxRate:       5.0,
		JerkMaxJerk:       20.0,
		DeadzoneThreshold: 1.0,
		HysteresisBand:    1.5,
	},
	PresetLight: {
		SpikeRejectionEnabled: true,
		SpikeThreshold:        0.8,
		OneEuroEnabled:        true,
		OneEuroMinCutoff:      2.5,
		OneEuroBeta:           0.01,
		SlewRateEnabled:       true,
		SlewMaxRate:           8.0,
		JerkMaxJerk:           20.0,
		DeadzoneEnabled:       true,
		DeadzoneThreshold:     0.5,
		HysteresisEnabled:     true,
		HysteresisBand:        1.0,
	},
	PresetMedium: {
		SpikeRejectionEnabled: true,
		SpikeThreshold:        0.5,
		OneEuroEnabled:        true,
		OneEuroMinCutoff:      1.5,
		OneEuroBeta:           0.007,
		SlewRateEnabled:       true,
		SlewMaxRate:           5.0,
		JerkMaxJerk:           20.0,
		DeadzoneEnabled:       true,
		DeadzoneThreshold:     1.0,
		HysteresisEnabled:     true,
		HysteresisBand:        1.5,
	},
	PresetHeavy: {
		SpikeRejectionEnabled: true,
		SpikeThreshold:        0.3,
		OneEuroEnabled:        true,
		OneEuroMinCutoff:      0.8,
		OneEuroBeta:           0.004,
		SlewRateEnabled:       true,
		SlewMaxRate:           3.0,
		JerkLimiterEnabled:    true,
		JerkMaxJerk:           15.0,
		DeadzoneEnabled:       true,
		DeadzoneThreshold:     2.0,
		HysteresisEnabled:     true,
		HysteresisBand:        2.5,
	},
}

// PresetNames lists the built-in presets from least to most smoothing.
func PresetNames() []string {
	return []string{PresetOff, PresetLight, PresetMedium, PresetHeavy}
}

// Preset returns a copy of a named preset.
func Preset(name string) (Config, error) {
	c, ok := presets[name]
	if !ok {
		return Config{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	return c, nil
}

// ScaledFor returns the config an axis actually runs with. Rotation axes get
// spike, slew and jerk thresholds multiplied by RotationScale. The receiver
// is a value, so the caller's config is never touched.
func (c Config) ScaledFor(a axis.Axis) Config {
	if !a.IsRotation() {
		return c
	}
	c.SpikeThreshold *= RotationScale
	c.SlewMaxRate *= RotationScale
	c.JerkMaxJerk *= RotationScale
	return c
}

// ToMap flattens the config into primitive values for host project files.
func (c Config) ToMap() map[string]any {
	return map[string]any{
		"spike_rejection_enabled": c.SpikeRejectionEnabled,
		"spike_threshold":         c.SpikeThreshold,
		"one_euro_enabled":        c.OneEuroEnabled,
		"one_euro_min_cutoff":     c.OneEuroMinCutoff,
		"one_euro_beta":           c.OneEuroBeta,
		"slew_rate_enabled":       c.SlewRateEnabled,
		"slew_max_rate":           c.SlewMaxRate,
		"jerk_limiter_enabled":    c.JerkLimiterEnabled,
		"jerk_max_jerk":           c.JerkMaxJerk,
		"deadzone_enabled":        c.DeadzoneEnabled,
		"deadzone_threshold":      c.DeadzoneThreshold,
		"hysteresis_enabled":      c.HysteresisEnabled,
		"hysteresis_band":         c.HysteresisBand,
	}
}

// ConfigFromMap is the inverse of ToMap. Missing keys keep DefaultConfig
// values; keys of the wrong type are an error.
func ConfigFromMap(m map[string]any) (Config, error) {
	c := DefaultConfig()
	r := plainmap.NewReader(m)
	r.Bool("spike_rejection_enabled", &c.SpikeRejectionEnabled)
	r.Float("spike_threshold", &c.SpikeThreshold)
	r.Bool("one_euro_enabled", &c.OneEuroEnabled)
	r.Float("one_euro_min_cutoff", &c.OneEuroMinCutoff)
	r.Float("one_euro_beta", &c.OneEuroBeta)
	r.Bool("slew_rate_enabled", &c.SlewRateEnabled)
	r.Float("slew_max_rate", &c.SlewMaxRate)
	r.Bool("jerk_limiter_enabled", &c.JerkLimiterEnabled)
	r.Float("jerk_max_jerk", &c.JerkMaxJerk)
	r.Bool("deadzone_enabled", &c.DeadzoneEnabled)
	r.Float("deadzone_threshold", &c.DeadzoneThreshold)
	r.Bool("hysteresis_enabled", &c.HysteresisEnabled)
	r.Float("hysteresis_band", &c.HysteresisBand)
	if err := r.Err(); err != nil {
		return Config{}, fmt.Errorf("stabilization config: %w", err)
	}
	return c, nil
}
