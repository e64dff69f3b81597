package stabilize

import (
	"fmt"

	"github.com/banshee-data/motionscript/internal/axis"
)

// AxisStabilizer runs the pre-map and post-map chains for one axis.
type AxisStabilizer struct {
	axis      axis.Axis
	config    Config
	effective Config

	spike      *SpikeRejector
	oneEuro    *OneEuro
	slew       *SlewRateLimiter
	jerk       *JerkLimiter
	deadzone   *DeadzoneFilter
	hysteresis *HysteresisFilter
}

// NewAxisStabilizer builds a stabilizer for a with cfg applied.
func NewAxisStabilizer(a axis.Axis, cfg Config) *AxisStabilizer {
	s := &AxisStabilizer{
		axis:       a,
		spike:      NewSpikeRejector(0),
		oneEuro:    NewOneEuro(0, 0),
		slew:       NewSlewRateLimiter(0),
		jerk:       NewJerkLimiter(0),
		deadzone:   NewDeadzoneFilter(0),
		hysteresis: NewHysteresisFilter(0),
	}
	s.SetConfig(cfg)
	return s
}

// Axis returns the axis this stabilizer serves.
func (s *AxisStabilizer) Axis() axis.Axis { return s.axis }

// SetConfig stores cfg as given and derives the axis-scaled parameters from
// it. Filter state is kept; call Reset to drop it.
func (s *AxisStabilizer) SetConfig(cfg Config) {
	s.config = cfg
	s.effective = cfg.ScaledFor(s.axis)

	e := s.effective
	s.spike.Threshold = e.SpikeThreshold
	s.oneEuro.MinCutoff = e.OneEuroMinCutoff
	s.oneEuro.Beta = e.OneEuroBeta
	s.slew.MaxRate = e.SlewMaxRate
	s.jerk.MaxJerk = e.JerkMaxJerk
	s.deadzone.Threshold = e.DeadzoneThreshold
	s.hysteresis.Band = e.HysteresisBand
}

// Config returns the config as last set, before axis scaling.
func (s *AxisStabilizer) Config() Config { return s.config }

// Effective returns the axis-scaled config the filters run with.
func (s *AxisStabilizer) Effective() Config { return s.effective }

// Process runs spike rejection, one-euro, slew and jerk limiting on a raw
// sample taken at t seconds.
func (s *AxisStabilizer) Process(raw, t float64) float64 {
	e := &s.effective
	v := raw
	if e.SpikeRejectionEnabled {
		v = s.spike.Filter(v, t)
	}
	if e.OneEuroEnabled {
		v = s.oneEuro.Filter(v, t)
	}
	if e.SlewRateEnabled {
		v = s.slew.Filter(v, t)
	}
	if e.JerkLimiterEnabled {
		v = s.jerk.Filter(v, t)
	}
	return v
}

// PostMap runs deadzone and hysteresis on a calibrated 0-100 value.
func (s *AxisStabilizer) PostMap(mapped int) int {
	v := mapped
	if s.effective.DeadzoneEnabled {
		v = s.deadzone.Filter(v)
	}
	if s.effective.HysteresisEnabled {
		v = s.hysteresis.Filter(v)
	}
	return v
}

// Reset clears every stage, enabled or not.
func (s *AxisStabilizer) Reset() {
	s.spike.Reset()
	s.oneEuro.Reset()
	s.slew.Reset()
	s.jerk.Reset()
	s.deadzone.Reset()
	s.hysteresis.Reset()
}

// Manager owns one AxisStabilizer per axis and tracks which preset is in
// force. It is not safe for concurrent use.
type Manager struct {
	preset      string
	stabilizers [axis.Count]*AxisStabilizer
}

// NewManager returns a manager with every axis on the named preset.
func NewManager(preset string) (*Manager, error) {
	cfg, err := Preset(preset)
	if err != nil {
		return nil, err
	}
	m := &Manager{preset: preset}
	for _, a := range axis.All {
		m.stabilizers[a] = NewAxisStabilizer(a, cfg)
	}
	return m, nil
}

// PresetName reports the active preset, or PresetCustom after a per-axis
// override.
func (m *Manager) PresetName() string { return m.preset }

// SetPreset switches every axis to a named preset. Unknown names leave the
// manager untouched.
func (m *Manager) SetPreset(name string) error {
	cfg, err := Preset(name)
	if err != nil {
		return err
	}
	m.preset = name
	for _, s := range m.stabilizers {
		s.SetConfig(cfg)
	}
	return nil
}

// SetAxisConfig overrides one axis and marks the manager as custom.
func (m *Manager) SetAxisConfig(a axis.Axis, cfg Config) error {
	if !a.Valid() {
		return fmt.Errorf("set axis config: invalid %s", a)
	}
	m.stabilizers[a].SetConfig(cfg)
	m.preset = PresetCustom
	return nil
}

// AxisConfig returns the unscaled config of one axis.
func (m *Manager) AxisConfig(a axis.Axis) Config {
	if !a.Valid() {
		return Config{}
	}
	return m.stabilizers[a].Config()
}

// Stabilizer exposes the per-axis pipeline.
func (m *Manager) Stabilizer(a axis.Axis) *AxisStabilizer {
	return m.stabilizers[a]
}

// Process runs the pre-map chain of axis a. Invalid axes pass through.
func (m *Manager) Process(a axis.Axis, raw, t float64) float64 {
	if !a.Valid() {
		return raw
	}
	return m.stabilizers[a].Process(raw, t)
}

// PostMap runs the post-map chain of axis a. Invalid axes pass through.
func (m *Manager) PostMap(a axis.Axis, mapped int) int {
	if !a.Valid() {
		return mapped
	}
	return m.stabilizers[a].PostMap(mapped)
}

func (m *Manager) ResetAll() {
	for _, s := range m.stabilizers {
		s.Reset()
	}
}

func (m *Manager) ResetAxis(a axis.Axis) {
	if a.Valid() {
		m.stabilizers[a].Reset()
	}
}

// ConfigsToMap serialises every axis config keyed by axis name, plus the
// preset name under "preset".
func (m *Manager) ConfigsToMap() map[string]any {
	out := map[string]any{"preset": m.preset}
	for _, a := range axis.All {
		out[a.String()] = m.stabilizers[a].Config().ToMap()
	}
	return out
}

// LoadConfigsFromMap restores the output of ConfigsToMap. A named preset is
// applied first and per-axis entries only when the preset is custom.
func (m *Manager) LoadConfigsFromMap(src map[string]any) error {
	name, _ := src["preset"].(string)
	if name == "" {
		name = DefaultPreset
	}
	if name != PresetCustom {
		return m.SetPreset(name)
	}
	var cfgs [axis.Count]Config
	for _, a := range axis.All {
		raw, ok := src[a.String()].(map[string]any)
		if !ok {
			cfgs[a] = m.stabilizers[a].Config()
			continue
		}
		cfg, err := ConfigFromMap(raw)
		if err != nil {
			return fmt.Errorf("axis %s: %w", a, err)
		}
		cfgs[a] = cfg
	}
	for _, a := range axis.All {
		m.stabilizers[a].SetConfig(cfgs[a])
	}
	m.preset = PresetCustom
	return nil
}
