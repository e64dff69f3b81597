package stabilize

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/motionscript/internal/axis"
)

func TestPresets(t *testing.T) {
	off, err := Preset(PresetOff)
	require.NoError(t, err)
	assert.False(t, off.SpikeRejectionEnabled || off.OneEuroEnabled || off.SlewRateEnabled ||
		off.JerkLimiterEnabled || off.DeadzoneEnabled || off.HysteresisEnabled)

	heavy, err := Preset(PresetHeavy)
	require.NoError(t, err)
	assert.True(t, heavy.JerkLimiterEnabled)
	assert.Equal(t, 15.0, heavy.JerkMaxJerk)
	assert.Equal(t, 0.3, heavy.SpikeThreshold)

	_, err = Preset("extreme")
	assert.ErrorIs(t, err, ErrUnknownPreset)

	assert.Equal(t, []string{"off", "light", "medium", "heavy"}, PresetNames())
	assert.Equal(t, presets[PresetMedium], DefaultConfig())
}

func TestScaledFor(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		axis      axis.Axis
		wantSpike float64
		wantSlew  float64
		wantJerk  float64
	}{
		{axis.X, 0.5, 5, 20},
		{axis.Z, 0.5, 5, 20},
		{axis.Pitch, 30, 300, 1200},
		{axis.Roll, 30, 300, 1200},
	}
	for _, tt := range tests {
		t.Run(tt.axis.String(), func(t *testing.T) {
			got := cfg.ScaledFor(tt.axis)
			assert.InDelta(t, tt.wantSpike, got.SpikeThreshold, 1e-9)
			assert.InDelta(t, tt.wantSlew, got.SlewMaxRate, 1e-9)
			assert.InDelta(t, tt.wantJerk, got.JerkMaxJerk, 1e-9)
			assert.Equal(t, cfg.DeadzoneThreshold, got.DeadzoneThreshold)
			assert.Equal(t, cfg.HysteresisBand, got.HysteresisBand)
		})
	}
}

func TestAxisStabilizer_SetConfigIsNotCumulative(t *testing.T) {
	cfg := DefaultConfig()
	s := NewAxisStabilizer(axis.Yaw, cfg)
	s.SetConfig(cfg)
	s.SetConfig(s.Config())

	assert.Equal(t, 0.5, cfg.SpikeThreshold, "caller's config untouched")
	assert.Equal(t, cfg, s.Config())
	assert.InDelta(t, 30.0, s.Effective().SpikeThreshold, 1e-9)
	assert.InDelta(t, 30.0, s.spike.Threshold, 1e-9)
}

func TestAxisStabilizer_OffIsIdentity(t *testing.T) {
	off, _ := Preset(PresetOff)
	s := NewAxisStabilizer(axis.X, off)
	for i, x := range []float64{0, 10, -3, 0.001} {
		assert.Equal(t, x, s.Process(x, float64(i)))
	}
	for _, v := range []int{50, 51, 0, 100} {
		assert.Equal(t, v, s.PostMap(v))
	}
}

func TestAxisStabilizer_ResetClearsState(t *testing.T) {
	s := NewAxisStabilizer(axis.X, DefaultConfig())
	s.Process(0, 0)
	s.Process(0.1, 0.011)
	s.PostMap(40)

	s.Reset()
	assert.Equal(t, 3.0, s.Process(3.0, 5), "every pre-map stage passes the first sample")
	assert.Equal(t, 77, s.PostMap(77))
}

func TestManager(t *testing.T) {
	m, err := NewManager(PresetMedium)
	require.NoError(t, err)
	assert.Equal(t, PresetMedium, m.PresetName())

	assert.ErrorIs(t, m.SetPreset("bogus"), ErrUnknownPreset)
	assert.Equal(t, PresetMedium, m.PresetName())

	require.NoError(t, m.SetPreset(PresetHeavy))
	heavy, _ := Preset(PresetHeavy)
	for _, a := range axis.All {
		assert.Equal(t, heavy, m.AxisConfig(a))
	}

	custom := heavy
	custom.SlewMaxRate = 1
	require.NoError(t, m.SetAxisConfig(axis.Z, custom))
	assert.Equal(t, PresetCustom, m.PresetName())
	assert.Equal(t, 1.0, m.Stabilizer(axis.Z).Effective().SlewMaxRate)
	assert.Equal(t, 3.0, m.Stabilizer(axis.X).Effective().SlewMaxRate)

	assert.Error(t, m.SetAxisConfig(axis.Axis(42), custom))
	assert.Equal(t, 1.5, m.Process(axis.Axis(42), 1.5, 0))
	assert.Equal(t, 12, m.PostMap(axis.Axis(-1), 12))

	_, err = NewManager("nope")
	assert.Error(t, err)
}

func TestConfigMapRoundTrip(t *testing.T) {
	heavy, _ := Preset(PresetHeavy)
	data, err := json.Marshal(heavy.ToMap())
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	got, err := ConfigFromMap(m)
	require.NoError(t, err)
	if diff := cmp.Diff(heavy, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	partial, err := ConfigFromMap(map[string]any{"slew_max_rate": 2})
	require.NoError(t, err)
	assert.Equal(t, 2.0, partial.SlewMaxRate)
	assert.Equal(t, DefaultConfig().SpikeThreshold, partial.SpikeThreshold)

	_, err = ConfigFromMap(map[string]any{"deadzone_enabled": "yes"})
	assert.Error(t, err)
}

func TestManagerConfigsRoundTrip(t *testing.T) {
	m, _ := NewManager(PresetLight)
	custom := DefaultConfig()
	custom.HysteresisBand = 4
	require.NoError(t, m.SetAxisConfig(axis.Roll, custom))

	restored, _ := NewManager(PresetMedium)
	require.NoError(t, restored.LoadConfigsFromMap(m.ConfigsToMap()))
	assert.Equal(t, PresetCustom, restored.PresetName())
	assert.Equal(t, 4.0, restored.AxisConfig(axis.Roll).HysteresisBand)
	light, _ := Preset(PresetLight)
	assert.Equal(t, light, restored.AxisConfig(axis.X))

	require.NoError(t, restored.LoadConfigsFromMap(map[string]any{"preset": "heavy"}))
	assert.Equal(t, PresetHeavy, restored.PresetName())
}
