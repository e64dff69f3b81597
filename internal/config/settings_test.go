package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestGettersMatchDefaults(t *testing.T) {
	empty := &Settings{}
	def := Defaults()
	require.NoError(t, def.Validate())

	assert.Equal(t, def.GetPollRateHz(), empty.GetPollRateHz())
	assert.Equal(t, def.GetStabilizationPreset(), empty.GetStabilizationPreset())
	assert.Equal(t, def.GetMQTTBroker(), empty.GetMQTTBroker())
	assert.Equal(t, def.GetMQTTTopic(), empty.GetMQTTTopic())
	assert.Equal(t, def.GetSerialPort(), empty.GetSerialPort())
	assert.Equal(t, def.GetSerialBaud(), empty.GetSerialBaud())
	assert.Equal(t, def.GetRDPEpsilon(), empty.GetRDPEpsilon())
	assert.Equal(t, def.GetPointReduction(), empty.GetPointReduction())
	assert.Equal(t, def.GetMinIntervalMs(), empty.GetMinIntervalMs())
	assert.Equal(t, def.GetUndoHistory(), empty.GetUndoHistory())
	assert.Equal(t, def.GetAudioSampleRate(), empty.GetAudioSampleRate())
	assert.Equal(t, def.GetFFmpegPath(), empty.GetFFmpegPath())
	assert.Equal(t, def.GetExtractTimeout(), empty.GetExtractTimeout())
	assert.Equal(t, def.GetSubdivisions(), empty.GetSubdivisions())
	assert.Equal(t, def.GetDatabasePath(), empty.GetDatabasePath())
	assert.Equal(t, def.GetLogLevel(), empty.GetLogLevel())

	assert.Equal(t, 90.0, empty.GetPollRateHz())
	assert.Equal(t, "medium", empty.GetStabilizationPreset())
	assert.Equal(t, 120*time.Second, empty.GetExtractTimeout())
	assert.Equal(t, 22050, empty.GetAudioSampleRate())
	assert.Equal(t, "motionscript/controller", empty.GetMQTTTopic())
}

func TestLoad(t *testing.T) {
	want := &Settings{
		PollRateHz:          ptr(60.0),
		StabilizationPreset: ptr("heavy"),
		PointReduction:      ptr(false),
		ExtractTimeout:      ptr("30s"),
		Subdivisions:        ptr(2),
	}
	tests := []struct {
		name string
		file string
		body string
	}{
		{
			name: "json",
			file: "settings.json",
			body: `{"poll_rate_hz": 60, "stabilization_preset": "heavy", "point_reduction": false,
				"extract_timeout": "30s", "subdivisions": 2}`,
		},
		{
			name: "yaml",
			file: "settings.yaml",
			body: "poll_rate_hz: 60\nstabilization_preset: heavy\npoint_reduction: false\nextract_timeout: 30s\nsubdivisions: 2\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(writeFile(t, tt.file, tt.body))
			require.NoError(t, err)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("Load() mismatch (-want +got):\n%s", diff)
			}
			assert.False(t, got.GetPointReduction())
			assert.Equal(t, 30*time.Second, got.GetExtractTimeout())
			assert.Equal(t, 1.5, got.GetRDPEpsilon(), "unset fields keep defaults")
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		file string
		body string
		want string
	}{
		{"extension", "settings.toml", "", "extension"},
		{"bad json", "s.json", "{", "parse"},
		{"unknown json field", "s.json", `{"poll_rate": 60}`, "parse"},
		{"unknown yaml field", "s.yml", "pollrate: 60\n", "parse"},
		{"bad preset", "s.json", `{"stabilization_preset": "wobbly"}`, "stabilization_preset"},
		{"bad timeout", "s.yaml", "extract_timeout: soon\n", "extract_timeout"},
		{"negative epsilon", "s.json", `{"rdp_epsilon": -1}`, "rdp_epsilon"},
		{"subdivisions", "s.json", `{"subdivisions": 0}`, "subdivisions"},
		{"log level", "s.json", `{"log_level": "loud"}`, "log_level"},
		{"sample rate", "s.json", `{"audio_sample_rate": 100}`, "audio_sample_rate"},
		{"poll rate", "s.json", `{"poll_rate_hz": 0}`, "poll_rate_hz"},
		{"too large", "s.json", `{"ffmpeg_path": "` + strings.Repeat("x", maxFileSize) + `"}`, "too large"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.file, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestLoadOptional(t *testing.T) {
	cfg, err := LoadOptional(filepath.Join(t.TempDir(), DefaultConfigPath))
	require.NoError(t, err)
	assert.Equal(t, &Settings{}, cfg)

	cfg, err = LoadOptional(writeFile(t, "empty.yaml", "\n"))
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.GetLogLevel())
}
