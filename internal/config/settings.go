package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/motionscript/internal/stabilize"
)

// DefaultConfigPath is where the CLI looks for settings when --config is
// not given. A missing file there is not an error.
const DefaultConfigPath = "motionscript.yaml"

const maxFileSize = 1 * 1024 * 1024 // 1MB

// Settings is the root configuration. Every field is optional; the Get*
// methods supply defaults for anything left unset, so partial files are
// safe.
type Settings struct {
	// Tracking
	PollRateHz          *float64 `json:"poll_rate_hz,omitempty" yaml:"poll_rate_hz,omitempty"`
	StabilizationPreset *string  `json:"stabilization_preset,omitempty" yaml:"stabilization_preset,omitempty"`
	MQTTBroker          *string  `json:"mqtt_broker,omitempty" yaml:"mqtt_broker,omitempty"`
	MQTTTopic           *string  `json:"mqtt_topic,omitempty" yaml:"mqtt_topic,omitempty"`
	SerialPort          *string  `json:"serial_port,omitempty" yaml:"serial_port,omitempty"`
	SerialBaud          *int     `json:"serial_baud,omitempty" yaml:"serial_baud,omitempty"`

	// Recording
	RDPEpsilon     *float64 `json:"rdp_epsilon,omitempty" yaml:"rdp_epsilon,omitempty"`
	PointReduction *bool    `json:"point_reduction,omitempty" yaml:"point_reduction,omitempty"`
	MinIntervalMs  *int     `json:"min_interval_ms,omitempty" yaml:"min_interval_ms,omitempty"`
	UndoHistory    *int     `json:"undo_history,omitempty" yaml:"undo_history,omitempty"`

	// Beat detection
	AudioSampleRate *int    `json:"audio_sample_rate,omitempty" yaml:"audio_sample_rate,omitempty"`
	FFmpegPath      *string `json:"ffmpeg_path,omitempty" yaml:"ffmpeg_path,omitempty"`
	ExtractTimeout  *string `json:"extract_timeout,omitempty" yaml:"extract_timeout,omitempty"` // duration string like "120s"
	Subdivisions    *int    `json:"subdivisions,omitempty" yaml:"subdivisions,omitempty"`

	DatabasePath *string `json:"database_path,omitempty" yaml:"database_path,omitempty"`
	LogLevel     *string `json:"log_level,omitempty" yaml:"log_level,omitempty"`
}

func ptr[T any](v T) *T { return &v }

// Defaults returns Settings with every field populated.
func Defaults() *Settings {
	return &Settings{
		PollRateHz:          ptr(90.0),
		StabilizationPreset: ptr(stabilize.DefaultPreset),
		MQTTBroker:          ptr(""),
		MQTTTopic:           ptr("motionscript/controller"),
		SerialPort:          ptr(""),
		SerialBaud:          ptr(115200),
		RDPEpsilon:          ptr(1.5),
		PointReduction:      ptr(true),
		MinIntervalMs:       ptr(11),
		UndoHistory:         ptr(100),
		AudioSampleRate:     ptr(22050),
		FFmpegPath:          ptr("ffmpeg"),
		ExtractTimeout:      ptr("120s"),
		Subdivisions:        ptr(4),
		DatabasePath:        ptr("motionscript.db"),
		LogLevel:            ptr("info"),
	}
}

// Load reads Settings from a .json, .yaml or .yml file and validates them.
func Load(path string) (*Settings, error) {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	switch ext {
	case ".json", ".yaml", ".yml":
	default:
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Settings{}
	if ext == ".json" {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(cfg)
	} else {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(cfg)
		if err != nil && len(bytes.TrimSpace(data)) == 0 {
			err = nil
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", filepath.Base(cleanPath), err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadOptional is Load, except that a missing file yields empty Settings.
func LoadOptional(path string) (*Settings, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &Settings{}, nil
	}
	return Load(path)
}

// Validate checks the values that are set.
func (c *Settings) Validate() error {
	if c.PollRateHz != nil && (*c.PollRateHz <= 0 || *c.PollRateHz > 1000) {
		return fmt.Errorf("poll_rate_hz must be in (0, 1000], got %g", *c.PollRateHz)
	}
	if c.StabilizationPreset != nil {
		if _, err := stabilize.Preset(*c.StabilizationPreset); err != nil && *c.StabilizationPreset != stabilize.PresetCustom {
			return fmt.Errorf("stabilization_preset: %w", err)
		}
	}
	if c.SerialBaud != nil && *c.SerialBaud <= 0 {
		return fmt.Errorf("serial_baud must be positive, got %d", *c.SerialBaud)
	}
	if c.RDPEpsilon != nil && *c.RDPEpsilon < 0 {
		return fmt.Errorf("rdp_epsilon must be non-negative, got %g", *c.RDPEpsilon)
	}
	if c.MinIntervalMs != nil && *c.MinIntervalMs < 0 {
		return fmt.Errorf("min_interval_ms must be non-negative, got %d", *c.MinIntervalMs)
	}
	if c.UndoHistory != nil && *c.UndoHistory < 1 {
		return fmt.Errorf("undo_history must be at least 1, got %d", *c.UndoHistory)
	}
	if c.AudioSampleRate != nil && (*c.AudioSampleRate < 8000 || *c.AudioSampleRate > 192000) {
		return fmt.Errorf("audio_sample_rate must be between 8000 and 192000, got %d", *c.AudioSampleRate)
	}
	if c.ExtractTimeout != nil && *c.ExtractTimeout != "" {
		d, err := time.ParseDuration(*c.ExtractTimeout)
		if err != nil {
			return fmt.Errorf("invalid extract_timeout '%s': %w", *c.ExtractTimeout, err)
		}
		if d <= 0 {
			return fmt.Errorf("extract_timeout must be positive, got %s", d)
		}
	}
	if c.Subdivisions != nil && (*c.Subdivisions < 1 || *c.Subdivisions > 16) {
		return fmt.Errorf("subdivisions must be between 1 and 16, got %d", *c.Subdivisions)
	}
	if c.LogLevel != nil {
		switch *c.LogLevel {
		case "trace", "debug", "info", "warn", "error":
		default:
			return fmt.Errorf("log_level must be one of trace, debug, info, warn, error; got %q", *c.LogLevel)
		}
	}
	return nil
}

func (c *Settings) GetPollRateHz() float64 {
	if c.PollRateHz == nil {
		return 90
	}
	return *c.PollRateHz
}

func (c *Settings) GetStabilizationPreset() string {
	if c.StabilizationPreset == nil || *c.StabilizationPreset == "" {
		return stabilize.DefaultPreset
	}
	return *c.StabilizationPreset
}

func (c *Settings) GetMQTTBroker() string {
	if c.MQTTBroker == nil {
		return ""
	}
	return *c.MQTTBroker
}

func (c *Settings) GetMQTTTopic() string {
	if c.MQTTTopic == nil || *c.MQTTTopic == "" {
		return "motionscript/controller"
	}
	return *c.MQTTTopic
}

func (c *Settings) GetSerialPort() string {
	if c.SerialPort == nil {
		return ""
	}
	return *c.SerialPort
}

func (c *Settings) GetSerialBaud() int {
	if c.SerialBaud == nil {
		return 115200
	}
	return *c.SerialBaud
}

// GetRDPEpsilon returns the point reduction tolerance in position units.
func (c *Settings) GetRDPEpsilon() float64 {
	if c.RDPEpsilon == nil {
		return 1.5
	}
	return *c.RDPEpsilon
}

func (c *Settings) GetPointReduction() bool {
	if c.PointReduction == nil {
		return true
	}
	return *c.PointReduction
}

// GetMinIntervalMs returns the minimum spacing between recorded samples.
// 11 ms is one poll at 90 Hz.
func (c *Settings) GetMinIntervalMs() int {
	if c.MinIntervalMs == nil {
		return 11
	}
	return *c.MinIntervalMs
}

func (c *Settings) GetUndoHistory() int {
	if c.UndoHistory == nil {
		return 100
	}
	return *c.UndoHistory
}

func (c *Settings) GetAudioSampleRate() int {
	if c.AudioSampleRate == nil {
		return 22050
	}
	return *c.AudioSampleRate
}

func (c *Settings) GetFFmpegPath() string {
	if c.FFmpegPath == nil || *c.FFmpegPath == "" {
		return "ffmpeg"
	}
	return *c.FFmpegPath
}

// GetExtractTimeout parses ExtractTimeout, falling back to 120s.
func (c *Settings) GetExtractTimeout() time.Duration {
	if c.ExtractTimeout == nil || *c.ExtractTimeout == "" {
		return 120 * time.Second
	}
	d, err := time.ParseDuration(*c.ExtractTimeout)
	if err != nil || d <= 0 {
		return 120 * time.Second
	}
	return d
}

func (c *Settings) GetSubdivisions() int {
	if c.Subdivisions == nil {
		return 4
	}
	return *c.Subdivisions
}

func (c *Settings) GetDatabasePath() string {
	if c.DatabasePath == nil || *c.DatabasePath == "" {
		return "motionscript.db"
	}
	return *c.DatabasePath
}

func (c *Settings) GetLogLevel() string {
	if c.LogLevel == nil || *c.LogLevel == "" {
		return "info"
	}
	return *c.LogLevel
}
