// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"leafpipe/internal/analysis"
	applog "leafpipe/internal/log"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every validation and override error.
var ErrInvalid = errors.New("invalid configuration")

// EnvPrefix prefixes every environment override.
const EnvPrefix = "LP_"

// Config is the full runtime configuration, loaded from YAML.
type Config struct {
	LogLevel   string           `yaml:"log_level"`
	Audio      AudioConfig      `yaml:"audio"`
	Spectrum   SpectrumConfig   `yaml:"spectrum"`
	Normalizer NormalizerConfig `yaml:"normalizer"`
	Render     RenderConfig     `yaml:"render"`
	Fixture    FixtureConfig    `yaml:"fixture"`
	Transport  TransportConfig  `yaml:"transport"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Recording  RecordingConfig  `yaml:"recording"`
}

// AudioConfig selects where samples come from.
type AudioConfig struct {
	Source          string  `yaml:"source"`            // "device", "wav" or "raw"
	WAVPath         string  `yaml:"wav_path"`          // Replayed file when source is "wav"
	RawPath         string  `yaml:"raw_path"`          // f32le stream when source is "raw", "-" for stdin
	Loop            bool    `yaml:"loop"`              // Restart the WAV file at its end
	InputDevice     int     `yaml:"input_device"`      // PortAudio device index, -1 for default
	SampleRate      float64 `yaml:"sample_rate"`       // Requested capture rate in Hz
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // Frames per capture callback
	InputChannels   int     `yaml:"input_channels"`    // Channels opened on the device
	AnalyzedChannel int     `yaml:"analyzed_channel"`  // Channel fed to the analyzer
	LowLatency      bool    `yaml:"low_latency"`       // Use the device's low input latency
	Backlog         int     `yaml:"backlog"`           // Queue capacity in chunks
	GateThreshold   float64 `yaml:"gate_threshold"`    // Peak below which a block is silenced, 0 disables
}

// SpectrumConfig controls the frequency mapping.
type SpectrumConfig struct {
	Interval  time.Duration `yaml:"interval"`
	FloorHz   float64       `yaml:"floor_hz"`
	CeilingHz float64       `yaml:"ceiling_hz"`
	KnotBase  float64       `yaml:"knot_base"`
	Gain      float64       `yaml:"gain"`
	Buckets   int           `yaml:"buckets"`
	Window    string        `yaml:"window"` // FFT taper, "hamming" unless set
}

// NormalizerConfig sizes the per-bucket min/max tracking.
type NormalizerConfig struct {
	History    int     `yaml:"history"`
	NoiseFloor float64 `yaml:"noise_floor"`
}

// RenderConfig turns normalized intensities into panel colors.
type RenderConfig struct {
	Intensity    float64       `yaml:"intensity"`
	TransitionDS int           `yaml:"transition_ds"`
	Palette      []ColorConfig `yaml:"palette"`
}

// ColorConfig is an HSL color; saturation and lightness are percentages.
type ColorConfig struct {
	Hue        float64 `yaml:"hue"`
	Saturation float64 `yaml:"saturation"`
	Lightness  float64 `yaml:"lightness"`
}

// FixtureConfig addresses the light panels' UDP streaming endpoint.
type FixtureConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Address  string   `yaml:"address"`
	PanelIDs []uint16 `yaml:"panel_ids"`
}

// TransportConfig holds the optional websocket broadcaster.
type TransportConfig struct {
	WebSocketEnabled bool   `yaml:"websocket_enabled"`
	WebSocketAddress string `yaml:"websocket_address"`
}

// MetricsConfig holds the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// RecordingConfig controls the WAV tap on captured audio.
type RecordingConfig struct {
	Enabled   bool   `yaml:"enabled"`
	OutputDir string `yaml:"output_dir"`
}

// LoadConfig builds the configuration from defaults, then the YAML file at
// path, then LP_* environment variables, and validates the result. An empty
// path searches the working directory and the user config directory; when
// nothing is found the defaults are used.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = findConfigFile()
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		applog.Debugf("config: loaded %s", path)
	}

	if err := cfg.applyEnvOverrides(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func findConfigFile() string {
	candidates := []string{"leafpipe.yaml", "config.yaml"}
	if dir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, "leafpipe", "config.yaml"))
	}

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// Validate checks ranges and normalizes the fixture address. The returned
// error wraps ErrInvalid.
func (c *Config) Validate() error {
	if _, ok := applog.ParseLevel(c.LogLevel); !ok {
		return invalid("log_level %q is not a level", c.LogLevel)
	}

	a := &c.Audio
	switch a.Source {
	case SourceDevice, SourceRaw:
		if a.Source == SourceRaw && a.RawPath == "" {
			return invalid("audio.raw_path is required when audio.source is %q", SourceRaw)
		}
		if a.SampleRate < MinSampleRate || a.SampleRate > MaxSampleRate {
			return invalid("audio.sample_rate %.0f outside [%d, %d]", a.SampleRate, MinSampleRate, MaxSampleRate)
		}
		if a.FramesPerBuffer <= 0 || a.FramesPerBuffer > MaxBufferFrames {
			return invalid("audio.frames_per_buffer %d outside [1, %d]", a.FramesPerBuffer, MaxBufferFrames)
		}
		if a.InputChannels <= 0 {
			return invalid("audio.input_channels must be positive")
		}
		if a.AnalyzedChannel < 0 || a.AnalyzedChannel >= a.InputChannels {
			return invalid("audio.analyzed_channel %d outside [0, %d)", a.AnalyzedChannel, a.InputChannels)
		}
		if a.InputDevice < MinDeviceID {
			return invalid("audio.input_device %d below %d", a.InputDevice, MinDeviceID)
		}
	case SourceWAV:
		if a.WAVPath == "" {
			return invalid("audio.wav_path is required when audio.source is %q", SourceWAV)
		}
		if a.FramesPerBuffer <= 0 || a.FramesPerBuffer > MaxBufferFrames {
			return invalid("audio.frames_per_buffer %d outside [1, %d]", a.FramesPerBuffer, MaxBufferFrames)
		}
	default:
		return invalid("audio.source %q must be %q, %q or %q", a.Source, SourceDevice, SourceWAV, SourceRaw)
	}
	if a.Backlog <= 0 {
		return invalid("audio.backlog must be positive")
	}
	if a.GateThreshold < 0 || a.GateThreshold > 1 {
		return invalid("audio.gate_threshold %v outside [0, 1]", a.GateThreshold)
	}

	s := c.Spectrum
	if s.Interval <= 0 {
		return invalid("spectrum.interval must be positive")
	}
	if s.FloorHz < 0 || s.CeilingHz <= s.FloorHz {
		return invalid("spectrum.floor_hz %v must be below spectrum.ceiling_hz %v", s.FloorHz, s.CeilingHz)
	}
	if s.KnotBase <= 1 {
		return invalid("spectrum.knot_base must be greater than 1")
	}
	if s.Buckets <= 0 || s.Buckets > MaxBuckets {
		return invalid("spectrum.buckets %d outside [1, %d]", s.Buckets, MaxBuckets)
	}
	if _, err := analysis.ParseWindowFunc(s.Window); err != nil {
		return invalid("spectrum.window: %v", err)
	}

	if c.Normalizer.History <= 0 {
		return invalid("normalizer.history must be positive")
	}

	r := c.Render
	if r.TransitionDS < 0 || r.TransitionDS > 0xFFFF {
		return invalid("render.transition_ds %d outside [0, 65535]", r.TransitionDS)
	}
	for i, color := range r.Palette {
		if color.Saturation < 0 || color.Saturation > 100 || color.Lightness < 0 || color.Lightness > 100 {
			return invalid("render.palette[%d] saturation and lightness must be percentages", i)
		}
	}

	if c.Fixture.Enabled {
		addr, err := withDefaultPort(c.Fixture.Address, DefaultFixturePort)
		if err != nil {
			return invalid("fixture.address: %v", err)
		}
		c.Fixture.Address = addr
	}

	if c.Transport.WebSocketEnabled && c.Transport.WebSocketAddress == "" {
		return invalid("transport.websocket_address is required when the websocket is enabled")
	}
	if c.Metrics.Enabled && c.Metrics.Address == "" {
		return invalid("metrics.address is required when metrics are enabled")
	}
	if c.Recording.Enabled && c.Recording.OutputDir == "" {
		return invalid("recording.output_dir is required when recording is enabled")
	}

	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// withDefaultPort appends port to a bare host.
func withDefaultPort(addr string, port int) (string, error) {
	if addr == "" {
		return "", errors.New("empty address")
	}
	if _, _, err := net.SplitHostPort(addr); err == nil {
		return addr, nil
	}
	return net.JoinHostPort(strings.Trim(addr, "[]"), strconv.Itoa(port)), nil
}

// envOverride maps one LP_* variable onto the configuration.
type envOverride struct {
	name  string
	apply func(c *Config, val string) error
}

var envOverrides = []envOverride{
	{"LOG_LEVEL", func(c *Config, v string) error { c.LogLevel = v; return nil }},
	{"AUDIO_SOURCE", func(c *Config, v string) error { c.Audio.Source = v; return nil }},
	{"AUDIO_WAV_PATH", func(c *Config, v string) error { c.Audio.WAVPath = v; return nil }},
	{"AUDIO_RAW_PATH", func(c *Config, v string) error { c.Audio.RawPath = v; return nil }},
	{"AUDIO_LOOP", boolOverride(func(c *Config) *bool { return &c.Audio.Loop })},
	{"AUDIO_INPUT_DEVICE", intOverride(func(c *Config) *int { return &c.Audio.InputDevice })},
	{"AUDIO_SAMPLE_RATE", floatOverride(func(c *Config) *float64 { return &c.Audio.SampleRate })},
	{"AUDIO_ANALYZED_CHANNEL", intOverride(func(c *Config) *int { return &c.Audio.AnalyzedChannel })},
	{"SPECTRUM_INTERVAL", func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		c.Spectrum.Interval = d
		return nil
	}},
	{"SPECTRUM_WINDOW", func(c *Config, v string) error { c.Spectrum.Window = v; return nil }},
	{"SPECTRUM_BUCKETS", intOverride(func(c *Config) *int { return &c.Spectrum.Buckets })},
	{"RENDER_INTENSITY", floatOverride(func(c *Config) *float64 { return &c.Render.Intensity })},
	{"FIXTURE_ENABLED", boolOverride(func(c *Config) *bool { return &c.Fixture.Enabled })},
	{"FIXTURE_ADDRESS", func(c *Config, v string) error { c.Fixture.Address = v; return nil }},
	{"FIXTURE_PANEL_IDS", func(c *Config, v string) error {
		ids, err := parsePanelIDs(v)
		if err != nil {
			return err
		}
		c.Fixture.PanelIDs = ids
		return nil
	}},
	{"WEBSOCKET_ENABLED", boolOverride(func(c *Config) *bool { return &c.Transport.WebSocketEnabled })},
	{"WEBSOCKET_ADDRESS", func(c *Config, v string) error { c.Transport.WebSocketAddress = v; return nil }},
	{"METRICS_ENABLED", boolOverride(func(c *Config) *bool { return &c.Metrics.Enabled })},
	{"METRICS_ADDRESS", func(c *Config, v string) error { c.Metrics.Address = v; return nil }},
	{"RECORDING_ENABLED", boolOverride(func(c *Config) *bool { return &c.Recording.Enabled })},
}

func intOverride(field func(*Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*field(c) = n
		return nil
	}
}

func floatOverride(field func(*Config) *float64) func(*Config, string) error {
	return func(c *Config, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		*field(c) = f
		return nil
	}
}

func boolOverride(field func(*Config) *bool) func(*Config, string) error {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*field(c) = b
		return nil
	}
}

// parsePanelIDs reads a comma separated list such as "12,7,301".
func parsePanelIDs(v string) ([]uint16, error) {
	var ids []uint16
	for _, field := range strings.Split(v, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		id, err := strconv.ParseUint(field, 10, 16)
		if err != nil {
			return nil, err
		}
		ids = append(ids, uint16(id))
	}
	return ids, nil
}

// applyEnvOverrides applies every LP_* variable found by lookup.
func (c *Config) applyEnvOverrides(lookup func(string) (string, bool)) error {
	for _, o := range envOverrides {
		name := EnvPrefix + o.name
		val, ok := lookup(name)
		if !ok {
			continue
		}
		if err := o.apply(c, val); err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalid, name, val, err)
		}
		applog.Debugf("config: %s overrides file value", name)
	}
	return nil
}
