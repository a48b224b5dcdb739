// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func mapLookup(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	t.Parallel()
	cfg, err := LoadConfig("nonexistent.yaml")
	if err == nil {
		t.Errorf("expected error for missing file, got nil")
	}
	if cfg != nil {
		t.Errorf("expected nil config on error, got %+v", cfg)
	}
}

func TestLoadConfig_UnmarshalError(t *testing.T) {
	t.Parallel()
	path := writeTempConfig(t, ":\n:bad")
	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "failed to parse config file") {
		t.Errorf("expected parse error, got %v", err)
	}
}

func TestLoadConfig_File(t *testing.T) {
	t.Parallel()
	path := writeTempConfig(t, `
log_level: debug
audio:
  source: wav
  wav_path: /tmp/in.wav
spectrum:
  interval: 50ms
  buckets: 12
render:
  intensity: 20
  palette:
    - {hue: 10, saturation: 90, lightness: 40}
fixture:
  enabled: true
  address: 192.168.1.20
  panel_ids: [5, 9, 13]
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}

	if cfg.Audio.Source != SourceWAV || cfg.Audio.WAVPath != "/tmp/in.wav" {
		t.Errorf("audio = %+v", cfg.Audio)
	}
	if cfg.Spectrum.Interval != 50*time.Millisecond {
		t.Errorf("spectrum.interval = %v, want 50ms", cfg.Spectrum.Interval)
	}
	if cfg.Spectrum.Buckets != 12 {
		t.Errorf("spectrum.buckets = %d, want 12", cfg.Spectrum.Buckets)
	}
	// Unset keys keep their defaults.
	if cfg.Spectrum.CeilingHz != DefaultCeilingHz {
		t.Errorf("spectrum.ceiling_hz = %v, want %v", cfg.Spectrum.CeilingHz, DefaultCeilingHz)
	}
	if len(cfg.Render.Palette) != 1 || cfg.Render.Palette[0].Hue != 10 {
		t.Errorf("render.palette = %+v", cfg.Render.Palette)
	}
	if cfg.Fixture.Address != "192.168.1.20:60222" {
		t.Errorf("fixture.address = %q, want default port appended", cfg.Fixture.Address)
	}
	if len(cfg.Fixture.PanelIDs) != 3 || cfg.Fixture.PanelIDs[2] != 13 {
		t.Errorf("fixture.panel_ids = %v", cfg.Fixture.PanelIDs)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Parallel()
	cfg := Default()
	err := cfg.applyEnvOverrides(mapLookup(map[string]string{
		"LP_SPECTRUM_BUCKETS":   "16",
		"LP_RENDER_INTENSITY":   "7.5",
		"LP_FIXTURE_ENABLED":    "true",
		"LP_FIXTURE_PANEL_IDS":  "1, 2,3",
		"LP_SPECTRUM_INTERVAL":  "40ms",
		"LP_AUDIO_INPUT_DEVICE": "3",
	}))
	if err != nil {
		t.Fatalf("applyEnvOverrides() error: %v", err)
	}

	if cfg.Spectrum.Buckets != 16 || cfg.Render.Intensity != 7.5 || !cfg.Fixture.Enabled {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.Spectrum.Interval != 40*time.Millisecond || cfg.Audio.InputDevice != 3 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if len(cfg.Fixture.PanelIDs) != 3 || cfg.Fixture.PanelIDs[1] != 2 {
		t.Errorf("fixture.panel_ids = %v", cfg.Fixture.PanelIDs)
	}
}

func TestEnvOverrideInvalid(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"Bad Int", map[string]string{"LP_SPECTRUM_BUCKETS": "many"}},
		{"Bad Bool", map[string]string{"LP_METRICS_ENABLED": "sure"}},
		{"Bad Duration", map[string]string{"LP_SPECTRUM_INTERVAL": "soon"}},
		{"Panel ID Overflow", map[string]string{"LP_FIXTURE_PANEL_IDS": "70000"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Default().applyEnvOverrides(mapLookup(tt.env))
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("applyEnvOverrides() = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"Log Level", func(c *Config) { c.LogLevel = "loud" }},
		{"Source", func(c *Config) { c.Audio.Source = "mic" }},
		{"WAV Without Path", func(c *Config) { c.Audio.Source = SourceWAV }},
		{"Raw Without Path", func(c *Config) { c.Audio.Source = SourceRaw }},
		{"Sample Rate", func(c *Config) { c.Audio.SampleRate = 100 }},
		{"Frames", func(c *Config) { c.Audio.FramesPerBuffer = 0 }},
		{"Analyzed Channel", func(c *Config) { c.Audio.AnalyzedChannel = 2 }},
		{"Backlog", func(c *Config) { c.Audio.Backlog = 0 }},
		{"Gate", func(c *Config) { c.Audio.GateThreshold = 2 }},
		{"Interval", func(c *Config) { c.Spectrum.Interval = 0 }},
		{"Floor Above Ceiling", func(c *Config) { c.Spectrum.FloorHz = 20000 }},
		{"Knot Base", func(c *Config) { c.Spectrum.KnotBase = 1 }},
		{"Buckets", func(c *Config) { c.Spectrum.Buckets = 0 }},
		{"Window", func(c *Config) { c.Spectrum.Window = "triangle" }},
		{"History", func(c *Config) { c.Normalizer.History = 0 }},
		{"Palette", func(c *Config) { c.Render.Palette[0].Lightness = 150 }},
		{"Fixture Address", func(c *Config) { c.Fixture.Enabled = true; c.Fixture.Address = "" }},
		{"WebSocket Address", func(c *Config) { c.Transport.WebSocketEnabled = true; c.Transport.WebSocketAddress = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Errorf("Validate() = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestWithDefaultPort(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in, want string
	}{
		{"10.0.0.2", "10.0.0.2:60222"},
		{"10.0.0.2:1234", "10.0.0.2:1234"},
		{"lights.local", "lights.local:60222"},
		{"[fe80::1]", "[fe80::1]:60222"},
	}

	for _, tt := range tests {
		got, err := withDefaultPort(tt.in, DefaultFixturePort)
		if err != nil || got != tt.want {
			t.Errorf("withDefaultPort(%q) = (%q, %v), want %q", tt.in, got, err, tt.want)
		}
	}
}
