// SPDX-License-Identifier: MIT
package config

import "time"

// Defaults and limits for the pipeline.
const (
	// Capture
	DefaultDeviceID        = MinDeviceID // System default input
	DefaultSampleRate      = 48000       // Hz
	DefaultFramesPerBuffer = 1024        // Frames per PortAudio callback
	DefaultInputChannels   = 2           // Stereo capture, one channel analyzed
	DefaultBacklog         = 3           // Chunks queued before new audio is dropped
	SourceDevice           = "device"
	SourceWAV              = "wav"
	SourceRaw              = "raw"

	// Spectrum
	DefaultInterval  = 100 * time.Millisecond // Render period and extraction window
	DefaultFloorHz   = 100.0
	DefaultCeilingHz = 15000.0
	DefaultKnotBase  = 1.02
	DefaultGain      = 8.0
	DefaultBuckets   = 10
	DefaultWindow    = "hamming"

	// Normalizer
	DefaultHistory    = 64
	DefaultNoiseFloor = 0.1

	// Render
	DefaultIntensity    = 15.0
	DefaultTransitionDS = 1 // Fixture fade time in deciseconds

	// Fixture
	DefaultFixturePort = 60222

	// Limits
	MinDeviceID     = -1 // -1 selects the system default device
	MinSampleRate   = 8000
	MaxSampleRate   = 192000
	MaxBufferFrames = 8192
	MaxBuckets      = 1024
)

// Default returns the built-in configuration used before the file, the
// environment and the command line are applied.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Audio: AudioConfig{
			Source:          SourceDevice,
			InputDevice:     DefaultDeviceID,
			SampleRate:      DefaultSampleRate,
			FramesPerBuffer: DefaultFramesPerBuffer,
			InputChannels:   DefaultInputChannels,
			AnalyzedChannel: 0,
			Backlog:         DefaultBacklog,
		},
		Spectrum: SpectrumConfig{
			Interval:  DefaultInterval,
			FloorHz:   DefaultFloorHz,
			CeilingHz: DefaultCeilingHz,
			KnotBase:  DefaultKnotBase,
			Gain:      DefaultGain,
			Buckets:   DefaultBuckets,
			Window:    DefaultWindow,
		},
		Normalizer: NormalizerConfig{
			History:    DefaultHistory,
			NoiseFloor: DefaultNoiseFloor,
		},
		Render: RenderConfig{
			Intensity:    DefaultIntensity,
			TransitionDS: DefaultTransitionDS,
			Palette: []ColorConfig{
				{Hue: 265, Saturation: 80, Lightness: 50},
				{Hue: 200, Saturation: 85, Lightness: 50},
				{Hue: 330, Saturation: 75, Lightness: 55},
			},
		},
		Fixture: FixtureConfig{
			Enabled: false,
			Address: "127.0.0.1:60222",
		},
		Transport: TransportConfig{
			WebSocketEnabled: false,
			WebSocketAddress: ":8080",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Address: ":9090",
		},
		Recording: RecordingConfig{
			Enabled:   false,
			OutputDir: "./recordings",
		},
	}
}
