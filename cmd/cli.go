// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"leafpipe/internal/config"
	applog "leafpipe/internal/log"
	"leafpipe/pkg/build"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Options are command line switches that are not part of the configuration
// file.
type Options struct {
	ConfigPath string
	Verbose    bool
	TUI        bool // show the live spectrum view
	Pick       bool // choose the capture device interactively
}

// Handlers are the actions the commands dispatch to.
type Handlers struct {
	Run  func(ctx context.Context, cfg *config.Config, opts Options) error
	List func(w io.Writer) error
}

// flagValues receives flag input before it is merged into the loaded
// configuration. Only flags the user actually set are applied.
type flagValues struct {
	device          int
	sampleRate      float64
	framesPerBuffer int
	channels        int
	channel         int
	lowLatency      bool
	wav             string
	raw             string
	loop            bool
	buckets         int
	interval        time.Duration
	window          string
	intensity       float64
	fixture         string
	websocket       string
	metrics         string
	record          bool
	output          string
	logLevel        string
}

// NewRootCommand builds the command tree. The root command runs the pipeline.
func NewRootCommand(info build.Info, h Handlers) *cobra.Command {
	var (
		opts  Options
		flags flagValues
	)

	rootCmd := &cobra.Command{
		Use:           info.Name,
		Short:         info.Description,
		Version:       info.String(),
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.Verbose {
				applog.SetLevel(applog.LevelDebug)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(opts.ConfigPath)
			if err != nil {
				return err
			}
			if err := applyFlags(cmd.Flags(), &flags, cfg); err != nil {
				return err
			}
			if opts.Verbose {
				cfg.LogLevel = "debug"
			}
			return h.Run(cmd.Context(), cfg, opts)
		},
	}

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	// List command
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return h.List(cmd.OutOrStdout())
		},
	}
	rootCmd.AddCommand(listCmd)

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "",
		"Configuration file. Defaults to leafpipe.yaml, config.yaml or the user config directory")
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false,
		"Show verbose output")

	f := rootCmd.Flags()

	// Audio Source Configuration
	f.IntVarP(&flags.device, "device", "d", config.DefaultDeviceID,
		"Specify input device ID. Use 'list' command to see available devices.")
	f.Float64VarP(&flags.sampleRate, "sample-rate", "s", config.DefaultSampleRate,
		"Sample rate, measured in Hertz (Hz)")
	f.IntVarP(&flags.framesPerBuffer, "frames-per-buffer", "b", config.DefaultFramesPerBuffer,
		"The number of frames per buffer (affects latency)")
	f.IntVar(&flags.channels, "channels", config.DefaultInputChannels,
		"Number of channels to open on the device")
	f.IntVar(&flags.channel, "channel", 0,
		"Zero based channel fed to the analyzer")
	f.BoolVarP(&flags.lowLatency, "low-latency", "l", false,
		"Use low latency mode for real-time processing")
	f.StringVar(&flags.wav, "wav", "",
		"Replay a WAV file instead of capturing")
	f.BoolVar(&flags.loop, "loop", false,
		"Restart the WAV file when it ends")
	f.StringVar(&flags.raw, "raw", "",
		"Read interleaved f32le samples from a file, '-' for stdin")
	f.BoolVar(&opts.Pick, "pick", false,
		"Choose the input device and sample rate interactively")

	// Spectrum Configuration
	f.IntVarP(&flags.buckets, "buckets", "n", config.DefaultBuckets,
		"Number of frequency buckets (one per panel)")
	f.DurationVar(&flags.interval, "interval", config.DefaultInterval,
		"Render period and analysis window")
	f.StringVar(&flags.window, "window", config.DefaultWindow,
		"FFT window: hamming, hann, blackman, blackmannuttall, bartletthann, lanczos or nuttall")
	f.Float64VarP(&flags.intensity, "intensity", "i", config.DefaultIntensity,
		"How strongly loudness brightens the panels")

	// Output Configuration
	f.StringVar(&flags.fixture, "fixture", "",
		"Stream colors to the fixture at host[:port]")
	f.StringVar(&flags.websocket, "websocket", "",
		"Serve frames to websocket clients on this address")
	f.StringVar(&flags.metrics, "metrics", "",
		"Serve Prometheus metrics on this address")
	f.BoolVar(&opts.TUI, "tui", false,
		"Show the live spectrum in the terminal")

	// Recording Configuration
	f.BoolVarP(&flags.record, "record", "r", false,
		"Record audio from the input device")
	f.StringVarP(&flags.output, "output", "o", "",
		"Directory for recordings, files are named recording-DD-MM-YYYY-HHMMSS.wav")

	// Debug Configuration
	f.StringVar(&flags.logLevel, "log-level", "",
		"Log level: debug, info, warn or error")

	return rootCmd
}

// applyFlags copies every flag the user set over cfg and revalidates it.
func applyFlags(fs *pflag.FlagSet, v *flagValues, cfg *config.Config) error {
	set := func(name string, apply func()) {
		if fs.Changed(name) {
			apply()
		}
	}

	set("device", func() { cfg.Audio.InputDevice = v.device })
	set("sample-rate", func() { cfg.Audio.SampleRate = v.sampleRate })
	set("frames-per-buffer", func() { cfg.Audio.FramesPerBuffer = v.framesPerBuffer })
	set("channels", func() { cfg.Audio.InputChannels = v.channels })
	set("channel", func() { cfg.Audio.AnalyzedChannel = v.channel })
	set("low-latency", func() { cfg.Audio.LowLatency = v.lowLatency })
	set("wav", func() {
		cfg.Audio.Source = config.SourceWAV
		cfg.Audio.WAVPath = v.wav
	})
	set("loop", func() { cfg.Audio.Loop = v.loop })
	set("raw", func() {
		cfg.Audio.Source = config.SourceRaw
		cfg.Audio.RawPath = v.raw
	})
	set("buckets", func() { cfg.Spectrum.Buckets = v.buckets })
	set("interval", func() { cfg.Spectrum.Interval = v.interval })
	set("window", func() { cfg.Spectrum.Window = v.window })
	set("intensity", func() { cfg.Render.Intensity = v.intensity })
	set("fixture", func() {
		cfg.Fixture.Enabled = true
		cfg.Fixture.Address = v.fixture
	})
	set("websocket", func() {
		cfg.Transport.WebSocketEnabled = true
		cfg.Transport.WebSocketAddress = v.websocket
	})
	set("metrics", func() {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Address = v.metrics
	})
	set("record", func() { cfg.Recording.Enabled = v.record })
	set("output", func() { cfg.Recording.OutputDir = v.output })
	set("log-level", func() { cfg.LogLevel = v.logLevel })

	if fs.Changed("wav") && fs.Changed("raw") {
		return fmt.Errorf("%w: --wav and --raw are mutually exclusive", config.ErrInvalid)
	}
	return cfg.Validate()
}
