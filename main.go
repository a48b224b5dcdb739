// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"leafpipe/cmd"
	"leafpipe/internal/analysis"
	"leafpipe/internal/audio"
	"leafpipe/internal/buffer"
	"leafpipe/internal/config"
	applog "leafpipe/internal/log"
	"leafpipe/internal/metrics"
	"leafpipe/internal/render"
	"leafpipe/internal/transport"
	"leafpipe/internal/transport/udp"
	"leafpipe/internal/tui"
	"leafpipe/pkg/build"

	"golang.org/x/sync/errgroup"
)

// tuiLogFile receives log output while the terminal view owns the screen.
const tuiLogFile = "leafpipe.log"

// main is the entry point. The program flow is divided into three phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Parse command line arguments and load the configuration
//   - Initialize PortAudio when capturing from a device
//   - Build the queue, analyzer, transports and renderer
//
// 2. Concurrent Phase (Hot Path):
//   - The producer pushes audio into the queue
//   - The renderer pulls one spectrum per period and sends frames
//   - Optional servers: websocket, metrics, terminal view
//
// 3. Shutdown Phase (Cold Path):
//   - A signal, the end of the input or quitting the view cancels the context
//   - Every goroutine returns, recordings are finalized, transports closed
func main() {
	// ==================== STARTUP PHASE (Cold Path) ====================

	if err := build.Initialize(); err != nil {
		applog.Fatalf("build: %v", err)
	}

	// One thread for the capture callback, one for rendering and I/O.
	runtime.GOMAXPROCS(2)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	root := cmd.NewRootCommand(build.Get(), cmd.Handlers{
		Run:  run,
		List: listDevices,
	})
	err := root.ExecuteContext(ctx)
	stop()
	if err != nil {
		applog.Errorf("%v", err)
		os.Exit(1)
	}
}

func listDevices(w io.Writer) error {
	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()
	return audio.ListDevices(w)
}

func run(ctx context.Context, cfg *config.Config, opts cmd.Options) error {
	if level, ok := applog.ParseLevel(cfg.LogLevel); ok {
		applog.SetLevel(level)
	}

	if cfg.Audio.Source == config.SourceDevice {
		if err := audio.Initialize(); err != nil {
			return err
		}
		defer audio.Terminate()

		if opts.Pick {
			sel, ok, err := tui.PickDevice()
			if err != nil {
				return fmt.Errorf("device picker: %w", err)
			}
			if !ok {
				return nil
			}
			applyDeviceSelection(&cfg.Audio, sel)
		}
	}

	if opts.TUI {
		if cfg.Audio.Source == config.SourceRaw && cfg.Audio.RawPath == "-" {
			return fmt.Errorf("%w: the terminal view needs stdin, read raw audio from a file", config.ErrInvalid)
		}
		logFile, err := os.OpenFile(tuiLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer logFile.Close()
		applog.SetOutput(logFile)
		defer applog.SetOutput(os.Stderr)
	}

	var (
		m          *metrics.Metrics
		queueOpts  []buffer.Option
		renderOpts []render.Option
	)
	if cfg.Metrics.Enabled {
		m = metrics.New()
		queueOpts = append(queueOpts, buffer.WithObserver(m))
		renderOpts = append(renderOpts, render.WithObserver(m))
	}

	window, err := analysis.ParseWindowFunc(cfg.Spectrum.Window)
	if err != nil {
		return err
	}

	queue := buffer.NewQueue(cfg.Audio.Backlog, queueOpts...)
	analyzer := analysis.NewAnalyzer(queue, analysis.Config{
		FloorHz:   cfg.Spectrum.FloorHz,
		CeilingHz: cfg.Spectrum.CeilingHz,
		KnotBase:  cfg.Spectrum.KnotBase,
		Gain:      cfg.Spectrum.Gain,
		Window:    window,
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	outputs, err := newTransports(ctx, g, cfg, opts, cancel)
	if err != nil {
		return err
	}
	defer func() {
		if err := outputs.Close(); err != nil {
			applog.Warnf("transport: close: %v", err)
		}
	}()

	producer, err := newProducer(cfg, queue)
	if err != nil {
		cancel()
		g.Wait()
		return err
	}

	renderer := render.New(analyzer, render.FromConfig(cfg), outputs, renderOpts...)

	// ==================== CONCURRENT PHASE (Hot Path) ====================

	if m != nil {
		g.Go(func() error {
			return m.Serve(ctx, cfg.Metrics.Address)
		})
	}

	g.Go(func() error {
		err := producer.Run(ctx)
		if err == nil && ctx.Err() == nil {
			applog.Infof("audio: input ended")
			cancel()
		}
		return err
	})

	g.Go(func() error {
		return renderer.Run(ctx)
	})

	// ==================== SHUTDOWN PHASE (Cold Path) ====================

	err = g.Wait()
	applog.Infof("leafpipe: stopped")
	return err
}

// newProducer builds the audio source named by the configuration. A device
// engine is started here so a recording can attach to the live stream.
func newProducer(cfg *config.Config, queue *buffer.Queue) (audio.Producer, error) {
	a := cfg.Audio

	switch a.Source {
	case config.SourceWAV:
		return audio.NewReplay(a.WAVPath, a.FramesPerBuffer, a.AnalyzedChannel, a.Loop, queue), nil

	case config.SourceRaw:
		var r io.Reader = os.Stdin
		if a.RawPath != "-" {
			f, err := os.Open(a.RawPath)
			if err != nil {
				return nil, fmt.Errorf("failed to open raw input: %w", err)
			}
			r = f
		}
		return audio.NewRawSource(r, a.SampleRate, a.InputChannels, a.AnalyzedChannel, a.FramesPerBuffer, queue), nil

	default:
		engine, err := audio.NewEngine(&cfg.Audio, queue)
		if err != nil {
			return nil, err
		}

		// CRITICAL: Start of real-time audio processing
		if err := engine.StartInputStream(); err != nil {
			return nil, err
		}

		if cfg.Recording.Enabled {
			if _, err := engine.StartRecording(cfg.Recording.OutputDir); err != nil {
				return nil, errors.Join(err, engine.Close())
			}
		}
		return engine, nil
	}
}

// newTransports opens every configured output. The terminal view runs in g;
// quitting it cancels the pipeline.
func newTransports(ctx context.Context, g *errgroup.Group, cfg *config.Config, opts cmd.Options, cancel context.CancelFunc) (transport.Multi, error) {
	outputs := transport.Multi{transport.NewLoggingTransport()}

	if cfg.Fixture.Enabled {
		publisher, err := udp.NewPublisher(cfg.Fixture.Address)
		if err != nil {
			return nil, errors.Join(err, outputs.Close())
		}
		outputs = append(outputs, publisher)
	}

	if cfg.Transport.WebSocketEnabled {
		ws := transport.NewWebSocketTransport(cfg.Transport.WebSocketAddress)
		if _, err := ws.Start(); err != nil {
			return nil, errors.Join(err, ws.Close(), outputs.Close())
		}
		outputs = append(outputs, ws)
	}

	if opts.TUI {
		view := tui.NewTransport(ctx)
		g.Go(func() error {
			defer cancel()
			return view.Run()
		})
		outputs = append(outputs, view)
	}

	return outputs, nil
}

// applyDeviceSelection points the capture settings at the picked device,
// narrowing the channel count to what it offers.
func applyDeviceSelection(a *config.AudioConfig, sel tui.Selection) {
	a.InputDevice = sel.Device.ID
	a.SampleRate = sel.SampleRate
	a.InputChannels = max(1, min(a.InputChannels, sel.Device.MaxInputChannels))
	a.AnalyzedChannel = min(a.AnalyzedChannel, a.InputChannels-1)
	applog.Infof("audio: picked %s at %.0f Hz", sel.Device.Name, sel.SampleRate)
}
