// SPDX-License-Identifier: MIT
/*
Package render runs the consumer side of the pipeline. Once per period it
pulls a spectrum for the elapsed interval, normalizes every bucket against
its own recent history and turns it into a panel color.

Timing:
- One cycle per interval, started immediately
- After a cycle the loop sleeps for the rest of the period
- A cycle that overruns starts the next one at once, missed cycles are not replayed

The sliding windows and the analyzer are only touched from the Run goroutine.
*/
package render

import (
	"context"
	"time"

	"leafpipe/internal/analysis"
	"leafpipe/internal/config"
	applog "leafpipe/internal/log"
	"leafpipe/internal/transport"
)

// Spectrum produces bucket intensities for the next interval of audio.
// *analysis.Analyzer implements it.
type Spectrum interface {
	Spectrum(interval time.Duration, buckets int) ([]float64, bool)
}

// Observer is told about every cycle. Implementations must not block.
type Observer interface {
	CycleCompleted(elapsed time.Duration, emitted bool)
	SendFailed()
}

// Config is the render loop's view of the configuration.
type Config struct {
	Interval     time.Duration
	Buckets      int
	History      int
	NoiseFloor   float64
	Intensity    float64
	TransitionDS uint16
	Palette      []Color
	PanelIDs     []uint16
}

// FromConfig extracts the render settings from a loaded configuration.
func FromConfig(cfg *config.Config) Config {
	palette := make([]Color, len(cfg.Render.Palette))
	for i, c := range cfg.Render.Palette {
		palette[i] = Color{Hue: c.Hue, Saturation: c.Saturation, Lightness: c.Lightness}
	}
	return Config{
		Interval:     cfg.Spectrum.Interval,
		Buckets:      cfg.Spectrum.Buckets,
		History:      cfg.Normalizer.History,
		NoiseFloor:   cfg.Normalizer.NoiseFloor,
		Intensity:    cfg.Render.Intensity,
		TransitionDS: uint16(cfg.Render.TransitionDS),
		Palette:      palette,
		PanelIDs:     cfg.Fixture.PanelIDs,
	}
}

// Renderer turns spectra into frames and hands them to a transport.
type Renderer struct {
	source   Spectrum
	config   Config
	out      transport.Transport
	observer Observer

	windows []*analysis.SlidingWindow // one per bucket
	seq     uint64
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithObserver registers an observer for cycle timings and send failures.
func WithObserver(o Observer) Option {
	return func(r *Renderer) {
		r.observer = o
	}
}

// New creates a renderer. Non-positive interval and bucket counts fall back
// to the configuration defaults.
func New(source Spectrum, cfg Config, out transport.Transport, opts ...Option) *Renderer {
	if cfg.Interval <= 0 {
		cfg.Interval = config.DefaultInterval
	}
	if cfg.Buckets <= 0 {
		cfg.Buckets = config.DefaultBuckets
	}

	r := &Renderer{
		source:  source,
		config:  cfg,
		out:     out,
		windows: make([]*analysis.SlidingWindow, cfg.Buckets),
	}
	for i := range r.windows {
		r.windows[i] = analysis.NewSlidingWindow(cfg.History, cfg.NoiseFloor)
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run renders until ctx is done.
func (r *Renderer) Run(ctx context.Context) error {
	applog.Infof("render: %d buckets every %v", r.config.Buckets, r.config.Interval)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			applog.Debugf("render: stopped after %d frames", r.seq)
			return nil
		case <-timer.C:
		}

		start := time.Now()
		r.cycle(start)
		elapsed := time.Since(start)

		timer.Reset(max(r.config.Interval-elapsed, 0))
	}
}

func (r *Renderer) cycle(now time.Time) {
	frame, ok := r.Frame(now)
	if ok {
		if err := r.out.Send(frame); err != nil {
			applog.Warnf("render: frame %d: %v", frame.Seq, err)
			if r.observer != nil {
				r.observer.SendFailed()
			}
		}
	}
	if r.observer != nil {
		r.observer.CycleCompleted(time.Since(now), ok)
	}
}

// Frame computes the next frame stamped with now. It returns false when
// there was not enough audio for a spectrum.
func (r *Renderer) Frame(now time.Time) (*transport.Frame, bool) {
	values, ok := r.source.Spectrum(r.config.Interval, r.config.Buckets)
	if !ok {
		return nil, false
	}

	r.seq++
	frame := &transport.Frame{
		Seq:          r.seq,
		Timestamp:    now,
		Spectrum:     values,
		Panels:       make([]transport.Panel, 0, len(values)),
		TransitionDS: r.config.TransitionDS,
	}

	for i, v := range values {
		lo, hi := r.windows[i].Submit(v)

		color, ok := r.color(i)
		if !ok {
			continue
		}
		l := level(color.Lightness, v, lo, hi, r.config.Intensity, i)
		red, green, blue := color.RGB(l)

		frame.Panels = append(frame.Panels, transport.Panel{
			ID:    r.panelID(i),
			R:     red,
			G:     green,
			B:     blue,
			Level: l,
		})
	}
	return frame, true
}

// color returns the palette entry for bucket i, repeating the last entry
// when the palette is shorter than the bucket count.
func (r *Renderer) color(i int) (Color, bool) {
	palette := r.config.Palette
	if len(palette) == 0 {
		return Color{}, false
	}
	return palette[min(i, len(palette)-1)], true
}

func (r *Renderer) panelID(i int) uint16 {
	if i < len(r.config.PanelIDs) {
		return r.config.PanelIDs[i]
	}
	return uint16(i + 1)
}
