// SPDX-License-Identifier: MIT
/*
Package audio produces mono float32 blocks for the spectrum pipeline:
- Live capture from a PortAudio input device (Engine)
- Replay of a WAV file paced in real time (Replay)
- Raw little-endian float32 streams such as a pipe from a sound server (RawSource)

Each producer pushes into a Sink, normally the shared *buffer.Queue, together
with the sample rate the block was captured at.

Thread Safety:
- The capture callback only de-interleaves into a preallocated buffer and calls Push
- Push copies, so the buffer is reused on the next callback
- Recording state is swapped atomically and may change while capturing
*/
package audio

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"leafpipe/internal/config"
	applog "leafpipe/internal/log"

	"github.com/gordonklaus/portaudio"
)

// Sink receives mono sample blocks. *buffer.Queue implements it.
type Sink interface {
	Push(samples []float32, rate float64)
}

// Producer pushes audio into a Sink until ctx is done or the input ends.
type Producer interface {
	Run(ctx context.Context) error
}

// Engine captures one channel of a PortAudio input device.
type Engine struct {
	config *config.AudioConfig
	sink   Sink

	inputDevice  *portaudio.DeviceInfo
	inputLatency time.Duration
	inputStream  *portaudio.Stream
	sampleRate   float64 // rate negotiated with the device

	mono []float32 // analyzed channel, reused per callback
	gate Gate

	recorder atomic.Pointer[Recorder]
}

// NewEngine resolves the input device. PortAudio must be initialized.
func NewEngine(cfg *config.AudioConfig, sink Sink) (*Engine, error) {
	inputDevice, err := InputDevice(cfg.InputDevice)
	if err != nil {
		return nil, err
	}
	if cfg.InputChannels > inputDevice.MaxInputChannels {
		return nil, fmt.Errorf("device %s has %d input channels, %d requested",
			inputDevice.Name, inputDevice.MaxInputChannels, cfg.InputChannels)
	}

	engine := &Engine{
		config:      cfg,
		sink:        sink,
		inputDevice: inputDevice,
		sampleRate:  cfg.SampleRate,
		mono:        make([]float32, 0, cfg.FramesPerBuffer),
	}
	engine.gate.SetThreshold(cfg.GateThreshold)

	if cfg.LowLatency {
		engine.inputLatency = inputDevice.DefaultLowInputLatency
	} else {
		engine.inputLatency = inputDevice.DefaultHighInputLatency
	}

	return engine, nil
}

// StartInputStream opens the device and begins calling back into the engine.
func (e *Engine) StartInputStream() error {
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: e.config.InputChannels,
			Device:   e.inputDevice,
			Latency:  e.inputLatency,
		},
		FramesPerBuffer: e.config.FramesPerBuffer,
		SampleRate:      e.config.SampleRate,
	}

	stream, err := portaudio.OpenStream(params, e.processInputStream)
	if err != nil {
		return fmt.Errorf("failed to open input stream on %s: %w", e.inputDevice.Name, err)
	}
	e.inputStream = stream

	if info := stream.Info(); info != nil && info.SampleRate > 0 {
		e.sampleRate = info.SampleRate
	}

	if err := e.inputStream.Start(); err != nil {
		e.inputStream.Close()
		e.inputStream = nil
		return fmt.Errorf("failed to start input stream: %w", err)
	}

	applog.Infof("audio: capturing %s channel %d/%d at %.0f Hz, %d frames per buffer",
		e.inputDevice.Name, e.config.AnalyzedChannel+1, e.config.InputChannels,
		e.sampleRate, e.config.FramesPerBuffer)
	return nil
}

// StopInputStream stops and closes the stream if it is open.
func (e *Engine) StopInputStream() error {
	if e.inputStream == nil {
		return nil
	}

	stream := e.inputStream
	e.inputStream = nil
	if err := stream.Stop(); err != nil {
		stream.Close()
		return err
	}
	return stream.Close()
}

// Run captures until ctx is done, then releases the stream and any recording.
// The stream is opened here unless StartInputStream was already called.
func (e *Engine) Run(ctx context.Context) error {
	if e.inputStream == nil {
		if err := e.StartInputStream(); err != nil {
			return err
		}
	}
	<-ctx.Done()
	return e.Close()
}

// SampleRate returns the rate blocks are tagged with.
func (e *Engine) SampleRate() float64 {
	return e.sampleRate
}

// Gate returns the engine's noise gate.
func (e *Engine) Gate() *Gate {
	return &e.gate
}

// processInputStream is the PortAudio callback.
// Performance Critical:
// - Runs on the PortAudio thread
// - No allocations: mono is preallocated and Push copies
func (e *Engine) processInputStream(in []float32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if r := e.recorder.Load(); r != nil {
		if err := r.Write(in); err != nil && !errors.Is(err, ErrRecorderClosed) {
			applog.Errorf("audio: recording write failed: %v", err)
		}
	}

	e.mono = Deinterleave(e.mono[:0], in, e.config.InputChannels, e.config.AnalyzedChannel)
	e.gate.Apply(e.mono)
	e.sink.Push(e.mono, e.sampleRate)
}

// Close stops any recording and the input stream.
func (e *Engine) Close() error {
	recErr := e.StopRecording()
	streamErr := e.StopInputStream()
	return errors.Join(recErr, streamErr)
}
