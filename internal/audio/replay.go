// SPDX-License-Identifier: MIT
package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	applog "leafpipe/internal/log"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Replay feeds a WAV file into a Sink at the file's own pace: one block of
// frames every frames/rate seconds, as a live device would deliver it.
type Replay struct {
	path    string
	frames  int
	channel int
	loop    bool
	sink    Sink
}

// NewReplay creates a replay of path pushing framesPerBuffer frames of
// channel per block. With loop set the file restarts at its end.
func NewReplay(path string, framesPerBuffer, channel int, loop bool, sink Sink) *Replay {
	return &Replay{
		path:    path,
		frames:  framesPerBuffer,
		channel: channel,
		loop:    loop,
		sink:    sink,
	}
}

// Run plays the file until it ends (or forever with loop) or ctx is done.
func (r *Replay) Run(ctx context.Context) error {
	for {
		if err := r.playOnce(ctx); err != nil {
			return err
		}
		if !r.loop || ctx.Err() != nil {
			return nil
		}
		applog.Debugf("audio: restarting replay of %s", r.path)
	}
}

func (r *Replay) playOnce(ctx context.Context) error {
	file, err := os.Open(r.path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", r.path, err)
	}
	defer file.Close()

	decoder := wav.NewDecoder(file)
	if !decoder.IsValidFile() {
		return fmt.Errorf("%s is not a valid WAV file", r.path)
	}

	format := decoder.Format()
	channels := format.NumChannels
	bitDepth := int(decoder.BitDepth)
	rate := float64(format.SampleRate)
	if channels <= 0 || rate <= 0 || bitDepth <= 0 {
		return fmt.Errorf("%s has an unsupported format: %d channels, %.0f Hz, %d bit", r.path, channels, rate, bitDepth)
	}
	channel := min(r.channel, channels-1)

	buf := &audio.IntBuffer{
		Format:         format,
		Data:           make([]int, r.frames*channels),
		SourceBitDepth: bitDepth,
	}
	samples := make([]float32, 0, r.frames*channels)
	mono := make([]float32, 0, r.frames)

	period := time.Duration(float64(r.frames) / rate * float64(time.Second))
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	applog.Infof("audio: replaying %s (%d channels, %.0f Hz, %d bit)", r.path, channels, rate, bitDepth)

	for {
		n, err := decoder.PCMBuffer(buf)
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to decode %s: %w", r.path, err)
		}
		if n == 0 {
			return nil
		}

		samples = intToFloat(samples[:0], buf.Data[:n], bitDepth)
		mono = Deinterleave(mono[:0], samples, channels, channel)
		r.sink.Push(mono, rate)

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
