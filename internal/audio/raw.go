// SPDX-License-Identifier: MIT
package audio

import (
	"context"
	"errors"
	"fmt"
	"io"

	applog "leafpipe/internal/log"
)

// RawSource reads interleaved little-endian float32 frames, for example
// from `pw-record --format f32 -`, and pushes the analyzed channel. The
// stream carries no header, so the rate and channel count come from config.
type RawSource struct {
	r        io.Reader
	rate     float64
	channels int
	channel  int
	frames   int
	sink     Sink
}

// NewRawSource creates a source reading blocks of framesPerBuffer frames.
func NewRawSource(r io.Reader, rate float64, channels, channel, framesPerBuffer int, sink Sink) *RawSource {
	return &RawSource{
		r:        r,
		rate:     rate,
		channels: max(1, channels),
		channel:  channel,
		frames:   framesPerBuffer,
		sink:     sink,
	}
}

// Run reads until EOF or ctx is done. A trailing partial sample is reported
// as ErrSampleAlignment; whole frames read before it are still pushed. If
// the reader is an io.Closer it is closed on cancellation to unblock reads.
func (s *RawSource) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		if c, ok := s.r.(io.Closer); ok {
			c.Close()
		}
	})
	defer stop()

	frameBytes := s.channels * float32Width
	raw := make([]byte, s.frames*frameBytes)
	samples := make([]float32, 0, s.frames*s.channels)
	mono := make([]float32, 0, s.frames)

	for {
		n, err := io.ReadFull(s.r, raw)
		if ctx.Err() != nil {
			return nil
		}

		whole := n - n%frameBytes
		if whole > 0 {
			// whole is a multiple of the sample width, decoding cannot fail.
			samples, _ = DecodeFloat32LE(samples[:0], raw[:whole])
			mono = Deinterleave(mono[:0], samples, s.channels, s.channel)
			s.sink.Push(mono, s.rate)
		}

		switch {
		case err == nil:
			continue
		case errors.Is(err, io.EOF):
			applog.Debugf("audio: raw stream ended")
			return nil
		case errors.Is(err, io.ErrUnexpectedEOF):
			if n%float32Width != 0 {
				return fmt.Errorf("raw stream ended mid-sample: %w", ErrSampleAlignment)
			}
			return nil
		default:
			return fmt.Errorf("failed to read raw stream: %w", err)
		}
	}
}
