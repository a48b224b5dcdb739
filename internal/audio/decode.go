// SPDX-License-Identifier: MIT
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrSampleAlignment is returned when a raw buffer does not hold a whole
// number of samples.
var ErrSampleAlignment = errors.New("buffer length is not a multiple of the sample width")

const float32Width = 4

// DecodeFloat32LE appends the little-endian float32 samples in raw to dst.
// raw must hold a whole number of samples; nothing is appended otherwise.
func DecodeFloat32LE(dst []float32, raw []byte) ([]float32, error) {
	if len(raw)%float32Width != 0 {
		return dst, fmt.Errorf("%w: %d bytes", ErrSampleAlignment, len(raw))
	}

	for i := 0; i < len(raw); i += float32Width {
		bits := binary.LittleEndian.Uint32(raw[i:])
		dst = append(dst, math.Float32frombits(bits))
	}
	return dst, nil
}

// Deinterleave appends channel of the interleaved frames in to dst. Trailing
// samples that do not form a whole frame are ignored.
func Deinterleave(dst, in []float32, channels, channel int) []float32 {
	if channels <= 1 {
		return append(dst, in...)
	}

	for i := channel; i+channels-channel <= len(in); i += channels {
		dst = append(dst, in[i])
	}
	return dst
}

// intToFloat scales integer PCM of the given bit depth into [-1, 1).
func intToFloat(dst []float32, in []int, bitDepth int) []float32 {
	scale := 1 / float32(int64(1)<<(bitDepth-1))
	for _, s := range in {
		dst = append(dst, float32(s)*scale)
	}
	return dst
}

// floatToInt converts [-1, 1] samples to integer PCM of the given bit depth,
// clamping out-of-range input.
func floatToInt(dst []int, in []float32, bitDepth int) []int {
	limit := float64(int64(1)<<(bitDepth-1)) - 1
	for _, s := range in {
		v := math.Round(float64(s) * limit)
		v = math.Max(-limit-1, math.Min(limit, v))
		dst = append(dst, int(v))
	}
	return dst
}
