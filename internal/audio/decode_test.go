// SPDX-License-Identifier: MIT
package audio

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

func encodeFloat32LE(samples []float32) []byte {
	raw := make([]byte, 0, len(samples)*4)
	for _, s := range samples {
		raw = binary.LittleEndian.AppendUint32(raw, math.Float32bits(s))
	}
	return raw
}

func TestDecodeFloat32LE(t *testing.T) {
	want := []float32{0, 0.5, -1, 0.25}
	got, err := DecodeFloat32LE(nil, encodeFloat32LE(want))
	if err != nil {
		t.Fatalf("DecodeFloat32LE() error: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("DecodeFloat32LE() len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestDecodeFloat32LEAlignment(t *testing.T) {
	tests := []struct {
		name string
		size int
	}{
		{"One Byte", 1},
		{"Three Bytes", 3},
		{"Sample And A Half", 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := []float32{9}
			got, err := DecodeFloat32LE(dst, make([]byte, tt.size))
			if !errors.Is(err, ErrSampleAlignment) {
				t.Fatalf("error = %v, want ErrSampleAlignment", err)
			}
			if len(got) != 1 {
				t.Errorf("dst modified on error: %v", got)
			}
		})
	}
}

func TestDecodeFloat32LEEmpty(t *testing.T) {
	got, err := DecodeFloat32LE(nil, nil)
	if err != nil || len(got) != 0 {
		t.Errorf("DecodeFloat32LE(nil) = (%v, %v), want empty and nil", got, err)
	}
}

func TestDeinterleave(t *testing.T) {
	stereo := []float32{1, -1, 2, -2, 3, -3}

	tests := []struct {
		name     string
		in       []float32
		channels int
		channel  int
		want     []float32
	}{
		{"Left", stereo, 2, 0, []float32{1, 2, 3}},
		{"Right", stereo, 2, 1, []float32{-1, -2, -3}},
		{"Mono", stereo, 1, 0, stereo},
		{"Partial Frame", []float32{1, -1, 2}, 2, 1, []float32{-1}},
		{"Three Channels", []float32{1, 2, 3, 4, 5, 6}, 3, 2, []float32{3, 6}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Deinterleave(nil, tt.in, tt.channels, tt.channel)
			if len(got) != len(tt.want) {
				t.Fatalf("Deinterleave() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("Deinterleave() = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestPCMConversionRoundTrip(t *testing.T) {
	in := []float32{0, 0.5, -0.5, 1, -1, 2}
	ints := floatToInt(nil, in, 16)
	if ints[5] != 32767 {
		t.Errorf("clamped sample = %d, want 32767", ints[5])
	}

	back := intToFloat(nil, ints, 16)
	for i := range in[:5] {
		if math.Abs(float64(back[i]-in[i])) > 1e-4 {
			t.Errorf("sample %d: %v -> %d -> %v", i, in[i], ints[i], back[i])
		}
	}
}

func TestDeinterleaveNoAllocs(t *testing.T) {
	in := make([]float32, 2048)
	dst := make([]float32, 0, 1024)
	allocs := testing.AllocsPerRun(100, func() {
		dst = Deinterleave(dst[:0], in, 2, 0)
	})
	if allocs > 0 {
		t.Errorf("Deinterleave allocated %.1f times per run, want 0", allocs)
	}
}

func BenchmarkDecodeFloat32LE(b *testing.B) {
	raw := make([]byte, 4096*4)
	dst := make([]float32, 0, 4096)
	b.ReportAllocs()
	for b.Loop() {
		dst, _ = DecodeFloat32LE(dst[:0], raw)
	}
}
