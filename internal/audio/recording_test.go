// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// readWAV decodes a whole file into float samples.
func readWAV(t *testing.T, path string) ([]float32, *audio.Format) {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		t.Fatalf("%s is not a valid WAV file", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return intToFloat(nil, buf.Data, int(dec.BitDepth)), buf.Format
}

func TestRecorderWritesWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tap.wav")
	rec, err := NewRecorder(path, testSampleRate, 2)
	if err != nil {
		t.Fatalf("NewRecorder() error: %v", err)
	}

	block := interleavedTestBlock(testFrameSize, 2)
	for range 4 {
		if err := rec.Write(block); err != nil {
			t.Fatalf("Write() error: %v", err)
		}
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if err := rec.Close(); err != nil {
		t.Errorf("second Close() = %v, want nil", err)
	}
	if err := rec.Write(block); !errors.Is(err, ErrRecorderClosed) {
		t.Errorf("Write() after Close = %v, want ErrRecorderClosed", err)
	}

	samples, format := readWAV(t, path)
	if format.NumChannels != 2 || format.SampleRate != testSampleRate {
		t.Errorf("format = %+v", format)
	}
	if len(samples) != 4*len(block) {
		t.Fatalf("read %d samples, want %d", len(samples), 4*len(block))
	}
	for i := range block {
		if math.Abs(float64(samples[i]-block[i])) > 1e-3 {
			t.Fatalf("sample %d = %v, want %v", i, samples[i], block[i])
		}
	}
}

func TestRecordingPath(t *testing.T) {
	now := time.Date(2025, 4, 13, 9, 5, 7, 0, time.UTC)
	got := RecordingPath("out", now)
	want := filepath.Join("out", "recording-13-04-2025-090507.wav")
	if got != want {
		t.Errorf("RecordingPath() = %q, want %q", got, want)
	}
}

func TestEngineRecordingStartStop(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "recordings")
	engine := newTestEngine(&discardSink{}, 2, 0)

	path, err := engine.StartRecording(dir)
	if err != nil {
		t.Fatalf("StartRecording() error: %v", err)
	}
	if _, err := engine.StartRecording(dir); err == nil || !strings.Contains(err.Error(), "already recording") {
		t.Errorf("second StartRecording() = %v, want already recording", err)
	}

	engine.processInputStream(interleavedTestBlock(testFrameSize, 2))

	if err := engine.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if engine.recorder.Load() != nil {
		t.Error("recorder still set after Close()")
	}
	if err := engine.StopRecording(); err != nil {
		t.Errorf("StopRecording() when idle = %v", err)
	}

	samples, _ := readWAV(t, path)
	if len(samples) != testFrameSize*2 {
		t.Errorf("recorded %d samples, want %d", len(samples), testFrameSize*2)
	}
}

func TestRecordingErrorCases(t *testing.T) {
	tests := []struct {
		desc       string
		path       string
		rate       int
		channels   int
		wantSubstr string
	}{
		{"Invalid path", "/nonexistent/path/file.wav", testSampleRate, 2, "no such file"},
		{"Zero rate", "x.wav", 0, 2, "invalid recording format"},
		{"Zero channels", "x.wav", testSampleRate, 0, "invalid recording format"},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			_, err := NewRecorder(tt.path, tt.rate, tt.channels)
			if err == nil || !strings.Contains(err.Error(), tt.wantSubstr) {
				t.Errorf("NewRecorder() = %v, want error containing %q", err, tt.wantSubstr)
			}
		})
	}
}

func BenchmarkRecorderWrite(b *testing.B) {
	rec, err := NewRecorder(filepath.Join(b.TempDir(), "bench.wav"), testSampleRate, 2)
	if err != nil {
		b.Fatal(err)
	}
	defer rec.Close()
	block := interleavedTestBlock(testFrameSize, 2)

	b.ReportAllocs()
	for b.Loop() {
		_ = rec.Write(block)
	}
}
