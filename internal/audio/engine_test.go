// SPDX-License-Identifier: MIT
package audio

import (
	"sync"
	"testing"

	"leafpipe/internal/config"
)

const (
	testSampleRate = 48000
	testFrameSize  = 256
)

// captureSink records every pushed block.
type captureSink struct {
	mu     sync.Mutex
	blocks [][]float32
	rates  []float64
}

func (s *captureSink) Push(samples []float32, rate float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocks = append(s.blocks, append([]float32(nil), samples...))
	s.rates = append(s.rates, rate)
}

func (s *captureSink) samples() []float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []float32
	for _, b := range s.blocks {
		all = append(all, b...)
	}
	return all
}

// discardSink drops everything without allocating.
type discardSink struct{ pushed int }

func (s *discardSink) Push(samples []float32, _ float64) { s.pushed += len(samples) }

func newTestEngine(sink Sink, channels, analyzed int) *Engine {
	return &Engine{
		config: &config.AudioConfig{
			SampleRate:      testSampleRate,
			InputChannels:   channels,
			AnalyzedChannel: analyzed,
			FramesPerBuffer: testFrameSize,
		},
		sink:       sink,
		sampleRate: testSampleRate,
		mono:       make([]float32, 0, testFrameSize),
	}
}

func interleavedTestBlock(frames, channels int) []float32 {
	in := make([]float32, frames*channels)
	for f := range frames {
		for c := range channels {
			in[f*channels+c] = float32(c+1) * 0.1
		}
	}
	return in
}

func TestProcessInputStreamPushesAnalyzedChannel(t *testing.T) {
	sink := &captureSink{}
	engine := newTestEngine(sink, 2, 1)

	engine.processInputStream(interleavedTestBlock(testFrameSize, 2))

	if len(sink.blocks) != 1 {
		t.Fatalf("pushed %d blocks, want 1", len(sink.blocks))
	}
	if len(sink.blocks[0]) != testFrameSize {
		t.Fatalf("block length = %d, want %d", len(sink.blocks[0]), testFrameSize)
	}
	for i, s := range sink.blocks[0] {
		if s != 0.2 {
			t.Fatalf("sample %d = %v, want right channel value 0.2", i, s)
		}
	}
	if sink.rates[0] != testSampleRate {
		t.Errorf("rate = %v, want %v", sink.rates[0], testSampleRate)
	}
}

func TestProcessInputStreamGate(t *testing.T) {
	sink := &captureSink{}
	engine := newTestEngine(sink, 1, 0)
	engine.Gate().SetThreshold(0.5)

	engine.processInputStream(interleavedTestBlock(testFrameSize, 1))

	// Gated blocks are still queued, as silence.
	if len(sink.blocks) != 1 {
		t.Fatalf("pushed %d blocks, want 1", len(sink.blocks))
	}
	for i, s := range sink.blocks[0] {
		if s != 0 {
			t.Fatalf("sample %d = %v, want 0 below the gate", i, s)
		}
	}
}

func TestProcessInputStreamNoAllocsHotPath(t *testing.T) {
	sink := &discardSink{}
	engine := newTestEngine(sink, 2, 0)
	in := interleavedTestBlock(testFrameSize, 2)

	allocs := testing.AllocsPerRun(100, func() {
		engine.processInputStream(in)
	})
	if allocs > 0 {
		t.Errorf("capture hot path allocated %.1f times per run, want 0", allocs)
	}
	if sink.pushed == 0 {
		t.Error("nothing was pushed")
	}
}

func TestCloseWithoutStream(t *testing.T) {
	engine := newTestEngine(&discardSink{}, 1, 0)
	if err := engine.Close(); err != nil {
		t.Errorf("Close() on an idle engine = %v", err)
	}
}

func BenchmarkProcessInputStream(b *testing.B) {
	engine := newTestEngine(&discardSink{}, 2, 0)
	in := interleavedTestBlock(testFrameSize, 2)

	b.ReportAllocs()
	for b.Loop() {
		engine.processInputStream(in)
	}
}
