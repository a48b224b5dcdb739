// SPDX-License-Identifier: MIT
package audio

import (
	"math"
	"sync/atomic"
)

// Gate silences capture blocks whose peak stays below a threshold, so room
// noise does not drift the normalizers. Silenced blocks are still queued to
// keep the extraction timeline intact.
//
// The threshold is stored as float32 bits and may be changed while the
// capture callback is running.
type Gate struct {
	threshold atomic.Uint32
}

// SetThreshold sets the peak level in [0, 1]; 0 keeps the gate open.
// Out-of-range values are clamped.
func (g *Gate) SetThreshold(threshold float64) {
	threshold = math.Max(0, math.Min(1, threshold))
	g.threshold.Store(math.Float32bits(float32(threshold)))
}

// Threshold returns the current peak level.
func (g *Gate) Threshold() float64 {
	return float64(math.Float32frombits(g.threshold.Load()))
}

// Apply zeroes samples in place when their peak is below the threshold and
// reports whether the block passed.
func (g *Gate) Apply(samples []float32) bool {
	threshold := math.Float32frombits(g.threshold.Load())
	if threshold == 0 {
		return true
	}

	var peak float32
	for _, s := range samples {
		peak = max(peak, s, -s)
	}
	if peak >= threshold {
		return true
	}

	clear(samples)
	return false
}
