// SPDX-License-Identifier: MIT
package analysis

import "math"

// Defaults for the adaptive normalizer.
const (
	DefaultHistory    = 64
	DefaultNoiseFloor = 0.1

	initialMin = 100.0
	initialMax = 0.0
)

// SlidingWindow tracks an approximate min/max over the last limit accepted
// values. Values below the noise floor never enter the history.
//
// The bounds widen immediately on a new extreme but only shrink when the
// whole history is rescanned, once every limit accepted values. Between
// rescans an evicted extreme keeps holding its bound.
type SlidingWindow struct {
	limit      int
	noiseFloor float64

	history []float64 // ring buffer of accepted values
	next    int       // slot for the next value once history is full
	updates int       // accepted values since the last rescan

	min float64
	max float64
}

// NewSlidingWindow returns a normalizer remembering limit values. A limit
// below 1 falls back to DefaultHistory.
func NewSlidingWindow(limit int, noiseFloor float64) *SlidingWindow {
	if limit < 1 {
		limit = DefaultHistory
	}
	return &SlidingWindow{
		limit:      limit,
		noiseFloor: noiseFloor,
		history:    make([]float64, 0, limit),
		min:        initialMin,
		max:        initialMax,
	}
}

// Submit offers a value and returns the current (min, max). Values below the
// noise floor, and NaN, leave the state untouched.
func (w *SlidingWindow) Submit(value float64) (float64, float64) {
	if math.IsNaN(value) || value < w.noiseFloor {
		return w.min, w.max
	}

	if len(w.history) < w.limit {
		w.history = append(w.history, value)
	} else {
		w.history[w.next] = value
		w.next = (w.next + 1) % w.limit
	}

	w.min = math.Min(w.min, value)
	w.max = math.Max(w.max, value)

	w.updates++
	if w.updates >= w.limit {
		w.rescan()
	}

	return w.min, w.max
}

// Bounds returns the current (min, max) without submitting anything.
func (w *SlidingWindow) Bounds() (float64, float64) {
	return w.min, w.max
}

// Len returns the number of values held in the history.
func (w *SlidingWindow) Len() int {
	return len(w.history)
}

func (w *SlidingWindow) rescan() {
	w.updates = 0
	w.min, w.max = w.history[0], w.history[0]
	for _, v := range w.history[1:] {
		w.min = math.Min(w.min, v)
		w.max = math.Max(w.max, v)
	}
}
