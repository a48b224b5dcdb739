// SPDX-License-Identifier: MIT
package analysis

import (
	"leafpipe/pkg/bitint"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Plan holds everything needed to transform one block size: the gonum FFT
// plan, window coefficients, the magnitude scale and reusable buffers.
type Plan struct {
	size   int
	fft    *fourier.CmplxFFT
	window []float64
	scale  float64

	input  []complex128 // windowed samples
	output []complex128 // FFT coefficients
}

func newPlan(size int, w WindowFunc) *Plan {
	return &Plan{
		size:   size,
		fft:    fourier.NewCmplxFFT(size),
		window: w.coefficients(size),
		scale:  math.Sqrt(float64(size)),
		input:  make([]complex128, size),
		output: make([]complex128, size),
	}
}

// Size returns the transform length.
func (p *Plan) Size() int { return p.size }

// Scale returns sqrt(size), the divisor applied to magnitudes.
func (p *Plan) Scale() float64 { return p.scale }

// Transform windows the first Size() samples and runs the forward FFT. The
// returned slice is owned by the plan and overwritten by the next call.
func (p *Plan) Transform(samples []float32) []complex128 {
	for i := range p.size {
		p.input[i] = complex(float64(samples[i])*p.window[i], 0)
	}
	return p.fft.Coefficients(p.output, p.input)
}

// PlanCache lazily creates one Plan per power-of-two size, keyed by the
// exponent. Entries live for the process lifetime. Not safe for concurrent
// use: it belongs to the goroutine that runs the analysis.
type PlanCache struct {
	window WindowFunc
	plans  map[uint8]*Plan
}

// NewPlanCache returns an empty cache whose plans taper with w.
func NewPlanCache(w WindowFunc) *PlanCache {
	return &PlanCache{window: w, plans: make(map[uint8]*Plan)}
}

// Get returns the plan for size, creating it on first use. It returns nil if
// size is not a power of two.
func (c *PlanCache) Get(size int) *Plan {
	if !bitint.IsPowerOfTwo(size) {
		return nil
	}

	key := uint8(bitint.Log2(size))
	plan, ok := c.plans[key]
	if !ok {
		plan = newPlan(size, c.window)
		c.plans[key] = plan
	}
	return plan
}

// Len returns the number of cached plans.
func (c *PlanCache) Len() int {
	return len(c.plans)
}
