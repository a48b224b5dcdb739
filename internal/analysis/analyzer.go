// SPDX-License-Identifier: MIT
/*
Package analysis turns extracted audio slices into a short vector of
log-spaced band intensities, and tracks a decaying min/max envelope per band.

Pipeline per call:
 1. Pull the next interval from the sample source
 2. Truncate to a power of two and transform with a cached window/FFT plan
 3. Keep the bins between the floor and ceiling frequencies
 4. Interpolate bin magnitudes over logarithmic knots at points spaced evenly
    from the first knot to the last
 5. Scale by sqrt(size), compress with log10(1+x) and apply the gain

Insufficient data is not an error: Spectrum reports ok=false and the caller
keeps its previous output.
*/
package analysis

import (
	"leafpipe/pkg/bitint"
	"math"
	"math/cmplx"
	"time"
)

// Defaults for the spectral mapping.
const (
	DefaultFloorHz   = 100.0   // Lowest analyzed frequency
	DefaultCeilingHz = 15000.0 // Highest analyzed frequency, keeps clear of the mirrored upper half
	DefaultKnotBase  = 1.02    // Growth of the log knot spacing
	DefaultGain      = 8.0     // Output multiplier after log compression
)

// Source supplies the next interval of mono samples and their effective rate.
// *buffer.Queue implements it.
type Source interface {
	TakeNext(interval time.Duration) ([]float32, float64)
}

// Config controls the frequency window and output scaling.
type Config struct {
	FloorHz   float64
	CeilingHz float64
	KnotBase  float64
	Gain      float64
	Window    WindowFunc
}

// DefaultConfig returns the standard mapping: Hamming window, 100Hz-15kHz,
// base 1.02, gain 8.
func DefaultConfig() Config {
	return Config{
		FloorHz:   DefaultFloorHz,
		CeilingHz: DefaultCeilingHz,
		KnotBase:  DefaultKnotBase,
		Gain:      DefaultGain,
		Window:    Hamming,
	}
}

// Analyzer runs the spectral mapping against a Source. It owns its plan cache
// and scratch buffers and must only be used from one goroutine.
type Analyzer struct {
	source Source
	config Config
	plans  *PlanCache

	magnitudes []float64
	knots      []float64
}

// NewAnalyzer creates an analyzer reading from source. Zero fields in cfg
// take their defaults; a knot base <= 1 is replaced by DefaultKnotBase.
func NewAnalyzer(source Source, cfg Config) *Analyzer {
	if cfg.FloorHz < 0 {
		cfg.FloorHz = 0
	}
	if cfg.CeilingHz == 0 {
		cfg.CeilingHz = DefaultCeilingHz
	}
	if !(cfg.KnotBase > 1) {
		cfg.KnotBase = DefaultKnotBase
	}
	if cfg.Gain == 0 {
		cfg.Gain = DefaultGain
	}

	return &Analyzer{
		source: source,
		config: cfg,
		plans:  NewPlanCache(cfg.Window),
	}
}

// Spectrum extracts the next interval from the source and maps it to buckets
// values. ok is false when there was not enough audio or not enough bins to
// interpolate; this is expected while the capture is starting or silent.
func (a *Analyzer) Spectrum(interval time.Duration, buckets int) ([]float64, bool) {
	samples, rate := a.source.TakeNext(interval)
	return a.Transform(samples, rate, buckets)
}

// Transform maps an already extracted slice captured at rate Hz to buckets
// values.
func (a *Analyzer) Transform(samples []float32, rate float64, buckets int) ([]float64, bool) {
	if len(samples) < 2 || buckets <= 0 || !(rate > 0) {
		return nil, false
	}

	size := bitint.PrevPowerOfTwo(len(samples))
	plan := a.plans.Get(size)
	coeffs := plan.Transform(samples)

	lo, hi := binRange(size, rate, a.config.FloorHz, a.config.CeilingHz)
	count := hi - lo
	if count < 2 {
		return nil, false
	}

	a.magnitudes = a.magnitudes[:0]
	for _, c := range coeffs[lo:hi] {
		a.magnitudes = append(a.magnitudes, cmplx.Abs(c))
	}
	a.knots = logKnots(a.knots, count, a.config.KnotBase)

	last := a.knots[count-1]

	out := make([]float64, buckets)
	for j := range out {
		m := interpolate(a.knots, a.magnitudes, samplePoint(j, buckets, last))
		out[j] = math.Log10(1+m/plan.Scale()) * a.config.Gain
	}

	return out, true
}

// Plans returns the number of FFT sizes seen so far.
func (a *Analyzer) Plans() int {
	return a.plans.Len()
}

// binRange converts the floor and ceiling frequencies to FFT bin indices
// [lo, hi) for a transform of size at rate, clamped to the transform.
func binRange(size int, rate, floorHz, ceilingHz float64) (int, int) {
	lo := int(float64(size) * floorHz / rate)
	hi := int(float64(size) * ceilingHz / rate)

	lo = max(0, min(lo, size))
	hi = max(0, min(hi, size))
	return lo, hi
}
