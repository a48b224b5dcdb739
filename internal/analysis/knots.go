// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"sort"
)

// logKnots fills dst with count knot positions in [0, 1): 0 followed by
// 1 - base^-i for i = 1..count-1. Successive knots get closer together, so
// evenly spaced samples over the knots land mostly on the low bins.
func logKnots(dst []float64, count int, base float64) []float64 {
	dst = dst[:0]
	if count <= 0 {
		return dst
	}

	dst = append(dst, 0)
	for i := 1; i < count; i++ {
		dst = append(dst, 1-math.Pow(base, -float64(i)))
	}
	return dst
}

// interpolate evaluates the piecewise-linear curve through (knots[i], values[i])
// at t. Outside the knot range the nearest end value is returned. knots must be
// non-decreasing and the same length as values.
func interpolate(knots, values []float64, t float64) float64 {
	last := len(knots) - 1
	if t <= knots[0] {
		return values[0]
	}
	if t >= knots[last] {
		return values[last]
	}

	// First knot >= t; knots[i-1] < t <= knots[i] so the segment is never empty.
	i := sort.SearchFloat64s(knots, t)
	lo, hi := knots[i-1], knots[i]
	frac := (t - lo) / (hi - lo)

	return values[i-1] + (values[i]-values[i-1])*frac
}

// samplePoint returns the position of bucket j out of n. Buckets are spread
// evenly from the first knot to last, so the first bucket reads the floor bin
// and the final one the ceiling bin.
func samplePoint(j, n int, last float64) float64 {
	if n <= 1 {
		return 0
	}
	return float64(j) * last / float64(n-1)
}
