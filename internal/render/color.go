// SPDX-License-Identifier: MIT
package render

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

const (
	minLevel       = 5.0  // lightness floor, panels never go fully dark
	maxLevel       = 80.0 // lightness ceiling, above this colors wash out
	levelOffset    = 10.0
	bucketExponent = 1.05
)

// Color is an HSL palette entry. Saturation and lightness are percentages.
type Color struct {
	Hue        float64
	Saturation float64
	Lightness  float64
}

// RGB converts c with its lightness replaced by level.
func (c Color) RGB(level float64) (uint8, uint8, uint8) {
	return colorful.Hsl(c.Hue, c.Saturation/100, level/100).Clamped().RGB255()
}

// level maps a bucket value to a lightness percentage. Higher buckets are
// boosted so treble registers next to bass. A window that has not seen a
// value above its noise floor yet (max <= 0) contributes nothing.
func level(lightness, value, lo, hi, intensity float64, bucket int) float64 {
	l := lightness - levelOffset
	if hi > 0 {
		l += (value + lo) / hi * intensity * math.Pow(float64(bucket+1), bucketExponent)
	}
	if math.IsNaN(l) {
		return minLevel
	}
	return max(minLevel, min(maxLevel, l))
}
