// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/dsp/window"
)

// WindowFunc selects the taper applied before the FFT.
type WindowFunc int

// Available window functions. Hamming is the default.
const (
	Hamming WindowFunc = iota
	Hann
	Blackman
	BlackmanNuttall
	BartlettHann
	Lanczos
	Nuttall
)

var windowNames = map[string]WindowFunc{
	"hamming":         Hamming,
	"hann":            Hann,
	"hanning":         Hann,
	"blackman":        Blackman,
	"blackmannuttall": BlackmanNuttall,
	"bartletthann":    BartlettHann,
	"lanczos":         Lanczos,
	"nuttall":         Nuttall,
}

// ParseWindowFunc converts a case-insensitive name to a WindowFunc. The empty
// name selects Hamming.
func ParseWindowFunc(name string) (WindowFunc, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return Hamming, nil
	}
	if w, ok := windowNames[name]; ok {
		return w, nil
	}
	return Hamming, fmt.Errorf("unknown window function %q", name)
}

// coefficients returns the window of length size.
func (w WindowFunc) coefficients(size int) []float64 {
	coeffs := make([]float64, size)
	for i := range coeffs {
		coeffs[i] = 1.0
	}

	switch w {
	case Hann:
		window.Hann(coeffs)
	case Blackman:
		window.Blackman(coeffs)
	case BlackmanNuttall:
		window.BlackmanNuttall(coeffs)
	case BartlettHann:
		window.BartlettHann(coeffs)
	case Lanczos:
		window.Lanczos(coeffs)
	case Nuttall:
		window.Nuttall(coeffs)
	default:
		window.Hamming(coeffs)
	}
	return coeffs
}
