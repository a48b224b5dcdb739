// Package utils holds signal generators and search helpers shared by tests.
package utils

import "math"

// GenerateSineWave returns size float32 samples of a unit-amplitude sine at
// frequency Hz, starting at phase 0.
func GenerateSineWave(size int, sampleRate, frequency float64) []float32 {
	return GenerateSineWaveAt(0, size, sampleRate, frequency)
}

// GenerateSineWaveAt continues a sine from sample offset so consecutive
// chunks join without a phase jump.
func GenerateSineWaveAt(offset, size int, sampleRate, frequency float64) []float32 {
	buffer := make([]float32, size)
	for i := range buffer {
		t := float64(offset+i) / sampleRate
		buffer[i] = float32(math.Sin(2 * math.Pi * frequency * t))
	}
	return buffer
}

// GenerateComplexWave returns a 440Hz fundamental plus two harmonics.
func GenerateComplexWave(size int, sampleRate float64) []float32 {
	buffer := make([]float32, size)
	for i := range buffer {
		tm := float64(i) / sampleRate
		signal := math.Sin(2*math.Pi*440*tm)*0.5 +
			math.Sin(2*math.Pi*880*tm)*0.3 +
			math.Sin(2*math.Pi*1320*tm)*0.2
		buffer[i] = float32(signal * 0.9)
	}
	return buffer
}

// FindPeakBin returns the index of the largest value in values[startBin:endBin+1],
// clamping the range to the slice.
func FindPeakBin(values []float64, startBin, endBin int) int {
	if len(values) == 0 {
		return 0
	}

	if startBin < 0 {
		startBin = 0
	}

	if endBin >= len(values) {
		endBin = len(values) - 1
	}

	peakBin := startBin
	peakValue := values[startBin]

	for bin := startBin + 1; bin <= endBin; bin++ {
		if values[bin] > peakValue {
			peakValue = values[bin]
			peakBin = bin
		}
	}

	return peakBin
}
