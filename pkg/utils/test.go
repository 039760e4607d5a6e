// Package utils provides signal generators and helpers shared by tests
// across the analysis and registry packages.
package utils

import "math"

// GenerateSineWave returns a mono sine wave at the given frequency with
// peak amplitude 0.9.
func GenerateSineWave(size int, sampleRate, frequency float64) []float64 {
	buffer := make([]float64, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = math.Sin(2*math.Pi*frequency*t) * 0.9
	}
	return buffer
}

// GenerateComplexWave returns a mono 440 Hz fundamental plus two
// harmonics, useful as "realistic" program material.
func GenerateComplexWave(size int, sampleRate float64) []float64 {
	buffer := make([]float64, size)
	for i := range buffer {
		tm := float64(i) / sampleRate
		buffer[i] = math.Sin(2*math.Pi*440*tm)*0.5 +
			math.Sin(2*math.Pi*880*tm)*0.3 +
			math.Sin(2*math.Pi*1320*tm)*0.2
	}
	return buffer
}

// GenerateStereoSine returns left and right channels carrying the same
// sine wave scaled by the per-channel gains.
func GenerateStereoSine(size int, sampleRate, frequency, leftGain, rightGain float64) (left, right []float64) {
	left = make([]float64, size)
	right = make([]float64, size)
	for i := range left {
		t := float64(i) / sampleRate
		s := math.Sin(2 * math.Pi * frequency * t)
		left[i] = s * leftGain
		right[i] = s * rightGain
	}
	return left, right
}

// FindPeakIndex returns the index of the largest value in values within
// [startIdx, endIdx], clamped to the slice bounds.
func FindPeakIndex(values []float64, startIdx, endIdx int) int {
	if len(values) == 0 {
		return 0
	}
	if startIdx < 0 {
		startIdx = 0
	}
	if endIdx >= len(values) {
		endIdx = len(values) - 1
	}

	peakIdx := startIdx
	peakValue := values[startIdx]
	for i := startIdx + 1; i <= endIdx; i++ {
		if values[i] > peakValue {
			peakValue = values[i]
			peakIdx = i
		}
	}
	return peakIdx
}
