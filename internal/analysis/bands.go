// SPDX-License-Identifier: MIT
package analysis

import (
	"math"

	"spectral/internal/config"
)

// calcBands recomputes the band geometry: activeBands+1 edges log-spaced
// between MinFreqHz and MaxFreqHz, stored as exact fractional bin
// positions. Edges are deliberately NOT rounded to integer bins; many
// low-frequency bands span less than one bin width and integer binning
// would duplicate values across neighbors.
func (a *Analyzer) calcBands() {
	logMin := math.Log10(config.MinFreqHz)
	logMax := math.Log10(config.MaxFreqHz)

	for i := 0; i <= a.activeBands; i++ {
		t := float64(i) / float64(a.activeBands)
		freq := math.Pow(10, logMin+t*(logMax-logMin))
		a.freqEdges[i] = freq
		a.binEdges[i] = freq * float64(config.FFTSize) / a.sampleRate
	}
}

// pinkCompensation returns the frequency-dependent gain applied to band
// RMS values: +3 dB/octave referenced to 1 kHz, clamped to [0.3, 3.0].
// A flat analysis assigns proportionally less raw energy to low bands;
// this boost approximates a pink-noise-flat visual balance.
func pinkCompensation(centerFreq float64) float64 {
	comp := math.Sqrt(centerFreq / 1000.0)
	if comp < 0.3 {
		return 0.3
	}
	if comp > 3.0 {
		return 3.0
	}
	return comp
}

// LevelToDB converts a linear amplitude to decibels. Levels below the
// silence floor map to SilenceFloorDB instead of -Inf.
func LevelToDB(level float64) float64 {
	if level < config.SilenceFloor {
		return config.SilenceFloorDB
	}
	return 20 * math.Log10(level)
}
