// SPDX-License-Identifier: MIT
/*
Package analysis implements the fixed-latency spectral analysis pipeline:
an interleaved stereo stream is accumulated in per-channel ring buffers
and, every quarter-window hop, transformed into smoothed, perceptually
compensated per-band stereo levels.

Thread Safety:
- Process and the analysis pass run on the real-time audio callback
- All buffers are pre-allocated; the hot path never allocates
- Band count changes are staged atomically and applied on the next pass
*/
package analysis

import (
	"math"
	"math/cmplx"
	"sync/atomic"

	"spectral/internal/config"
	"spectral/pkg/bitint"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

// BandResult holds one band's smoothed stereo levels in linear amplitude.
type BandResult struct {
	Left  float64
	Right float64
}

// One-pole smoothing coefficient: heavy enough to suppress flicker
// between hops, light enough to track transients within a few hops.
const smoothing = 0.88

// FFT magnitude normalization: 2/N for the one-sided spectrum times the
// Hann coherent gain correction of ~2.
const fftNorm = 4.0 / float64(config.FFTSize)

// Analyzer converts a stereo sample stream into per-band stereo levels.
// Feed it samples with Process; every HopSize accumulated samples it runs
// one analysis pass over the most recent FFTSize window.
type Analyzer struct {
	fft        *fourier.FFT
	sampleRate float64

	// Ring of the most recent FFTSize samples per channel.
	leftRing  []float64
	rightRing []float64
	writePos  int
	hopCount  int

	// Pre-allocated analysis workspace.
	windowCoeffs []float64
	leftFrame    []float64
	rightFrame   []float64
	leftSpec     []complex128
	rightSpec    []complex128
	leftMag      []float64
	rightMag     []float64

	// Band geometry: numBands+1 fractional bin edges and their
	// frequencies, recomputed on band-count or sample-rate change.
	binEdges  [config.MaxBands + 1]float64
	freqEdges [config.MaxBands + 1]float64

	results     [config.MaxBands]BandResult
	activeBands int
	pending     atomic.Int32 // staged band count, applied at the next pass
}

// NewAnalyzer creates an analyzer for the given sample rate with all
// buffers pre-allocated and Hann window coefficients pre-computed.
func NewAnalyzer(sampleRate float64) *Analyzer {
	if !bitint.IsPowerOfTwo(config.FFTSize) {
		panic("FFT size must be a power of 2")
	}

	coeffs := make([]float64, config.FFTSize)
	for i := range coeffs {
		coeffs[i] = 1.0
	}
	window.Hann(coeffs)

	specLen := config.FFTSize/2 + 1
	a := &Analyzer{
		fft:          fourier.NewFFT(config.FFTSize),
		sampleRate:   sampleRate,
		leftRing:     make([]float64, config.FFTSize),
		rightRing:    make([]float64, config.FFTSize),
		windowCoeffs: coeffs,
		leftFrame:    make([]float64, config.FFTSize),
		rightFrame:   make([]float64, config.FFTSize),
		leftSpec:     make([]complex128, specLen),
		rightSpec:    make([]complex128, specLen),
		leftMag:      make([]float64, specLen),
		rightMag:     make([]float64, specLen),
		activeBands:  config.DefaultBands,
	}
	a.pending.Store(config.DefaultBands)
	a.calcBands()
	return a
}

// Prepare resets all analysis state for a new sample rate. The block size
// is accepted for interface symmetry with host callbacks; the hop logic
// does not depend on it.
func (a *Analyzer) Prepare(sampleRate float64, _ int) {
	if sampleRate > 0 {
		a.sampleRate = sampleRate
	}
	a.activeBands = int(a.pending.Load())
	a.calcBands()
	a.Clear()
}

// Clear zeroes the ring buffers, hop position, and all band results.
// Used on playback stop so held levels do not linger on screen.
func (a *Analyzer) Clear() {
	for i := range a.leftRing {
		a.leftRing[i] = 0
		a.rightRing[i] = 0
	}
	a.writePos = 0
	a.hopCount = 0
	for i := range a.results {
		a.results[i] = BandResult{}
	}
}

// SetNumBands stages a new band count, clamped to [MinBands, MaxBands].
// The change takes effect at the start of the next analysis pass so a
// pass never sees half-recomputed edges. Ring buffer contents are
// unaffected.
func (a *Analyzer) SetNumBands(n int) {
	a.pending.Store(int32(config.ClampBands(n)))
}

// NumBands returns the band count that the next pass will use.
func (a *Analyzer) NumBands() int { return int(a.pending.Load()) }

// SampleRate returns the sample rate the analyzer was prepared with.
func (a *Analyzer) SampleRate() float64 { return a.sampleRate }

// Process feeds stereo samples into the ring buffer and returns true if
// at least one analysis pass ran, i.e. fresh results are available via
// Results. The hop fires exactly once per HopSize accumulated samples no
// matter how the host chunks its blocks.
func (a *Analyzer) Process(left, right []float64) bool {
	n := len(left)
	if len(right) < n {
		n = len(right)
	}

	const mask = config.FFTSize - 1
	ready := false
	for i := 0; i < n; i++ {
		a.leftRing[a.writePos] = left[i]
		a.rightRing[a.writePos] = right[i]
		a.writePos = (a.writePos + 1) & mask
		a.hopCount++
		if a.hopCount >= config.HopSize {
			a.analyze()
			a.hopCount = 0
			ready = true
		}
	}
	return ready
}

// Results returns the current band levels. The slice aliases internal
// state: it is valid until the next pass and is not safe to read
// concurrently with Process. Entries at or beyond NumBands are stale.
func (a *Analyzer) Results() []BandResult {
	return a.results[:]
}

// analyze runs one full analysis pass over the most recent window.
// Hot path: no allocation, bounded work.
func (a *Analyzer) analyze() {
	// Apply a staged band count change before touching band geometry.
	if p := int(a.pending.Load()); p != a.activeBands {
		a.activeBands = p
		a.calcBands()
	}

	// Copy the ring into chronological order (oldest first) and window.
	const mask = config.FFTSize - 1
	for i := 0; i < config.FFTSize; i++ {
		idx := (a.writePos + i) & mask
		a.leftFrame[i] = a.leftRing[idx] * a.windowCoeffs[i]
		a.rightFrame[i] = a.rightRing[idx] * a.windowCoeffs[i]
	}

	a.fft.Coefficients(a.leftSpec, a.leftFrame)
	a.fft.Coefficients(a.rightSpec, a.rightFrame)
	for i := range a.leftSpec {
		a.leftMag[i] = cmplx.Abs(a.leftSpec[i]) * fftNorm
		a.rightMag[i] = cmplx.Abs(a.rightSpec[i]) * fftNorm
	}

	for band := 0; band < a.activeBands; band++ {
		startBinF := a.binEdges[band]
		endBinF := a.binEdges[band+1]

		// Overlap-weighted accumulation: each bin covers the interval
		// [bin-0.5, bin+0.5); weighting by overlap with the band's
		// fractional range keeps adjacent narrow bands distinct even
		// when they share raw bins.
		var leftEnergy, rightEnergy, totalWeight float64

		startBin := int(math.Floor(startBinF))
		if startBin < 1 {
			startBin = 1
		}
		endBin := int(math.Ceil(endBinF))
		if endBin > config.NumBins-1 {
			endBin = config.NumBins - 1
		}

		for bin := startBin; bin <= endBin; bin++ {
			binStart := float64(bin) - 0.5
			binEnd := float64(bin) + 0.5
			overlapStart := math.Max(binStart, startBinF)
			overlapEnd := math.Min(binEnd, endBinF)
			weight := overlapEnd - overlapStart
			if weight <= 0 {
				continue
			}
			leftEnergy += a.leftMag[bin] * a.leftMag[bin] * weight
			rightEnergy += a.rightMag[bin] * a.rightMag[bin] * weight
			totalWeight += weight
		}

		if totalWeight > 0 {
			leftEnergy /= totalWeight
			rightEnergy /= totalWeight
		}

		leftRMS := math.Sqrt(leftEnergy)
		rightRMS := math.Sqrt(rightEnergy)

		center := (a.freqEdges[band] + a.freqEdges[band+1]) * 0.5
		comp := pinkCompensation(center)
		leftRMS *= comp
		rightRMS *= comp

		a.results[band].Left = a.results[band].Left*smoothing + leftRMS*(1-smoothing)
		a.results[band].Right = a.results[band].Right*smoothing + rightRMS*(1-smoothing)
	}
}
