// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package estimator

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/window"
	"gonum.org/v1/gonum/floats"
)

// NoiseEstimator estimates the noise power at a single frequency bin of a
// scalar stream. It keeps sliding DFT accumulators for three neighbouring
// bins and combines them into the Hann-windowed bin, so each sample costs a
// constant amount of work instead of a full transform.
type NoiseEstimator struct {
	sampleHz int
	bin      int

	samples *Ring[float64]

	// Sliding accumulators and rotators for bins k-1, k and k+1.
	x0, x1, x2 complex128
	w0, w1, w2 complex128

	power float64
	count uint64

	// Sum of squared Hann window coefficients.
	w float64
}

// NewNoiseEstimator returns an estimator over a window of sampleHz samples
// (one second of data). monitorHz counts down from the Nyquist bin, so the
// monitored bin is sampleHz/2 - monitorHz.
func NewNoiseEstimator(sampleHz, monitorHz int) *NoiseEstimator {
	n := float64(sampleHz)
	k := sampleHz/2 - monitorHz

	rotator := func(bin int) complex128 {
		return cmplx.Rect(1, 2*math.Pi*float64(bin)/n)
	}

	hann := make([]float64, sampleHz)
	for i := range hann {
		hann[i] = 1
	}
	window.Hann(hann)

	return &NoiseEstimator{
		sampleHz: sampleHz,
		bin:      k,
		samples:  NewRing[float64](sampleHz),
		w0:       rotator(k - 1),
		w1:       rotator(k),
		w2:       rotator(k + 1),
		w:        floats.Dot(hann, hann),
	}
}

// Update slides the window forward by one sample.
func (e *NoiseEstimator) Update(sample float64) {
	diff := complex(sample-e.samples.Oldest(), 0)
	e.x0 = e.w0 * (e.x0 + diff)
	e.x1 = e.w1 * (e.x1 + diff)
	e.x2 = e.w2 * (e.x2 + diff)

	e.samples.Push(sample)
	e.count++

	if e.count >= uint64(e.sampleHz) {
		windowed := 0.5*e.x1 - 0.25*e.x0 - 0.25*e.x2
		re, im := real(windowed), imag(windowed)
		e.power += re*re + im*im
	}
}

// Variance returns the estimated noise variance at the monitored bin. The
// second result is false until one full window has been observed.
func (e *NoiseEstimator) Variance() (float64, bool) {
	n := uint64(e.sampleHz)
	if e.count <= n {
		return 0, false
	}
	return e.power / (float64(e.count-n) * e.w), true
}

// Bin returns the monitored DFT bin index.
func (e *NoiseEstimator) Bin() int { return e.bin }

// Count returns the number of samples seen.
func (e *NoiseEstimator) Count() uint64 { return e.count }
