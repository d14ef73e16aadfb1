// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package oneeuro implements the 1€ adaptive low-pass filter
// (Casiez, Roussel and Vogel, CHI 2012).
package oneeuro

import "math"

// lowPass is a first order exponential smoother.
type lowPass struct {
	raw         float64
	smoothed    float64
	initialized bool
}

func (l *lowPass) filter(value, alpha float64) float64 {
	if l.initialized {
		l.smoothed = alpha*value + (1-alpha)*l.smoothed
	} else {
		l.smoothed = value
		l.initialized = true
	}
	l.raw = value
	return l.smoothed
}

// Filter smooths a scalar stream sampled at a fixed rate. Its cutoff rises
// with the filtered speed of the signal: slow motion is smoothed hard, fast
// motion passes with little lag.
//
// CutoffMin, Beta and CutoffDerivative may be changed between calls.
type Filter struct {
	Rate             float64
	CutoffMin        float64
	Beta             float64
	CutoffDerivative float64

	x  lowPass
	dx lowPass
}

// New returns a filter for a stream sampled at rate Hz.
func New(rate, cutoffMin, beta, cutoffDerivative float64) *Filter {
	return &Filter{
		Rate:             rate,
		CutoffMin:        cutoffMin,
		Beta:             beta,
		CutoffDerivative: cutoffDerivative,
	}
}

// Filter returns the filtered value for the next sample.
func (f *Filter) Filter(value float64) float64 {
	var dx float64
	if f.x.initialized {
		dx = (value - f.x.raw) * f.Rate
	}
	edx := f.dx.filter(dx, alpha(f.Rate, f.CutoffDerivative))
	cutoff := f.CutoffMin + f.Beta*math.Abs(edx)
	return f.x.filter(value, alpha(f.Rate, cutoff))
}

// Reset forgets the filter history; the next sample passes unchanged.
func (f *Filter) Reset() {
	f.x = lowPass{}
	f.dx = lowPass{}
}

// alpha returns the smoothing factor of a low-pass filter with the given
// cutoff frequency.
func alpha(rate, cutoff float64) float64 {
	tau := 1 / (2 * math.Pi * cutoff)
	return 1 / (1 + tau*rate)
}
