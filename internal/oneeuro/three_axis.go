// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package oneeuro

// ThreeAxisFilter applies one Filter per axis with shared parameters.
type ThreeAxisFilter struct {
	axes [3]*Filter
}

// NewThreeAxis returns a filter for a 3-axis stream sampled at rate Hz.
func NewThreeAxis(rate, cutoffMin, beta, cutoffDerivative float64) *ThreeAxisFilter {
	var t ThreeAxisFilter
	for i := range t.axes {
		t.axes[i] = New(rate, cutoffMin, beta, cutoffDerivative)
	}
	return &t
}

// SetCutoffMin updates the minimum cutoff of every axis.
func (t *ThreeAxisFilter) SetCutoffMin(hz float64) {
	for _, f := range t.axes {
		f.CutoffMin = hz
	}
}

// SetBeta updates the speed coefficient of every axis.
func (t *ThreeAxisFilter) SetBeta(beta float64) {
	for _, f := range t.axes {
		f.Beta = beta
	}
}

// SetCutoffDerivative updates the derivative cutoff of every axis.
func (t *ThreeAxisFilter) SetCutoffDerivative(hz float64) {
	for _, f := range t.axes {
		f.CutoffDerivative = hz
	}
}

// Filter returns the filtered sample.
func (t *ThreeAxisFilter) Filter(x, y, z float64) (float64, float64, float64) {
	return t.axes[0].Filter(x), t.axes[1].Filter(y), t.axes[2].Filter(z)
}
