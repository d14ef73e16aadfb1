// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package gridtest builds analytic precision tables for tests.
package gridtest

import (
	"math"

	"github.com/relabs-tech/filter_calibrator/internal/grid"
)

// Beta returns the beta value of row r of the 60 Hz table layout.
func Beta(r int) float64 {
	if r == 0 {
		return 0
	}
	decade := (r - 1) / 9
	mantissa := (r-1)%9 + 1
	return float64(mantissa) * math.Pow(10, float64(decade-5))
}

// Cutoff returns the minimum cutoff of row fc.
func Cutoff(fc int) float64 { return 0.05 * float64(fc+1) }

// Jitter returns the jitter of row j.
func Jitter(j int) float64 { return float64(j+1) / 3 }

// Precision approximates the residual jitter of a 1€ filter at rest: the
// output deviation of an exponential smoother on white noise, inflated by
// the cutoff increase that beta adds on noisy derivatives.
func Precision(jitter, cutoff, beta, rate float64) float64 {
	a := 1 / (1 + rate/(2*math.Pi*cutoff))
	return jitter * math.Sqrt(a/(2-a)) * (1 + 50*beta)
}

// SixtyHz returns a table with the 60 Hz layout filled from Precision.
func SixtyHz() *grid.Grid {
	d := grid.SixtyHzDims
	values := make([]float64, 0, d.Len())
	for j := 0; j < d.Jitter; j++ {
		for fc := 0; fc < d.Cutoff; fc++ {
			for b := 0; b < d.Beta; b++ {
				values = append(values, Precision(Jitter(j), Cutoff(fc), Beta(b), 60))
			}
		}
	}
	g, err := grid.NewFlat(d, values)
	if err != nil {
		panic(err)
	}
	return g
}
