// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package estimator

import (
	"math"

	"github.com/relabs-tech/filter_calibrator/internal/stats"
)

const (
	// FixedSampleHz is the sample rate of the fixed-rate calibration path.
	FixedSampleHz = 60

	// FixedMonitoredFrequencies is how many bins below Nyquist the
	// fixed-rate estimator watches.
	FixedMonitoredFrequencies = 20

	// DefaultConvergenceThreshold bounds 2*ci95/mean for convergence.
	DefaultConvergenceThreshold = 0.1
)

// axisEstimators holds the per-axis estimators of one monitored frequency.
type axisEstimators [3]*NoiseEstimator

// ThreeAxisNoiseEstimator runs a NoiseEstimator per axis for every monitored
// frequency and folds their variances into one RunningStatistics. Noise is
// assumed white and identical across axes, so every defined variance is a
// sample of the same quantity.
type ThreeAxisNoiseEstimator struct {
	sampleHz   int
	estimators []axisEstimators
	stats      stats.RunningStatistics
	threshold  float64
	converged  bool
}

// NewThreeAxisNoiseEstimator watches the given offsets below the Nyquist bin
// of a sampleHz stream. threshold bounds the convergence ratio 2*ci95/mean.
func NewThreeAxisNoiseEstimator(sampleHz int, monitorHz []int, threshold float64) *ThreeAxisNoiseEstimator {
	estimators := make([]axisEstimators, len(monitorHz))
	for i, hz := range monitorHz {
		for axis := range estimators[i] {
			estimators[i][axis] = NewNoiseEstimator(sampleHz, hz)
		}
	}
	return &ThreeAxisNoiseEstimator{
		sampleHz:   sampleHz,
		estimators: estimators,
		threshold:  threshold,
	}
}

// FixedMonitorHz returns the offsets watched by the fixed-rate estimator:
// the 20 bins directly below Nyquist.
func FixedMonitorHz() []int {
	monitorHz := make([]int, FixedMonitoredFrequencies)
	for i := range monitorHz {
		monitorHz[i] = i + 1
	}
	return monitorHz
}

// NewFixedRateNoiseEstimator returns the 60 Hz estimator with the default
// convergence threshold.
func NewFixedRateNoiseEstimator() *ThreeAxisNoiseEstimator {
	return NewThreeAxisNoiseEstimator(FixedSampleHz, FixedMonitorHz(), DefaultConvergenceThreshold)
}

// Update feeds one sample per axis and reports whether the aggregate
// variance estimate has converged.
func (e *ThreeAxisNoiseEstimator) Update(x, y, z float64) bool {
	for _, est := range e.estimators {
		est[0].Update(x)
		est[1].Update(y)
		est[2].Update(z)

		vx, okX := est[0].Variance()
		vy, okY := est[1].Variance()
		vz, okZ := est[2].Variance()
		if !okX || !okY || !okZ {
			continue
		}
		e.stats.Update(vx)
		e.stats.Update(vy)
		e.stats.Update(vz)
	}

	e.converged = e.ConvergenceRatio() < e.threshold
	return e.converged
}

// ConvergenceRatio returns 2*ci95/mean, or +Inf while it is undefined.
func (e *ThreeAxisNoiseEstimator) ConvergenceRatio() float64 {
	ci, ok := e.stats.CI95()
	mean := e.stats.Mean()
	if !ok || mean <= 0 {
		return math.Inf(1)
	}
	return 2 * ci / mean
}

// Converged reports whether the last Update converged.
func (e *ThreeAxisNoiseEstimator) Converged() bool { return e.converged }

// MeanVariance returns the white noise variance estimate. The second result
// is false until any variance sample has been aggregated.
func (e *ThreeAxisNoiseEstimator) MeanVariance() (float64, bool) {
	if e.stats.Count() == 0 {
		return 0, false
	}
	return e.stats.Mean(), true
}

// Statistics returns a copy of the aggregated variance statistics.
func (e *ThreeAxisNoiseEstimator) Statistics() stats.RunningStatistics { return e.stats }

// SampleHz returns the configured sample rate.
func (e *ThreeAxisNoiseEstimator) SampleHz() int { return e.sampleHz }

// Threshold returns the convergence threshold.
func (e *ThreeAxisNoiseEstimator) Threshold() float64 { return e.threshold }
