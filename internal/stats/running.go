// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package stats aggregates scalar series online.
package stats

import "math"

// ci95Z is the two-sided z-score for a 95% confidence interval.
const ci95Z = 1.96

// RunningStatistics aggregates a scalar series with the Welford recurrence
// and keeps the 95% confidence interval half-width of the running mean.
//
// The zero value is ready to use.
type RunningStatistics struct {
	count          uint64
	mean           float64
	m2             float64
	sampleVariance float64
	ci95           float64
	max            float64
}

// Update folds value into the running statistics.
func (r *RunningStatistics) Update(value float64) {
	if r.count == 0 {
		r.max = -math.MaxFloat64
	}

	r.count++
	delta := value - r.mean
	r.mean += delta / float64(r.count)
	delta2 := value - r.mean
	r.m2 += delta * delta2

	r.max = math.Max(r.max, value)

	// A single observation has no sample variance.
	if r.count < 2 {
		return
	}
	r.sampleVariance = r.m2 / float64(r.count-1)
	r.ci95 = ci95Z * math.Sqrt(r.sampleVariance/float64(r.count))
}

// Count returns the number of observed values.
func (r RunningStatistics) Count() uint64 { return r.count }

// Mean returns the running mean, 0 before the first update.
func (r RunningStatistics) Mean() float64 { return r.mean }

// M2 returns the running sum of squared deviations from the mean.
func (r RunningStatistics) M2() float64 { return r.m2 }

// Max returns the largest observed value, or -math.MaxFloat64 when empty.
func (r RunningStatistics) Max() float64 {
	if r.count == 0 {
		return -math.MaxFloat64
	}
	return r.max
}

// SampleVariance returns the unbiased sample variance. The second result is
// false until at least two values have been observed.
func (r RunningStatistics) SampleVariance() (float64, bool) {
	if r.count < 2 {
		return 0, false
	}
	return r.sampleVariance, true
}

// CI95 returns the 95% confidence interval half-width of the mean. The
// second result is false until at least two values have been observed.
func (r RunningStatistics) CI95() (float64, bool) {
	if r.count < 2 {
		return 0, false
	}
	return r.ci95, true
}
