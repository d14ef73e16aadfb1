// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package estimator

import "math"

// topJumps is the number of largest sample-to-sample jumps retained.
const topJumps = 5

// significance is the number of noise standard deviations a jump must exceed
// to count as motion.
const significance = 3.0

// MaxDistanceEstimator tracks the largest jumps between consecutive samples
// of one axis. It reports the smallest of the top five so that a single
// spurious spike cannot dominate the estimate.
type MaxDistanceEstimator struct {
	previous    float64
	hasPrevious bool
	jumps       [topJumps]float64
}

// Update records the jump from the previous sample when it is
// distinguishable from noise with the given standard deviation.
func (e *MaxDistanceEstimator) Update(sample, stddev float64) {
	if e.hasPrevious {
		delta := math.Abs(e.previous - sample)
		if delta > significance*stddev {
			i := e.minIndex()
			if delta > e.jumps[i] {
				e.jumps[i] = delta
			}
		}
	}
	e.previous = sample
	e.hasPrevious = true
}

// MaxWithinReason returns the smallest of the five largest jumps seen.
func (e *MaxDistanceEstimator) MaxWithinReason() float64 {
	return e.jumps[e.minIndex()]
}

func (e *MaxDistanceEstimator) minIndex() int {
	idx := 0
	for i := 1; i < topJumps; i++ {
		if e.jumps[i] < e.jumps[idx] {
			idx = i
		}
	}
	return idx
}

// ThreeAxisMaxDistanceEstimator runs a MaxDistanceEstimator per axis with a
// shared noise standard deviation.
type ThreeAxisMaxDistanceEstimator struct {
	noiseStdDev float64
	axes        [3]MaxDistanceEstimator
}

// NewThreeAxisMaxDistanceEstimator returns an estimator seeded with the noise
// standard deviation from noise calibration.
func NewThreeAxisMaxDistanceEstimator(noiseStdDev float64) *ThreeAxisMaxDistanceEstimator {
	return &ThreeAxisMaxDistanceEstimator{noiseStdDev: noiseStdDev}
}

// Update feeds one sample per axis.
func (e *ThreeAxisMaxDistanceEstimator) Update(x, y, z float64) {
	e.axes[0].Update(x, e.noiseStdDev)
	e.axes[1].Update(y, e.noiseStdDev)
	e.axes[2].Update(z, e.noiseStdDev)
}

// MaxWithinReason returns the largest per-axis robust peak.
func (e *ThreeAxisMaxDistanceEstimator) MaxWithinReason() float64 {
	return math.Max(e.axes[0].MaxWithinReason(),
		math.Max(e.axes[1].MaxWithinReason(), e.axes[2].MaxWithinReason()))
}

// NoiseStdDev returns the seeding standard deviation.
func (e *ThreeAxisMaxDistanceEstimator) NoiseStdDev() float64 { return e.noiseStdDev }
