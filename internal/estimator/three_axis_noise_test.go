// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package estimator

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedRateNoiseEstimatorConverges(t *testing.T) {
	const sigma = 0.5
	rng := rand.New(rand.NewPCG(9, 9))
	e := NewFixedRateNoiseEstimator()
	assert.Equal(t, FixedSampleHz, e.SampleHz())
	assert.Equal(t, DefaultConvergenceThreshold, e.Threshold())

	_, ok := e.MeanVariance()
	assert.False(t, ok)

	convergedAt := -1
	for i := 0; i < 30*FixedSampleHz; i++ {
		done := e.Update(rng.NormFloat64()*sigma, rng.NormFloat64()*sigma, rng.NormFloat64()*sigma)
		if done && convergedAt < 0 {
			convergedAt = i
		}
	}

	require.GreaterOrEqual(t, convergedAt, FixedSampleHz, "cannot converge before one full window")
	assert.True(t, e.Converged())
	assert.Less(t, e.ConvergenceRatio(), DefaultConvergenceThreshold)

	variance, ok := e.MeanVariance()
	require.True(t, ok)
	assert.InEpsilon(t, sigma*sigma, variance, 0.2)
}

func TestThreeAxisNoiseEstimatorFoldsAllAxes(t *testing.T) {
	e := NewThreeAxisNoiseEstimator(10, []int{1, 2}, DefaultConvergenceThreshold)
	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 10; i++ {
		e.Update(rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64())
	}
	assert.Equal(t, uint64(0), e.Statistics().Count())

	e.Update(rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64())
	// two frequencies times three axes
	assert.Equal(t, uint64(6), e.Statistics().Count())
}

func TestThreeAxisNoiseEstimatorSilentInputNeverConverges(t *testing.T) {
	e := NewFixedRateNoiseEstimator()
	for i := 0; i < 5*FixedSampleHz; i++ {
		assert.False(t, e.Update(0, 0, 0))
	}
	assert.True(t, math.IsInf(e.ConvergenceRatio(), 1))
}
