// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package stats

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
)

func TestRunningStatisticsClosedForm(t *testing.T) {
	var r RunningStatistics
	for _, v := range []float64{1, 2, 3, 4, 5} {
		r.Update(v)
	}

	assert.Equal(t, uint64(5), r.Count())
	assert.InDelta(t, 3.0, r.Mean(), 1e-12)
	assert.InDelta(t, 10.0, r.M2(), 1e-12)
	assert.Equal(t, 5.0, r.Max())

	variance, ok := r.SampleVariance()
	require.True(t, ok)
	assert.InDelta(t, 2.5, variance, 1e-12)

	ci, ok := r.CI95()
	require.True(t, ok)
	assert.InDelta(t, 1.96*math.Sqrt(2.5/5), ci, 1e-12)
}

func TestRunningStatisticsSingleValueHasNoVariance(t *testing.T) {
	var r RunningStatistics
	r.Update(42)

	assert.Equal(t, 42.0, r.Mean())
	assert.Equal(t, 42.0, r.Max())

	_, ok := r.SampleVariance()
	assert.False(t, ok)
	_, ok = r.CI95()
	assert.False(t, ok)
}

func TestRunningStatisticsEmpty(t *testing.T) {
	var r RunningStatistics
	assert.Equal(t, uint64(0), r.Count())
	assert.Equal(t, -math.MaxFloat64, r.Max())
	_, ok := r.SampleVariance()
	assert.False(t, ok)
}

func TestRunningStatisticsNegativeMax(t *testing.T) {
	var r RunningStatistics
	for _, v := range []float64{-7, -3, -9} {
		r.Update(v)
	}
	assert.Equal(t, -3.0, r.Max())
}

func TestRunningStatisticsMatchesGonum(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	values := make([]float64, 5000)
	var r RunningStatistics
	for i := range values {
		values[i] = 1e3 + rng.NormFloat64()*0.25
		r.Update(values[i])
	}

	mean, variance := stat.MeanVariance(values, nil)
	assert.InDelta(t, mean, r.Mean(), 1e-9)

	got, ok := r.SampleVariance()
	require.True(t, ok)
	assert.InEpsilon(t, variance, got, 1e-9)
}

func snapshot(values ...float64) RunningStatistics {
	var r RunningStatistics
	for _, v := range values {
		r.Update(v)
	}
	return r
}

func TestRunningStatisticsAccessorsOnCopies(t *testing.T) {
	assert.Equal(t, uint64(3), snapshot(1, 2, 3).Count())
	assert.Equal(t, 2.0, snapshot(1, 2, 3).Mean())
	assert.Equal(t, 2.0, snapshot(1, 2, 3).M2())
	assert.Equal(t, 3.0, snapshot(1, 2, 3).Max())

	v, ok := snapshot(1, 2, 3).SampleVariance()
	require.True(t, ok)
	assert.Equal(t, 1.0, v)

	_, ok = snapshot(1).CI95()
	assert.False(t, ok)
}
