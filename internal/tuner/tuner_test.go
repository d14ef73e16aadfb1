// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package tuner

import (
	"context"
	"math"
	"testing"

	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/filter_calibrator/internal/grid/gridtest"
)

func testSettings() TuningSettings {
	return TuningSettings{
		MaxTargetPrecision: 0.3,
		MaxLagSecs:         0.5,
		NoiseVariance:      1,
		MaxAmplitude:       10,
		SampleRate:         60,
	}
}

func TestLagSecsMatchesExponentialStep(t *testing.T) {
	s := testSettings()
	tu := New(s, gridtest.SixtyHz())
	tu.filter.CutoffMin = 1
	tu.filter.Beta = 0

	a := 1 / (1 + 60/(2*math.Pi*1.0))
	want := 0
	for errv := s.MaxAmplitude; errv >= 0.3; want++ {
		errv *= 1 - a
	}

	assert.InDelta(t, float64(want)/60, tu.LagSecs(0.3), 1e-12)
}

func TestLagSecsGivesUpWhenUnreachable(t *testing.T) {
	tu := New(testSettings(), gridtest.SixtyHz(), WithMaxLagSecs(2))
	assert.True(t, math.IsInf(tu.LagSecs(0), 1))
}

func TestTuneFindsFeasibleConfiguration(t *testing.T) {
	s := testSettings()
	g := gridtest.SixtyHz()
	tu := New(s, g, WithLogger(testr.New(t)))

	res, err := tu.Tune(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, res.Relaxations)
	assert.Equal(t, s.MaxTargetPrecision, res.TargetPrecision)
	assert.GreaterOrEqual(t, res.MinCutoffHz, 0.10)
	assert.Less(t, res.MinCutoffHz, 4.0)
	assert.Greater(t, res.Beta, 0.0)
	assert.Less(t, res.Beta, 1.0)

	assert.LessOrEqual(t, res.LagSecs, s.MaxLagSecs)
	assert.LessOrEqual(t, res.Precision, res.TargetPrecision)
	assert.Equal(t, res.Precision, g.Precision(1, res.MinCutoffHz, res.Beta))
}

func TestTuneRelaxesUnreachableTarget(t *testing.T) {
	s := testSettings()
	s.MaxTargetPrecision = 0.001
	g := gridtest.SixtyHz()

	res, err := New(s, g).Tune(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Relaxations)
	assert.InDelta(t, 0.001+1.0/3, res.TargetPrecision, 1e-12)
	assert.LessOrEqual(t, res.Precision, res.TargetPrecision)
}

func TestTuneReportsNoFeasibleConfiguration(t *testing.T) {
	s := testSettings()
	s.MaxTargetPrecision = 0.001

	_, err := New(s, gridtest.SixtyHz(), WithMaxRelaxationRounds(1)).Tune(context.Background())
	assert.ErrorIs(t, err, ErrNoFeasibleConfiguration)
}

func TestTuneHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(testSettings(), gridtest.SixtyHz()).Tune(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSettingsRoundTrip(t *testing.T) {
	s := testSettings()
	assert.Equal(t, s, New(s, gridtest.SixtyHz()).Settings())
}
