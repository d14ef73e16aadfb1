// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package calibrator

import (
	"context"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/filter_calibrator/internal/grid/gridtest"
	"github.com/relabs-tech/filter_calibrator/internal/imu"
)

func TestSessionRejectsOutOfOrderCalls(t *testing.T) {
	s := NewSession(SessionConfig{Grid: gridtest.SixtyHz(), AmplitudeSamples: 10})
	assert.Equal(t, WaitToStart, s.State())

	_, err := s.Process(0, 0, 0)
	assert.ErrorIs(t, err, ErrNotReady)

	_, err = s.Tune(context.Background())
	assert.ErrorIs(t, err, ErrNotReady)

	_, err = s.Settings()
	assert.ErrorIs(t, err, ErrNotReady)

	require.NoError(t, s.Start())
	assert.ErrorIs(t, s.Start(), ErrStageConsumed)

	_, err = s.Tune(context.Background())
	assert.ErrorIs(t, err, ErrNotReady)

	_, ok := s.Result()
	assert.False(t, ok)
}

func TestSessionCalibratesMockDevice(t *testing.T) {
	mock := imu.DefaultMockConfig
	mock.RestSamples = 300
	src := imu.NewMockSource(mock)

	g := gridtest.SixtyHz()
	s := NewSession(SessionConfig{
		LeastPrecision:   6,
		WorstLagSecs:     0.5,
		AmplitudeSamples: 600,
		Grid:             g,
		Logger:           testr.New(t),
	})
	require.NoError(t, s.Start())

	seen := map[State]bool{}
	for i := 0; i < 3000 && s.State() != EstimateParameters; i++ {
		raw, err := src.NextRaw()
		require.NoError(t, err)
		v, err := raw.Axes(imu.FieldGyro)
		require.NoError(t, err)

		state, err := s.Process(v.X, v.Y, v.Z)
		require.NoError(t, err)
		seen[state] = true

		if state == EstimateNoise {
			assert.Equal(t, "estimate_noise", s.Progress().Phase)
		}
	}
	require.Equal(t, EstimateParameters, s.State())
	assert.True(t, seen[EstimateAmplitude])

	p := s.Progress()
	assert.Equal(t, uint64(600), p.AmplitudeSamples)
	assert.InEpsilon(t, mock.NoiseStdDev, p.NoiseStdDev, 0.3)

	settings, err := s.Settings()
	require.NoError(t, err)
	assert.InDelta(t, 2.0, settings.MaxTargetPrecision, 1e-12)
	assert.Greater(t, settings.MaxAmplitude, 100.0)

	res, err := s.Tune(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Tuned, s.State())

	assert.False(t, math.IsInf(res.LagSecs, 0))
	assert.LessOrEqual(t, res.Precision, res.TargetPrecision)
	assert.Equal(t, res.Precision, g.Precision(math.Sqrt(settings.NoiseVariance), res.MinCutoffHz, res.Beta))

	again, err := s.Tune(context.Background())
	require.NoError(t, err)
	assert.Equal(t, res, again)

	stored, ok := s.Result()
	assert.True(t, ok)
	assert.Equal(t, res, stored)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "tuned", Tuned.String())
	assert.Equal(t, "state(42)", State(42).String())
}

func TestSessionTuneRetriesAfterCancel(t *testing.T) {
	s := NewSession(SessionConfig{
		LeastPrecision: 6,
		WorstLagSecs:   0.5,
		Grid:           gridtest.SixtyHz(),
		Logger:         testr.New(t),
	})
	require.NoError(t, s.Start())

	rng := rand.New(rand.NewPCG(3, 4))
	for i := 0; i < 60*60 && s.State() == EstimateNoise; i++ {
		_, err := s.Process(rng.NormFloat64()*2, rng.NormFloat64()*2, rng.NormFloat64()*2)
		require.NoError(t, err)
	}
	// No amplitude samples configured: noise convergence goes straight to tuning.
	require.Equal(t, EstimateParameters, s.State())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Tune(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, EstimateParameters, s.State())

	_, err = s.Tune(context.Background())
	assert.NotErrorIs(t, err, ErrStageConsumed)
}
