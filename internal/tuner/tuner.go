// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package tuner searches 1€ filter parameters that meet a precision target
// within a lag budget.
package tuner

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/go-logr/logr"

	"github.com/relabs-tech/filter_calibrator/internal/grid"
	"github.com/relabs-tech/filter_calibrator/internal/oneeuro"
)

// ErrNoFeasibleConfiguration is returned when no parameters satisfy the
// precision target within the allowed number of relaxation rounds.
var ErrNoFeasibleConfiguration = errors.New("no feasible filter configuration")

const (
	// DefaultMaxRelaxationRounds bounds how often the precision target is
	// relaxed before giving up.
	DefaultMaxRelaxationRounds = 30

	// DefaultMaxLagSecs bounds a single settling simulation.
	DefaultMaxLagSecs = 60.0

	// relaxationStep is added to the precision target after a sweep without
	// any acceptable candidate.
	relaxationStep = 1.0 / 3.0

	// Minimum cutoff sweep, in hundredths of a hertz.
	cutoffFirst = 10
	cutoffLast  = 400

	betaScales        = 5
	betaStepsPerScale = 36
)

// Tuner simulates the filter against calibrated targets. A Tuner keeps the
// simulated filter state between lag measurements, so it must not be used
// concurrently.
type Tuner struct {
	settings TuningSettings
	grid     *grid.Grid
	filter   *oneeuro.Filter
	current  float64

	maxRounds        int
	maxLagIterations int
	logger           logr.Logger
}

// Option configures a Tuner.
type Option func(*Tuner)

// WithLogger sets the logger used to trace the search.
func WithLogger(logger logr.Logger) Option {
	return func(t *Tuner) { t.logger = logger }
}

// WithMaxRelaxationRounds bounds the number of full sweeps.
func WithMaxRelaxationRounds(rounds int) Option {
	return func(t *Tuner) {
		if rounds > 0 {
			t.maxRounds = rounds
		}
	}
}

// WithMaxLagSecs bounds a single settling simulation. Candidates that have
// not settled by then are treated as having infinite lag.
func WithMaxLagSecs(secs float64) Option {
	return func(t *Tuner) {
		if secs > 0 {
			t.maxLagIterations = int(math.Ceil(secs * t.settings.SampleRate))
		}
	}
}

// New returns a Tuner for the given targets and precision table.
func New(settings TuningSettings, g *grid.Grid, opts ...Option) *Tuner {
	t := &Tuner{
		settings:         settings,
		grid:             g,
		filter:           oneeuro.New(settings.SampleRate, 1, 1, 1),
		maxRounds:        DefaultMaxRelaxationRounds,
		maxLagIterations: int(math.Ceil(DefaultMaxLagSecs * settings.SampleRate)),
		logger:           logr.Discard(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Settings returns the targets the tuner was built with.
func (t *Tuner) Settings() TuningSettings { return t.settings }

// LagSecs simulates a step from rest to the calibrated peak amplitude and
// returns the time until the filtered value is within targetPrecision of the
// step. It returns +Inf if the filter does not settle in time.
func (t *Tuner) LagSecs(targetPrecision float64) float64 {
	for i := 0; i < 2; i++ {
		t.current = t.filter.Filter(0)
	}

	amplitude := t.settings.MaxAmplitude
	for n := 1; n <= t.maxLagIterations; n++ {
		t.current = t.filter.Filter(amplitude)
		if math.Abs(t.current-amplitude) < targetPrecision {
			return float64(n) / t.settings.SampleRate
		}
	}
	return math.Inf(1)
}

// Tune sweeps minimum cutoff and beta for the configuration with the best
// precision that settles within the lag budget. While no candidate meets
// the precision target the target is relaxed by a third and the sweep
// repeated. Tune is CPU bound; ctx is checked once per cutoff step.
func (t *Tuner) Tune(ctx context.Context) (FinalTuningSettings, error) {
	noiseStdDev := math.Sqrt(t.settings.NoiseVariance)
	maxLag := t.settings.MaxLagSecs

	best := FinalTuningSettings{
		Precision: math.MaxFloat64,
		LagSecs:   math.MaxFloat64,
		Beta:      1.1,
	}

	target := t.settings.MaxTargetPrecision
	for round := 0; best.Precision == math.MaxFloat64; round++ {
		if round >= t.maxRounds {
			return FinalTuningSettings{}, fmt.Errorf("%w: %d relaxation rounds, last target precision %.4f",
				ErrNoFeasibleConfiguration, round, target-relaxationStep)
		}

		for c := cutoffFirst; c < cutoffLast; c++ {
			if err := ctx.Err(); err != nil {
				return FinalTuningSettings{}, fmt.Errorf("tuning interrupted: %w", err)
			}

			minHz := float64(c) / 100
			t.filter.CutoffMin = minHz

			beta := 1.0
			for scale := 1; scale <= betaScales; scale++ {
				step := math.Pow(10, -float64(scale)) / 4

				for i := 0; i < betaStepsPerScale; i++ {
					beta -= step
					beta = math.Round(beta*1e6) / 1e6

					precision := t.grid.Precision(noiseStdDev, minHz, beta)
					if precision > target {
						continue
					}

					t.filter.Beta = beta
					lag := t.LagSecs(target)

					// Once a candidate meets the lag budget, later ones must
					// also meet it without losing precision. Until then the
					// lowest lag wins.
					var accept bool
					if best.LagSecs <= maxLag {
						accept = !(lag >= maxLag || precision > best.Precision)
					} else {
						accept = lag <= best.LagSecs
					}
					if !accept {
						continue
					}

					best.Precision = precision
					best.LagSecs = lag
					best.Beta = beta
					best.MinCutoffHz = minHz
					best.TargetPrecision = target
					best.Relaxations = round
				}
			}
		}

		if best.Precision == math.MaxFloat64 {
			t.logger.V(1).Info("no candidate met the precision target, relaxing",
				"round", round, "targetPrecision", target)
		}
		target += relaxationStep
	}

	t.logger.Info("tuning finished",
		"minCutoffHz", best.MinCutoffHz, "beta", best.Beta,
		"precision", best.Precision, "lagSecs", best.LagSecs,
		"relaxations", best.Relaxations)
	return best, nil
}
