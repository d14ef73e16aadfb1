// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package calibrator threads noise and amplitude estimation into filter
// tuning targets.
//
// The stages run strictly in order:
//
//	StartCalibration -> NoiseCalibrator -> AmplitudeCalibrator -> tuner.Tuner
//
// Each transition consumes the previous stage. Transitions taken too early
// fail with ErrNotReady, and reusing a consumed stage fails with
// ErrStageConsumed.
package calibrator

import (
	"errors"
	"math"

	"github.com/go-logr/logr"

	"github.com/relabs-tech/filter_calibrator/internal/estimator"
	"github.com/relabs-tech/filter_calibrator/internal/grid"
	"github.com/relabs-tech/filter_calibrator/internal/tuner"
)

var (
	// ErrNotReady is returned when a stage transition is requested before
	// the current stage has finished.
	ErrNotReady = errors.New("calibration stage not ready")

	// ErrStageConsumed is returned when a stage is used after it has
	// handed over to the next one.
	ErrStageConsumed = errors.New("calibration stage already consumed")
)

// SampleRate is the rate of the fixed-rate calibration path.
const SampleRate = float64(estimator.FixedSampleHz)

// precisionDivisor turns the least tolerable precision into the initial
// search target.
const precisionDivisor = 3.0

// StartCalibration is the entry stage.
type StartCalibration struct {
	Logger logr.Logger
	// NoiseThreshold overrides the convergence bound on 2*ci95/mean.
	NoiseThreshold float64
}

// FirstStage starts noise calibration with a fresh 60 Hz estimator.
func (s StartCalibration) FirstStage() *NoiseCalibrator {
	logger := s.Logger
	if logger.GetSink() == nil {
		logger = logr.Discard()
	}

	est := estimator.NewFixedRateNoiseEstimator()
	if s.NoiseThreshold > 0 {
		est = estimator.NewThreeAxisNoiseEstimator(estimator.FixedSampleHz, estimator.FixedMonitorHz(), s.NoiseThreshold)
	}
	logger.V(1).Info("noise calibration started", "sampleHz", est.SampleHz(), "threshold", est.Threshold())
	return &NoiseCalibrator{estimator: est, logger: logger}
}

// NoiseCalibrator estimates the sensor noise while the device is at rest.
type NoiseCalibrator struct {
	estimator *estimator.ThreeAxisNoiseEstimator
	converged bool
	logger    logr.Logger
}

// ProcessNoise feeds one rest sample and reports whether the noise estimate
// has converged. It returns false once the stage has been consumed.
func (n *NoiseCalibrator) ProcessNoise(x, y, z float64) bool {
	if n.estimator == nil {
		return false
	}
	done := n.estimator.Update(x, y, z)
	if done && !n.converged {
		variance, _ := n.estimator.MeanVariance()
		n.logger.Info("noise calibration converged", "meanVariance", variance,
			"ratio", n.estimator.ConvergenceRatio())
	}
	n.converged = n.converged || done
	return done
}

// ConvergenceRatio returns 2*ci95/mean of the noise estimate, +Inf while
// undefined or after the stage has been consumed.
func (n *NoiseCalibrator) ConvergenceRatio() float64 {
	if n.estimator == nil {
		return math.Inf(1)
	}
	return n.estimator.ConvergenceRatio()
}

// Next hands the noise estimate to amplitude calibration. It fails with
// ErrNotReady until ProcessNoise has returned true.
func (n *NoiseCalibrator) Next() (*AmplitudeCalibrator, error) {
	if n.estimator == nil {
		return nil, ErrStageConsumed
	}
	if !n.converged {
		return nil, ErrNotReady
	}
	variance, ok := n.estimator.MeanVariance()
	if !ok {
		return nil, ErrNotReady
	}
	n.estimator = nil

	stddev := math.Sqrt(variance)
	n.logger.V(1).Info("amplitude calibration started", "noiseStdDev", stddev)
	return &AmplitudeCalibrator{
		estimator: estimator.NewThreeAxisMaxDistanceEstimator(stddev),
		logger:    n.logger,
	}, nil
}

// AmplitudeCalibrator measures the peak excursion while the device moves.
type AmplitudeCalibrator struct {
	estimator *estimator.ThreeAxisMaxDistanceEstimator
	samples   uint64
	consumed  bool
	logger    logr.Logger
}

// ProcessAmplitude feeds one motion sample. It returns false and ignores
// the sample once Tuner has consumed the stage.
func (a *AmplitudeCalibrator) ProcessAmplitude(x, y, z float64) bool {
	if a.consumed {
		return false
	}
	a.estimator.Update(x, y, z)
	a.samples++
	return true
}

// Samples returns the number of motion samples processed.
func (a *AmplitudeCalibrator) Samples() uint64 { return a.samples }

// NoiseStdDev returns the noise standard deviation the stage was seeded
// with.
func (a *AmplitudeCalibrator) NoiseStdDev() float64 { return a.estimator.NoiseStdDev() }

// MaxAmplitude returns the robust peak excursion seen so far.
func (a *AmplitudeCalibrator) MaxAmplitude() float64 { return a.estimator.MaxWithinReason() }

// TuningSettings derives tuning targets from the calibration so far.
// leastPrecision is the largest acceptable steady-state error and
// worstLagSecs the largest acceptable settling time.
func (a *AmplitudeCalibrator) TuningSettings(leastPrecision, worstLagSecs float64) tuner.TuningSettings {
	stddev := a.estimator.NoiseStdDev()
	return tuner.TuningSettings{
		MaxTargetPrecision: leastPrecision / precisionDivisor,
		MaxLagSecs:         worstLagSecs,
		NoiseVariance:      stddev * stddev,
		MaxAmplitude:       a.estimator.MaxWithinReason(),
		SampleRate:         SampleRate,
	}
}

// Tuner builds a tuner from the derived settings and a precision table and
// consumes the stage. A second call fails with ErrStageConsumed.
func (a *AmplitudeCalibrator) Tuner(leastPrecision, worstLagSecs float64, g *grid.Grid, opts ...tuner.Option) (*tuner.Tuner, error) {
	if a.consumed {
		return nil, ErrStageConsumed
	}
	a.consumed = true

	settings := a.TuningSettings(leastPrecision, worstLagSecs)
	a.logger.Info("amplitude calibration finished",
		"samples", a.samples, "maxAmplitude", settings.MaxAmplitude,
		"noiseVariance", settings.NoiseVariance)
	opts = append([]tuner.Option{tuner.WithLogger(a.logger)}, opts...)
	return tuner.New(settings, g, opts...), nil
}
