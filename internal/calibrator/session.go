// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package calibrator

import (
	"context"
	"fmt"
	"math"

	"github.com/go-logr/logr"

	"github.com/relabs-tech/filter_calibrator/internal/grid"
	"github.com/relabs-tech/filter_calibrator/internal/tuner"
)

// State is the phase of a calibration Session.
type State int

const (
	WaitToStart State = iota
	EstimateNoise
	EstimateAmplitude
	EstimateParameters
	Tuned
)

func (s State) String() string {
	switch s {
	case WaitToStart:
		return "wait_to_start"
	case EstimateNoise:
		return "estimate_noise"
	case EstimateAmplitude:
		return "estimate_amplitude"
	case EstimateParameters:
		return "estimate_parameters"
	case Tuned:
		return "tuned"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// SessionConfig configures a Session.
type SessionConfig struct {
	// LeastPrecision is the largest acceptable steady-state error.
	LeastPrecision float64
	// WorstLagSecs is the largest acceptable settling time.
	WorstLagSecs float64
	// AmplitudeSamples is how many motion samples to collect after the noise
	// estimate has converged.
	AmplitudeSamples uint64
	// NoiseThreshold overrides the noise convergence bound when positive.
	NoiseThreshold float64
	Grid           *grid.Grid
	TunerOptions   []tuner.Option
	Logger         logr.Logger
}

// Progress is a snapshot of a running Session.
type Progress struct {
	State            State   `json:"-"`
	Phase            string  `json:"phase"`
	NoiseRatio       float64 `json:"noise_ratio,omitempty"`
	AmplitudeSamples uint64  `json:"amplitude_samples,omitempty"`
	AmplitudeTarget  uint64  `json:"amplitude_target,omitempty"`
	MaxAmplitude     float64 `json:"max_amplitude,omitempty"`
	NoiseStdDev      float64 `json:"noise_std_dev,omitempty"`
}

// Session drives the calibration stages from a single sample stream: rest
// samples until the noise estimate converges, then a fixed number of motion
// samples, then tuning.
type Session struct {
	cfg    SessionConfig
	logger logr.Logger

	state     State
	noise     *NoiseCalibrator
	amplitude *AmplitudeCalibrator
	tuner     *tuner.Tuner
	settings  tuner.TuningSettings
	result    tuner.FinalTuningSettings
}

// NewSession returns a session waiting to start.
func NewSession(cfg SessionConfig) *Session {
	logger := cfg.Logger
	if logger.GetSink() == nil {
		logger = logr.Discard()
	}
	return &Session{cfg: cfg, logger: logger}
}

// State returns the current phase.
func (s *Session) State() State { return s.state }

// Start begins noise estimation. Starting twice is an error.
func (s *Session) Start() error {
	if s.state != WaitToStart {
		return fmt.Errorf("start in state %s: %w", s.state, ErrStageConsumed)
	}
	s.noise = StartCalibration{Logger: s.logger, NoiseThreshold: s.cfg.NoiseThreshold}.FirstStage()
	s.state = EstimateNoise
	return nil
}

// Process feeds one sample to the active stage and returns the state after
// it. Samples arriving once parameters are being estimated are ignored.
func (s *Session) Process(x, y, z float64) (State, error) {
	switch s.state {
	case WaitToStart:
		return s.state, fmt.Errorf("process sample: %w", ErrNotReady)

	case EstimateNoise:
		if !s.noise.ProcessNoise(x, y, z) {
			return s.state, nil
		}
		amp, err := s.noise.Next()
		if err != nil {
			return s.state, fmt.Errorf("finish noise calibration: %w", err)
		}
		s.amplitude = amp
		s.noise = nil
		s.state = EstimateAmplitude
		if s.cfg.AmplitudeSamples == 0 {
			s.finishAmplitude()
		}

	case EstimateAmplitude:
		s.amplitude.ProcessAmplitude(x, y, z)
		if s.amplitude.Samples() >= s.cfg.AmplitudeSamples {
			s.finishAmplitude()
		}
	}
	return s.state, nil
}

func (s *Session) finishAmplitude() {
	s.settings = s.amplitude.TuningSettings(s.cfg.LeastPrecision, s.cfg.WorstLagSecs)
	s.state = EstimateParameters
}

// Settings returns the derived tuning targets. It fails with ErrNotReady
// before amplitude calibration has finished.
func (s *Session) Settings() (tuner.TuningSettings, error) {
	if s.state < EstimateParameters {
		return tuner.TuningSettings{}, ErrNotReady
	}
	return s.settings, nil
}

// Tune runs the parameter search. It fails with ErrNotReady before
// amplitude calibration has finished and returns the stored result once
// tuned.
func (s *Session) Tune(ctx context.Context) (tuner.FinalTuningSettings, error) {
	switch {
	case s.state == Tuned:
		return s.result, nil
	case s.state != EstimateParameters:
		return tuner.FinalTuningSettings{}, fmt.Errorf("tune in state %s: %w", s.state, ErrNotReady)
	}

	// The amplitude stage is consumed once; an interrupted search reuses
	// the tuner.
	if s.tuner == nil {
		t, err := s.amplitude.Tuner(s.cfg.LeastPrecision, s.cfg.WorstLagSecs, s.cfg.Grid, s.cfg.TunerOptions...)
		if err != nil {
			return tuner.FinalTuningSettings{}, err
		}
		s.tuner = t
	}
	res, err := s.tuner.Tune(ctx)
	if err != nil {
		return tuner.FinalTuningSettings{}, err
	}
	s.result = res
	s.state = Tuned
	return res, nil
}

// Result returns the tuned parameters. The second result is false until
// Tune has succeeded.
func (s *Session) Result() (tuner.FinalTuningSettings, bool) {
	return s.result, s.state == Tuned
}

// Progress reports how far the active stage has come.
func (s *Session) Progress() Progress {
	p := Progress{State: s.state, Phase: s.state.String(), AmplitudeTarget: s.cfg.AmplitudeSamples}
	switch {
	case s.state == EstimateNoise:
		if ratio := s.noise.ConvergenceRatio(); !math.IsInf(ratio, 0) {
			p.NoiseRatio = ratio
		}
	case s.state >= EstimateAmplitude:
		p.AmplitudeSamples = s.amplitude.Samples()
		p.MaxAmplitude = s.amplitude.MaxAmplitude()
		p.NoiseStdDev = s.amplitude.NoiseStdDev()
	}
	return p
}
