// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package tuner

// TuningSettings are the targets derived from calibration.
type TuningSettings struct {
	// MaxTargetPrecision is the steady-state error the search starts from.
	MaxTargetPrecision float64 `json:"max_target_precision"`
	// MaxLagSecs is the largest tolerable settling time.
	MaxLagSecs float64 `json:"max_lag_secs"`
	// NoiseVariance is the white noise variance measured at rest.
	NoiseVariance float64 `json:"noise_variance"`
	// MaxAmplitude is the robust peak excursion between samples.
	MaxAmplitude float64 `json:"max_amplitude"`
	SampleRate   float64 `json:"sample_rate"`
}

// FinalTuningSettings is the outcome of a search. MinCutoffHz and Beta are
// the values to apply to a live filter; the remaining fields describe how
// they were found.
type FinalTuningSettings struct {
	MinCutoffHz float64 `json:"min_cutoff_hz"`
	Beta        float64 `json:"beta"`

	Precision       float64 `json:"precision"`
	LagSecs         float64 `json:"lag_secs"`
	TargetPrecision float64 `json:"target_precision"`
	Relaxations     int     `json:"relaxations"`
}
