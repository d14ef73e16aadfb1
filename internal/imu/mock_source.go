// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import (
	"math"
	"math/rand/v2"
)

// MockConfig shapes the synthetic stream of a mock source.
type MockConfig struct {
	Seed        uint64
	SampleRate  float64
	NoiseStdDev float64 // counts
	// RestSamples is how long the device stays still before it starts moving.
	RestSamples int
	Amplitude   float64 // counts
	MotionHz    float64
}

// DefaultMockConfig is a 60 Hz device resting for 10 s, then swinging.
var DefaultMockConfig = MockConfig{
	Seed:        1,
	SampleRate:  60,
	NoiseStdDev: 8,
	RestSamples: 600,
	Amplitude:   2000,
	MotionHz:    1.5,
}

type mockSource struct {
	cfg MockConfig
	rng *rand.Rand
	n   int
}

// NewMockSource creates a mock IMU that rests with white sensor noise and
// then swings sinusoidally on every axis.
func NewMockSource(cfg MockConfig) IMURawSource {
	return &mockSource{
		cfg: cfg,
		rng: rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
	}
}

func (m *mockSource) NextRaw() (IMURaw, error) {
	var motion float64
	if m.n >= m.cfg.RestSamples {
		t := float64(m.n-m.cfg.RestSamples) / m.cfg.SampleRate
		motion = m.cfg.Amplitude * math.Sin(2*math.Pi*m.cfg.MotionHz*t)
	}
	m.n++

	axis := func(offset, phase float64) int16 {
		v := offset + motion*math.Cos(phase) + m.rng.NormFloat64()*m.cfg.NoiseStdDev
		return int16(math.Round(math.Max(math.MinInt16, math.Min(math.MaxInt16, v))))
	}

	return IMURaw{
		Source: "mock",
		Ax:     axis(0, 0),
		Ay:     axis(0, 0.5),
		Az:     axis(16384, 1.0),
		Gx:     axis(0, 0),
		Gy:     axis(0, 0.5),
		Gz:     axis(0, 1.0),
		Mx:     axis(120, 0),
		My:     axis(-40, 0.5),
		Mz:     axis(300, 1.0),
	}, nil
}
