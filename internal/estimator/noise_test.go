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
	"gonum.org/v1/gonum/dsp/fourier"
)

// hannBinPower computes |DFT(hann * seq)[k]|^2 with a periodic Hann window.
func hannBinPower(fft *fourier.FFT, seq []float64, k int) float64 {
	n := len(seq)
	windowed := make([]float64, n)
	for i, v := range seq {
		windowed[i] = v * (0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n)))
	}
	c := fft.Coefficients(nil, windowed)[k]
	return real(c)*real(c) + imag(c)*imag(c)
}

func symmetricHannEnergy(n int) float64 {
	var sum float64
	for i := 0; i < n; i++ {
		v := 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
		sum += v * v
	}
	return sum
}

func TestNoiseEstimatorUndefinedUntilFullWindow(t *testing.T) {
	const n = 60
	e := NewNoiseEstimator(n, 5)
	assert.Equal(t, 25, e.Bin())

	for i := 0; i < n; i++ {
		e.Update(float64(i % 7))
		_, ok := e.Variance()
		assert.False(t, ok, "variance defined after %d samples", i+1)
	}

	e.Update(1)
	_, ok := e.Variance()
	assert.True(t, ok)
	assert.Equal(t, uint64(n+1), e.Count())
}

func TestNoiseEstimatorMatchesWindowedDFT(t *testing.T) {
	const (
		n         = 60
		monitorHz = 4
		length    = 5 * n
	)
	rng := rand.New(rand.NewPCG(3, 5))
	data := make([]float64, length)
	for i := range data {
		data[i] = rng.NormFloat64() + 0.3*math.Sin(float64(i)*0.7)
	}

	e := NewNoiseEstimator(n, monitorHz)
	for _, v := range data {
		e.Update(v)
	}

	fft := fourier.NewFFT(n)
	k := n/2 - monitorHz
	var power float64
	for end := n; end <= length; end++ {
		power += hannBinPower(fft, data[end-n:end], k)
	}
	want := power / (float64(length-n) * symmetricHannEnergy(n))

	got, ok := e.Variance()
	require.True(t, ok)
	assert.InEpsilon(t, want, got, 1e-6)
}

func TestNoiseEstimatorConvergesOnWhiteNoise(t *testing.T) {
	const (
		n     = 60
		sigma = 2.0
	)
	rng := rand.New(rand.NewPCG(42, 1))
	e := NewNoiseEstimator(n, 10)
	for i := 0; i < 2000*n; i++ {
		e.Update(rng.NormFloat64() * sigma)
	}

	got, ok := e.Variance()
	require.True(t, ok)
	assert.InEpsilon(t, sigma*sigma, got, 0.1)
}

func TestNoiseEstimatorIgnoresConstantOffset(t *testing.T) {
	const n = 60
	e := NewNoiseEstimator(n, 10)
	for i := 0; i < 4*n; i++ {
		e.Update(512)
	}
	got, ok := e.Variance()
	require.True(t, ok)
	assert.InDelta(t, 0, got, 1e-9)
}
