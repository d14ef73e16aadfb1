// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package grid interpolates the precomputed precision table of the 1€
// filter. The table maps (jitter, minimum cutoff, beta) to the positional
// error the filter achieves at rest.
package grid

import (
	"errors"
	"fmt"
	"math"

	"github.com/zyedidia/generic"
)

// ErrInvalidTable is returned for tables with missing or ragged dimensions.
var ErrInvalidTable = errors.New("invalid precision table")

// Dims are the table extents along the jitter, cutoff and beta axes.
type Dims struct {
	Jitter int `json:"jitter_dim"`
	Cutoff int `json:"cutoff_dim"`
	Beta   int `json:"beta_dim"`
}

// SixtyHzDims is the layout of the 60 Hz table: jitter in thirds up to 10,
// cutoff in 0.05 Hz steps up to 4 Hz, and beta from 0 through 1e-5..10 in
// nine rows per decade.
var SixtyHzDims = Dims{Jitter: 30, Cutoff: 81, Beta: 56}

// Len returns the number of cells.
func (d Dims) Len() int { return d.Jitter * d.Cutoff * d.Beta }

func (d Dims) validate() error {
	if d.Jitter <= 0 || d.Cutoff <= 0 || d.Beta <= 0 {
		return fmt.Errorf("%w: dimensions %dx%dx%d", ErrInvalidTable, d.Jitter, d.Cutoff, d.Beta)
	}
	return nil
}

// Grid is an immutable precision table.
type Grid struct {
	dims   Dims
	values []float64
}

// New copies a [jitter][cutoff][beta] table into a Grid.
func New(table [][][]float64) (*Grid, error) {
	dims := Dims{Jitter: len(table)}
	if dims.Jitter > 0 {
		dims.Cutoff = len(table[0])
		if dims.Cutoff > 0 {
			dims.Beta = len(table[0][0])
		}
	}
	if err := dims.validate(); err != nil {
		return nil, err
	}

	values := make([]float64, 0, dims.Len())
	for j, plane := range table {
		if len(plane) != dims.Cutoff {
			return nil, fmt.Errorf("%w: jitter row %d has %d cutoff rows, want %d", ErrInvalidTable, j, len(plane), dims.Cutoff)
		}
		for fc, row := range plane {
			if len(row) != dims.Beta {
				return nil, fmt.Errorf("%w: cell [%d][%d] has %d beta values, want %d", ErrInvalidTable, j, fc, len(row), dims.Beta)
			}
			values = append(values, row...)
		}
	}
	return &Grid{dims: dims, values: values}, nil
}

// NewFlat wraps values laid out row-major as [jitter][cutoff][beta].
func NewFlat(dims Dims, values []float64) (*Grid, error) {
	if err := dims.validate(); err != nil {
		return nil, err
	}
	if len(values) != dims.Len() {
		return nil, fmt.Errorf("%w: %d values for %dx%dx%d", ErrInvalidTable, len(values), dims.Jitter, dims.Cutoff, dims.Beta)
	}
	return &Grid{dims: dims, values: append([]float64(nil), values...)}, nil
}

// Dims returns the table extents.
func (g *Grid) Dims() Dims { return g.dims }

// At returns the stored value of a lattice cell.
func (g *Grid) At(j, fc, b int) float64 {
	return g.values[(j*g.dims.Cutoff+fc)*g.dims.Beta+b]
}

// Precision interpolates the achievable precision for a noise standard
// deviation (jitter), minimum cutoff and beta.
func (g *Grid) Precision(jitter, cutoffHz, beta float64) float64 {
	// Jitter goes up in steps of 1/3 starting at 1/3.
	jIdx := math.Min(3*jitter-1, float64(g.dims.Jitter-1))
	jLo, jHi := math.Floor(jIdx), math.Ceil(jIdx)

	// Minimum cutoff goes up in steps of 0.05 starting at 0.05.
	fcIdx := cutoffHz/0.05 - 0.05
	fcLo, fcHi := math.Floor(fcIdx), math.Ceil(fcIdx)

	b := BetaIndex(beta)
	bIdx, bLo, bHi := b[0], b[1], b[2]

	xd := weight(jIdx, jLo, jHi)
	yd := weight(fcIdx, fcLo, fcHi)
	zd := weight(bIdx, bLo, bHi)

	j0, j1 := lattice(jLo, g.dims.Jitter), lattice(jHi, g.dims.Jitter)
	f0, f1 := lattice(fcLo, g.dims.Cutoff), lattice(fcHi, g.dims.Cutoff)
	b0, b1 := lattice(bLo, g.dims.Beta), lattice(bHi, g.dims.Beta)

	c000 := g.At(j0, f0, b0)
	c100 := g.At(j1, f0, b0)
	c010 := g.At(j0, f1, b0)
	c110 := g.At(j1, f1, b0)
	c001 := g.At(j0, f0, b1)
	c101 := g.At(j1, f0, b1)
	c011 := g.At(j0, f1, b1)
	c111 := g.At(j1, f1, b1)

	c00 := c000*(1-xd) + c100*xd
	c01 := c001*(1-xd) + c101*xd
	c10 := c010*(1-xd) + c110*xd
	c11 := c011*(1-xd) + c111*xd

	c0 := c00*(1-yd) + c10*yd
	c1 := c01*(1-yd) + c11*yd

	return c0*(1-zd) + c1*zd
}

// BetaIndex maps beta onto the table's beta axis and returns the fractional
// index with its floor and ceiling. Betas below 1 are shifted up a decade at
// a time, each decade spanning nine rows below the row of beta = 1. Betas
// too small for the table yield the corner sentinel [0, 0, 0].
func BetaIndex(beta float64) [3]float64 {
	idx := 46.0
	for beta < 1.0 && idx > 0 {
		beta *= 10.00000001
		idx -= 9
	}

	if idx < 0 {
		return [3]float64{0, 0, 0}
	}

	idx = math.Max(idx-1, 0)
	beta += idx
	return [3]float64{beta, math.Floor(beta), math.Ceil(beta)}
}

// weight is the interpolation weight of idx inside [lo, hi], 0 for an empty
// bracket.
func weight(idx, lo, hi float64) float64 {
	if math.Abs(hi-lo) > machineEpsilon {
		return (idx - lo) / (hi - lo)
	}
	return 0
}

const machineEpsilon = 0x1p-52

// lattice converts a bracket bound to a cell index, saturating at the table
// edges.
func lattice(idx float64, dim int) int {
	return generic.Clamp(int(idx), 0, dim-1)
}
