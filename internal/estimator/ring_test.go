// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package estimator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRingEvictsOldest(t *testing.T) {
	r := NewRing[int](3)
	assert.Equal(t, 3, r.Cap())

	assert.Equal(t, 0, r.Push(1))
	assert.Equal(t, 0, r.Push(2))
	assert.Equal(t, 0, r.Push(3))
	assert.Equal(t, 3, r.Len())

	assert.Equal(t, 1, r.Oldest())
	assert.Equal(t, 1, r.Push(4))
	assert.Equal(t, 2, r.Push(5))
	assert.Equal(t, 3, r.Oldest())
	assert.Equal(t, 3, r.Len())
}

func TestRingRejectsZeroCapacity(t *testing.T) {
	assert.Panics(t, func() { NewRing[float64](0) })
}
