// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package estimator

// Ring is a fixed-capacity circular buffer. Pushing into a full ring
// overwrites the oldest element. Slots start at the zero value, so a ring
// that has not filled yet evicts zeros.
type Ring[T any] struct {
	data []T
	head int
	size int
}

// NewRing returns a ring holding capacity elements. capacity must be positive.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		panic("estimator: ring capacity must be positive")
	}
	return &Ring[T]{data: make([]T, capacity)}
}

// Oldest returns the element the next Push will evict.
func (r *Ring[T]) Oldest() T {
	return r.data[r.head]
}

// Push stores v and returns the element it replaced.
func (r *Ring[T]) Push(v T) T {
	evicted := r.data[r.head]
	r.data[r.head] = v
	r.head = (r.head + 1) % len(r.data)
	if r.size < len(r.data) {
		r.size++
	}
	return evicted
}

// Len returns the number of pushed elements, at most Cap.
func (r *Ring[T]) Len() int { return r.size }

// Cap returns the ring capacity.
func (r *Ring[T]) Cap() int { return len(r.data) }
