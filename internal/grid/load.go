// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package grid

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// tableFile is the on-disk JSON form of a precision table. Values are laid
// out row-major as [jitter][cutoff][beta].
type tableFile struct {
	SampleRate float64 `json:"sample_rate"`
	Dims
	Values []float64 `json:"values"`
}

// Decode reads a JSON precision table. sampleRate is the rate the table was
// generated for; a table declaring another rate is rejected.
func Decode(r io.Reader, sampleRate float64) (*Grid, error) {
	var tf tableFile
	if err := json.NewDecoder(r).Decode(&tf); err != nil {
		return nil, fmt.Errorf("decode precision table: %w", err)
	}
	if tf.SampleRate != 0 && tf.SampleRate != sampleRate {
		return nil, fmt.Errorf("%w: table generated for %.1f Hz, want %.1f Hz", ErrInvalidTable, tf.SampleRate, sampleRate)
	}
	return NewFlat(tf.Dims, tf.Values)
}

// Load reads a JSON precision table from path.
func Load(path string, sampleRate float64) (*Grid, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open precision table: %w", err)
	}
	defer file.Close()

	g, err := Decode(file, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("precision table %s: %w", path, err)
	}
	return g, nil
}
