// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLevels(t *testing.T) {
	debug, err := New("debug", true)
	require.NoError(t, err)
	assert.True(t, debug.V(1).Enabled())

	info, err := New("info", false)
	require.NoError(t, err)
	assert.True(t, info.Enabled())
	assert.False(t, info.V(1).Enabled())
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New("chatty", false)
	assert.Error(t, err)
}
