// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "calibrator_config.txt")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const minimal = `
# broker on the Pi
MQTT_BROKER=tcp://localhost:1883
LEAST_PRECISION=0.9
WORST_LAG_SECS = 0.25
PRECISION_TABLE_PATH=./tables/sixty_hz.json
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimal))
	require.NoError(t, err)

	assert.Equal(t, "tcp://localhost:1883", cfg.MQTTBroker)
	assert.Equal(t, 0.9, cfg.LeastPrecision)
	assert.Equal(t, 0.25, cfg.WorstLagSecs)
	assert.Equal(t, "./tables/sixty_hz.json", cfg.PrecisionTablePath)

	def := Default()
	assert.Equal(t, def.SampleField, cfg.SampleField)
	assert.Equal(t, def.AmplitudeSamples, cfg.AmplitudeSamples)
	assert.Equal(t, def.TopicTuning, cfg.TopicTuning)
	assert.Equal(t, 0.1, cfg.NoiseThreshold)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimal+`
SAMPLE_FIELD=accel
AMPLITUDE_SAMPLES=900
MAX_RELAXATION_ROUNDS=5
TOPIC_SAMPLES=inertial/imu/right
LOG_LEVEL=DEBUG
WEB_SERVER_PORT=9090
`))
	require.NoError(t, err)
	assert.Equal(t, "accel", cfg.SampleField)
	assert.Equal(t, 900, cfg.AmplitudeSamples)
	assert.Equal(t, 5, cfg.MaxRelaxationRounds)
	assert.Equal(t, "inertial/imu/right", cfg.TopicSamples)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 9090, cfg.WebServerPort)
}

func TestLoadRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"unknown key":     minimal + "NOPE=1\n",
		"missing equals":  minimal + "MQTT_BROKER\n",
		"bad field":       minimal + "SAMPLE_FIELD=baro\n",
		"negative lag":    minimal + "WORST_LAG_SECS=-1\n",
		"bad float":       minimal + "LEAST_PRECISION=abc\n",
		"zero rounds":     minimal + "MAX_RELAXATION_ROUNDS=0\n",
		"missing broker":  "LEAST_PRECISION=1\nWORST_LAG_SECS=1\nPRECISION_TABLE_PATH=x\n",
		"missing table":   "MQTT_BROKER=tcp://x:1883\nLEAST_PRECISION=1\nWORST_LAG_SECS=1\n",
		"missing targets": "MQTT_BROKER=tcp://x:1883\nPRECISION_TABLE_PATH=x\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.txt"))
	assert.Error(t, err)
}

func TestInitGlobal(t *testing.T) {
	require.NoError(t, InitGlobal(writeConfig(t, minimal)))
	require.NotNil(t, Get())
	assert.Equal(t, 0.9, Get().LeastPrecision)
}
