// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/relabs-tech/filter_calibrator/internal/imu"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker             string
	MQTTClientIDCalibrator string
	MQTTClientIDProducer   string
	MQTTClientIDWeb        string
	MQTTClientIDConsole    string

	// Topics
	TopicSamples string // raw IMU samples (imu.IMURaw JSON)
	TopicTuning  string // calibration results (tuner.FinalTuningSettings JSON)

	// Which IMURaw sensor to calibrate: "accel", "gyro" or "mag"
	SampleField string

	// Calibration targets
	LeastPrecision   float64 // largest tolerable steady-state error, sensor units
	WorstLagSecs     float64 // largest tolerable settling time
	NoiseThreshold   float64 // convergence bound on 2*ci95/mean
	AmplitudeSamples int     // motion samples collected after noise calibration

	// Tuning
	PrecisionTablePath  string
	MaxRelaxationRounds int
	TuneTimeoutSecs     int

	// Timing
	ProducerSampleInterval int // milliseconds

	// Web Server
	WebServerPort int

	// Logging: "debug", "info", "warn" or "error"
	LogLevel string
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: unexported so other packages cannot modify it without locking.
//   - configOnce: ensures InitGlobal() only runs once, even if called multiple times.
//   - configMu: RWMutex protects concurrent access. Write lock for initialization,
//     read lock for Get() so concurrent readers never block each other.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns a Config with every optional value set.
func Default() *Config {
	return &Config{
		MQTTClientIDCalibrator: "filter-calibrator",
		MQTTClientIDProducer:   "filter-calibrator-producer",
		MQTTClientIDWeb:        "filter-calibrator-web",
		MQTTClientIDConsole:    "filter-calibrator-console",
		TopicSamples:           "inertial/imu/left",
		TopicTuning:            "calibration/one_euro",
		SampleField:            imu.FieldGyro,
		NoiseThreshold:         0.1,
		AmplitudeSamples:       600,
		MaxRelaxationRounds:    30,
		TuneTimeoutSecs:        120,
		ProducerSampleInterval: 16,
		WebServerPort:          8080,
		LogLevel:               "info",
	}
}

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := Default()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_CALIBRATOR":
		c.MQTTClientIDCalibrator = value
	case "MQTT_CLIENT_ID_PRODUCER":
		c.MQTTClientIDProducer = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value

	// Topics
	case "TOPIC_SAMPLES":
		c.TopicSamples = value
	case "TOPIC_TUNING":
		c.TopicTuning = value

	case "SAMPLE_FIELD":
		if !imu.ValidField(value) {
			return fmt.Errorf("SAMPLE_FIELD must be accel, gyro or mag, got %q", value)
		}
		c.SampleField = value

	// Calibration targets
	case "LEAST_PRECISION":
		v, err := parsePositive(key, value)
		if err != nil {
			return err
		}
		c.LeastPrecision = v
	case "WORST_LAG_SECS":
		v, err := parsePositive(key, value)
		if err != nil {
			return err
		}
		c.WorstLagSecs = v
	case "NOISE_THRESHOLD":
		v, err := parsePositive(key, value)
		if err != nil {
			return err
		}
		c.NoiseThreshold = v
	case "AMPLITUDE_SAMPLES":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid AMPLITUDE_SAMPLES %q: %w", value, err)
		}
		if n < 0 {
			return fmt.Errorf("AMPLITUDE_SAMPLES must not be negative, got %d", n)
		}
		c.AmplitudeSamples = n

	// Tuning
	case "PRECISION_TABLE_PATH":
		c.PrecisionTablePath = value
	case "MAX_RELAXATION_ROUNDS":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid MAX_RELAXATION_ROUNDS %q: %w", value, err)
		}
		if n < 1 {
			return fmt.Errorf("MAX_RELAXATION_ROUNDS must be at least 1, got %d", n)
		}
		c.MaxRelaxationRounds = n
	case "TUNE_TIMEOUT_SECS":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid TUNE_TIMEOUT_SECS %q: %w", value, err)
		}
		c.TuneTimeoutSecs = n

	// Timing
	case "PRODUCER_SAMPLE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid PRODUCER_SAMPLE_INTERVAL %q: %w", value, err)
		}
		c.ProducerSampleInterval = interval

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		c.WebServerPort = port

	case "LOG_LEVEL":
		c.LogLevel = strings.ToLower(value)

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

func parsePositive(key, value string) (float64, error) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %g", key, v)
	}
	return v, nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.LeastPrecision == 0 {
		return fmt.Errorf("LEAST_PRECISION is required")
	}
	if c.WorstLagSecs == 0 {
		return fmt.Errorf("WORST_LAG_SECS is required")
	}
	if c.PrecisionTablePath == "" {
		return fmt.Errorf("PRECISION_TABLE_PATH is required")
	}
	if c.ProducerSampleInterval <= 0 {
		return fmt.Errorf("PRODUCER_SAMPLE_INTERVAL must be positive")
	}
	return nil
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
