// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// ./cmd/calibrator/main.go
//
// Guided One-Euro filter calibration for one sensor of an IMU.
//
//  1. Noise: keep the device still until the per-axis noise estimate converges.
//  2. Amplitude: move the device through its full range of motion.
//  3. Tuning: search minimum cutoff and beta against the precision table.
//
// Samples come from the configured MQTT topic (imu.IMURaw JSON) and the result
// is published retained on the tuning topic. With -mock a simulated device is
// calibrated offline and the result printed.
//
// Run:
//
//	go run ./cmd/calibrator -config calibrator_config.txt
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/relabs-tech/filter_calibrator/internal/app"
	"github.com/relabs-tech/filter_calibrator/internal/config"
	"github.com/relabs-tech/filter_calibrator/internal/logging"
)

func main() {
	configPath := flag.String("config", "calibrator_config.txt", "KEY=VALUE configuration file")
	mock := flag.Bool("mock", false, "calibrate a simulated device without a broker")
	dev := flag.Bool("dev", false, "human readable logs")
	flag.Parse()

	if err := run(*configPath, *mock, *dev); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, mock, dev bool) error {
	if err := config.InitGlobal(configPath); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := logging.New(config.Get().LogLevel, dev)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if mock {
		logger.Info("starting filter calibration (mock device)")
		return app.RunMockCalibration(ctx, logger)
	}
	logger.Info("starting filter calibration (MQTT subscriber)")
	return app.RunCalibrator(ctx, logger)
}
