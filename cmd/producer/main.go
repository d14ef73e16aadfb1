// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

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
	"github.com/relabs-tech/filter_calibrator/internal/imu"
	"github.com/relabs-tech/filter_calibrator/internal/logging"
)

func main() {
	configPath := flag.String("config", "calibrator_config.txt", "KEY=VALUE configuration file")
	dev := flag.Bool("dev", false, "human readable logs")
	mock := imu.DefaultMockConfig
	flag.Uint64Var(&mock.Seed, "seed", mock.Seed, "noise seed")
	flag.Float64Var(&mock.NoiseStdDev, "noise", mock.NoiseStdDev, "sensor noise standard deviation (counts)")
	flag.IntVar(&mock.RestSamples, "rest", mock.RestSamples, "samples before the device starts moving")
	flag.Float64Var(&mock.Amplitude, "amplitude", mock.Amplitude, "motion amplitude (counts)")
	flag.Parse()

	if err := config.InitGlobal(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(config.Get().LogLevel, *dev)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting filter-calibrator MQTT producer (mock)")
	if err := app.RunMockProducer(ctx, logger, mock); err != nil {
		logger.Error(err, "fatal")
		stop()
		os.Exit(1)
	}
}
