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
	"github.com/relabs-tech/filter_calibrator/internal/logging"
)

func main() {
	configPath := flag.String("config", "calibrator_config.txt", "KEY=VALUE configuration file")
	dev := flag.Bool("dev", false, "human readable logs")
	flag.Parse()

	// Load configuration
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

	logger.Info("starting filter-calibrator web server (MQTT subscriber)")
	logger.Info("calibration requires a sample producer to be running", "topic", config.Get().TopicSamples)

	if err := app.RunWeb(ctx, logger); err != nil {
		logger.Error(err, "fatal")
		stop()
		os.Exit(1)
	}
}
