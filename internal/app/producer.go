// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/go-logr/logr"

	"github.com/relabs-tech/filter_calibrator/internal/config"
	imu_raw "github.com/relabs-tech/filter_calibrator/internal/imu"
)

// RunMockProducer publishes mock IMU samples to the sample topic until ctx
// is cancelled.
func RunMockProducer(ctx context.Context, logger logr.Logger, mock imu_raw.MockConfig) error {
	cfg := config.Get()
	logger = logger.WithName("producer")

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDProducer)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT connect error: %w", token.Error())
	}
	defer client.Disconnect(250)
	logger.Info("connected to MQTT", "broker", cfg.MQTTBroker, "topic", cfg.TopicSamples)

	src := imu_raw.NewMockSource(mock)
	ticker := time.NewTicker(time.Duration(cfg.ProducerSampleInterval) * time.Millisecond)
	defer ticker.Stop()

	var published uint64
	for {
		select {
		case <-ctx.Done():
			logger.Info("producer stopped", "published", published)
			return nil
		case <-ticker.C:
		}

		raw, err := src.NextRaw()
		if err != nil {
			logger.Error(err, "mock source")
			continue
		}
		payload, err := json.Marshal(raw)
		if err != nil {
			logger.Error(err, "json marshal error")
			continue
		}

		token := client.Publish(cfg.TopicSamples, 0, false, payload)
		if token.Wait() && token.Error() != nil {
			logger.Error(token.Error(), "MQTT publish error", "topic", cfg.TopicSamples)
			continue
		}
		published++
		if published == uint64(mock.RestSamples) {
			logger.Info("mock device starts moving", "published", published)
		}
	}
}
