// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/go-logr/logr"

	"github.com/relabs-tech/filter_calibrator/internal/calibrator"
	"github.com/relabs-tech/filter_calibrator/internal/config"
	imu_raw "github.com/relabs-tech/filter_calibrator/internal/imu"
	"github.com/relabs-tech/filter_calibrator/internal/oneeuro"
	"github.com/relabs-tech/filter_calibrator/internal/tuner"
)

func formatTuning(res tuner.FinalTuningSettings) string {
	return fmt.Sprintf(
		"[TUNE]  MIN_CUTOFF=%5.2fHz  BETA=%.6f  PRECISION=%.4f/%.4f  LAG=%.3fs  RELAX=%d",
		res.MinCutoffHz, res.Beta, res.Precision, res.TargetPrecision, res.LagSecs, res.Relaxations,
	)
}

// previewFilter applies the most recent tuning result to the sample stream.
type previewFilter struct {
	mu     sync.Mutex
	filter *oneeuro.ThreeAxisFilter
}

func (p *previewFilter) tune(res tuner.FinalTuningSettings) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.filter == nil {
		p.filter = oneeuro.NewThreeAxis(calibrator.SampleRate, res.MinCutoffHz, res.Beta, 1)
		return
	}
	p.filter.SetCutoffMin(res.MinCutoffHz)
	p.filter.SetBeta(res.Beta)
}

// apply returns the filtered sample, or false before any tuning arrived.
func (p *previewFilter) apply(v imu_raw.Vec3) (imu_raw.Vec3, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.filter == nil {
		return imu_raw.Vec3{}, false
	}
	x, y, z := p.filter.Filter(v.X, v.Y, v.Z)
	return imu_raw.Vec3{X: x, Y: y, Z: z}, true
}

// RunConsoleMQTT prints every tuning result published on the broker and,
// when verbose, every sample of the calibrated sensor next to its value
// filtered with the latest tuning.
func RunConsoleMQTT(ctx context.Context, logger logr.Logger, verbose bool) error {
	cfg := config.Get()
	logger = logger.WithName("console")

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDConsole)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT connect error: %w", token.Error())
	}
	defer client.Disconnect(250)
	logger.Info("connected to MQTT", "broker", cfg.MQTTBroker)

	preview := &previewFilter{}
	token := client.Subscribe(cfg.TopicTuning, 1, func(_ mqtt.Client, msg mqtt.Message) {
		var res tuner.FinalTuningSettings
		if err := json.Unmarshal(msg.Payload(), &res); err != nil {
			logger.Error(err, "tuning unmarshal error")
			return
		}
		preview.tune(res)
		fmt.Println(formatTuning(res))
	})
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT subscribe error (%s): %w", cfg.TopicTuning, token.Error())
	}
	logger.Info("subscribed", "topic", cfg.TopicTuning)

	if verbose {
		token = client.Subscribe(cfg.TopicSamples, 0, func(_ mqtt.Client, msg mqtt.Message) {
			v, err := decodeSample(msg.Payload(), cfg.SampleField)
			if err != nil {
				logger.Error(err, "sample decode error")
				return
			}
			if f, ok := preview.apply(v); ok {
				fmt.Printf("[%s]  X=%8.1f  Y=%8.1f  Z=%8.1f  |  FILTERED X=%8.1f  Y=%8.1f  Z=%8.1f\n",
					cfg.SampleField, v.X, v.Y, v.Z, f.X, f.Y, f.Z)
				return
			}
			fmt.Printf("[%s]  X=%8.1f  Y=%8.1f  Z=%8.1f\n", cfg.SampleField, v.X, v.Y, v.Z)
		})
		if token.Wait() && token.Error() != nil {
			return fmt.Errorf("MQTT subscribe error (%s): %w", cfg.TopicSamples, token.Error())
		}
		logger.Info("subscribed", "topic", cfg.TopicSamples)
	}

	<-ctx.Done()
	return nil
}
