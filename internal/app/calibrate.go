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

	"github.com/relabs-tech/filter_calibrator/internal/calibrator"
	"github.com/relabs-tech/filter_calibrator/internal/config"
	"github.com/relabs-tech/filter_calibrator/internal/grid"
	imu_raw "github.com/relabs-tech/filter_calibrator/internal/imu"
	"github.com/relabs-tech/filter_calibrator/internal/tuner"
)

// progressEvery is how many samples pass between progress reports.
const progressEvery = 60

// newSession builds a calibration session from the configuration.
func newSession(cfg *config.Config, g *grid.Grid, logger logr.Logger) *calibrator.Session {
	return calibrator.NewSession(calibrator.SessionConfig{
		LeastPrecision:   cfg.LeastPrecision,
		WorstLagSecs:     cfg.WorstLagSecs,
		AmplitudeSamples: uint64(cfg.AmplitudeSamples),
		NoiseThreshold:   cfg.NoiseThreshold,
		Grid:             g,
		TunerOptions:     []tuner.Option{tuner.WithMaxRelaxationRounds(cfg.MaxRelaxationRounds)},
		Logger:           logger,
	})
}

// calibrate feeds samples through a session until the tuning targets are
// known, then runs the parameter search. onProgress, if set, is called on
// every phase change and every progressEvery samples.
func calibrate(ctx context.Context, session *calibrator.Session, next sampleFunc, tuneTimeout time.Duration,
	onProgress func(calibrator.Progress)) (tuner.FinalTuningSettings, error) {
	report := func() {
		if onProgress != nil {
			onProgress(session.Progress())
		}
	}

	if err := session.Start(); err != nil {
		return tuner.FinalTuningSettings{}, err
	}
	report()

	state := session.State()
	for n := 1; state != calibrator.EstimateParameters; n++ {
		v, err := next(ctx)
		if err != nil {
			return tuner.FinalTuningSettings{}, fmt.Errorf("read sample in %s: %w", state, err)
		}
		newState, err := session.Process(v.X, v.Y, v.Z)
		if err != nil {
			return tuner.FinalTuningSettings{}, err
		}
		if newState != state || n%progressEvery == 0 {
			report()
		}
		state = newState
	}

	tuneCtx := ctx
	if tuneTimeout > 0 {
		var cancel context.CancelFunc
		tuneCtx, cancel = context.WithTimeout(ctx, tuneTimeout)
		defer cancel()
	}
	res, err := session.Tune(tuneCtx)
	if err != nil {
		return tuner.FinalTuningSettings{}, fmt.Errorf("tune filter: %w", err)
	}
	report()
	return res, nil
}

func logProgress(logger logr.Logger) func(calibrator.Progress) {
	return func(p calibrator.Progress) {
		logger.V(1).Info("calibration progress", "phase", p.Phase, "noiseRatio", p.NoiseRatio,
			"amplitudeSamples", p.AmplitudeSamples, "maxAmplitude", p.MaxAmplitude)
	}
}

// publishResult publishes the tuned parameters as retained JSON.
func publishResult(client mqtt.Client, topic string, res tuner.FinalTuningSettings) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("json marshal error (tuning): %w", err)
	}
	if token := client.Publish(topic, 1, true, payload); token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT publish error (%s): %w", topic, token.Error())
	}
	return nil
}

// RunCalibrator calibrates from the configured MQTT sample topic and
// publishes the tuned filter parameters.
func RunCalibrator(ctx context.Context, logger logr.Logger) error {
	cfg := config.Get()
	logger = logger.WithName("calibrator")

	g, err := grid.Load(cfg.PrecisionTablePath, calibrator.SampleRate)
	if err != nil {
		return err
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDCalibrator)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT connect error: %w", token.Error())
	}
	defer client.Disconnect(250)
	logger.Info("connected to MQTT", "broker", cfg.MQTTBroker)

	hub := newSampleHub(logger)
	samples := hub.subscribe()
	defer hub.unsubscribe(samples)

	token := client.Subscribe(cfg.TopicSamples, 0, func(_ mqtt.Client, msg mqtt.Message) {
		v, err := decodeSample(msg.Payload(), cfg.SampleField)
		if err != nil {
			logger.Error(err, "dropping sample", "topic", msg.Topic())
			return
		}
		hub.publish(v)
	})
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT subscribe error (%s): %w", cfg.TopicSamples, token.Error())
	}
	logger.Info("keep the device still until noise calibration converges, then move it through its full range",
		"topic", cfg.TopicSamples, "field", cfg.SampleField)

	session := newSession(cfg, g, logger)
	res, err := calibrate(ctx, session, channelSamples(samples),
		time.Duration(cfg.TuneTimeoutSecs)*time.Second, logProgress(logger))
	if err != nil {
		return err
	}

	if err := publishResult(client, cfg.TopicTuning, res); err != nil {
		return err
	}
	logger.Info("published filter parameters", "topic", cfg.TopicTuning,
		"minCutoffHz", res.MinCutoffHz, "beta", res.Beta)
	return nil
}

// RunMockCalibration calibrates against the mock IMU without a broker and
// prints the result.
func RunMockCalibration(ctx context.Context, logger logr.Logger) error {
	cfg := config.Get()
	logger = logger.WithName("mock-calibrator")

	g, err := grid.Load(cfg.PrecisionTablePath, calibrator.SampleRate)
	if err != nil {
		return err
	}

	src := imu_raw.NewMockSource(imu_raw.DefaultMockConfig)
	session := newSession(cfg, g, logger)
	res, err := calibrate(ctx, session, sourceSamples(src, cfg.SampleField),
		time.Duration(cfg.TuneTimeoutSecs)*time.Second, logProgress(logger))
	if err != nil {
		return err
	}

	fmt.Printf("min_cutoff_hz=%.2f beta=%.6f precision=%.4f lag=%.3fs relaxations=%d\n",
		res.MinCutoffHz, res.Beta, res.Precision, res.LagSecs, res.Relaxations)
	return nil
}
