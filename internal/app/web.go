// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/go-logr/logr"

	"github.com/relabs-tech/filter_calibrator/internal/calibrator"
	"github.com/relabs-tech/filter_calibrator/internal/config"
	"github.com/relabs-tech/filter_calibrator/internal/grid"
	"github.com/relabs-tech/filter_calibrator/internal/tuner"
)

// tuningStore keeps the most recent published result.
type tuningStore struct {
	mu   sync.RWMutex
	last tuner.FinalTuningSettings
	have bool
}

func (s *tuningStore) set(res tuner.FinalTuningSettings) {
	s.mu.Lock()
	s.last = res
	s.have = true
	s.mu.Unlock()
}

func (s *tuningStore) get() (tuner.FinalTuningSettings, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last, s.have
}

// ServeHTTP serves the latest tuning result as JSON.
func (s *tuningStore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	res, ok := s.get()
	if !ok {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(res)
}

// newWebMux wires the HTTP API.
func newWebMux(store *tuningStore, calibration http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/api/tuning", store)
	mux.Handle("/ws/calibration", calibration)
	return mux
}

// RunWeb serves the latest tuning result and interactive calibration
// sessions fed from the MQTT sample topic.
func RunWeb(ctx context.Context, logger logr.Logger) error {
	cfg := config.Get()
	logger = logger.WithName("web")

	g, err := grid.Load(cfg.PrecisionTablePath, calibrator.SampleRate)
	if err != nil {
		return err
	}

	// 1) Connect to MQTT broker
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDWeb)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT connect error: %w", token.Error())
	}
	defer client.Disconnect(250)
	logger.Info("connected to MQTT", "broker", cfg.MQTTBroker)

	// 2) Samples feed calibration sessions
	hub := newSampleHub(logger)
	token := client.Subscribe(cfg.TopicSamples, 0, func(_ mqtt.Client, msg mqtt.Message) {
		v, err := decodeSample(msg.Payload(), cfg.SampleField)
		if err != nil {
			logger.V(1).Info("dropping sample", "error", err.Error())
			return
		}
		hub.publish(v)
	})
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT subscribe error (%s): %w", cfg.TopicSamples, token.Error())
	}

	// 3) Retained results, including those of other calibrators
	store := &tuningStore{}
	token = client.Subscribe(cfg.TopicTuning, 1, func(_ mqtt.Client, msg mqtt.Message) {
		var res tuner.FinalTuningSettings
		if err := json.Unmarshal(msg.Payload(), &res); err != nil {
			logger.Error(err, "tuning payload unmarshal error")
			return
		}
		store.set(res)
	})
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT subscribe error (%s): %w", cfg.TopicTuning, token.Error())
	}
	logger.Info("subscribed", "samples", cfg.TopicSamples, "tuning", cfg.TopicTuning)

	calibration := NewCalibrationHandler(hub, g, cfg, func(res tuner.FinalTuningSettings) error {
		return publishResult(client, cfg.TopicTuning, res)
	}, logger)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WebServerPort),
		Handler:           newWebMux(store, calibration),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("web server listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
