// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-logr/logr"

	imu_raw "github.com/relabs-tech/filter_calibrator/internal/imu"
)

// sampleBuffer is how many decoded samples a subscriber may fall behind.
const sampleBuffer = 256

// sampleFunc blocks until the next 3-axis sample is available.
type sampleFunc func(ctx context.Context) (imu_raw.Vec3, error)

// decodeSample extracts one sensor's axes from an IMURaw JSON payload.
func decodeSample(payload []byte, field string) (imu_raw.Vec3, error) {
	var raw imu_raw.IMURaw
	if err := json.Unmarshal(payload, &raw); err != nil {
		return imu_raw.Vec3{}, fmt.Errorf("sample unmarshal: %w", err)
	}
	return raw.Axes(field)
}

// sampleHub fans decoded samples out to calibration sessions. Slow
// subscribers lose samples instead of stalling the MQTT callback.
type sampleHub struct {
	mu      sync.Mutex
	subs    map[chan imu_raw.Vec3]struct{}
	dropped uint64
	logger  logr.Logger
}

func newSampleHub(logger logr.Logger) *sampleHub {
	return &sampleHub{
		subs:   make(map[chan imu_raw.Vec3]struct{}),
		logger: logger,
	}
}

func (h *sampleHub) subscribe() chan imu_raw.Vec3 {
	ch := make(chan imu_raw.Vec3, sampleBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *sampleHub) unsubscribe(ch chan imu_raw.Vec3) {
	h.mu.Lock()
	delete(h.subs, ch)
	h.mu.Unlock()
}

func (h *sampleHub) publish(v imu_raw.Vec3) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- v:
		default:
			h.dropped++
			if h.dropped%sampleBuffer == 1 {
				h.logger.Info("calibration subscriber too slow, dropping samples", "dropped", h.dropped)
			}
		}
	}
}

// channelSamples reads samples from a hub subscription.
func channelSamples(ch <-chan imu_raw.Vec3) sampleFunc {
	return func(ctx context.Context) (imu_raw.Vec3, error) {
		select {
		case v := <-ch:
			return v, nil
		case <-ctx.Done():
			return imu_raw.Vec3{}, ctx.Err()
		}
	}
}

// sourceSamples reads samples from an IMURaw source, e.g. the mock IMU.
func sourceSamples(src imu_raw.IMURawSource, field string) sampleFunc {
	return func(ctx context.Context) (imu_raw.Vec3, error) {
		if err := ctx.Err(); err != nil {
			return imu_raw.Vec3{}, err
		}
		raw, err := src.NextRaw()
		if err != nil {
			return imu_raw.Vec3{}, err
		}
		return raw.Axes(field)
	}
}
