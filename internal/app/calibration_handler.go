// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/gorilla/websocket"

	"github.com/relabs-tech/filter_calibrator/internal/calibrator"
	"github.com/relabs-tech/filter_calibrator/internal/config"
	"github.com/relabs-tech/filter_calibrator/internal/grid"
	"github.com/relabs-tech/filter_calibrator/internal/tuner"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// WebSocket message types
type WSMessage struct {
	Action string `json:"action"` // start, cancel

	// Optional per-run overrides of the configured targets.
	LeastPrecision float64 `json:"least_precision,omitempty"`
	WorstLagSecs   float64 `json:"worst_lag_secs,omitempty"`
}

type WSResponse struct {
	Type     string                     `json:"type"` // phase, progress, complete, error
	Phase    string                     `json:"phase,omitempty"`
	Progress *calibrator.Progress       `json:"progress,omitempty"`
	Results  *tuner.FinalTuningSettings `json:"results,omitempty"`
	Message  string                     `json:"message,omitempty"`
}

// CalibrationHandler runs calibration sessions over a WebSocket against
// the live sample stream.
type CalibrationHandler struct {
	hub     *sampleHub
	grid    *grid.Grid
	cfg     config.Config
	publish func(tuner.FinalTuningSettings) error
	logger  logr.Logger
}

// NewCalibrationHandler creates the handler. publish, if not nil, receives
// every completed result.
func NewCalibrationHandler(hub *sampleHub, g *grid.Grid, cfg *config.Config,
	publish func(tuner.FinalTuningSettings) error, logger logr.Logger) *CalibrationHandler {
	return &CalibrationHandler{
		hub:     hub,
		grid:    g,
		cfg:     *cfg,
		publish: publish,
		logger:  logger.WithName("ws-calibration"),
	}
}

// wsConn serialises writes; gorilla allows one concurrent writer.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) send(resp WSResponse) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(resp)
}

// activeRun holds the cancel func of the connection's current session.
type activeRun struct {
	cancel context.CancelFunc
}

func (a *activeRun) stop() {
	if a.cancel != nil {
		a.cancel()
	}
}

func (h *CalibrationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error(err, "websocket upgrade error")
		return
	}
	defer conn.Close()
	c := &wsConn{conn: conn}

	var (
		wg      sync.WaitGroup
		active  activeRun
		running = make(chan struct{}, 1) // at most one session per connection
	)
	defer func() {
		active.stop()
		wg.Wait()
	}()

	// Main message loop
	for {
		var msg WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			h.logger.V(1).Info("websocket closed", "reason", err.Error())
			return
		}

		switch msg.Action {
		case "start":
			select {
			case running <- struct{}{}:
			default:
				h.sendError(c, "calibration already running")
				continue
			}
			ctx, cancel := context.WithCancel(context.Background())
			active.cancel = cancel
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer func() { <-running }()
				defer cancel()
				h.run(ctx, c, msg)
			}()

		case "cancel":
			h.logger.Info("calibration cancelled by user")
			active.stop()

		default:
			h.sendError(c, "unknown action: "+msg.Action)
		}
	}
}

func (h *CalibrationHandler) run(ctx context.Context, c *wsConn, msg WSMessage) {
	cfg := h.cfg
	if msg.LeastPrecision > 0 {
		cfg.LeastPrecision = msg.LeastPrecision
	}
	if msg.WorstLagSecs > 0 {
		cfg.WorstLagSecs = msg.WorstLagSecs
	}

	samples := h.hub.subscribe()
	defer h.hub.unsubscribe(samples)

	session := newSession(&cfg, h.grid, h.logger)
	var phase string
	res, err := calibrate(ctx, session, channelSamples(samples),
		time.Duration(cfg.TuneTimeoutSecs)*time.Second,
		func(p calibrator.Progress) {
			if p.Phase != phase {
				phase = p.Phase
				h.sendOrLog(c, WSResponse{Type: "phase", Phase: phase})
			}
			h.sendOrLog(c, WSResponse{Type: "progress", Phase: p.Phase, Progress: &p})
		})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			h.sendError(c, "calibration cancelled")
			return
		}
		h.logger.Error(err, "calibration failed")
		h.sendError(c, err.Error())
		return
	}

	if h.publish != nil {
		if err := h.publish(res); err != nil {
			h.logger.Error(err, "publishing tuning result")
		}
	}
	h.sendOrLog(c, WSResponse{Type: "complete", Phase: session.State().String(), Results: &res})
}

func (h *CalibrationHandler) sendError(c *wsConn, message string) {
	h.sendOrLog(c, WSResponse{Type: "error", Message: message})
}

func (h *CalibrationHandler) sendOrLog(c *wsConn, resp WSResponse) {
	if err := c.send(resp); err != nil {
		h.logger.V(1).Info("websocket write failed", "type", resp.Type, "error", err.Error())
	}
}
