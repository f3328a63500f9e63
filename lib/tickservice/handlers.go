// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tickservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bureau-foundation/tickclock/lib/codec"
	"github.com/bureau-foundation/tickclock/lib/gameclock"
	"github.com/bureau-foundation/tickclock/lib/service"
	"github.com/bureau-foundation/tickclock/lib/version"
)

// Controller is the part of *gameclock.Clock the handlers drive.
type Controller interface {
	SetRate(hz float64) error
	Start()
	Stop()
	Stats() gameclock.Stats
	Register(listener gameclock.Listener) error
	Unregister(listener gameclock.Listener)
}

// Status is the response to status, start, stop and set-rate.
type Status struct {
	Running   bool    `cbor:"running"`
	RateHz    float64 `cbor:"rate_hz"`
	PeriodNS  int64   `cbor:"period_ns"`
	Listeners int     `cbor:"listeners"`
	Ticks     uint64  `cbor:"ticks"`
	InFlight  int64   `cbor:"in_flight"`
	Delivered uint64  `cbor:"delivered"`
	Failures  uint64  `cbor:"failures"`

	// Version is the daemon's build version.
	Version string `cbor:"version,omitempty"`
}

// Period returns PeriodNS as a duration.
func (s Status) Period() time.Duration {
	return time.Duration(s.PeriodNS)
}

func statusFromStats(stats gameclock.Stats) Status {
	status := Status{
		Running:   stats.Running,
		PeriodNS:  int64(stats.Period),
		Listeners: stats.Listeners,
		Ticks:     stats.Ticks,
		InFlight:  stats.InFlight,
		Delivered: stats.Delivered,
		Failures:  stats.Failures,
		Version:   version.Info(),
	}
	if stats.Period > 0 {
		status.RateHz = float64(time.Second) / float64(stats.Period)
	}
	return status
}

type setRateRequest struct {
	RateHz *float64 `cbor:"rate_hz"`
}

// Handlers serves the control actions for one clock.
type Handlers struct {
	controller Controller
	logger     *slog.Logger
}

// Register installs the control actions on server.
func Register(server *service.SocketServer, controller Controller, logger *slog.Logger) *Handlers {
	handlers := &Handlers{controller: controller, logger: logger}
	server.Handle("status", handlers.handleStatus)
	server.Handle("set-rate", handlers.handleSetRate)
	server.Handle("start", handlers.handleStart)
	server.Handle("stop", handlers.handleStop)
	server.HandleStream("subscribe", handlers.handleSubscribe)
	return handlers
}

func (h *Handlers) handleStatus(_ context.Context, _ []byte) (any, error) {
	return statusFromStats(h.controller.Stats()), nil
}

func (h *Handlers) handleSetRate(_ context.Context, raw []byte) (any, error) {
	var request setRateRequest
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("invalid set-rate request: %w", err)
	}
	if request.RateHz == nil {
		return nil, errors.New("missing required field: rate_hz")
	}
	if err := h.controller.SetRate(*request.RateHz); err != nil {
		return nil, err
	}
	h.logger.Info("rate changed over control socket", "rate_hz", *request.RateHz)
	return statusFromStats(h.controller.Stats()), nil
}

func (h *Handlers) handleStart(_ context.Context, _ []byte) (any, error) {
	h.controller.Start()
	return statusFromStats(h.controller.Stats()), nil
}

func (h *Handlers) handleStop(_ context.Context, _ []byte) (any, error) {
	h.controller.Stop()
	return statusFromStats(h.controller.Stats()), nil
}
