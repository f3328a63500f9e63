// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package gameclock

import (
	"fmt"
	"log/slog"
	"sync/atomic"
)

// DefaultOverloadThreshold is the number of concurrent broadcasts above
// which each new broadcast logs a warning.
const DefaultOverloadThreshold = 64

// FailureHook observes listener failures after they are logged. It runs
// on the broadcast goroutine; a panic inside it is recovered and logged.
type FailureHook func(*NotificationError)

// dispatcher fans a tick out to a listener snapshot on a fresh
// goroutine per broadcast.
type dispatcher struct {
	logger            atomic.Pointer[slog.Logger]
	hook              atomic.Pointer[FailureHook]
	overloadThreshold atomic.Int64

	inFlight  atomic.Int64
	delivered atomic.Uint64
	failures  atomic.Uint64
}

func (d *dispatcher) log() *slog.Logger {
	if logger := d.logger.Load(); logger != nil {
		return logger
	}
	return slog.Default()
}

// broadcast starts delivering tick to listeners and returns without
// waiting for any of them.
func (d *dispatcher) broadcast(tick Tick, listeners []Listener) {
	if len(listeners) == 0 {
		return
	}

	inFlight := d.inFlight.Add(1)
	if threshold := d.overloadThreshold.Load(); threshold > 0 && inFlight > threshold {
		d.log().Warn("tick broadcasts are piling up; listeners take longer than the tick period",
			"sequence", tick.Sequence,
			"in_flight", inFlight,
			"threshold", threshold,
			"period", tick.Period,
		)
	}

	go func() {
		defer d.inFlight.Add(-1)
		for _, listener := range listeners {
			d.notify(tick, listener)
		}
	}()
}

// notify delivers one tick to one listener. Errors and panics stop at
// this boundary.
func (d *dispatcher) notify(tick Tick, listener Listener) {
	failure := deliver(tick, listener)
	if failure == nil {
		d.delivered.Add(1)
		return
	}

	d.failures.Add(1)
	attributes := []any{
		"sequence", tick.Sequence,
		"listener", fmt.Sprintf("%T", listener),
		"error", failure.Err,
	}
	if failure.Panic != nil {
		attributes = append(attributes, "panic", true)
	}
	d.log().Error("tick listener failed", attributes...)

	hook := d.hook.Load()
	if hook == nil || *hook == nil {
		return
	}
	defer func() {
		if recovered := recover(); recovered != nil {
			d.log().Error("tick failure hook panicked",
				"sequence", tick.Sequence,
				"panic", recovered,
			)
		}
	}()
	(*hook)(failure)
}

func deliver(tick Tick, listener Listener) (failure *NotificationError) {
	defer func() {
		if recovered := recover(); recovered != nil {
			failure = &NotificationError{
				Sequence: tick.Sequence,
				Listener: listener,
				Err:      fmt.Errorf("panic: %v", recovered),
				Panic:    recovered,
			}
		}
	}()

	if err := listener.OnTick(tick); err != nil {
		return &NotificationError{
			Sequence: tick.Sequence,
			Listener: listener,
			Err:      err,
		}
	}
	return nil
}
