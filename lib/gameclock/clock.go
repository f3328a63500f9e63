// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package gameclock

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bureau-foundation/tickclock/lib/clock"
)

// DefaultPeriod is the tick period of a freshly created clock (1 Hz).
const DefaultPeriod = time.Second

var (
	instance     *Clock
	instanceOnce sync.Once
)

// Get returns the process-wide clock, creating it on first use with a
// one-second period, no listeners, and the loop stopped. Every call
// returns the same *Clock.
func Get() *Clock {
	instanceOnce.Do(func() {
		instance = newClock(clock.Real())
	})
	return instance
}

// Clock is the process heartbeat. All methods are safe for concurrent
// use.
type Clock struct {
	source clock.Clock

	// mu guards the scheduling state below. The registry and the
	// dispatcher synchronize themselves.
	mu         sync.Mutex
	period     time.Duration
	nextSleep  time.Duration
	running    bool
	generation uint64
	loopDone   chan struct{}

	registry   registry
	dispatcher dispatcher
	sequence   atomic.Uint64
}

func newClock(source clock.Clock) *Clock {
	c := &Clock{
		source:    source,
		period:    DefaultPeriod,
		nextSleep: DefaultPeriod,
	}
	c.dispatcher.overloadThreshold.Store(DefaultOverloadThreshold)
	return c
}

// SetRate sets the tick frequency in hertz. The new period takes effect
// at the next sleep the loop computes. Returns an error wrapping
// ErrInvalidArgument, and leaves the period alone, if hz is not a
// finite positive number or is too high for nanosecond resolution.
func (c *Clock) SetRate(hz float64) error {
	if math.IsNaN(hz) || math.IsInf(hz, 0) || hz <= 0 {
		return fmt.Errorf("%w: rate must be a positive finite frequency, got %v Hz", ErrInvalidArgument, hz)
	}
	period := time.Duration(float64(time.Second) / hz)
	if period <= 0 {
		return fmt.Errorf("%w: rate %v Hz gives a period below one nanosecond", ErrInvalidArgument, hz)
	}

	c.mu.Lock()
	previous := c.period
	c.period = period
	c.mu.Unlock()

	c.dispatcher.log().Debug("game clock rate changed",
		"rate_hz", hz,
		"period", period,
		"previous_period", previous,
	)
	return nil
}

// Period returns the current tick period.
func (c *Clock) Period() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.period
}

// Rate returns the current tick frequency in hertz.
func (c *Clock) Rate() float64 {
	return float64(time.Second) / float64(c.Period())
}

// Running reports whether the clock has been started and not stopped.
func (c *Clock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Register adds listener to the tick broadcast. Registering a listener
// that is already present, or a nil listener, does nothing. Listeners
// are matched by ==; a listener whose type cannot be compared is
// rejected with an error wrapping ErrInvalidArgument.
func (c *Clock) Register(listener Listener) error {
	added, err := c.registry.add(listener)
	if err != nil {
		return err
	}
	if added {
		c.dispatcher.log().Debug("tick listener registered",
			"listener", fmt.Sprintf("%T", listener),
			"listeners", c.registry.size(),
		)
	}
	return nil
}

// Unregister removes listener. Removing a listener that is not
// registered does nothing. A broadcast already under way may still
// deliver one tick to it.
func (c *Clock) Unregister(listener Listener) {
	if c.registry.remove(listener) {
		c.dispatcher.log().Debug("tick listener unregistered",
			"listener", fmt.Sprintf("%T", listener),
			"listeners", c.registry.size(),
		)
	}
}

// Listeners returns the number of registered listeners.
func (c *Clock) Listeners() int {
	return c.registry.size()
}

// SetLogger replaces the logger used for lifecycle events and listener
// failures. Nil restores slog.Default().
func (c *Clock) SetLogger(logger *slog.Logger) {
	c.dispatcher.logger.Store(logger)
}

// SetFailureHook installs a function called for every listener failure
// after it is logged. Nil removes the hook.
func (c *Clock) SetFailureHook(hook FailureHook) {
	if hook == nil {
		c.dispatcher.hook.Store(nil)
		return
	}
	c.dispatcher.hook.Store(&hook)
}

// SetOverloadThreshold sets how many broadcasts may be in flight before
// each new one logs a warning. Zero or less disables the warning.
func (c *Clock) SetOverloadThreshold(threshold int) {
	c.dispatcher.overloadThreshold.Store(int64(threshold))
}

// Stats is a point-in-time view of the clock.
type Stats struct {
	Running   bool
	Period    time.Duration
	Listeners int

	// Ticks is the sequence number of the most recent tick.
	Ticks uint64

	// InFlight is the number of broadcasts still delivering.
	InFlight int64

	// Delivered and Failures count individual listener notifications.
	Delivered uint64
	Failures  uint64
}

// Stats returns current counters. Fields are read independently and
// may be mutually inconsistent by a tick or so.
func (c *Clock) Stats() Stats {
	c.mu.Lock()
	running, period := c.running, c.period
	c.mu.Unlock()

	return Stats{
		Running:   running,
		Period:    period,
		Listeners: c.registry.size(),
		Ticks:     c.sequence.Load(),
		InFlight:  c.dispatcher.inFlight.Load(),
		Delivered: c.dispatcher.delivered.Load(),
		Failures:  c.dispatcher.failures.Load(),
	}
}
