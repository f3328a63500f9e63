// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package gameclock

import (
	"context"
	"time"
)

// Start launches the tick loop. The first tick fires one period later.
// Calling Start while the clock is running does nothing.
func (c *Clock) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return
	}
	c.running = true
	c.generation++
	c.nextSleep = c.period
	done := make(chan struct{})
	c.loopDone = done

	go c.run(c.generation, done)

	c.dispatcher.log().Info("game clock started",
		"period", c.period,
		"generation", c.generation,
	)
}

// Stop asks the tick loop to exit. The loop finishes its current sleep
// and then exits without firing, so no tick is dispatched after the
// loop observes the stop. Calling Stop on a stopped clock does nothing.
func (c *Clock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return
	}
	c.running = false
	c.nextSleep = c.period

	c.dispatcher.log().Info("game clock stopped",
		"generation", c.generation,
		"ticks", c.sequence.Load(),
	)
}

// Wait blocks until the tick loop launched by the most recent Start
// has exited, or ctx is done. After Stop the loop exits at the end of
// its current sleep, so Wait can take up to one period. Returns nil at
// once if the clock was never started.
func (c *Clock) Wait(ctx context.Context) error {
	c.mu.Lock()
	done := c.loopDone
	c.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	default:
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is the tick loop for one Start. A later Start bumps the
// generation, which retires this loop at its next wake even if the
// clock is running again by then.
func (c *Clock) run(generation uint64, done chan<- struct{}) {
	defer close(done)
	for {
		sleep, active := c.pendingSleep(generation)
		if !active {
			return
		}
		c.source.Sleep(sleep)
		if !c.fire(generation) {
			return
		}
	}
}

func (c *Clock) pendingSleep(generation uint64) (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.activeLocked(generation) {
		return 0, false
	}
	return c.nextSleep, true
}

// fire runs the post-wake half of an iteration: stamp, broadcast, and
// compute the next sleep. Returns false when generation is no longer
// the active loop.
func (c *Clock) fire(generation uint64) (active bool) {
	defer func() {
		recovered := recover()
		if recovered == nil {
			return
		}
		c.dispatcher.log().Error("tick loop fault recovered; continuing",
			"generation", generation,
			"panic", recovered,
		)
		c.mu.Lock()
		if c.activeLocked(generation) {
			c.nextSleep = c.period
		}
		c.mu.Unlock()
		active = true
	}()

	c.mu.Lock()
	if !c.activeLocked(generation) {
		c.mu.Unlock()
		return false
	}
	period := c.period
	c.mu.Unlock()

	wake := c.source.Now()
	tick := Tick{
		Sequence: c.sequence.Add(1),
		At:       wake,
		Period:   period,
	}
	c.dispatcher.broadcast(tick, c.registry.snapshot())
	elapsed := c.source.Now().Sub(wake)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.activeLocked(generation) {
		c.nextSleep = nextSleep(c.period, elapsed)
	}
	return true
}

func (c *Clock) activeLocked(generation uint64) bool {
	return c.running && c.generation == generation
}

// nextSleep is the part of period not already consumed by elapsed,
// floored at zero.
func nextSleep(period, elapsed time.Duration) time.Duration {
	if remaining := period - elapsed; remaining > 0 {
		return remaining
	}
	return 0
}
