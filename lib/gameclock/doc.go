// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package gameclock is the process-wide heartbeat for simulation and
// game logic. One Clock per process fires at an adjustable rate and
// hands every tick to the registered listeners.
//
// The clock is created lazily by [Get] and lives until the process
// exits:
//
//	heartbeat := gameclock.Get()
//	if err := heartbeat.SetRate(20); err != nil {
//	    return err
//	}
//	heartbeat.Register(physics)
//	heartbeat.Register(gameclock.NewListenerFunc(func(tick gameclock.Tick) error {
//	    return world.Advance(tick.Period)
//	}))
//	heartbeat.Start()
//	defer heartbeat.Stop()
//
// # Timing
//
// The tick loop sleeps, records the wake time, launches the broadcast,
// and then sleeps for whatever remains of the period. The subtraction
// keeps the long-run rate accurate despite scheduling overhead. When
// the overhead exceeds the period the next sleep is zero and the loop
// catches up instead of skipping ticks. Listener runtime is never part
// of the measurement: each broadcast runs on its own goroutine.
//
// Rate changes apply to the next computed sleep. A sleep already in
// progress is not shortened, and Stop is cooperative: the sleep in
// progress runs out, after which the loop exits without firing.
//
// # Listeners
//
// Membership is by identity (==), so listeners must be comparable;
// pointer receivers are the usual shape, and [NewListenerFunc] wraps a
// plain function in one. A broadcast works on the listener set as it
// was when the tick fired. A listener that returns an error or panics
// is logged and counted; the others still receive the tick.
//
// # Overload
//
// Broadcasts are fire-and-forget with no upper bound. If listeners
// take longer than the period, broadcasts pile up. [Stats] reports the
// number in flight and a warning is logged once the count passes the
// overload threshold.
package gameclock
