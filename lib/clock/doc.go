// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock is the time source behind the tick loop. Production
// code takes Real(); tests take Fake() and drive time by hand.
//
// The tick loop only ever needs three things from time: the current
// instant, a blocking sleep, and a channel that fires after a delay.
// Keeping the interface that small keeps the fake exact.
//
// # Driving a FakeClock
//
// A goroutine that sleeps on a FakeClock registers a waiter and blocks.
// Tests call WaitForTimers to block until the expected number of
// waiters exist, then Advance to release them:
//
//	source := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	go loop(source)
//	source.WaitForTimers(1)
//	source.Advance(time.Second)
//
// WaitForTimers closes the race between "the loop is about to sleep"
// and "the test advances time" without any real sleeps in the test.
package clock
