// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tickwatch

import (
	"time"

	"github.com/bureau-foundation/tickclock/lib/gameclock"
)

// meterWindow is the number of recent intervals the meter keeps.
const meterWindow = 32

// meter derives rate and jitter from a stream of ticks.
type meter struct {
	received uint64
	last     gameclock.Tick
	period   time.Duration

	// missed counts sequence numbers skipped between consecutive
	// ticks. late counts ticks that arrived after a higher sequence
	// had already been seen.
	missed uint64
	late   uint64

	intervals [meterWindow]time.Duration
	count     int
	next      int
}

// observe folds one tick into the measurements.
func (m *meter) observe(tick gameclock.Tick) {
	m.received++
	m.period = tick.Period

	if m.last.Sequence == 0 {
		m.last = tick
		return
	}
	if tick.Sequence <= m.last.Sequence {
		m.late++
		return
	}

	gap := tick.Sequence - m.last.Sequence
	m.missed += gap - 1
	interval := tick.At.Sub(m.last.At) / time.Duration(gap)
	m.last = tick

	m.intervals[m.next] = interval
	m.next = (m.next + 1) % meterWindow
	if m.count < meterWindow {
		m.count++
	}
}

// meanInterval returns the average interval in the window, or zero
// before two ticks have been seen.
func (m *meter) meanInterval() time.Duration {
	if m.count == 0 {
		return 0
	}
	var total time.Duration
	for _, interval := range m.intervals[:m.count] {
		total += interval
	}
	return total / time.Duration(m.count)
}

// rate returns the measured tick frequency in hertz.
func (m *meter) rate() float64 {
	mean := m.meanInterval()
	if mean <= 0 {
		return 0
	}
	return float64(time.Second) / float64(mean)
}

// jitter returns the mean absolute deviation of the windowed
// intervals from the configured period.
func (m *meter) jitter() time.Duration {
	if m.count == 0 {
		return 0
	}
	var total time.Duration
	for _, interval := range m.intervals[:m.count] {
		deviation := interval - m.period
		if deviation < 0 {
			deviation = -deviation
		}
		total += deviation
	}
	return total / time.Duration(m.count)
}
