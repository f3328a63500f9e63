// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package tickwatch is the terminal viewer behind "tickclock watch".
//
// The [Model] consumes tick frames from a daemon subscription and shows
// the latest sequence number, the rate measured from tick timestamps,
// jitter against the configured period, and how many ticks the viewer
// has missed. Measurements cover a sliding window of recent intervals.
package tickwatch
