// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package tickservice exposes a game clock over the control socket.
//
// [Register] installs the actions on a [service.SocketServer]:
//
//   - status: returns a [Status] snapshot.
//   - set-rate {rate_hz}: changes the tick frequency.
//   - start, stop: control the tick loop.
//   - subscribe: a stream of [Frame] values, one per tick.
//
// A subscriber that reads more slowly than the clock ticks loses
// frames rather than slowing the clock. Each tick frame carries the
// running count of frames dropped for that subscriber, and tick
// sequence numbers show where the gaps are.
//
// [Client] is the typed client used by the tickclock command.
package tickservice
