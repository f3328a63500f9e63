// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil holds test helpers shared across tickclock packages.
//
// [RequireReceive] and [RequireClosed] wrap the select-with-timeout
// pattern so tests never block forever on a channel. Their timeouts
// are safety valves only: tests that need time to pass drive a
// clock.FakeClock instead.
//
// [RequireQuiet] is the one helper that deliberately waits on the
// wall clock. It asserts that nothing arrives on a channel within a
// short window, which is how tests check that a stopped clock stays
// silent.
//
// [SocketPath] returns a Unix socket path short enough for the
// 108-byte sun_path limit.
//
// All helpers fail the test with t.Fatalf rather than returning
// errors.
package testutil
