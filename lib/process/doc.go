// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process holds entrypoint helpers for the tickclock binary:
// reporting a fatal error before the structured logger exists, and
// mapping a run error to an exit code.
package process
