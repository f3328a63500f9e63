// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"runtime"
	"strings"
	"testing"
)

func TestInfo(t *testing.T) {
	saved := []string{Version, GitCommit, GitDirty, BuildTime}
	t.Cleanup(func() {
		Version, GitCommit, GitDirty, BuildTime = saved[0], saved[1], saved[2], saved[3]
	})

	Version, GitCommit, BuildTime = "1.2.0", "abc1234", "2026-03-01T00:00:00Z"

	GitDirty = "false"
	if got, want := Info(), "1.2.0 (abc1234, 2026-03-01T00:00:00Z)"; got != want {
		t.Errorf("Info() = %q, want %q", got, want)
	}

	GitDirty = "true"
	if got, want := Info(), "1.2.0 (abc1234-dirty, 2026-03-01T00:00:00Z)"; got != want {
		t.Errorf("Info() = %q, want %q", got, want)
	}
}

func TestFull(t *testing.T) {
	full := Full()
	if !strings.HasPrefix(full, Info()) {
		t.Errorf("Full() does not start with Info(): %q", full)
	}
	if !strings.Contains(full, runtime.Version()) {
		t.Errorf("Full() missing Go version: %q", full)
	}
}
