// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// SocketPath returns a path for a Unix socket inside a fresh directory
// under /tmp. t.TempDir can be nested deeply enough to exceed the
// sun_path limit. The directory is removed when the test ends.
func SocketPath(t *testing.T, name string) string {
	t.Helper()
	directory, err := os.MkdirTemp("/tmp", "tickclock-*")
	if err != nil {
		t.Fatalf("creating socket directory: %v", err)
	}
	t.Cleanup(func() {
		_ = os.RemoveAll(directory)
	})
	return filepath.Join(directory, name)
}

// WaitForSocket blocks until a file exists at path. It fails the test
// if the test context expires first.
func WaitForSocket(t *testing.T, path string) {
	t.Helper()
	for {
		if _, err := os.Stat(path); err == nil {
			return
		}
		if t.Context().Err() != nil {
			t.Fatalf("socket %s did not appear before test context expired", path)
		}
		runtime.Gosched()
	}
}
