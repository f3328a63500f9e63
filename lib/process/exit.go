// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// UsageError marks an error caused by bad command-line input. Fatal
// exits with code 2 for it instead of 1.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string { return e.Err.Error() }

func (e *UsageError) Unwrap() error { return e.Err }

// Usagef returns a *UsageError with a formatted message.
func Usagef(format string, args ...any) error {
	return &UsageError{Err: fmt.Errorf(format, args...)}
}

// ExitCode returns the process exit code for err: 0 for nil, 2 for a
// usage error, 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var usage *UsageError
	if errors.As(err, &usage) {
		return 2
	}
	return 1
}

// Report writes "error: err" to w.
func Report(w io.Writer, err error) {
	fmt.Fprintf(w, "error: %v\n", err)
}

// Fatal reports err on stderr and exits with ExitCode(err). Use it in
// main() for errors from run().
func Fatal(err error) {
	Report(os.Stderr, err)
	os.Exit(ExitCode(err))
}
