// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package gameclock

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidArgument is wrapped by errors from SetRate and Register
// when the caller passes a value the clock cannot accept. Clock state
// is unchanged when it is returned.
var ErrInvalidArgument = errors.New("gameclock: invalid argument")

// Tick describes one firing of the clock.
type Tick struct {
	// Sequence numbers ticks from 1, process-wide. It keeps counting
	// across Stop and Start.
	Sequence uint64 `cbor:"sequence"`

	// At is the time the loop woke for this tick.
	At time.Time `cbor:"at"`

	// Period is the tick period in force when the tick fired.
	Period time.Duration `cbor:"period_ns"`
}

// Listener receives ticks. OnTick runs on a broadcast goroutine, never
// on the tick loop, and may run concurrently with itself when
// broadcasts overlap.
type Listener interface {
	OnTick(tick Tick) error
}

// ListenerFunc adapts a function to Listener. Obtain one with
// NewListenerFunc; the pointer gives the function an identity so it
// can later be unregistered.
type ListenerFunc struct {
	fn func(Tick) error
}

// NewListenerFunc wraps fn as a Listener.
func NewListenerFunc(fn func(Tick) error) *ListenerFunc {
	return &ListenerFunc{fn: fn}
}

// OnTick calls the wrapped function.
func (f *ListenerFunc) OnTick(tick Tick) error {
	return f.fn(tick)
}

// NotificationError reports a listener that failed to handle a tick,
// either by returning an error or by panicking.
type NotificationError struct {
	Sequence uint64
	Listener Listener

	// Err is the returned error, or a synthesized one describing the
	// panic.
	Err error

	// Panic holds the recovered value when the listener panicked.
	Panic any
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("listener %T failed on tick %d: %v", e.Listener, e.Sequence, e.Err)
}

func (e *NotificationError) Unwrap() error { return e.Err }
