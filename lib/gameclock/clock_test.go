// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package gameclock

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/tickclock/lib/clock"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

const receiveTimeout = 5 * time.Second

// recorder is a Listener that forwards every tick to a channel.
type recorder struct {
	ticks chan Tick
}

func newRecorder() *recorder {
	return &recorder{ticks: make(chan Tick, 64)}
}

func (r *recorder) OnTick(tick Tick) error {
	r.ticks <- tick
	return nil
}

// uncomparableListener cannot be matched by identity.
type uncomparableListener []string

func (uncomparableListener) OnTick(Tick) error { return nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testClock returns a clock driven by a fake time source.
func testClock(t *testing.T) (*Clock, *clock.FakeClock) {
	t.Helper()
	source := clock.Fake(epoch)
	c := newClock(source)
	c.SetLogger(discardLogger())
	t.Cleanup(func() { stopAndWait(t, c, source) })
	return c, source
}

func currentLoopDone(c *Clock) <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loopDone
}

// stopAndWait stops c and advances source until the loop goroutine
// exits.
func stopAndWait(t *testing.T, c *Clock, source *clock.FakeClock) {
	t.Helper()
	done := currentLoopDone(c)
	c.Stop()
	if done == nil {
		return
	}
	deadline := time.Now().Add(receiveTimeout)
	for {
		select {
		case <-done:
			return
		default:
		}
		if source.PendingCount() > 0 {
			source.Advance(time.Hour)
		}
		if time.Now().After(deadline) {
			t.Fatalf("tick loop did not exit within %v of Stop", receiveTimeout)
		}
		runtime.Gosched()
	}
}

// advanceTick waits for the loop to sleep and then advances by d.
func advanceTick(source *clock.FakeClock, d time.Duration) {
	source.WaitForTimers(1)
	source.Advance(d)
}

func resetInstance(t *testing.T) {
	t.Helper()
	instanceOnce = sync.Once{}
	instance = nil
	t.Cleanup(func() {
		if instance != nil {
			instance.Stop()
		}
		instanceOnce = sync.Once{}
		instance = nil
	})
}

func TestGetReturnsOneInstance(t *testing.T) {
	resetInstance(t)

	const callers = 32
	results := make([]*Clock, callers)
	var start, wg sync.WaitGroup
	start.Add(1)
	wg.Add(callers)
	for i := range callers {
		go func() {
			defer wg.Done()
			start.Wait()
			results[i] = Get()
		}()
	}
	start.Done()
	wg.Wait()

	for i, result := range results {
		if result == nil {
			t.Fatalf("caller %d got nil clock", i)
		}
		if result != results[0] {
			t.Fatalf("caller %d got %p, caller 0 got %p", i, result, results[0])
		}
	}
	if Get() != results[0] {
		t.Fatal("later Get returned a different clock")
	}
}

func TestGetDefaults(t *testing.T) {
	resetInstance(t)

	c := Get()
	if got := c.Period(); got != time.Second {
		t.Errorf("Period() = %v, want 1s", got)
	}
	if c.Running() {
		t.Error("fresh clock reports running")
	}
	if got := c.Listeners(); got != 0 {
		t.Errorf("Listeners() = %d, want 0", got)
	}
}

func TestSetRate(t *testing.T) {
	tests := []struct {
		name   string
		hz     float64
		period time.Duration
	}{
		{"one hertz", 1, time.Second},
		{"four hertz", 4, 250 * time.Millisecond},
		{"half hertz", 0.5, 2 * time.Second},
		{"sixty hertz", 60, 16666666 * time.Nanosecond},
		{"one kilohertz", 1000, time.Millisecond},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c, _ := testClock(t)
			if err := c.SetRate(test.hz); err != nil {
				t.Fatalf("SetRate(%v): %v", test.hz, err)
			}
			if got := c.Period(); got != test.period {
				t.Errorf("Period() = %v, want %v", got, test.period)
			}
			if got := c.Rate(); math.Abs(got-test.hz) > test.hz*1e-6 {
				t.Errorf("Rate() = %v, want %v", got, test.hz)
			}
		})
	}
}

func TestSetRateRejectsInvalid(t *testing.T) {
	for _, hz := range []float64{0, -1, -0.5, math.NaN(), math.Inf(1), math.Inf(-1), 1e10} {
		c, _ := testClock(t)
		if err := c.SetRate(4); err != nil {
			t.Fatalf("SetRate(4): %v", err)
		}

		err := c.SetRate(hz)
		if !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("SetRate(%v) error = %v, want ErrInvalidArgument", hz, err)
		}
		if got := c.Period(); got != 250*time.Millisecond {
			t.Errorf("SetRate(%v) changed period to %v", hz, got)
		}
	}
}

func TestRegisterIsIdempotent(t *testing.T) {
	c, _ := testClock(t)
	listener := newRecorder()

	for range 2 {
		if err := c.Register(listener); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}
	if got := c.Listeners(); got != 1 {
		t.Fatalf("Listeners() after double register = %d, want 1", got)
	}

	c.Unregister(newRecorder())
	if got := c.Listeners(); got != 1 {
		t.Fatalf("Unregister of non-member changed size to %d", got)
	}

	c.Unregister(listener)
	c.Unregister(listener)
	if got := c.Listeners(); got != 0 {
		t.Fatalf("Listeners() after unregister = %d, want 0", got)
	}
}

func TestRegisterIgnoresNil(t *testing.T) {
	c, _ := testClock(t)

	if err := c.Register(nil); err != nil {
		t.Fatalf("Register(nil): %v", err)
	}
	var typedNil *recorder
	if err := c.Register(typedNil); err != nil {
		t.Fatalf("Register(typed nil): %v", err)
	}
	c.Unregister(nil)
	if got := c.Listeners(); got != 0 {
		t.Fatalf("Listeners() = %d, want 0", got)
	}
}

func TestRegisterRejectsUncomparable(t *testing.T) {
	c, _ := testClock(t)

	err := c.Register(uncomparableListener{"a"})
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("Register(uncomparable) error = %v, want ErrInvalidArgument", err)
	}
	c.Unregister(uncomparableListener{"a"})
	if got := c.Listeners(); got != 0 {
		t.Fatalf("Listeners() = %d, want 0", got)
	}
}

func TestListenerFuncIdentity(t *testing.T) {
	c, _ := testClock(t)
	handler := func(Tick) error { return nil }

	first := NewListenerFunc(handler)
	second := NewListenerFunc(handler)
	if err := c.Register(first); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := c.Register(second); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if got := c.Listeners(); got != 2 {
		t.Fatalf("Listeners() = %d, want 2 distinct wrappers", got)
	}
	c.Unregister(first)
	if got := c.Listeners(); got != 1 {
		t.Fatalf("Listeners() after removing one wrapper = %d, want 1", got)
	}
}

func TestConcurrentRegistration(t *testing.T) {
	c, _ := testClock(t)

	const workers = 16
	listeners := make([]*recorder, workers)
	for i := range listeners {
		listeners[i] = newRecorder()
	}

	var wg sync.WaitGroup
	wg.Add(workers)
	for _, listener := range listeners {
		go func() {
			defer wg.Done()
			for range 50 {
				c.Register(listener)
				c.Unregister(listener)
			}
			c.Register(listener)
		}()
	}
	wg.Wait()

	if got := c.Listeners(); got != workers {
		t.Fatalf("Listeners() = %d, want %d", got, workers)
	}
}
