// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package gameclock

import (
	"fmt"
	"reflect"
	"slices"
	"sync"
)

// registry is a copy-on-write listener set. The slice held in
// listeners is never modified after it is published, so snapshot can
// hand it out without copying and a broadcast never sees a partial
// update.
type registry struct {
	mu        sync.Mutex
	listeners []Listener
}

// add inserts listener unless it is nil or already present. Reports
// whether the set changed.
func (r *registry) add(listener Listener) (bool, error) {
	if isNil(listener) {
		return false, nil
	}
	if !reflect.TypeOf(listener).Comparable() {
		return false, fmt.Errorf("%w: listener type %T is not comparable; register a pointer instead",
			ErrInvalidArgument, listener)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if slices.Contains(r.listeners, listener) {
		return false, nil
	}
	next := make([]Listener, len(r.listeners), len(r.listeners)+1)
	copy(next, r.listeners)
	r.listeners = append(next, listener)
	return true, nil
}

// remove deletes listener if present. Reports whether the set changed.
func (r *registry) remove(listener Listener) bool {
	if isNil(listener) || !reflect.TypeOf(listener).Comparable() {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	index := slices.Index(r.listeners, listener)
	if index < 0 {
		return false
	}
	next := make([]Listener, 0, len(r.listeners)-1)
	next = append(next, r.listeners[:index]...)
	r.listeners = append(next, r.listeners[index+1:]...)
	return true
}

// snapshot returns the current set. Callers must not modify it.
func (r *registry) snapshot() []Listener {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listeners
}

func (r *registry) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.listeners)
}

// isNil reports whether listener is a nil interface or a typed nil
// pointer.
func isNil(listener Listener) bool {
	if listener == nil {
		return true
	}
	value := reflect.ValueOf(listener)
	return value.Kind() == reflect.Pointer && value.IsNil()
}
