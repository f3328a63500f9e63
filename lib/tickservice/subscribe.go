// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tickservice

import (
	"context"
	"errors"
	"io"
	"net"
	"sync/atomic"

	"github.com/bureau-foundation/tickclock/lib/codec"
	"github.com/bureau-foundation/tickclock/lib/gameclock"
)

// subscriberBufferSize is how many ticks may queue for one subscriber
// before further ticks are dropped.
const subscriberBufferSize = 16

// Frame types on the subscribe stream.
const (
	FrameReady = "ready"
	FrameTick  = "tick"
)

// Frame is one item on the subscribe stream. The first frame is always
// FrameReady, written once the subscriber is registered; every later
// frame is FrameTick.
type Frame struct {
	Type string          `cbor:"type"`
	Tick *gameclock.Tick `cbor:"tick,omitempty"`

	// Dropped counts ticks this subscriber has lost so far.
	Dropped uint64 `cbor:"dropped,omitempty"`
}

// subscriber is a Listener that queues ticks for one stream
// connection without blocking the broadcast.
type subscriber struct {
	ticks   chan gameclock.Tick
	dropped atomic.Uint64
}

func newSubscriber() *subscriber {
	return &subscriber{ticks: make(chan gameclock.Tick, subscriberBufferSize)}
}

func (s *subscriber) OnTick(tick gameclock.Tick) error {
	select {
	case s.ticks <- tick:
	default:
		s.dropped.Add(1)
	}
	return nil
}

// handleSubscribe streams ticks until the client disconnects, a write
// fails, or the server shuts down.
func (h *Handlers) handleSubscribe(ctx context.Context, _ []byte, conn net.Conn) {
	sub := newSubscriber()
	if err := h.controller.Register(sub); err != nil {
		h.logger.Error("subscribe: registering listener", "error", err)
		return
	}
	defer h.controller.Unregister(sub)

	encoder := codec.NewEncoder(conn)
	if err := encoder.Encode(Frame{Type: FrameReady}); err != nil {
		h.logger.Debug("subscribe: failed to write ready frame", "error", err)
		return
	}
	h.logger.Debug("tick subscriber connected")

	// Subscribers send nothing after the request, so any read result
	// means the client is gone.
	readerDone := make(chan error, 1)
	go func() {
		_, err := io.Copy(io.Discard, conn)
		readerDone <- err
	}()

	handlerDone := make(chan struct{})
	defer close(handlerDone)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-handlerDone:
		}
	}()

	for {
		select {
		case tick := <-sub.ticks:
			frame := Frame{Type: FrameTick, Tick: &tick, Dropped: sub.dropped.Load()}
			if err := encoder.Encode(frame); err != nil {
				h.logger.Debug("subscribe: failed to write tick", "error", err)
				return
			}
		case err := <-readerDone:
			if err != nil && !errors.Is(err, net.ErrClosed) && ctx.Err() == nil {
				h.logger.Debug("subscribe: client read error", "error", err)
			}
			h.logger.Debug("tick subscriber disconnected", "dropped", sub.dropped.Load())
			return
		case <-ctx.Done():
			return
		}
	}
}
