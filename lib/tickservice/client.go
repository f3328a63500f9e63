// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tickservice

import (
	"context"
	"fmt"

	"github.com/bureau-foundation/tickclock/lib/service"
)

// Client calls the control actions of a running tickclock daemon.
type Client struct {
	service *service.ServiceClient
}

// NewClient returns a client for the control socket at socketPath.
func NewClient(socketPath string) *Client {
	return &Client{service: service.NewServiceClient(socketPath)}
}

// SocketPath returns the control socket the client dials.
func (c *Client) SocketPath() string {
	return c.service.SocketPath()
}

// Status returns the daemon's clock status.
func (c *Client) Status(ctx context.Context) (Status, error) {
	return c.call(ctx, "status", nil)
}

// SetRate changes the tick frequency and returns the resulting status.
func (c *Client) SetRate(ctx context.Context, hz float64) (Status, error) {
	return c.call(ctx, "set-rate", map[string]any{"rate_hz": hz})
}

// Start starts the tick loop and returns the resulting status.
func (c *Client) Start(ctx context.Context) (Status, error) {
	return c.call(ctx, "start", nil)
}

// Stop stops the tick loop and returns the resulting status.
func (c *Client) Stop(ctx context.Context) (Status, error) {
	return c.call(ctx, "stop", nil)
}

func (c *Client) call(ctx context.Context, action string, fields map[string]any) (Status, error) {
	var status Status
	if err := c.service.Call(ctx, action, fields, &status); err != nil {
		return Status{}, err
	}
	return status, nil
}

// Subscription is an open tick stream.
type Subscription struct {
	stream *service.Stream
}

// Subscribe opens a tick stream. It returns once the daemon has
// registered the subscriber, so every tick fired after Subscribe
// returns is either delivered or counted as dropped.
func (c *Client) Subscribe(ctx context.Context) (*Subscription, error) {
	stream, err := c.service.Stream(ctx, "subscribe", nil)
	if err != nil {
		return nil, err
	}
	var ready Frame
	if err := stream.Next(&ready); err != nil {
		stream.Close()
		return nil, fmt.Errorf("reading subscribe ready frame: %w", err)
	}
	if ready.Type != FrameReady {
		stream.Close()
		return nil, fmt.Errorf("subscribe: expected %q frame, got %q", FrameReady, ready.Type)
	}
	return &Subscription{stream: stream}, nil
}

// Next blocks for the next tick frame. Returns io.EOF when the daemon
// ends the stream.
func (s *Subscription) Next() (Frame, error) {
	var frame Frame
	if err := s.stream.Next(&frame); err != nil {
		return Frame{}, err
	}
	return frame, nil
}

// Close ends the subscription.
func (s *Subscription) Close() error {
	return s.stream.Close()
}
