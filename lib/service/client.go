// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/bureau-foundation/tickclock/lib/codec"
)

// dialTimeout covers only the connect phase.
const dialTimeout = 5 * time.Second

// responseReadTimeout is how long the client waits for the response
// envelope after writing the request.
const responseReadTimeout = 20 * time.Second

// maxResponseSize caps a single response envelope.
const maxResponseSize = 1024 * 1024

// ServiceError is returned when the server responds with ok=false.
type ServiceError struct {
	Action  string
	Message string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("service error on %q: %s", e.Action, e.Message)
}

// ServiceClient sends CBOR requests to a tickclock control socket.
// Every request opens its own connection.
type ServiceClient struct {
	socketPath string
}

// NewServiceClient returns a client for socketPath. Nothing is dialed
// until the first request.
func NewServiceClient(socketPath string) *ServiceClient {
	return &ServiceClient{socketPath: socketPath}
}

// SocketPath returns the socket this client dials.
func (c *ServiceClient) SocketPath() string {
	return c.socketPath
}

// Call sends a request and decodes the response.
//
// fields holds action-specific request fields and may be nil; it must
// not contain an "action" key. On success, if result is non-nil and
// the response carries data, the data is decoded into result. A
// failure response is returned as a *ServiceError; connection and
// encoding errors are returned as plain errors.
func (c *ServiceClient) Call(ctx context.Context, action string, fields map[string]any, result any) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return fmt.Errorf("calling %q on %s: %w", action, c.socketPath, err)
	}
	defer conn.Close()

	if err := codec.NewEncoder(conn).Encode(buildRequest(action, fields)); err != nil {
		return fmt.Errorf("calling %q on %s: writing request: %w", action, c.socketPath, err)
	}
	// CBOR is self-delimiting; the half-close just lets the server
	// see EOF cleanly.
	if unixConn, ok := conn.(*net.UnixConn); ok {
		unixConn.CloseWrite()
	}

	response, err := readResponse(conn)
	if err != nil {
		return fmt.Errorf("calling %q on %s: %w", action, c.socketPath, err)
	}
	if !response.OK {
		return &ServiceError{Action: action, Message: response.Error}
	}

	if result != nil && len(response.Data) > 0 {
		if err := codec.Unmarshal(response.Data, result); err != nil {
			return fmt.Errorf("decoding response data for %q: %w", action, err)
		}
	}
	return nil
}

// Stream opens a streaming action. After the server accepts the
// request, the returned Stream yields the items the handler writes.
// Closing the Stream tells the server the subscriber is gone.
//
// Cancelling ctx after Stream returns closes the connection, which
// unblocks a pending Next.
func (c *ServiceClient) Stream(ctx context.Context, action string, fields map[string]any) (*Stream, error) {
	conn, err := c.dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("streaming %q from %s: %w", action, c.socketPath, err)
	}

	if err := codec.NewEncoder(conn).Encode(buildRequest(action, fields)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("streaming %q from %s: writing request: %w", action, c.socketPath, err)
	}

	// The write side stays open: the server watches it to notice the
	// subscriber going away.
	conn.SetReadDeadline(time.Now().Add(responseReadTimeout))
	decoder := codec.NewDecoder(conn)
	var response Response
	if err := decoder.Decode(&response); err != nil {
		conn.Close()
		return nil, fmt.Errorf("streaming %q from %s: reading response: %w", action, c.socketPath, err)
	}
	if !response.OK {
		conn.Close()
		return nil, &ServiceError{Action: action, Message: response.Error}
	}
	conn.SetReadDeadline(time.Time{})

	stream := &Stream{conn: conn, decoder: decoder, done: make(chan struct{})}
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stream.done:
		}
	}()
	return stream, nil
}

// Stream is an open streaming response.
type Stream struct {
	conn    net.Conn
	decoder *codec.Decoder
	done    chan struct{}
}

// Next decodes the next streamed item into value. Returns io.EOF when
// the server ends the stream.
func (s *Stream) Next(value any) error {
	return s.decoder.Decode(value)
}

// Close ends the stream.
func (s *Stream) Close() error {
	select {
	case <-s.done:
		return nil
	default:
		close(s.done)
	}
	return s.conn.Close()
}

func (c *ServiceClient) dial(ctx context.Context) (net.Conn, error) {
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return nil, fmt.Errorf("connecting: %w", err)
	}
	return conn, nil
}

func buildRequest(action string, fields map[string]any) map[string]any {
	request := make(map[string]any, len(fields)+1)
	for key, value := range fields {
		request[key] = value
	}
	request["action"] = action
	return request
}

func readResponse(conn net.Conn) (*Response, error) {
	conn.SetReadDeadline(time.Now().Add(responseReadTimeout))
	var response Response
	if err := codec.NewDecoder(io.LimitReader(conn, maxResponseSize)).Decode(&response); err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	return &response, nil
}
