// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/bureau-foundation/tickclock/lib/codec"
)

// ActionFunc handles a request/response action. raw is the complete
// CBOR request, including the "action" field.
//
// A non-nil result is marshaled into the response's Data field. A
// non-nil error becomes {ok: false, error: err.Error()}.
type ActionFunc func(ctx context.Context, raw []byte) (any, error)

// StreamFunc handles a streaming action. The success envelope has
// already been written when it is called. The handler owns conn until
// it returns and should return promptly once ctx is cancelled; the
// server closes conn afterwards.
type StreamFunc func(ctx context.Context, raw []byte, conn net.Conn)

// Response is the envelope written for every request/response action
// and at the start of every stream.
type Response struct {
	OK    bool             `cbor:"ok"`
	Error string           `cbor:"error,omitempty"`
	Data  codec.RawMessage `cbor:"data,omitempty"`
}

// SocketServer serves registered actions on a Unix socket.
type SocketServer struct {
	socketPath string
	logger     *slog.Logger

	handlers       map[string]ActionFunc
	streamHandlers map[string]StreamFunc

	// activeConnections lets Serve wait for in-flight handlers before
	// returning.
	activeConnections sync.WaitGroup
}

// NewSocketServer creates a server for socketPath. Register actions
// before calling Serve.
func NewSocketServer(socketPath string, logger *slog.Logger) *SocketServer {
	return &SocketServer{
		socketPath:     socketPath,
		logger:         logger,
		handlers:       make(map[string]ActionFunc),
		streamHandlers: make(map[string]StreamFunc),
	}
}

// Handle registers a request/response action. Panics if the action
// name is already taken.
func (s *SocketServer) Handle(action string, handler ActionFunc) {
	s.checkUnregistered(action)
	s.handlers[action] = handler
}

// HandleStream registers a streaming action. Panics if the action name
// is already taken.
func (s *SocketServer) HandleStream(action string, handler StreamFunc) {
	s.checkUnregistered(action)
	s.streamHandlers[action] = handler
}

func (s *SocketServer) checkUnregistered(action string) {
	_, plain := s.handlers[action]
	_, stream := s.streamHandlers[action]
	if plain || stream {
		panic(fmt.Sprintf("service.SocketServer: duplicate handler for action %q", action))
	}
}

// Serve accepts connections until ctx is cancelled, then waits for
// active handlers to return. A stale socket file at the path is
// removed first; the socket file is removed on return.
func (s *SocketServer) Serve(ctx context.Context) error {
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale socket %s: %w", s.socketPath, err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.socketPath, err)
	}
	defer func() {
		listener.Close()
		os.Remove(s.socketPath)
	}()

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	s.logger.Info("socket server listening", "path", s.socketPath)

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			s.logger.Error("accept failed", "error", err)
			continue
		}

		s.activeConnections.Add(1)
		go func() {
			defer s.activeConnections.Done()
			s.handleConnection(ctx, conn)
		}()
	}

	s.activeConnections.Wait()
	return nil
}

const (
	// readTimeout bounds how long a client may take to send its
	// request after connecting.
	readTimeout = 10 * time.Second

	// writeTimeout bounds each envelope write.
	writeTimeout = 10 * time.Second

	// maxRequestSize caps a request. Control requests are a few
	// dozen bytes.
	maxRequestSize = 64 * 1024
)

func (s *SocketServer) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(readTimeout))

	var raw codec.RawMessage
	if err := codec.NewDecoder(io.LimitReader(conn, maxRequestSize)).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return
		}
		s.writeError(conn, fmt.Sprintf("invalid request: %v", err))
		return
	}

	var header struct {
		Action string `cbor:"action"`
	}
	if err := codec.Unmarshal(raw, &header); err != nil {
		s.writeError(conn, fmt.Sprintf("invalid request: %v", err))
		return
	}
	if header.Action == "" {
		s.writeError(conn, "missing required field: action")
		return
	}

	if streamHandler, ok := s.streamHandlers[header.Action]; ok {
		conn.SetReadDeadline(time.Time{})
		if !s.writeSuccess(conn, nil) {
			return
		}
		conn.SetWriteDeadline(time.Time{})
		streamHandler(ctx, []byte(raw), conn)
		return
	}

	handler, ok := s.handlers[header.Action]
	if !ok {
		s.writeError(conn, fmt.Sprintf("unknown action %q", header.Action))
		return
	}

	result, err := handler(ctx, []byte(raw))
	if err != nil {
		s.logger.Debug("action failed",
			"action", header.Action,
			"error", err,
		)
		s.writeError(conn, err.Error())
		return
	}
	s.writeSuccess(conn, result)
}

func (s *SocketServer) writeError(conn net.Conn, message string) {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := codec.NewEncoder(conn).Encode(Response{OK: false, Error: message}); err != nil {
		s.logger.Debug("failed to write error response", "error", err)
	}
}

// writeSuccess writes {ok: true} with result marshaled into Data when
// non-nil. Reports whether the envelope was written.
func (s *SocketServer) writeSuccess(conn net.Conn, result any) bool {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))

	response := Response{OK: true}
	if result != nil {
		data, err := codec.Marshal(result)
		if err != nil {
			s.writeError(conn, fmt.Sprintf("internal: marshaling response: %v", err))
			return false
		}
		response.Data = data
	}

	if err := codec.NewEncoder(conn).Encode(response); err != nil {
		s.logger.Debug("failed to write success response", "error", err)
		return false
	}
	return true
}
