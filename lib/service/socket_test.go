// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/tickclock/lib/codec"
	"github.com/bureau-foundation/tickclock/lib/testutil"
)

// sendRequest connects to a Unix socket, sends a CBOR request, and
// returns the decoded response envelope.
func sendRequest(t *testing.T, socketPath string, request any) Response {
	t.Helper()

	conn, err := net.DialTimeout("unix", socketPath, 5*time.Second)
	if err != nil {
		t.Fatalf("connecting to socket: %v", err)
	}
	defer conn.Close()

	if err := codec.NewEncoder(conn).Encode(request); err != nil {
		t.Fatalf("writing request: %v", err)
	}
	if unixConn, ok := conn.(*net.UnixConn); ok {
		unixConn.CloseWrite()
	}

	var response Response
	if err := codec.NewDecoder(conn).Decode(&response); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return response
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

// startServer runs server until the test ends and waits for its
// socket to appear.
func startServer(t *testing.T, server *SocketServer, socketPath string) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	serveDone := make(chan error, 1)
	go func() {
		serveDone <- server.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		if err := testutil.RequireReceive(t, serveDone, 5*time.Second, "Serve did not return"); err != nil {
			t.Errorf("Serve returned error: %v", err)
		}
	})
	testutil.WaitForSocket(t, socketPath)
}

func TestSocketServerStatus(t *testing.T) {
	socketPath := testutil.SocketPath(t, "control.sock")
	server := NewSocketServer(socketPath, testLogger())
	server.Handle("status", func(ctx context.Context, raw []byte) (any, error) {
		return map[string]any{"running": true, "ticks": 42}, nil
	})
	startServer(t, server, socketPath)

	response := sendRequest(t, socketPath, map[string]string{"action": "status"})
	if !response.OK {
		t.Fatalf("expected ok=true, got error %q", response.Error)
	}

	var data map[string]any
	if err := codec.Unmarshal(response.Data, &data); err != nil {
		t.Fatalf("decoding data: %v", err)
	}
	if data["running"] != true {
		t.Errorf("running = %v", data["running"])
	}
	if data["ticks"] != uint64(42) {
		t.Errorf("ticks = %v (%T)", data["ticks"], data["ticks"])
	}
}

func TestSocketServerRequestErrors(t *testing.T) {
	socketPath := testutil.SocketPath(t, "control.sock")
	server := NewSocketServer(socketPath, testLogger())
	server.Handle("fail", func(ctx context.Context, raw []byte) (any, error) {
		return nil, errors.New("rate must be positive")
	})
	startServer(t, server, socketPath)

	tests := []struct {
		name    string
		request any
		want    string
	}{
		{"unknown action", map[string]string{"action": "launch"}, `unknown action "launch"`},
		{"missing action", map[string]string{"rate": "4"}, "missing required field: action"},
		{"not a map", "status", "invalid request"},
		{"handler error", map[string]string{"action": "fail"}, "rate must be positive"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			response := sendRequest(t, socketPath, test.request)
			if response.OK {
				t.Fatal("expected ok=false")
			}
			if !strings.Contains(response.Error, test.want) {
				t.Errorf("error = %q, want mention of %q", response.Error, test.want)
			}
		})
	}
}

func TestSocketServerNilResult(t *testing.T) {
	socketPath := testutil.SocketPath(t, "control.sock")
	server := NewSocketServer(socketPath, testLogger())
	server.Handle("stop", func(ctx context.Context, raw []byte) (any, error) {
		return nil, nil
	})
	startServer(t, server, socketPath)

	response := sendRequest(t, socketPath, map[string]string{"action": "stop"})
	if !response.OK {
		t.Fatalf("expected ok=true, got error %q", response.Error)
	}
	if len(response.Data) != 0 {
		t.Errorf("expected empty data, got %d bytes", len(response.Data))
	}
}

func TestSocketServerConcurrentRequests(t *testing.T) {
	socketPath := testutil.SocketPath(t, "control.sock")
	server := NewSocketServer(socketPath, testLogger())
	server.Handle("echo", func(ctx context.Context, raw []byte) (any, error) {
		var request struct {
			Value int `cbor:"value"`
		}
		if err := codec.Unmarshal(raw, &request); err != nil {
			return nil, err
		}
		return map[string]int{"value": request.Value}, nil
	})
	startServer(t, server, socketPath)

	const clients = 16
	var wg sync.WaitGroup
	wg.Add(clients)
	for i := range clients {
		go func() {
			defer wg.Done()
			response := sendRequest(t, socketPath, map[string]any{"action": "echo", "value": i})
			var data struct {
				Value int `cbor:"value"`
			}
			if err := codec.Unmarshal(response.Data, &data); err != nil {
				t.Errorf("client %d: decoding data: %v", i, err)
				return
			}
			if data.Value != i {
				t.Errorf("client %d: got value %d", i, data.Value)
			}
		}()
	}
	wg.Wait()
}

func TestSocketServerGracefulShutdown(t *testing.T) {
	socketPath := testutil.SocketPath(t, "control.sock")
	server := NewSocketServer(socketPath, testLogger())

	handlerStarted := make(chan struct{})
	handlerRelease := make(chan struct{})
	server.Handle("slow", func(ctx context.Context, raw []byte) (any, error) {
		close(handlerStarted)
		<-handlerRelease
		return map[string]any{"completed": true}, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	serveDone := make(chan error, 1)
	go func() {
		serveDone <- server.Serve(ctx)
	}()
	testutil.WaitForSocket(t, socketPath)

	responses := make(chan Response, 1)
	go func() {
		responses <- sendRequest(t, socketPath, map[string]string{"action": "slow"})
	}()

	<-handlerStarted
	close(handlerRelease)
	cancel()

	response := testutil.RequireReceive(t, responses, 5*time.Second, "in-flight request did not complete")
	if !response.OK {
		t.Errorf("expected ok=true for in-flight request, got %q", response.Error)
	}
	if err := testutil.RequireReceive(t, serveDone, 5*time.Second, "Serve did not return after cancellation"); err != nil {
		t.Errorf("Serve returned error: %v", err)
	}
	if _, err := os.Stat(socketPath); !os.IsNotExist(err) {
		t.Error("socket file not cleaned up after Serve returned")
	}
}

func TestSocketServerDuplicateHandlerPanics(t *testing.T) {
	server := NewSocketServer("/tmp/unused.sock", testLogger())
	server.Handle("status", func(ctx context.Context, raw []byte) (any, error) { return nil, nil })

	defer func() {
		if recover() == nil {
			t.Error("expected panic for action registered as both plain and stream")
		}
	}()
	server.HandleStream("status", func(ctx context.Context, raw []byte, conn net.Conn) {})
}

func TestSocketServerStreamHandler(t *testing.T) {
	socketPath := testutil.SocketPath(t, "control.sock")
	server := NewSocketServer(socketPath, testLogger())
	server.HandleStream("subscribe", func(ctx context.Context, raw []byte, conn net.Conn) {
		encoder := codec.NewEncoder(conn)
		for i := range 3 {
			if err := encoder.Encode(map[string]int{"sequence": i}); err != nil {
				return
			}
		}
	})
	startServer(t, server, socketPath)

	conn, err := net.DialTimeout("unix", socketPath, 5*time.Second)
	if err != nil {
		t.Fatalf("connecting: %v", err)
	}
	defer conn.Close()
	if err := codec.NewEncoder(conn).Encode(map[string]string{"action": "subscribe"}); err != nil {
		t.Fatalf("writing request: %v", err)
	}

	decoder := codec.NewDecoder(conn)
	var envelope Response
	if err := decoder.Decode(&envelope); err != nil {
		t.Fatalf("reading envelope: %v", err)
	}
	if !envelope.OK {
		t.Fatalf("stream envelope not ok: %q", envelope.Error)
	}
	for i := range 3 {
		var frame map[string]int
		if err := decoder.Decode(&frame); err != nil {
			t.Fatalf("reading frame %d: %v", i, err)
		}
		if frame["sequence"] != i {
			t.Errorf("frame %d: sequence = %d", i, frame["sequence"])
		}
	}
	var extra any
	if err := decoder.Decode(&extra); !errors.Is(err, io.EOF) {
		t.Errorf("after last frame: err = %v, want EOF", err)
	}
}

func TestSocketServerStreamHandlerSeesShutdown(t *testing.T) {
	socketPath := testutil.SocketPath(t, "control.sock")
	server := NewSocketServer(socketPath, testLogger())
	handlerStarted := make(chan struct{})
	server.HandleStream("subscribe", func(ctx context.Context, raw []byte, conn net.Conn) {
		close(handlerStarted)
		<-ctx.Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	serveDone := make(chan error, 1)
	go func() {
		serveDone <- server.Serve(ctx)
	}()
	testutil.WaitForSocket(t, socketPath)

	client := NewServiceClient(socketPath)
	stream, err := client.Stream(context.Background(), "subscribe", nil)
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	defer stream.Close()

	testutil.RequireClosed(t, handlerStarted, 5*time.Second, "stream handler did not start")
	cancel()
	testutil.RequireReceive(t, serveDone, 5*time.Second, "Serve did not return with a stream open")

	var frame any
	if err := stream.Next(&frame); !errors.Is(err, io.EOF) {
		t.Errorf("Next after shutdown: err = %v, want EOF", err)
	}
}
