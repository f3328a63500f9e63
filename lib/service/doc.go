// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package service is the CBOR-over-Unix-socket transport used by the
// tickclock daemon and its command-line clients.
//
// Every connection carries one request: a CBOR map with an "action"
// field plus action-specific fields. What follows depends on how the
// action was registered:
//
//   - [SocketServer.Handle]: the server writes one [Response] envelope
//     and closes the connection.
//   - [SocketServer.HandleStream]: the server writes a success envelope
//     and hands the connection to the handler, which writes a stream
//     of CBOR items until it returns.
//
// Unknown actions and malformed requests get a failure envelope in both
// cases. CBOR items are self-delimiting, so there is no extra framing.
//
// [ServiceClient] is the client side: Call for request/response
// actions and Stream for streaming ones.
//
// There is no authentication. The socket's filesystem permissions
// decide who may connect.
package service
