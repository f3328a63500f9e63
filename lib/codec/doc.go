// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec is the single CBOR configuration used by tickclock's
// wire formats: the control socket, the tick stream, and the tick
// journal.
//
// Encoding follows Core Deterministic Encoding (RFC 8949 §4.2), so the
// same value always produces the same bytes. Timestamps are written as
// RFC 3339 text with nanoseconds; tick times are compared exactly in
// tests and by the journal reader, and the default integer-seconds
// form would truncate them.
//
// Buffers:
//
//	data, err := codec.Marshal(tick)
//	err = codec.Unmarshal(data, &tick)
//
// Streams, where CBOR's self-delimiting items need no extra framing:
//
//	encoder := codec.NewEncoder(conn)
//	decoder := codec.NewDecoder(conn)
package codec
