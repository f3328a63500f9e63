// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package journal records ticks to a file.
//
// A journal is a sequence of CBOR [Record] values, optionally wrapped
// in a single zstd or LZ4 stream. [Journal] is a gameclock listener
// that appends one record per tick; [Read] decodes a journal and
// detects the compression from the file's leading magic bytes.
//
// Overlapping broadcasts may call OnTick concurrently, so records are
// not guaranteed to appear in sequence order. Sort by Sequence when
// order matters.
package journal
