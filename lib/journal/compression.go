// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package journal

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects how a journal is stored on disk.
type Compression uint8

const (
	// CompressionNone writes plain concatenated CBOR.
	CompressionNone Compression = iota

	// CompressionZstd wraps the records in one zstd stream at the
	// default level. Tick records compress well because consecutive
	// records differ only in a few bytes.
	CompressionZstd

	// CompressionLZ4 wraps the records in one LZ4 frame. Cheaper on
	// CPU than zstd at a worse ratio.
	CompressionLZ4
)

// String returns the configuration name of the compression.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", c)
	}
}

// ParseCompression parses a configuration name.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "none", "":
		return CompressionNone, nil
	case "zstd":
		return CompressionZstd, nil
	case "lz4":
		return CompressionLZ4, nil
	default:
		return 0, fmt.Errorf("unknown journal compression: %q", name)
	}
}

var (
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	lz4Magic  = []byte{0x04, 0x22, 0x4d, 0x18}
)

// compressor wraps w for the given compression. Closing the result
// finishes the compressed stream but does not close w.
func compressor(w io.Writer, compression Compression) (io.WriteCloser, error) {
	switch compression {
	case CompressionNone:
		return nopWriteCloser{w}, nil
	case CompressionZstd:
		encoder, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("creating zstd encoder: %w", err)
		}
		return encoder, nil
	case CompressionLZ4:
		return lz4.NewWriter(w), nil
	default:
		return nil, fmt.Errorf("unsupported journal compression: %v", compression)
	}
}

// decompressor sniffs the leading bytes of r and returns a reader of
// the plain record stream and a function releasing the decoder.
func decompressor(r io.Reader) (io.Reader, func(), error) {
	buffered := bufio.NewReader(r)
	magic, err := buffered.Peek(4)
	if err != nil && err != io.EOF {
		return nil, nil, fmt.Errorf("reading journal header: %w", err)
	}

	switch {
	case bytes.Equal(magic, zstdMagic):
		decoder, err := zstd.NewReader(buffered)
		if err != nil {
			return nil, nil, fmt.Errorf("creating zstd decoder: %w", err)
		}
		return decoder, decoder.Close, nil
	case bytes.Equal(magic, lz4Magic):
		return lz4.NewReader(buffered), func() {}, nil
	default:
		return buffered, func() {}, nil
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
