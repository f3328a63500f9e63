// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package journal

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/bureau-foundation/tickclock/lib/codec"
	"github.com/bureau-foundation/tickclock/lib/gameclock"
)

// ErrClosed is returned by OnTick and Flush after Close.
var ErrClosed = errors.New("journal: closed")

// Record is one journaled tick.
type Record struct {
	Sequence uint64    `cbor:"sequence"`
	At       time.Time `cbor:"at"`
	PeriodNS int64     `cbor:"period_ns"`
}

// Period returns PeriodNS as a duration.
func (r Record) Period() time.Duration {
	return time.Duration(r.PeriodNS)
}

// Journal is a gameclock.Listener that writes a Record per tick.
type Journal struct {
	path        string
	compression Compression

	mu         sync.Mutex
	file       *os.File
	compressor io.WriteCloser
	buffer     *bufio.Writer
	encoder    *codec.Encoder
	records    uint64
	closed     bool
}

// Create creates or truncates the journal at path.
func Create(path string, compression Compression) (*Journal, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("creating journal %s: %w", path, err)
	}
	compressed, err := compressor(file, compression)
	if err != nil {
		file.Close()
		return nil, err
	}
	buffer := bufio.NewWriter(compressed)
	return &Journal{
		path:        path,
		compression: compression,
		file:        file,
		compressor:  compressed,
		buffer:      buffer,
		encoder:     codec.NewEncoder(buffer),
	}, nil
}

// Path returns the file the journal writes to.
func (j *Journal) Path() string {
	return j.path
}

// OnTick appends a record for tick.
func (j *Journal) OnTick(tick gameclock.Tick) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return ErrClosed
	}
	record := Record{
		Sequence: tick.Sequence,
		At:       tick.At,
		PeriodNS: int64(tick.Period),
	}
	if err := j.encoder.Encode(record); err != nil {
		return fmt.Errorf("writing journal record %d: %w", tick.Sequence, err)
	}
	j.records++
	return nil
}

// Records returns how many records have been written.
func (j *Journal) Records() uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.records
}

// Flush pushes buffered records to the compressor. With compression
// enabled, data can remain inside the compressor until Close.
func (j *Journal) Flush() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return ErrClosed
	}
	if err := j.buffer.Flush(); err != nil {
		return fmt.Errorf("flushing journal %s: %w", j.path, err)
	}
	return nil
}

// Close finishes the journal. Further OnTick calls return ErrClosed.
// Closing twice is a no-op.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	j.closed = true

	var errs []error
	if err := j.buffer.Flush(); err != nil {
		errs = append(errs, fmt.Errorf("flushing journal: %w", err))
	}
	if err := j.compressor.Close(); err != nil {
		errs = append(errs, fmt.Errorf("finishing %s stream: %w", j.compression, err))
	}
	if err := j.file.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing journal file: %w", err))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("closing journal %s: %w", j.path, err)
	}
	return nil
}

// Read decodes the journal at path and calls fn for each record in
// file order. It stops at the first error from fn and returns it.
func Read(path string, fn func(Record) error) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening journal %s: %w", path, err)
	}
	defer file.Close()

	reader, release, err := decompressor(file)
	if err != nil {
		return fmt.Errorf("reading journal %s: %w", path, err)
	}
	defer release()

	decoder := codec.NewDecoder(reader)
	for index := 0; ; index++ {
		var record Record
		if err := decoder.Decode(&record); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("reading journal %s: record %d: %w", path, index, err)
		}
		if err := fn(record); err != nil {
			return err
		}
	}
}
