// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package eventlog persists search progress and result events as an
// append-only log of deterministic CBOR records, optionally compressed
// per record. The log is a post-hoc audit artifact: every capability
// toggle, probe, and observation outcome of a search can be replayed
// from it.
//
// File layout: a 5-byte header ("LTEL" + format version), then a
// sequence of records. Each record is a 1-byte compression tag, a
// uint32 compressed length, a uint32 uncompressed length (both
// big-endian), and the payload.
package eventlog

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/bureau-foundation/leaktrace/lib/codec"
)

var magic = [5]byte{'L', 'T', 'E', 'L', 1}

// maxRecordSize bounds a single decoded record. Progress events are
// tiny; anything larger indicates a corrupt or hostile file.
const maxRecordSize = 16 << 20

// Writer appends CBOR records to an event log.
type Writer struct {
	destination io.Writer
	closer      io.Closer
	tag         CompressionTag
}

// Create opens (truncating) an event log file for writing.
func Create(path string, tag CompressionTag) (*Writer, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("eventlog: creating %s: %w", path, err)
	}
	writer, err := NewWriter(file, tag)
	if err != nil {
		file.Close()
		return nil, err
	}
	writer.closer = file
	return writer, nil
}

// NewWriter starts an event log on destination and writes the header.
func NewWriter(destination io.Writer, tag CompressionTag) (*Writer, error) {
	if _, err := destination.Write(magic[:]); err != nil {
		return nil, fmt.Errorf("eventlog: writing header: %w", err)
	}
	return &Writer{destination: destination, tag: tag}, nil
}

// Append encodes record as deterministic CBOR and writes it to the
// log. If the configured compression does not shrink the record, it is
// stored uncompressed; the per-record tag records what happened.
func (w *Writer) Append(record any) error {
	encoded, err := codec.Marshal(record)
	if err != nil {
		return fmt.Errorf("eventlog: encoding record: %w", err)
	}

	tag := w.tag
	payload, err := compress(encoded, tag)
	if err != nil {
		if !isIncompressible(err) {
			return fmt.Errorf("eventlog: compressing record: %w", err)
		}
		tag = CompressionNone
		payload = encoded
	}

	var header [9]byte
	header[0] = byte(tag)
	binary.BigEndian.PutUint32(header[1:5], uint32(len(payload)))
	binary.BigEndian.PutUint32(header[5:9], uint32(len(encoded)))

	if _, err := w.destination.Write(header[:]); err != nil {
		return fmt.Errorf("eventlog: writing record header: %w", err)
	}
	if _, err := w.destination.Write(payload); err != nil {
		return fmt.Errorf("eventlog: writing record payload: %w", err)
	}
	return nil
}

// Close closes the underlying file, if the writer owns one.
func (w *Writer) Close() error {
	if w.closer == nil {
		return nil
	}
	return w.closer.Close()
}

// Reader replays records from an event log.
type Reader struct {
	source io.Reader
	closer io.Closer
}

// Open opens an event log file for reading.
func Open(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("eventlog: opening %s: %w", path, err)
	}
	reader, err := NewReader(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	reader.closer = file
	return reader, nil
}

// NewReader validates the header and prepares to replay records.
func NewReader(source io.Reader) (*Reader, error) {
	var header [5]byte
	if _, err := io.ReadFull(source, header[:]); err != nil {
		return nil, fmt.Errorf("eventlog: reading header: %w", err)
	}
	if header != magic {
		return nil, fmt.Errorf("eventlog: bad header %q", header[:])
	}
	return &Reader{source: source}, nil
}

// Next decodes the next record into out. Returns io.EOF after the
// last record.
func (r *Reader) Next(out any) error {
	var header [9]byte
	if _, err := io.ReadFull(r.source, header[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return io.EOF
		}
		return fmt.Errorf("eventlog: reading record header: %w", err)
	}

	tag := CompressionTag(header[0])
	compressedSize := binary.BigEndian.Uint32(header[1:5])
	uncompressedSize := binary.BigEndian.Uint32(header[5:9])
	if compressedSize > maxRecordSize || uncompressedSize > maxRecordSize {
		return fmt.Errorf("eventlog: record size %d/%d exceeds limit", compressedSize, uncompressedSize)
	}

	payload := make([]byte, compressedSize)
	if _, err := io.ReadFull(r.source, payload); err != nil {
		return fmt.Errorf("eventlog: reading record payload: %w", err)
	}

	decoded, err := decompress(payload, tag, int(uncompressedSize))
	if err != nil {
		return fmt.Errorf("eventlog: %w", err)
	}

	if err := codec.Unmarshal(decoded, out); err != nil {
		return fmt.Errorf("eventlog: decoding record: %w", err)
	}
	return nil
}

// Close closes the underlying file, if the reader owns one.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}
