// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tracker

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/bureau-foundation/leaktrace/bisect"
	"github.com/bureau-foundation/leaktrace/lib/eventlog"
)

// LineSink emits machine-readable progress and result lines for host
// processes that drive the search as a subprocess. Progress events
// become "PROGRESS:" lines; the verdict becomes a "RESULT:" line, or
// "NORESULT:{}" when the search found nobody.
type LineSink struct {
	mu          sync.Mutex
	destination io.Writer
}

// NewLineSink creates a sink writing to destination (usually stdout).
func NewLineSink(destination io.Writer) *LineSink {
	return &LineSink{destination: destination}
}

func (s *LineSink) Progress(event bisect.Event) {
	s.emit("PROGRESS", event)
}

func (s *LineSink) Result(verdict *bisect.Verdict) {
	if verdict == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		fmt.Fprintln(s.destination, "NORESULT:{}")
		return
	}
	s.emit("RESULT", verdict)
}

func (s *LineSink) emit(prefix string, payload any) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		slog.Error("encoding sink payload", "prefix", prefix, "error", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.destination, "%s:%s\n", prefix, encoded)
}

// EventLogSink records progress and the verdict in an event log file
// for offline audit of a search.
type EventLogSink struct {
	mu     sync.Mutex
	writer *eventlog.Writer
	logger *slog.Logger
}

// logRecord is the on-disk shape of a sink entry. Exactly one of
// Progress and Verdict is set per record.
type logRecord struct {
	Kind     string          `cbor:"kind"`
	Progress *bisect.Event   `cbor:"progress,omitempty"`
	Verdict  *bisect.Verdict `cbor:"verdict,omitempty"`
}

// NewEventLogSink creates a sink over an open event log writer. The
// caller retains ownership of the writer and closes it after the
// search.
func NewEventLogSink(writer *eventlog.Writer, logger *slog.Logger) *EventLogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventLogSink{writer: writer, logger: logger}
}

func (s *EventLogSink) Progress(event bisect.Event) {
	s.append(logRecord{Kind: "progress", Progress: &event})
}

func (s *EventLogSink) Result(verdict *bisect.Verdict) {
	s.append(logRecord{Kind: "result", Verdict: verdict})
}

// append logs write failures instead of failing the search: the audit
// trail is secondary to finishing the round with everyone restored.
func (s *EventLogSink) append(record logRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writer.Append(record); err != nil {
		s.logger.Error("appending to event log", "kind", record.Kind, "error", err)
	}
}

// MultiSink fans progress and results out to several sinks.
type MultiSink []bisect.ProgressSink

func (m MultiSink) Progress(event bisect.Event) {
	for _, sink := range m {
		sink.Progress(event)
	}
}

func (m MultiSink) Result(verdict *bisect.Verdict) {
	for _, sink := range m {
		sink.Result(verdict)
	}
}

var (
	_ bisect.ProgressSink = (*LineSink)(nil)
	_ bisect.ProgressSink = (*EventLogSink)(nil)
	_ bisect.ProgressSink = (MultiSink)(nil)
)
