// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package searchui

import (
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/bureau-foundation/leaktrace/bisect"
)

// Sink routes engine progress into a bubbletea program as messages.
// It must be created before the program starts; call SetProgram once
// the tea.Program exists. Events arriving before SetProgram are
// dropped, which only happens if the engine outruns program startup.
type Sink struct {
	program atomic.Pointer[tea.Program]
}

// NewSink creates an unattached sink.
func NewSink() *Sink {
	return &Sink{}
}

// SetProgram attaches the bubbletea program that receives messages.
// Safe to call from any goroutine.
func (s *Sink) SetProgram(program *tea.Program) {
	s.program.Store(program)
}

func (s *Sink) Progress(event bisect.Event) {
	if program := s.program.Load(); program != nil {
		program.Send(progressMsg{event: event})
	}
}

func (s *Sink) Result(verdict *bisect.Verdict) {
	if program := s.program.Load(); program != nil {
		program.Send(resultMsg{verdict: verdict})
	}
}

// Fail reports a fatal search error to the view. The caller still
// owns the error; the view only displays it.
func (s *Sink) Fail(err error) {
	if program := s.program.Load(); program != nil {
		program.Send(searchFailedMsg{err: err})
	}
}

var _ bisect.ProgressSink = (*Sink)(nil)
