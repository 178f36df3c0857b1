// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package searchui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/bureau-foundation/leaktrace/bisect"
)

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	model, ok := updated.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want Model", updated)
	}
	return model, cmd
}

func TestModel_InitialView(t *testing.T) {
	m := NewModel()
	view := m.View()
	if !strings.Contains(view, "connecting") {
		t.Errorf("initial view %q lacks the connecting notice", view)
	}
}

func TestModel_ProgressShowsRoundAndSuspects(t *testing.T) {
	m := NewModel()
	m, _ = update(t, m, progressMsg{event: bisect.Event{
		Step:      1,
		Total:     4,
		Remaining: 8,
		Message:   "round 1/4: silencing 4 of 8 suspects",
		Names:     []string{"alice", "bob", "carol"},
	}})

	view := m.View()
	if !strings.Contains(view, "[1/4]") {
		t.Errorf("view lacks the round counter:\n%s", view)
	}
	if !strings.Contains(view, "alice, bob, carol") {
		t.Errorf("view lacks the suspect list:\n%s", view)
	}
}

func TestModel_SuspectListTruncates(t *testing.T) {
	names := make([]string, 20)
	for i := range names {
		names[i] = "suspect"
	}
	m := NewModel()
	m, _ = update(t, m, progressMsg{event: bisect.Event{Step: 1, Total: 5, Names: names}})

	if !strings.Contains(m.View(), "+12 more") {
		t.Errorf("view does not truncate a 20-name suspect list:\n%s", m.View())
	}
}

func TestModel_ConfirmedVerdictQuits(t *testing.T) {
	m := NewModel()
	m, cmd := update(t, m, resultMsg{verdict: &bisect.Verdict{
		ID:          "@mallory:example.org",
		Username:    "mallory",
		DisplayName: "Mallory",
		Confirmed:   true,
	}})

	if cmd == nil {
		t.Fatal("verdict did not quit the program")
	}
	view := m.View()
	if !strings.Contains(view, "Mallory") || !strings.Contains(view, "confirmed") {
		t.Errorf("verdict view missing name or confirmation:\n%s", view)
	}
}

func TestModel_UnconfirmedVerdict(t *testing.T) {
	m := NewModel()
	m, _ = update(t, m, resultMsg{verdict: &bisect.Verdict{
		ID:        "@mallory:example.org",
		Username:  "mallory",
		Confirmed: false,
	}})

	if !strings.Contains(m.View(), "NOT confirmed") {
		t.Errorf("unconfirmed verdict not flagged:\n%s", m.View())
	}
}

func TestModel_NilVerdict(t *testing.T) {
	m := NewModel()
	m, _ = update(t, m, resultMsg{verdict: nil})

	if !strings.Contains(m.View(), "nothing to locate") {
		t.Errorf("empty-population result not shown:\n%s", m.View())
	}
}

func TestModel_SearchFailure(t *testing.T) {
	m := NewModel()
	m, _ = update(t, m, progressMsg{event: bisect.Event{Step: 1, Total: 3, Message: "round 1/3"}})
	m, cmd := update(t, m, searchFailedMsg{err: errors.New("kick forbidden in !vault:example.org")})

	if cmd == nil {
		t.Fatal("failure did not quit the program")
	}
	if !strings.Contains(m.View(), "kick forbidden") {
		t.Errorf("failure view missing the error:\n%s", m.View())
	}
}

func TestModel_QuitKey(t *testing.T) {
	m := NewModel()
	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("q did not quit")
	}
}

func TestSink_DropsWithoutProgram(t *testing.T) {
	// Must not panic before SetProgram.
	sink := NewSink()
	sink.Progress(bisect.Event{Step: 1})
	sink.Result(nil)
	sink.Fail(errors.New("boom"))
}
