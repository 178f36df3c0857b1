// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package searchui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bureau-foundation/leaktrace/bisect"
)

// progressMsg delivers a round progress event from the engine's sink
// goroutine into the bubbletea message loop.
type progressMsg struct {
	event bisect.Event
}

// resultMsg delivers the terminal verdict. A nil verdict means the
// suspect population was empty.
type resultMsg struct {
	verdict *bisect.Verdict
}

// searchFailedMsg delivers a fatal search error. The view stays up
// showing the abort message until the user quits.
type searchFailedMsg struct {
	err error
}

// KeyMap defines the key bindings for the search view.
type KeyMap struct {
	Quit key.Binding
}

// DefaultKeyMap is the standard binding set.
var DefaultKeyMap = KeyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c", "esc"),
		key.WithHelp("q", "quit"),
	),
}

// Model is the bubbletea model for a running search. It is a passive
// display: all state transitions arrive as messages from the sink.
type Model struct {
	theme Theme
	keys  KeyMap

	spinner spinner.Model

	// rounds is the history of progress messages, most recent last.
	rounds []bisect.Event

	// current is the latest progress event; zero until the first round.
	current bisect.Event
	started bool

	verdict  *bisect.Verdict
	finished bool
	noResult bool

	err error
}

// NewModel creates a search view with the default theme and key map.
func NewModel() Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(DefaultTheme.HeaderForeground)
	return Model{
		theme:   DefaultTheme,
		keys:    DefaultKeyMap,
		spinner: sp,
	}
}

func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		return m, nil

	case progressMsg:
		m.started = true
		m.current = msg.event
		m.rounds = append(m.rounds, msg.event)
		return m, nil

	case resultMsg:
		m.finished = true
		m.verdict = msg.verdict
		m.noResult = msg.verdict == nil
		return m, tea.Quit

	case searchFailedMsg:
		m.finished = true
		m.err = msg.err
		return m, tea.Quit

	case spinner.TickMsg:
		if m.finished {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	header := lipgloss.NewStyle().
		Foreground(m.theme.HeaderForeground).
		Bold(true).
		Render("leaktrace")
	b.WriteString(header + "\n\n")

	for _, event := range m.completedRounds() {
		b.WriteString(m.renderRoundLine("  ", event) + "\n")
	}

	switch {
	case m.err != nil:
		b.WriteString(lipgloss.NewStyle().
			Foreground(m.theme.Aborted).
			Render("✗ "+m.err.Error()) + "\n")

	case m.finished && m.noResult:
		b.WriteString(lipgloss.NewStyle().
			Foreground(m.theme.FaintText).
			Render("no suspects hold the capability; nothing to locate") + "\n")

	case m.finished:
		b.WriteString(m.renderVerdict() + "\n")

	case m.started:
		b.WriteString(m.spinner.View() + " " + m.renderRoundLine("", m.current) + "\n")
		b.WriteString(m.renderSuspects())

	default:
		b.WriteString(m.spinner.View() + " connecting...\n")
	}

	if !m.finished {
		b.WriteString("\n" + lipgloss.NewStyle().
			Foreground(m.theme.FaintText).
			Render("q to abandon the search") + "\n")
	}
	return b.String()
}

// completedRounds returns every round except the one in flight.
func (m Model) completedRounds() []bisect.Event {
	if !m.started || m.finished {
		return m.rounds
	}
	return m.rounds[:len(m.rounds)-1]
}

func (m Model) renderRoundLine(prefix string, event bisect.Event) string {
	line := fmt.Sprintf("%s[%d/%d] %s", prefix, event.Step, event.Total, event.Message)
	return lipgloss.NewStyle().Foreground(m.theme.NormalText).Render(line)
}

// renderSuspects shows who is still under suspicion, truncated so a
// large population does not scroll the round history off screen.
func (m Model) renderSuspects() string {
	const maxShown = 8
	names := m.current.Names
	if len(names) == 0 {
		return ""
	}

	shown := names
	overflow := ""
	if len(shown) > maxShown {
		shown = shown[:maxShown]
		overflow = fmt.Sprintf(" (+%d more)", len(names)-maxShown)
	}

	style := lipgloss.NewStyle().Foreground(m.theme.SuspectHighlight)
	return fmt.Sprintf("  suspects: %s%s\n",
		style.Render(strings.Join(shown, ", ")),
		lipgloss.NewStyle().Foreground(m.theme.FaintText).Render(overflow))
}

func (m Model) renderVerdict() string {
	v := m.verdict
	if v.Confirmed {
		style := lipgloss.NewStyle().Foreground(m.theme.Confirmed).Bold(true)
		return style.Render(fmt.Sprintf("✓ leaker identified: %s (%s), confirmed", displayName(v), v.ID))
	}
	style := lipgloss.NewStyle().Foreground(m.theme.Contradicted).Bold(true)
	return style.Render(fmt.Sprintf("? candidate: %s (%s), NOT confirmed: signal persisted with their capability removed", displayName(v), v.ID))
}

func displayName(v *bisect.Verdict) string {
	if v.DisplayName != "" {
		return v.DisplayName
	}
	if v.Username != "" {
		return v.Username
	}
	return v.ID
}
