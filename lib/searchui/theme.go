// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package searchui

import "github.com/charmbracelet/lipgloss"

// Theme defines the color palette for the search view. All colors use
// lipgloss ANSI 256-color codes for broad terminal compatibility.
type Theme struct {
	// Text colors.
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	// HeaderForeground colors the title bar.
	HeaderForeground lipgloss.Color

	// Round outcome accents.
	Confirmed    lipgloss.Color // verdict confirmed by the terminal round
	Contradicted lipgloss.Color // signal persisted with the candidate silenced
	Aborted      lipgloss.Color // search ended on a fatal round error

	// SuspectHighlight marks entities still under suspicion.
	SuspectHighlight lipgloss.Color
}

// DefaultTheme is the built-in dark-terminal color scheme.
var DefaultTheme = Theme{
	NormalText:       lipgloss.Color("252"),
	FaintText:        lipgloss.Color("243"),
	HeaderForeground: lipgloss.Color("81"),
	Confirmed:        lipgloss.Color("114"),
	Contradicted:     lipgloss.Color("214"),
	Aborted:          lipgloss.Color("203"),
	SuspectHighlight: lipgloss.Color("228"),
}
