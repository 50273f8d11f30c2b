// Copyright 2026 The Threadline Authors
// SPDX-License-Identifier: Apache-2.0

// Package footer renders the one-line session status footer the host
// displays under its input area: model name, context-window usage,
// session cost, and turn count. Styling degrades to plain text on
// terminals without color support.
package footer

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// State is one snapshot of the values the footer shows.
type State struct {
	// ModelName is the human-readable model name, empty when no
	// model is selected.
	ModelName string

	// ContextPercent is context-window usage, 0-100. Negative means
	// unknown and suppresses the segment.
	ContextPercent float64

	// CostUSD is the accumulated session cost.
	CostUSD float64

	// Turns is the number of completed turns this session.
	Turns int
}

// Theme holds the footer's color palette, ANSI 256-color codes for
// broad terminal compatibility.
type Theme struct {
	Model   lipgloss.Color
	Context lipgloss.Color
	Warning lipgloss.Color
	Faint   lipgloss.Color
}

// DefaultTheme is the palette used when none is supplied.
var DefaultTheme = Theme{
	Model:   lipgloss.Color("75"),
	Context: lipgloss.Color("114"),
	Warning: lipgloss.Color("203"),
	Faint:   lipgloss.Color("243"),
}

// contextWarnPercent is where context usage switches to the warning
// color.
const contextWarnPercent = 80

// Renderer renders footer lines for one terminal profile.
type Renderer struct {
	plain bool
	theme Theme
}

// NewRenderer creates a renderer for the given terminal profile.
// Ascii profiles render unstyled text.
func NewRenderer(profile termenv.Profile, theme Theme) *Renderer {
	return &Renderer{plain: profile == termenv.Ascii, theme: theme}
}

// Render produces the footer line. Segments with nothing to say are
// omitted; an all-empty state renders an empty string.
func (r *Renderer) Render(state State) string {
	var segments []string

	if state.ModelName != "" {
		segments = append(segments, r.paint(state.ModelName, r.theme.Model))
	}
	if state.ContextPercent >= 0 {
		color := r.theme.Context
		if state.ContextPercent >= contextWarnPercent {
			color = r.theme.Warning
		}
		segments = append(segments, r.paint(fmt.Sprintf("ctx %.0f%%", state.ContextPercent), color))
	}
	if state.CostUSD > 0 {
		segments = append(segments, r.paint(fmt.Sprintf("$%.2f", state.CostUSD), r.theme.Faint))
	}
	if state.Turns > 0 {
		noun := "turns"
		if state.Turns == 1 {
			noun = "turn"
		}
		segments = append(segments, r.paint(fmt.Sprintf("%d %s", state.Turns, noun), r.theme.Faint))
	}

	return strings.Join(segments, r.paint(" · ", r.theme.Faint))
}

func (r *Renderer) paint(text string, color lipgloss.Color) string {
	if r.plain {
		return text
	}
	return lipgloss.NewStyle().Foreground(color).Render(text)
}
