// Copyright 2026 The Threadline Authors
// SPDX-License-Identifier: Apache-2.0

package footer

import (
	"context"
	"strings"
	"testing"

	"github.com/muesli/termenv"

	"github.com/threadline-dev/threadline/lib/hostapi"
)

type fakeHost struct {
	model *hostapi.ModelDescriptor
	usage *hostapi.ContextUsage
}

func (h *fakeHost) WorkingDirectory() string                      { return "" }
func (h *fakeHost) Model() *hostapi.ModelDescriptor               { return h.model }
func (h *fakeHost) SessionID() string                             { return "sess" }
func (h *fakeHost) AssistantMessages() []hostapi.AssistantMessage { return nil }
func (h *fakeHost) ContextUsage() *hostapi.ContextUsage           { return h.usage }
func (h *fakeHost) ThinkingLevel() string                         { return "" }

func TestRenderPlainProfile(t *testing.T) {
	renderer := NewRenderer(termenv.Ascii, DefaultTheme)
	line := renderer.Render(State{
		ModelName:      "Sonnet",
		ContextPercent: 42.4,
		CostUSD:        1.5,
		Turns:          3,
	})
	if line != "Sonnet · ctx 42% · $1.50 · 3 turns" {
		t.Fatalf("line = %q", line)
	}
}

func TestRenderOmitsEmptySegments(t *testing.T) {
	renderer := NewRenderer(termenv.Ascii, DefaultTheme)
	if got := renderer.Render(State{ContextPercent: -1}); got != "" {
		t.Fatalf("empty state rendered %q", got)
	}
	if got := renderer.Render(State{Turns: 1, ContextPercent: -1}); got != "1 turn" {
		t.Fatalf("line = %q", got)
	}
}

func TestRenderColorsDoNotLeakIntoAsciiProfile(t *testing.T) {
	colored := NewRenderer(termenv.ANSI256, DefaultTheme).Render(State{ModelName: "Opus", ContextPercent: -1})
	plain := NewRenderer(termenv.Ascii, DefaultTheme).Render(State{ModelName: "Opus", ContextPercent: -1})
	if plain != "Opus" {
		t.Fatalf("plain = %q", plain)
	}
	if !strings.Contains(colored, "Opus") {
		t.Fatalf("colored output lost the text: %q", colored)
	}
}

func TestPluginAccumulatesAcrossTurns(t *testing.T) {
	plugin := NewPluginWithProfile(termenv.Ascii)
	host := &fakeHost{
		model: &hostapi.ModelDescriptor{Name: "Sonnet"},
		usage: &hostapi.ContextUsage{UsedTokens: 50000, MaxTokens: 200000},
	}
	deliver := func(event hostapi.Event) {
		t.Helper()
		if err := plugin.HandleEvent(context.Background(), host, event); err != nil {
			t.Fatalf("HandleEvent: %v", err)
		}
	}

	deliver(hostapi.Event{Type: hostapi.EventSessionStart})
	deliver(hostapi.Event{Type: hostapi.EventTurnEnd, TurnEnd: &hostapi.TurnEndPayload{
		Message: hostapi.AssistantMessage{Usage: hostapi.TokenUsage{CostUSD: 0.10}},
	}})
	deliver(hostapi.Event{Type: hostapi.EventTurnEnd, TurnEnd: &hostapi.TurnEndPayload{
		Message: hostapi.AssistantMessage{Usage: hostapi.TokenUsage{CostUSD: 0.05}},
	}})

	if got := plugin.Line(); got != "Sonnet · ctx 25% · $0.15 · 2 turns" {
		t.Fatalf("line = %q", got)
	}

	// A new session resets cost and turns.
	deliver(hostapi.Event{Type: hostapi.EventSessionSwitch})
	if got := plugin.Line(); got != "Sonnet · ctx 25%" {
		t.Fatalf("line after reset = %q", got)
	}
}
