// Copyright 2026 The Threadline Authors
// SPDX-License-Identifier: Apache-2.0

package footer

import (
	"context"

	"github.com/muesli/termenv"

	"github.com/threadline-dev/threadline/lib/hostapi"
)

// Plugin accumulates footer state from the event stream. The host
// pulls the rendered line via Line whenever it redraws.
type Plugin struct {
	renderer *Renderer

	state State
}

// NewPlugin creates the footer plugin, detecting the terminal's color
// profile from the environment.
func NewPlugin() *Plugin {
	return NewPluginWithProfile(termenv.ColorProfile())
}

// NewPluginWithProfile creates the footer plugin with an explicit
// terminal profile, for tests and non-tty hosts.
func NewPluginWithProfile(profile termenv.Profile) *Plugin {
	return &Plugin{
		renderer: NewRenderer(profile, DefaultTheme),
		state:    State{ContextPercent: -1},
	}
}

// Name implements hostapi.Plugin.
func (p *Plugin) Name() string { return "footer" }

// HandleEvent implements hostapi.Plugin. Session boundaries reset the
// counters; turn ends accumulate cost and turn count; every event
// refreshes the model and context segments from the host.
func (p *Plugin) HandleEvent(ctx context.Context, host hostapi.Context, event hostapi.Event) error {
	switch event.Type {
	case hostapi.EventSessionStart, hostapi.EventSessionSwitch, hostapi.EventSessionFork, hostapi.EventSessionTree:
		p.state = State{ContextPercent: -1}
	case hostapi.EventTurnEnd:
		p.state.Turns++
		if event.TurnEnd != nil {
			p.state.CostUSD += event.TurnEnd.Message.Usage.CostUSD
		}
	}

	if model := host.Model(); model != nil {
		name := model.Name
		if name == "" {
			name = model.ID
		}
		p.state.ModelName = name
	}
	if usage := host.ContextUsage(); usage != nil {
		p.state.ContextPercent = usage.Percent()
	} else {
		p.state.ContextPercent = -1
	}
	return nil
}

// Line returns the current footer line.
func (p *Plugin) Line() string {
	return p.renderer.Render(p.state)
}
