// Copyright 2026 The Threadline Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"
	"log/slog"
	"sync"

	"github.com/threadline-dev/threadline/lib/clock"
	"github.com/threadline-dev/threadline/lib/export"
	"github.com/threadline-dev/threadline/lib/hostapi"
)

// Plugin adapts the lifecycle controller to the host's plugin
// surface. It owns the configuration resolver and the exporter, and
// translates host events into controller transitions.
//
// HandleEvent never returns an error and never panics outward:
// telemetry is strictly best-effort and must not destabilize the
// host.
type Plugin struct {
	opts PluginOptions

	controller *Controller
	resolver   *export.Resolver
	logger     *slog.Logger

	session sessionRef
}

// PluginOptions configures the telemetry plugin. The zero value works.
type PluginOptions struct {
	// Resolver overrides the default configuration resolver (global
	// settings file plus per-workdir project file). Used by tests.
	Resolver *export.Resolver

	// Sink overrides the exporter as the controller's span sink.
	// Used by tests.
	Sink SpanSink

	// Clock drives span timestamps for events delivered without one,
	// and the exporter's flush timer.
	Clock clock.Clock

	Logger *slog.Logger

	// Notify surfaces configuration-parse notices. Nil disables
	// them.
	Notify hostapi.Notifier

	// ServiceName overrides the exported service.name resource
	// attribute.
	ServiceName string
}

// sessionRef shares the current session ID with the exporter's
// delivery goroutines.
type sessionRef struct {
	mu sync.Mutex
	id string
}

func (s *sessionRef) set(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = id
}

func (s *sessionRef) get() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// NewPlugin creates the telemetry plugin.
func NewPlugin(opts PluginOptions) *Plugin {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	plugin := &Plugin{opts: opts, logger: opts.Logger}

	plugin.resolver = opts.Resolver
	if plugin.resolver == nil {
		plugin.resolver = export.NewResolver(export.ResolverOptions{
			GlobalPath: export.GlobalSettingsPath(),
			Logger:     opts.Logger,
			Notify:     opts.Notify,
		})
	}

	sink := opts.Sink
	if sink == nil {
		sink = export.New(export.Options{
			Resolver:    plugin.resolver,
			Clock:       opts.Clock,
			Logger:      opts.Logger,
			SessionID:   plugin.session.get,
			ServiceName: opts.ServiceName,
		})
	}
	plugin.controller = NewController(ControllerOptions{
		Sink:   sink,
		Clock:  opts.Clock,
		Logger: opts.Logger,
	})
	return plugin
}

// Name implements hostapi.Plugin.
func (p *Plugin) Name() string { return "telemetry" }

// HandleEvent implements hostapi.Plugin. Events the controller has no
// transition for are ignored.
func (p *Plugin) HandleEvent(ctx context.Context, host hostapi.Context, event hostapi.Event) error {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Warn("telemetry event handling panicked", "event", string(event.Type), "panic", r)
		}
	}()
	p.session.set(host.SessionID())

	switch event.Type {
	case hostapi.EventSessionStart:
		p.applyProjectConfig(host)
		p.controller.BeginThread(host, "", event.Timestamp)
	case hostapi.EventSessionSwitch:
		p.applyProjectConfig(host)
		p.controller.BeginThread(host, RelationResume, event.Timestamp)
	case hostapi.EventSessionFork:
		p.applyProjectConfig(host)
		p.controller.BeginThread(host, RelationFork, event.Timestamp)
	case hostapi.EventSessionTree:
		p.applyProjectConfig(host)
		p.controller.BeginThread(host, RelationTree, event.Timestamp)
	case hostapi.EventInput:
		p.controller.CaptureInput(event.Input)
	case hostapi.EventTurnStart:
		p.controller.BeginTurn(host, event.Timestamp)
	case hostapi.EventToolCall:
		p.controller.ToolCall(host, event.ToolCall, event.Timestamp)
	case hostapi.EventToolResult:
		p.controller.ToolResult(event.ToolResult, event.Timestamp)
	case hostapi.EventTurnEnd:
		p.controller.EndTurn(event.TurnEnd, event.Timestamp)
	case hostapi.EventTurnSequenceEnd:
		p.controller.EndTurnSequence(host, event.SequenceEnd, event.Timestamp)
	case hostapi.EventCompaction:
		p.controller.Compaction(event.Compaction)
	case hostapi.EventShutdown:
		p.controller.Shutdown(ctx, event.Timestamp)
	}
	return nil
}

// applyProjectConfig points the resolver at the host's current
// working directory and applies the project settings layer, once per
// thread start.
func (p *Plugin) applyProjectConfig(host hostapi.Context) {
	if dir := host.WorkingDirectory(); dir != "" {
		p.resolver.SetProjectPath(export.ProjectSettingsPath(dir))
	}
	p.resolver.ApplyProject()
}
