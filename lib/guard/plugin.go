// Copyright 2026 The Threadline Authors
// SPDX-License-Identifier: Apache-2.0

package guard

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/threadline-dev/threadline/lib/hostapi"
	"github.com/threadline-dev/threadline/lib/telemetry"
)

// Plugin runs validation commands after successful file mutations.
// Rules load from the project's guard.yaml at session start; a
// missing or broken rule file disables the plugin for that session
// with a notice, nothing more.
type Plugin struct {
	runner Runner
	notify hostapi.Notifier
	logger *slog.Logger

	rules     []Rule
	mutations map[string]*hostapi.ToolCallPayload
}

// Options configures the guard plugin.
type Options struct {
	// Runner overrides command execution, for tests.
	Runner Runner

	// Notify surfaces validation verdicts. Nil means silent.
	Notify hostapi.Notifier

	Logger *slog.Logger
}

// New creates the guard plugin.
func New(opts Options) *Plugin {
	if opts.Runner == nil {
		opts.Runner = Run
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Plugin{
		runner: opts.Runner,
		notify: opts.Notify,
		logger: opts.Logger,
	}
}

// Name implements hostapi.Plugin.
func (p *Plugin) Name() string { return "guard" }

// HandleEvent implements hostapi.Plugin. Only edit and write tools
// are tracked; validation runs when their results report success.
func (p *Plugin) HandleEvent(ctx context.Context, host hostapi.Context, event hostapi.Event) error {
	switch event.Type {
	case hostapi.EventSessionStart, hostapi.EventSessionSwitch, hostapi.EventSessionFork, hostapi.EventSessionTree:
		p.mutations = make(map[string]*hostapi.ToolCallPayload)
		p.loadRules(host.WorkingDirectory())

	case hostapi.EventToolCall:
		call := event.ToolCall
		if call == nil || p.mutations == nil {
			return nil
		}
		if call.Kind == hostapi.ToolKindEdit || call.Kind == hostapi.ToolKindWrite {
			p.mutations[call.CallID] = call
		}

	case hostapi.EventToolResult:
		result := event.ToolResult
		if result == nil || p.mutations == nil {
			return nil
		}
		call, ok := p.mutations[result.CallID]
		if !ok {
			return nil
		}
		delete(p.mutations, result.CallID)
		if result.IsError {
			return nil
		}
		p.validate(ctx, host, call)

	case hostapi.EventShutdown:
		p.mutations = nil
		p.rules = nil
	}
	return nil
}

// loadRules reads the project rule file, surfacing parse failures as
// a single notice.
func (p *Plugin) loadRules(dir string) {
	p.rules = nil
	if dir == "" {
		return
	}
	rules, err := LoadRules(RulesPath(dir))
	if err != nil {
		p.logger.Warn("guard rules unavailable", "error", err)
		p.notice("guard rules disabled: " + err.Error())
		return
	}
	p.rules = rules
}

// validate runs every matching rule against the mutated path.
func (p *Plugin) validate(ctx context.Context, host hostapi.Context, call *hostapi.ToolCallPayload) {
	path, ok := mutatedPath(call)
	if !ok {
		return
	}
	for _, rule := range p.rules {
		if !rule.Matches(call.Name, path) {
			continue
		}
		result := p.runner(ctx, rule, host.WorkingDirectory(), path)
		if result.Passed {
			p.logger.Debug("guard rule passed", "rule", rule.Name, "path", path)
			continue
		}
		if result.TimedOut {
			p.notice(fmt.Sprintf("guard %q timed out on %s", rule.Name, path))
			continue
		}
		message := fmt.Sprintf("guard %q failed on %s", rule.Name, path)
		if result.Output != "" {
			message += ": " + telemetry.Truncate(result.Output, 200).Text
		}
		p.notice(message)
	}
}

// mutatedPath extracts the file path from an edit/write call's input.
func mutatedPath(call *hostapi.ToolCallPayload) (string, bool) {
	for _, key := range []string{"file_path", "path"} {
		if value, ok := call.Input[key].(string); ok && value != "" {
			return value, true
		}
	}
	return "", false
}

func (p *Plugin) notice(message string) {
	if p.notify != nil {
		p.notify(message)
	}
}
