// Copyright 2026 The Threadline Authors
// SPDX-License-Identifier: Apache-2.0

package sandboxdiag

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/threadline-dev/threadline/lib/hostapi"
)

// Plugin watches shell tool execution for sandbox denials. It probes
// sandbox capabilities once per session and raises at most one notice
// per denial cause, so a loop of denied commands does not spam the
// user.
type Plugin struct {
	detect func() *Capabilities
	notify hostapi.Notifier
	logger *slog.Logger

	caps       *Capabilities
	shellCalls map[string]bool
	warned     map[string]bool
}

// Options configures a Plugin. Zero-value fields get working defaults.
type Options struct {
	// Detect overrides capability probing, for tests.
	Detect func() *Capabilities

	// Notify surfaces user-visible notices. Nil means silent.
	Notify hostapi.Notifier

	Logger *slog.Logger
}

// New creates the sandbox diagnostics plugin.
func New(opts Options) *Plugin {
	if opts.Detect == nil {
		opts.Detect = Detect
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Plugin{
		detect: opts.Detect,
		notify: opts.Notify,
		logger: opts.Logger,
	}
}

// Name implements hostapi.Plugin.
func (p *Plugin) Name() string { return "sandbox-diagnostics" }

// HandleEvent implements hostapi.Plugin.
func (p *Plugin) HandleEvent(ctx context.Context, host hostapi.Context, event hostapi.Event) error {
	switch event.Type {
	case hostapi.EventSessionStart, hostapi.EventSessionSwitch, hostapi.EventSessionFork, hostapi.EventSessionTree:
		p.caps = p.detect()
		p.shellCalls = make(map[string]bool)
		p.warned = make(map[string]bool)
		p.logger.Debug("sandbox capabilities detected",
			"bwrap", p.caps.BwrapAvailable,
			"bwrap_version", p.caps.BwrapVersion,
			"userns", p.caps.UserNamespacesEnabled)
		if reason := p.caps.SkipReason(); reason != "" {
			p.notice("sandbox unavailable: " + reason)
		}

	case hostapi.EventToolCall:
		if event.ToolCall != nil && event.ToolCall.Kind == hostapi.ToolKindShell && p.shellCalls != nil {
			p.shellCalls[event.ToolCall.CallID] = true
		}

	case hostapi.EventToolResult:
		result := event.ToolResult
		if result == nil || p.shellCalls == nil || !p.shellCalls[result.CallID] {
			return nil
		}
		delete(p.shellCalls, result.CallID)
		if !result.IsError {
			return nil
		}
		cause, ok := ClassifyDenial(result.ErrorMessage)
		if !ok || p.warned[cause] {
			return nil
		}
		p.warned[cause] = true
		p.notice(fmt.Sprintf("command blocked by sandbox (%s access denied)", cause))

	case hostapi.EventShutdown:
		p.shellCalls = nil
		p.warned = nil
	}
	return nil
}

// Capabilities returns the most recent probe result, or nil before
// the first session start.
func (p *Plugin) Capabilities() *Capabilities { return p.caps }

func (p *Plugin) notice(message string) {
	if p.notify != nil {
		p.notify(message)
	}
}
