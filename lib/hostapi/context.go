// Copyright 2026 The Threadline Authors
// SPDX-License-Identifier: Apache-2.0

package hostapi

import "context"

// ModelDescriptor identifies a model and its pricing/capability
// metadata. Two descriptors denote the same model exactly when both
// Provider and ID match.
type ModelDescriptor struct {
	// Provider is the API provider (e.g., "anthropic", "openai").
	Provider string `json:"provider"`

	// ID is the provider-scoped model identifier.
	ID string `json:"id"`

	// Name is the human-readable model name.
	Name string `json:"name,omitempty"`

	// ContextWindow is the model's context window in tokens.
	ContextWindow int64 `json:"context_window,omitempty"`

	// InputCostPerMTok and OutputCostPerMTok are USD per million
	// tokens. Zero when the host has no cost schedule for the model.
	InputCostPerMTok  float64 `json:"input_cost_per_mtok,omitempty"`
	OutputCostPerMTok float64 `json:"output_cost_per_mtok,omitempty"`

	// Reasoning indicates the model supports extended thinking.
	Reasoning bool `json:"reasoning,omitempty"`
}

// Same reports whether other denotes the same model. Comparison is by
// (Provider, ID); a change in either counts as a model switch.
func (m *ModelDescriptor) Same(other *ModelDescriptor) bool {
	if m == nil || other == nil {
		return m == other
	}
	return m.Provider == other.Provider && m.ID == other.ID
}

// ContextUsage is the host's context-window accounting at a point in
// time.
type ContextUsage struct {
	// UsedTokens is the current context size.
	UsedTokens int64 `json:"used_tokens"`

	// MaxTokens is the window limit.
	MaxTokens int64 `json:"max_tokens"`
}

// Percent returns used/max as a percentage, or 0 when the limit is
// unknown.
func (u *ContextUsage) Percent() float64 {
	if u == nil || u.MaxTokens <= 0 {
		return 0
	}
	return 100 * float64(u.UsedTokens) / float64(u.MaxTokens)
}

// Context is the host-provided accessor delivered alongside every
// event. Implementations are owned by the host; Threadline ships a
// fake for tests only.
type Context interface {
	// WorkingDirectory returns the agent's current working
	// directory.
	WorkingDirectory() string

	// Model returns the currently selected model, or nil if none is
	// selected yet.
	Model() *ModelDescriptor

	// SessionID returns the host's identifier for the current
	// session, or "" before a session exists.
	SessionID() string

	// AssistantMessages returns the ordered assistant entries of the
	// session's entry log. The telemetry plugin reads this at
	// turn-sequence end to finalize thread-level token and cost
	// totals.
	AssistantMessages() []AssistantMessage

	// ContextUsage returns the current context-window usage, or nil
	// when unknown.
	ContextUsage() *ContextUsage

	// ThinkingLevel returns the configured thinking-effort level
	// (e.g., "low", "medium", "high"), or "" when not applicable.
	ThinkingLevel() string
}

// Plugin is the registration surface the host invokes. HandleEvent is
// called once per lifecycle event, serialized; returning an error
// surfaces a notice in the host UI but never aborts the host.
type Plugin interface {
	// Name identifies the plugin in host diagnostics.
	Name() string

	// HandleEvent reacts to one lifecycle event. The context is
	// cancelled when the host is shutting down abruptly.
	HandleEvent(ctx context.Context, host Context, event Event) error
}

// Notifier surfaces a transient user-visible notice in the host UI.
// Plugins treat it as best-effort and never depend on delivery.
type Notifier func(message string)
