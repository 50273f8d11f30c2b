// Copyright 2026 The Threadline Authors
// SPDX-License-Identifier: Apache-2.0

package hostapi

import "time"

// EventType classifies host lifecycle events.
type EventType string

const (
	// EventSessionStart fires when a new session begins or a stored
	// session is resumed.
	EventSessionStart EventType = "session_start"

	// EventSessionSwitch fires when the user switches to a different
	// stored session.
	EventSessionSwitch EventType = "session_switch"

	// EventSessionFork fires when the current session is forked into
	// a new branch.
	EventSessionFork EventType = "session_fork"

	// EventSessionTree fires when the user navigates the session
	// tree to a different node.
	EventSessionTree EventType = "session_tree"

	// EventInput fires when user input (text and/or images) is
	// captured, before the agent starts working on it.
	EventInput EventType = "input"

	// EventTurnSequenceStart fires when the agent begins processing
	// a user request (one sequence contains one or more turns).
	EventTurnSequenceStart EventType = "turn_sequence_start"

	// EventTurnSequenceEnd fires when the agent finishes or aborts a
	// request.
	EventTurnSequenceEnd EventType = "turn_sequence_end"

	// EventTurnStart fires once per model round-trip.
	EventTurnStart EventType = "turn_start"

	// EventTurnEnd fires when a model round-trip completes, carrying
	// the terminal assistant message.
	EventTurnEnd EventType = "turn_end"

	// EventModelSelect fires when the active model changes.
	EventModelSelect EventType = "model_select"

	// EventToolCall fires when the agent invokes a tool.
	EventToolCall EventType = "tool_call"

	// EventToolResult fires when a tool invocation returns.
	EventToolResult EventType = "tool_result"

	// EventCompaction fires when the host compacts the session
	// context window.
	EventCompaction EventType = "compaction"

	// EventShutdown fires once, when the host is terminating.
	EventShutdown EventType = "shutdown"
)

// ToolKind is the host's declared classification of a tool. Tools the
// host does not classify are ToolKindOther.
type ToolKind string

const (
	ToolKindShell ToolKind = "shell"
	ToolKindRead  ToolKind = "read"
	ToolKindEdit  ToolKind = "edit"
	ToolKindWrite ToolKind = "write"
	ToolKindOther ToolKind = "other"
)

// Event is one host lifecycle event. Exactly one of the payload
// pointers is set, matching Type; payload fields the host did not
// populate are zero and consumers must tolerate that.
type Event struct {
	// Timestamp is when the host observed the event.
	Timestamp time.Time `json:"timestamp"`

	// Type classifies the event.
	Type EventType `json:"type"`

	// Input is set for EventInput.
	Input *InputPayload `json:"input,omitempty"`

	// ToolCall is set for EventToolCall.
	ToolCall *ToolCallPayload `json:"tool_call,omitempty"`

	// ToolResult is set for EventToolResult.
	ToolResult *ToolResultPayload `json:"tool_result,omitempty"`

	// TurnEnd is set for EventTurnEnd.
	TurnEnd *TurnEndPayload `json:"turn_end,omitempty"`

	// SequenceEnd is set for EventTurnSequenceEnd.
	SequenceEnd *SequenceEndPayload `json:"sequence_end,omitempty"`

	// Compaction is set for EventCompaction.
	Compaction *CompactionPayload `json:"compaction,omitempty"`
}

// InputPayload carries captured user input.
type InputPayload struct {
	// Text is the user-visible input text.
	Text string `json:"text"`

	// ImageCount is the number of attached images.
	ImageCount int `json:"image_count,omitempty"`
}

// ToolCallPayload records a tool invocation by the agent.
type ToolCallPayload struct {
	// CallID is the host-assigned call identifier. The matching
	// ToolResultPayload carries the same ID.
	CallID string `json:"call_id"`

	// Name is the tool name (e.g., "Bash", "Read", "Edit").
	Name string `json:"name"`

	// Kind is the host's classification of the tool.
	Kind ToolKind `json:"kind"`

	// Input is the tool's input parameters. Field names are
	// tool-specific; consumers read them defensively.
	Input map[string]any `json:"input,omitempty"`
}

// ToolResultPayload records the outcome of a tool invocation.
type ToolResultPayload struct {
	// CallID matches the corresponding ToolCallPayload.CallID.
	CallID string `json:"call_id"`

	// IsError indicates the tool call failed.
	IsError bool `json:"is_error,omitempty"`

	// ErrorMessage describes the failure when IsError is set.
	ErrorMessage string `json:"error_message,omitempty"`

	// Content is the tool result text. May already be truncated by
	// the tool itself; see Truncated.
	Content string `json:"content,omitempty"`

	// Truncated indicates the tool truncated Content before handing
	// it to the host. Distinct from any truncation telemetry applies
	// for storage.
	Truncated bool `json:"truncated,omitempty"`

	// Metadata carries tool-specific result fields (e.g.,
	// "exit_code" for shell tools).
	Metadata map[string]any `json:"metadata,omitempty"`
}

// TokenUsage is the token accounting of one assistant message.
type TokenUsage struct {
	InputTokens      int64   `json:"input_tokens,omitempty"`
	OutputTokens     int64   `json:"output_tokens,omitempty"`
	CacheReadTokens  int64   `json:"cache_read_tokens,omitempty"`
	CacheWriteTokens int64   `json:"cache_write_tokens,omitempty"`
	CostUSD          float64 `json:"cost_usd,omitempty"`
}

// AssistantMessage is the terminal message of one turn.
type AssistantMessage struct {
	// Model identifies the model that produced the message.
	Model *ModelDescriptor `json:"model,omitempty"`

	// StopReason is why generation ended (e.g., "end_turn",
	// "tool_use", "max_tokens", "aborted").
	StopReason string `json:"stop_reason,omitempty"`

	// Text is the assistant's response text.
	Text string `json:"text,omitempty"`

	// Thinking is the reasoning text, present only for reasoning
	// models with visible thinking.
	Thinking string `json:"thinking,omitempty"`

	// Usage is the message's token accounting.
	Usage TokenUsage `json:"usage"`
}

// TurnEndPayload carries the terminal assistant message of a turn.
type TurnEndPayload struct {
	Message AssistantMessage `json:"message"`
}

// SequenceEndPayload signals the end of an agent turn-sequence.
type SequenceEndPayload struct {
	// StopReason is the last stop reason of the sequence. "aborted"
	// means the user interrupted the agent.
	StopReason string `json:"stop_reason,omitempty"`
}

// CompactionPayload describes a context-window compaction.
type CompactionPayload struct {
	// Trigger is "auto" or "manual".
	Trigger string `json:"trigger,omitempty"`

	// PreTokens is the context size before compaction.
	PreTokens int64 `json:"pre_tokens,omitempty"`
}
