// Copyright 2026 The Threadline Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"
	"log/slog"
	"time"

	"github.com/threadline-dev/threadline/lib/clock"
	"github.com/threadline-dev/threadline/lib/hostapi"
	"github.com/threadline-dev/threadline/lib/schema/trace"
)

// SpanSink receives completed spans. *export.Exporter satisfies it;
// tests substitute an in-memory recorder.
type SpanSink interface {
	BufferSpan(span trace.Span)
	Flush()
	FlushSync(ctx context.Context)
}

// ThreadRelation tags the cross-trace link between a new thread and
// the one it replaced.
type ThreadRelation string

const (
	// RelationResume marks a session switch back into stored history.
	RelationResume ThreadRelation = "resume"

	// RelationFork marks a thread forked from a live session.
	RelationFork ThreadRelation = "fork"

	// RelationTree marks navigation within the session tree.
	RelationTree ThreadRelation = "tree"
)

// Span names for the fixed lifecycle levels. Tool spans are named
// after the tool itself.
const (
	threadSpanName = "thread"
	turnSpanName   = "turn"
	inputSpanName  = "input"
)

// openTurn is one entry of the turn stack.
type openTurn struct {
	span   *trace.Span
	rollup *TurnRollup
	start  time.Time
}

// openTool is one entry of the open-tool table, keyed by the host's
// call identifier. The owning turn's rollup is captured at call time
// so a late result still lands its counters on the right turn.
type openTool struct {
	span   *trace.Span
	call   *hostapi.ToolCallPayload
	rollup *TurnRollup
	start  time.Time
}

// Controller is the span lifecycle state machine for one thread: one
// resumable conversation, spanning possibly many agent turn-sequences.
//
// The host delivers events serially, so the controller takes no
// locks; all state is owned by the single event-handling goroutine.
// Every method is a no-op for events that arrive out of order, except
// where opening an enclosing span implicitly is the safer reading
// (a turn with no thread opens one, a tool call with no turn opens
// one).
type Controller struct {
	sink   SpanSink
	clock  clock.Clock
	logger *slog.Logger

	thread        *trace.Span
	threadRollup  *ThreadRollup
	finalized     bool
	turns         []*openTurn
	tools         map[string]*openTool
	pendingInput  *hostapi.InputPayload
	previousModel *hostapi.ModelDescriptor
}

// ControllerOptions configures a Controller.
type ControllerOptions struct {
	// Sink receives completed spans. Required.
	Sink SpanSink

	// Clock supplies time for events delivered without a timestamp.
	// Defaults to the real clock.
	Clock clock.Clock

	Logger *slog.Logger
}

// NewController creates a controller in the no-thread state.
func NewController(opts ControllerOptions) *Controller {
	if opts.Sink == nil {
		panic("telemetry: ControllerOptions.Sink is required")
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Controller{
		sink:   opts.Sink,
		clock:  opts.Clock,
		logger: opts.Logger,
		tools:  make(map[string]*openTool),
	}
}

// at resolves an event timestamp, falling back to the clock for
// events the host delivered without one.
func (c *Controller) at(ts time.Time) time.Time {
	if ts.IsZero() {
		return c.clock.Now()
	}
	return ts
}

// BeginThread opens a new thread span. If a thread is already open it
// is closed first with status ok, and when relation is non-empty the
// new thread records a cross-trace link back to the old one tagged
// with the relation. Environment, session, and (when selected) model
// identity are captured as attributes.
func (c *Controller) BeginThread(host hostapi.Context, relation ThreadRelation, ts time.Time) {
	now := c.at(ts)

	previous := c.thread
	if previous != nil {
		c.closeOpenWork(now, "superseded by new thread")
		c.closeThread(now, trace.SpanStatusOK, "")
	}

	span := trace.NewSpan(trace.NewTraceID(), trace.SpanID{}, threadSpanName, now)
	span.Kind = trace.SpanKindInternal
	if previous != nil && relation != "" {
		span.Links = append(span.Links, trace.Link{
			TraceID:    previous.TraceID,
			SpanID:     previous.SpanID,
			Attributes: map[string]any{"relation": string(relation)},
		})
	}
	span.SetAttributes(EnvironmentAttributes(host.WorkingDirectory()))
	if id := host.SessionID(); id != "" {
		span.Attributes["session.id"] = id
	}
	if model := host.Model(); model != nil {
		span.SetAttributes(ModelAttributes(model))
		c.previousModel = model
	} else {
		c.previousModel = nil
	}

	c.thread = span
	c.threadRollup = NewThreadRollup()
	c.finalized = false
	c.logger.Debug("thread opened", "trace_id", span.TraceID.String(), "relation", string(relation))
}

// CaptureInput buffers user input until the next turn begins. Input
// can arrive before the thread span exists, so it is held rather than
// emitted immediately.
func (c *Controller) CaptureInput(input *hostapi.InputPayload) {
	if input == nil {
		return
	}
	c.pendingInput = input
}

// BeginTurn opens a turn span under the thread, implicitly starting a
// thread first if events arrived out of order. Captured input, if
// any, is emitted as an immutable sibling span and cleared. A model
// change since the previous turn increments the thread's switch
// counter.
func (c *Controller) BeginTurn(host hostapi.Context, ts time.Time) {
	now := c.at(ts)
	if c.thread == nil {
		c.BeginThread(host, "", now)
	}
	c.finalized = false

	if c.pendingInput != nil {
		c.emitInputSpan(c.pendingInput, now)
		c.pendingInput = nil
	}

	if model := host.Model(); model != nil {
		if c.previousModel != nil && !model.Same(c.previousModel) {
			c.threadRollup.ModelSwitches++
		}
		c.previousModel = model
	}

	c.threadRollup.Turns++
	span := trace.NewSpan(c.thread.TraceID, c.thread.SpanID, turnSpanName, now)
	span.Kind = trace.SpanKindInternal
	span.Attributes["turn.index"] = c.threadRollup.Turns
	span.SetAttributes(ModelAttributes(host.Model()))
	c.turns = append(c.turns, &openTurn{span: span, rollup: NewTurnRollup(), start: now})
}

// emitInputSpan records buffered user input as a zero-duration span
// under the thread. The span is complete the moment it is created and
// is never mutated afterwards.
func (c *Controller) emitInputSpan(input *hostapi.InputPayload, now time.Time) {
	span := trace.NewSpan(c.thread.TraceID, c.thread.SpanID, inputSpanName, now)
	span.Kind = trace.SpanKindInternal
	span.EndTime = now
	span.Status = trace.SpanStatusOK
	trunc := Truncate(input.Text, MaxPromptLength)
	span.Attributes["input.text"] = trunc.Text
	if trunc.Truncated {
		span.Attributes["input.length"] = int64(trunc.OriginalLength)
		span.Attributes["input.truncated"] = true
	}
	if input.ImageCount > 0 {
		span.Attributes["input.images"] = int64(input.ImageCount)
	}
	c.sink.BufferSpan(*span)
}

// ToolCall opens a tool span under the current turn, implicitly
// opening a turn if none is open. The call is counted on both rollups
// immediately, so a result that never arrives still shows up in the
// counts.
func (c *Controller) ToolCall(host hostapi.Context, call *hostapi.ToolCallPayload, ts time.Time) {
	if call == nil {
		return
	}
	now := c.at(ts)
	if len(c.turns) == 0 {
		c.BeginTurn(host, now)
	}
	turn := c.turns[len(c.turns)-1]

	span := trace.NewSpan(c.thread.TraceID, turn.span.SpanID, call.Name, now)
	span.Kind = trace.SpanKindClient
	span.SetAttributes(CallAttributes(call))
	span.SetAttributes(ModelAttributes(host.Model()))
	if level := host.ThinkingLevel(); level != "" {
		span.Attributes["thinking.level"] = level
	}

	c.tools[call.CallID] = &openTool{span: span, call: call, rollup: turn.rollup, start: now}
	c.threadRollup.recordToolCall(call.Name)
	turn.rollup.recordToolCall(call.Name)
}

// ToolResult closes the matching tool span. A result with no matching
// open call (duplicate delivery, unknown identifier) is dropped
// silently.
func (c *Controller) ToolResult(result *hostapi.ToolResultPayload, ts time.Time) {
	if result == nil {
		return
	}
	entry, ok := c.tools[result.CallID]
	if !ok {
		c.logger.Debug("tool result without open call", "call_id", result.CallID)
		return
	}
	delete(c.tools, result.CallID)
	now := c.at(ts)
	duration := now.Sub(entry.start)

	summary := SummarizeResult(entry.call, result)
	entry.span.SetAttributes(summary.Attributes)

	name := entry.call.Name
	for _, rollup := range []*aggregates{&c.threadRollup.aggregates, &entry.rollup.aggregates} {
		rollup.recordToolResult(name, duration, result.IsError, summary.OutputBytes)
		if summary.CommandLabel != "" {
			rollup.recordCommand(summary.CommandLabel)
		}
		if summary.FilePath != "" {
			rollup.recordFile(summary.FilePath)
		}
	}

	entry.span.EndTime = now
	if result.IsError {
		entry.span.Status = trace.SpanStatusError
		entry.span.StatusMessage = Truncate(result.ErrorMessage, maxErrorLength).Text
	} else {
		entry.span.Status = trace.SpanStatusOK
	}
	c.sink.BufferSpan(*entry.span)
}

// EndTurn closes the most-recently-opened turn span, folding its
// rollup and the terminal assistant message onto it. With no open
// turn this is a no-op.
func (c *Controller) EndTurn(payload *hostapi.TurnEndPayload, ts time.Time) {
	if len(c.turns) == 0 {
		return
	}
	now := c.at(ts)
	turn := c.turns[len(c.turns)-1]
	c.turns = c.turns[:len(c.turns)-1]

	if payload != nil {
		message := payload.Message
		if message.StopReason != "" {
			turn.span.Attributes["turn.stop_reason"] = message.StopReason
		}
		if message.Text != "" {
			trunc := Truncate(message.Text, MaxPromptLength)
			turn.span.Attributes["response.text"] = trunc.Text
			if trunc.Truncated {
				turn.span.Attributes["response.length"] = int64(trunc.OriginalLength)
				turn.span.Attributes["response.truncated"] = true
			}
		}
		if message.Thinking != "" {
			turn.span.Attributes["response.thinking"] = Truncate(message.Thinking, MaxPromptLength).Text
		}
		turn.span.Attributes["turn.tokens.input"] = message.Usage.InputTokens
		turn.span.Attributes["turn.tokens.output"] = message.Usage.OutputTokens
		if message.Usage.CacheReadTokens > 0 {
			turn.span.Attributes["turn.tokens.cache_read"] = message.Usage.CacheReadTokens
		}
		if message.Usage.CacheWriteTokens > 0 {
			turn.span.Attributes["turn.tokens.cache_write"] = message.Usage.CacheWriteTokens
		}
		if message.Usage.CostUSD > 0 {
			turn.span.Attributes["turn.cost.usd"] = message.Usage.CostUSD
		}
	}

	turn.rollup.Fold(turn.span)
	c.threadRollup.recordTurnDuration(now.Sub(turn.start))
	turn.span.EndTime = now
	turn.span.Status = trace.SpanStatusOK
	c.sink.BufferSpan(*turn.span)
}

// EndTurnSequence finalizes thread-level totals at the end of one
// agent turn-sequence. The thread span's attributes and status are
// brought up to date but the span stays open, because the thread
// outlives individual sequences; the sink is flushed as a natural
// batching boundary.
func (c *Controller) EndTurnSequence(host hostapi.Context, payload *hostapi.SequenceEndPayload, ts time.Time) {
	if c.thread == nil {
		return
	}

	var usage hostapi.TokenUsage
	for _, message := range host.AssistantMessages() {
		usage.InputTokens += message.Usage.InputTokens
		usage.OutputTokens += message.Usage.OutputTokens
		usage.CacheReadTokens += message.Usage.CacheReadTokens
		usage.CacheWriteTokens += message.Usage.CacheWriteTokens
		usage.CostUSD += message.Usage.CostUSD
	}
	c.threadRollup.Usage = usage

	if cu := host.ContextUsage(); cu != nil {
		c.thread.Attributes["context.used_tokens"] = cu.UsedTokens
		c.thread.Attributes["context.max_tokens"] = cu.MaxTokens
		c.thread.Attributes["context.percent"] = cu.Percent()
	}

	aborted := payload != nil && payload.StopReason == "aborted"
	if aborted {
		c.thread.Status = trace.SpanStatusError
		c.thread.StatusMessage = "aborted"
		c.thread.Attributes["thread.aborted"] = true
	} else {
		c.thread.Status = trace.SpanStatusOK
		c.thread.StatusMessage = ""
	}
	if payload != nil && payload.StopReason != "" {
		c.thread.Attributes["thread.stop_reason"] = payload.StopReason
	}
	c.threadRollup.Fold(c.thread)
	c.finalized = true

	c.sink.Flush()
}

// Compaction marks a context-window compaction on the thread rollup.
// Nothing closes; the counter surfaces when the thread span folds.
func (c *Controller) Compaction(payload *hostapi.CompactionPayload) {
	if c.threadRollup == nil {
		return
	}
	c.threadRollup.Compactions++
	if payload != nil && payload.PreTokens > 0 && c.thread != nil {
		c.thread.Attributes["compaction.last_pre_tokens"] = payload.PreTokens
	}
}

// Shutdown force-closes everything still open and performs a blocking
// flush. Open tool and turn spans close with error status; the thread
// span keeps its finalized status if the last sequence completed
// cleanly, and closes with error status otherwise. Afterwards the
// controller is back in the no-thread state.
func (c *Controller) Shutdown(ctx context.Context, ts time.Time) {
	now := c.at(ts)
	hadOpenWork := len(c.tools) > 0 || len(c.turns) > 0

	c.closeOpenWork(now, "unterminated at shutdown")

	if c.thread != nil {
		status, message := trace.SpanStatusOK, ""
		if !c.finalized || hadOpenWork {
			status, message = trace.SpanStatusError, "force-closed at shutdown"
		} else {
			status, message = c.thread.Status, c.thread.StatusMessage
		}
		c.closeThread(now, status, message)
	}

	c.sink.FlushSync(ctx)
	c.pendingInput = nil
	c.previousModel = nil
}

// closeOpenWork force-closes all open tool spans, then all open turn
// spans newest-first, each with error status.
func (c *Controller) closeOpenWork(now time.Time, reason string) {
	for id, entry := range c.tools {
		entry.span.EndTime = now
		entry.span.Status = trace.SpanStatusError
		entry.span.StatusMessage = reason
		c.sink.BufferSpan(*entry.span)
		delete(c.tools, id)
	}
	for i := len(c.turns) - 1; i >= 0; i-- {
		turn := c.turns[i]
		turn.rollup.Fold(turn.span)
		c.threadRollup.recordTurnDuration(now.Sub(turn.start))
		turn.span.EndTime = now
		turn.span.Status = trace.SpanStatusError
		turn.span.StatusMessage = reason
		c.sink.BufferSpan(*turn.span)
	}
	c.turns = nil
}

// closeThread folds the rollup, stamps the final status, exports the
// thread span, and drops all thread state.
func (c *Controller) closeThread(now time.Time, status trace.SpanStatus, message string) {
	c.threadRollup.Fold(c.thread)
	c.thread.EndTime = now
	c.thread.Status = status
	c.thread.StatusMessage = message
	c.sink.BufferSpan(*c.thread)
	c.logger.Debug("thread closed", "trace_id", c.thread.TraceID.String(), "status", int(status))

	c.thread = nil
	c.threadRollup = nil
	c.finalized = false
}
