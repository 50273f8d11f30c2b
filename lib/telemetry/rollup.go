// Copyright 2026 The Threadline Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"time"

	"github.com/threadline-dev/threadline/lib/hostapi"
	"github.com/threadline-dev/threadline/lib/schema/trace"
)

// ToolStat accumulates per-tool-name counters. Duration aggregates
// (avg/max) are derived from these at fold time, never incrementally.
type ToolStat struct {
	Count         int64
	Errors        int64
	TotalDuration time.Duration
	MaxDuration   time.Duration
}

// aggregates are the counters shared by both rollup levels. Every
// increment made to a turn's aggregates is mirrored on the thread's,
// so the turn values always partition the thread values.
type aggregates struct {
	ToolCount   int64
	ToolErrors  int64
	OutputBytes int64
	Tools       map[string]*ToolStat
	Commands    map[string]int64
	Files       map[string]int64
}

func newAggregates() aggregates {
	return aggregates{
		Tools:    make(map[string]*ToolStat),
		Commands: make(map[string]int64),
		Files:    make(map[string]int64),
	}
}

// recordToolCall counts a tool invocation. Calls are counted at call
// time, so a tool whose result never arrives is still attributed.
func (a *aggregates) recordToolCall(name string) {
	a.ToolCount++
	a.toolStat(name).Count++
}

// recordToolResult folds one result's duration, outcome, and output
// size into the counters.
func (a *aggregates) recordToolResult(name string, duration time.Duration, isError bool, outputBytes int64) {
	stat := a.toolStat(name)
	stat.TotalDuration += duration
	if duration > stat.MaxDuration {
		stat.MaxDuration = duration
	}
	if isError {
		a.ToolErrors++
		stat.Errors++
	}
	a.OutputBytes += outputBytes
}

// recordCommand counts one normalized shell-command label.
func (a *aggregates) recordCommand(label string) {
	a.Commands[label]++
}

// recordFile counts one touched file path.
func (a *aggregates) recordFile(path string) {
	a.Files[path]++
}

func (a *aggregates) toolStat(name string) *ToolStat {
	stat, ok := a.Tools[name]
	if !ok {
		stat = &ToolStat{}
		a.Tools[name] = stat
	}
	return stat
}

// foldInto projects the per-tool, per-command, and per-file maps onto
// attrs using the attribute-per-value pattern: each distinct tool
// name, command label, and file path gets its own attribute key
// rather than a packed list, so consumers can query spans by key
// existence.
func (a *aggregates) foldInto(attrs map[string]any) {
	for name, stat := range a.Tools {
		attrs["tool."+name+".count"] = stat.Count
		if stat.Errors > 0 {
			attrs["tool."+name+".errors"] = stat.Errors
		}
		if stat.Count > 0 && stat.TotalDuration > 0 {
			total := stat.TotalDuration.Milliseconds()
			attrs["tool."+name+".duration_ms.total"] = total
			attrs["tool."+name+".duration_ms.max"] = stat.MaxDuration.Milliseconds()
			attrs["tool."+name+".duration_ms.avg"] = float64(total) / float64(stat.Count)
		}
	}
	for label, count := range a.Commands {
		attrs["command."+label+".count"] = count
	}
	for path, count := range a.Files {
		attrs["file."+path+".count"] = count
	}
}

// TurnRollup is the running aggregate of one turn, owned by the
// lifecycle controller and folded onto the turn span exactly once, at
// close time.
type TurnRollup struct {
	aggregates
}

// NewTurnRollup creates an empty turn rollup.
func NewTurnRollup() *TurnRollup {
	return &TurnRollup{aggregates: newAggregates()}
}

// Fold projects the rollup onto the turn span's attributes.
func (r *TurnRollup) Fold(span *trace.Span) {
	span.Attributes["turn.tool.count"] = r.ToolCount
	span.Attributes["turn.tool.errors"] = r.ToolErrors
	span.Attributes["turn.output.bytes"] = r.OutputBytes
	r.foldInto(span.Attributes)
}

// ThreadRollup is the running aggregate of one thread. Created at
// thread start; its counters are a superset of every turn rollup
// collected during the thread. Consumed when the thread span closes,
// then discarded.
type ThreadRollup struct {
	aggregates

	Turns         int64
	ModelSwitches int64
	Compactions   int64
	TurnDurations []time.Duration

	// Usage holds the finalized thread-level token and cost totals,
	// computed at turn-sequence end from all assistant messages.
	Usage hostapi.TokenUsage
}

// NewThreadRollup creates an empty thread rollup.
func NewThreadRollup() *ThreadRollup {
	return &ThreadRollup{aggregates: newAggregates()}
}

// recordTurnDuration appends one closed turn's duration.
func (r *ThreadRollup) recordTurnDuration(duration time.Duration) {
	r.TurnDurations = append(r.TurnDurations, duration)
}

// Fold projects the full rollup onto the thread span's attributes.
// The projection is deterministic and overwrites prior values, so an
// early fold at turn-sequence end is superseded by the final fold at
// close time.
func (r *ThreadRollup) Fold(span *trace.Span) {
	span.Attributes["turn.count"] = r.Turns
	span.Attributes["tool.count"] = r.ToolCount
	span.Attributes["tool.errors"] = r.ToolErrors
	span.Attributes["output.bytes"] = r.OutputBytes
	span.Attributes["model.switches"] = r.ModelSwitches
	span.Attributes["compaction.occurred"] = r.Compactions > 0
	if r.Compactions > 0 {
		span.Attributes["compaction.count"] = r.Compactions
	}

	span.Attributes["tokens.input"] = r.Usage.InputTokens
	span.Attributes["tokens.output"] = r.Usage.OutputTokens
	span.Attributes["tokens.cache_read"] = r.Usage.CacheReadTokens
	span.Attributes["tokens.cache_write"] = r.Usage.CacheWriteTokens
	span.Attributes["cost.usd"] = r.Usage.CostUSD

	if len(r.TurnDurations) > 0 {
		var total, max time.Duration
		for _, duration := range r.TurnDurations {
			total += duration
			if duration > max {
				max = duration
			}
		}
		totalMs := total.Milliseconds()
		span.Attributes["turn.duration_ms.total"] = totalMs
		span.Attributes["turn.duration_ms.max"] = max.Milliseconds()
		span.Attributes["turn.duration_ms.avg"] = float64(totalMs) / float64(len(r.TurnDurations))
	}

	r.foldInto(span.Attributes)
}
