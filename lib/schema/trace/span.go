// Copyright 2026 The Threadline Authors
// SPDX-License-Identifier: Apache-2.0

package trace

import "time"

// SpanKind classifies a span's position in the request topology. The
// numeric values match the OTLP SpanKind enum so serialization is a
// direct cast.
type SpanKind uint8

const (
	// SpanKindInternal is an operation internal to the application.
	// All thread, turn, input, and tool spans are internal.
	SpanKindInternal SpanKind = 1

	// SpanKindServer is a server-side handler span.
	SpanKindServer SpanKind = 2

	// SpanKindClient is an outbound-request span.
	SpanKindClient SpanKind = 3
)

// SpanStatus indicates the outcome of a span's operation. The numeric
// values match the OTLP StatusCode enum.
type SpanStatus uint8

const (
	// SpanStatusUnset means the outcome was not recorded.
	SpanStatusUnset SpanStatus = 0

	// SpanStatusOK means the operation completed successfully.
	SpanStatusOK SpanStatus = 1

	// SpanStatusError means the operation failed. StatusMessage
	// should describe the failure.
	SpanStatusError SpanStatus = 2
)

// Link is a cross-trace reference from one span to a span in another
// trace. Threadline uses links to connect a new thread span to the
// thread it was resumed or forked from. A link implies no ownership
// and no parent/child relationship.
type Link struct {
	// TraceID identifies the linked trace.
	TraceID TraceID `json:"trace_id"`

	// SpanID identifies the linked span within that trace.
	SpanID SpanID `json:"span_id"`

	// Attributes describe the relationship (e.g., "thread.link.relation":
	// "resume").
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Span is a single timed unit of work: a thread, a turn, a captured
// user input, or a tool call. Spans form a tree rooted at the thread
// span via ParentSpanID.
//
// Attribute values are restricted to string, bool, int, int64, and
// float64 — the types the OTLP typed-value mapping distinguishes.
type Span struct {
	// TraceID is shared by all spans within one thread.
	TraceID TraceID `json:"trace_id"`

	// SpanID uniquely identifies this span within its trace.
	SpanID SpanID `json:"span_id"`

	// ParentSpanID identifies this span's parent. Zero only for the
	// thread root span.
	ParentSpanID SpanID `json:"parent_span_id"`

	// Name names the unit of work: "thread", "turn", "input", or
	// "tool <name>".
	Name string `json:"name"`

	// Kind classifies the span. Always SpanKindInternal for spans
	// Threadline creates itself.
	Kind SpanKind `json:"kind"`

	// StartTime is when the unit of work began.
	StartTime time.Time `json:"start_time"`

	// EndTime is when the unit of work finished. Zero while the span
	// is open.
	EndTime time.Time `json:"end_time"`

	// Status is the outcome, assigned when the span closes.
	Status SpanStatus `json:"status"`

	// StatusMessage describes the error when Status is
	// SpanStatusError. Empty otherwise.
	StatusMessage string `json:"status_message,omitempty"`

	// Attributes are span-scoped key-value pairs. Keys produced by
	// rollup folding embed runtime strings (tool names, command
	// labels, file paths) — they are data, not schema.
	Attributes map[string]any `json:"attributes,omitempty"`

	// Links are cross-trace references (resume/fork/tree lineage).
	Links []Link `json:"links,omitempty"`
}

// NewSpan creates an open span with a fresh random SpanID, the given
// identity, and an empty attribute map.
func NewSpan(traceID TraceID, parent SpanID, name string, start time.Time) *Span {
	return &Span{
		TraceID:      traceID,
		SpanID:       NewSpanID(),
		ParentSpanID: parent,
		Name:         name,
		Kind:         SpanKindInternal,
		StartTime:    start,
		Attributes:   make(map[string]any),
	}
}

// Duration returns EndTime - StartTime, or 0 if the span is open.
func (s *Span) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return 0
	}
	return s.EndTime.Sub(s.StartTime)
}

// SetAttributes copies all entries of attrs into the span's attribute
// map, overwriting existing keys. Nil-valued entries are skipped so
// extractors can pass optional fields unconditionally.
func (s *Span) SetAttributes(attrs map[string]any) {
	for key, value := range attrs {
		if value == nil {
			continue
		}
		s.Attributes[key] = value
	}
}
