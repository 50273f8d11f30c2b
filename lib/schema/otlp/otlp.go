// Copyright 2026 The Threadline Authors
// SPDX-License-Identifier: Apache-2.0

// Package otlp maps Threadline's internal span model onto the OTLP
// JSON trace export document (resourceSpans/scopeSpans/spans nesting,
// typed attribute values, nanosecond timestamps as decimal strings).
//
// Only the fields the export pipeline produces are modeled; this is a
// serializer for the fixed OTLP shape, not a general OTLP client.
package otlp

import (
	"sort"
	"strconv"

	"github.com/threadline-dev/threadline/lib/schema/trace"
)

// ExportRequest is the top-level OTLP trace export document. One
// document is produced per flush.
type ExportRequest struct {
	ResourceSpans []ResourceSpans `json:"resourceSpans"`
}

// ResourceSpans groups spans under one emitting resource.
type ResourceSpans struct {
	Resource   Resource     `json:"resource"`
	ScopeSpans []ScopeSpans `json:"scopeSpans"`
}

// Resource identifies the emitting process via attributes
// (service.name, service.version).
type Resource struct {
	Attributes []KeyValue `json:"attributes"`
}

// ScopeSpans groups spans under one instrumentation scope.
type ScopeSpans struct {
	Scope Scope  `json:"scope"`
	Spans []Span `json:"spans"`
}

// Scope names the instrumentation library.
type Scope struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

// Span is one span in OTLP JSON form. Timestamps are Unix nanoseconds
// rendered as decimal strings, per the proto3 JSON mapping of fixed64.
type Span struct {
	TraceID           string     `json:"traceId"`
	SpanID            string     `json:"spanId"`
	ParentSpanID      string     `json:"parentSpanId,omitempty"`
	Name              string     `json:"name"`
	Kind              int        `json:"kind"`
	StartTimeUnixNano string     `json:"startTimeUnixNano"`
	EndTimeUnixNano   string     `json:"endTimeUnixNano"`
	Attributes        []KeyValue `json:"attributes,omitempty"`
	Links             []Link     `json:"links,omitempty"`
	Status            Status     `json:"status"`
}

// Link is a cross-trace reference in OTLP JSON form.
type Link struct {
	TraceID    string     `json:"traceId"`
	SpanID     string     `json:"spanId"`
	Attributes []KeyValue `json:"attributes,omitempty"`
}

// Status carries the outcome code and optional message.
type Status struct {
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
}

// KeyValue is one typed attribute.
type KeyValue struct {
	Key   string   `json:"key"`
	Value AnyValue `json:"value"`
}

// AnyValue holds exactly one of the typed-value fields. The type is
// inferred from the attribute's Go runtime type: integers serialize
// as intValue (a decimal string, per proto3 JSON int64 mapping),
// floating-point values as doubleValue.
type AnyValue struct {
	StringValue *string  `json:"stringValue,omitempty"`
	BoolValue   *bool    `json:"boolValue,omitempty"`
	IntValue    *string  `json:"intValue,omitempty"`
	DoubleValue *float64 `json:"doubleValue,omitempty"`
}

// Value converts a Go attribute value to its OTLP typed form. Values
// outside the supported set fall back to their fmt-free string form
// only when they already are strings; anything else is dropped by
// returning ok=false (missing fields are omitted, never an error).
func Value(v any) (AnyValue, bool) {
	switch value := v.(type) {
	case string:
		return AnyValue{StringValue: &value}, true
	case bool:
		return AnyValue{BoolValue: &value}, true
	case int:
		text := strconv.FormatInt(int64(value), 10)
		return AnyValue{IntValue: &text}, true
	case int64:
		text := strconv.FormatInt(value, 10)
		return AnyValue{IntValue: &text}, true
	case float64:
		return AnyValue{DoubleValue: &value}, true
	default:
		return AnyValue{}, false
	}
}

// Attributes converts an attribute map to a sorted OTLP attribute
// list. Sorting makes documents deterministic for tests and for
// byte-level deduplication by consumers; OTLP itself treats attribute
// order as irrelevant.
func Attributes(attrs map[string]any) []KeyValue {
	if len(attrs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(attrs))
	for key := range attrs {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	list := make([]KeyValue, 0, len(keys))
	for _, key := range keys {
		value, ok := Value(attrs[key])
		if !ok {
			continue
		}
		list = append(list, KeyValue{Key: key, Value: value})
	}
	return list
}

// FromSpan converts an internal span to its OTLP JSON form.
func FromSpan(span trace.Span) Span {
	converted := Span{
		TraceID:           span.TraceID.String(),
		SpanID:            span.SpanID.String(),
		Name:              span.Name,
		Kind:              int(span.Kind),
		StartTimeUnixNano: strconv.FormatInt(span.StartTime.UnixNano(), 10),
		EndTimeUnixNano:   strconv.FormatInt(span.EndTime.UnixNano(), 10),
		Attributes:        Attributes(span.Attributes),
		Status:            Status{Code: int(span.Status), Message: span.StatusMessage},
	}
	if !span.ParentSpanID.IsZero() {
		converted.ParentSpanID = span.ParentSpanID.String()
	}
	for _, link := range span.Links {
		converted.Links = append(converted.Links, Link{
			TraceID:    link.TraceID.String(),
			SpanID:     link.SpanID.String(),
			Attributes: Attributes(link.Attributes),
		})
	}
	return converted
}

// NewExportRequest wraps already-converted spans in the resource and
// scope nesting OTLP requires. The spans slice is used as-is: the
// exporter buffers spans in completion order and that order must be
// preserved in the output array.
func NewExportRequest(serviceName, serviceVersion string, spans []Span) ExportRequest {
	return ExportRequest{
		ResourceSpans: []ResourceSpans{{
			Resource: Resource{
				Attributes: Attributes(map[string]any{
					"service.name":    serviceName,
					"service.version": serviceVersion,
				}),
			},
			ScopeSpans: []ScopeSpans{{
				Scope: Scope{Name: serviceName, Version: serviceVersion},
				Spans: spans,
			}},
		}},
	}
}
