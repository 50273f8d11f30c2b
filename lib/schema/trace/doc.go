// Copyright 2026 The Threadline Authors
// SPDX-License-Identifier: Apache-2.0

// Package trace defines the span data model for Threadline's telemetry
// plugin: trace and span identifiers, the Span record itself, and
// cross-trace links.
//
// A Span is created the moment its unit of work begins and is mutated
// only by the owning lifecycle controller. The instant it is closed
// (status assigned, end time stamped) it is handed to the exporter and
// never touched again — the controller passes spans to the exporter by
// value and drops its reference.
//
// Attribute keys are data, not schema: rollup folding produces keys
// like "tool.Bash.count" and "file./src/main.go.count" where the
// middle segment is a runtime string. Consumers should match key
// patterns rather than enumerate a fixed key list.
package trace
