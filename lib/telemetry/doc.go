// Copyright 2026 The Threadline Authors
// SPDX-License-Identifier: Apache-2.0

// Package telemetry is Threadline's trace-building plugin: it turns
// the host's lifecycle event stream into a hierarchical trace (thread
// → turn → tool spans), maintains rollup aggregates folded onto spans
// at close time, and hands finished spans to the batched exporter.
//
// The [Controller] owns all mutable state for one thread: the open
// thread span, the turn stack, the open-tool table, and both rollup
// levels. It is constructed per host session, never as a process-wide
// singleton, and relies on the host serializing event delivery — no
// internal locking, no internal parallelism. The only asynchrony in
// the subsystem lives inside lib/export.
//
// Nothing in this package may let an error reach the host. Unmatched
// tool results are dropped, malformed payload fields just omit their
// attribute, and the exporter swallows delivery failures behind its
// best-effort boundary.
package telemetry
