// Copyright 2026 The Threadline Authors
// SPDX-License-Identifier: Apache-2.0

// Package export buffers completed spans, batches them, and delivers
// OTLP JSON export documents to the configured destination: an
// append-only file, an HTTP endpoint, a Unix-domain socket, or
// nowhere at all.
//
// The exporter is strictly best-effort. Delivery failures are
// swallowed at the export boundary — logged at debug level, never
// propagated to the lifecycle controller or the host. The single
// place that contract is enforced is the bestEffort wrapper every
// delivery path runs under.
//
// Two flush entry points share one drain step: [Exporter.Flush] hands
// the drained batch to a delivery goroutine and returns immediately,
// while [Exporter.FlushSync] delivers on the calling goroutine and is
// used only at shutdown and on termination signals, so the flush
// completes before process exit.
package export
