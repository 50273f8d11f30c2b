// Copyright 2026 The Threadline Authors
// SPDX-License-Identifier: Apache-2.0

package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/threadline-dev/threadline/lib/clock"
	"github.com/threadline-dev/threadline/lib/schema/otlp"
	"github.com/threadline-dev/threadline/lib/schema/trace"
	"github.com/threadline-dev/threadline/lib/version"
)

// Options configure an Exporter.
type Options struct {
	// Resolver supplies the destination and batching policy. It is
	// consulted on every buffered span and every flush, so
	// environment overrides take effect without restarting.
	Resolver *Resolver

	// Clock drives the flush timer and file naming. Nil uses the
	// real clock.
	Clock clock.Clock

	// Logger receives debug-level delivery diagnostics. Nil
	// discards them.
	Logger *slog.Logger

	// SessionID returns the current host session ID for file
	// naming. Nil or an empty return uses "unknown".
	SessionID func() string

	// ServiceName overrides the service.name resource attribute.
	// Empty uses "threadline".
	ServiceName string
}

// Exporter buffers completed spans and flushes them as OTLP JSON
// documents. Spans are buffered in completion order and a batch
// preserves that order in its output array.
//
// The queue is the only structure touched by both the synchronous
// buffering path and the timer callback; both go through the same
// mutex-guarded drain, so the timer can never observe a half-appended
// queue. At most one flush timer is outstanding: buffering starts a
// timer only when none is pending, and every drain stops it.
type Exporter struct {
	resolver    *Resolver
	clk         clock.Clock
	logger      *slog.Logger
	sessionID   func() string
	serviceName string

	mu    sync.Mutex
	queue []otlp.Span
	timer *clock.Timer
}

// New creates an Exporter. Options.Resolver is required.
func New(options Options) *Exporter {
	if options.Resolver == nil {
		panic("export: Options.Resolver is required")
	}
	exporter := &Exporter{
		resolver:    options.Resolver,
		clk:         options.Clock,
		logger:      options.Logger,
		sessionID:   options.SessionID,
		serviceName: options.ServiceName,
	}
	if exporter.clk == nil {
		exporter.clk = clock.Real()
	}
	if exporter.logger == nil {
		exporter.logger = slog.New(slog.DiscardHandler)
	}
	if exporter.sessionID == nil {
		exporter.sessionID = func() string { return "" }
	}
	if exporter.serviceName == "" {
		exporter.serviceName = "threadline"
	}
	return exporter
}

// BufferSpan appends the serialized form of a completed span to the
// queue. If the queue has reached the configured batch size an
// immediate asynchronous flush is triggered; otherwise a timer flush
// is scheduled if none is pending (a pending timer is left alone —
// scheduling is idempotent, not reset per span).
//
// The span is converted before queueing; the caller must not mutate
// it afterwards.
func (e *Exporter) BufferSpan(span trace.Span) {
	record := otlp.FromSpan(span)
	config := e.resolver.Resolve()

	e.mu.Lock()
	e.queue = append(e.queue, record)
	full := len(e.queue) >= config.BatchSize
	if !full && e.timer == nil {
		e.timer = e.clk.AfterFunc(config.FlushInterval, e.timerFire)
	}
	e.mu.Unlock()

	if full {
		e.Flush()
	}
}

// QueueLen returns the number of spans currently buffered.
func (e *Exporter) QueueLen() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}

// timerFire runs when the flush timer elapses. It clears the timer
// slot before flushing so a new timer can be scheduled for spans that
// arrive during delivery.
func (e *Exporter) timerFire() {
	e.mu.Lock()
	e.timer = nil
	e.mu.Unlock()
	e.Flush()
}

// Flush drains the queue and hands the batch to asynchronous
// delivery. It never blocks on the destination and never returns an
// error: once drained, a batch is committed to being sent — delivery
// failures are logged and the batch is dropped, never re-queued ahead
// of newer spans.
func (e *Exporter) Flush() {
	batch := e.drain()
	if batch == nil {
		return
	}
	config := e.resolver.Resolve()
	go bestEffort(e.logger, "flush", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), asyncDeliveryBudget)
		defer cancel()
		return e.deliver(ctx, config, batch)
	})
}

// FlushSync drains the queue and delivers the batch on the calling
// goroutine. Used only at shutdown and on process-termination
// signals, so the flush completes before process exit. Like Flush it
// swallows delivery failures.
func (e *Exporter) FlushSync(ctx context.Context) {
	batch := e.drain()
	if batch == nil {
		return
	}
	config := e.resolver.Resolve()
	bestEffort(e.logger, "sync flush", func() error {
		return e.deliver(ctx, config, batch)
	})
}

// drain atomically takes the queued batch and cancels any pending
// timer. Returns nil when the queue is empty.
func (e *Exporter) drain() []otlp.Span {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	if len(e.queue) == 0 {
		return nil
	}
	batch := e.queue
	e.queue = nil
	return batch
}

// deliver serializes one batch into a complete OTLP export document
// and sends it to the configured destination.
func (e *Exporter) deliver(ctx context.Context, config Config, batch []otlp.Span) error {
	request := otlp.NewExportRequest(e.serviceName, version.Info(), batch)
	document, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("encoding export document: %w", err)
	}
	return e.newDeliverer(config).deliver(ctx, document)
}
