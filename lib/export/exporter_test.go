// Copyright 2026 The Threadline Authors
// SPDX-License-Identifier: Apache-2.0

package export

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/threadline-dev/threadline/lib/clock"
	"github.com/threadline-dev/threadline/lib/schema/otlp"
	"github.com/threadline-dev/threadline/lib/schema/trace"
)

// closedSpan returns a finished span with the given name.
func closedSpan(name string) trace.Span {
	span := trace.NewSpan(trace.NewTraceID(), trace.SpanID{}, name, time.Unix(100, 0))
	span.EndTime = time.Unix(101, 0)
	span.Status = trace.SpanStatusOK
	return *span
}

// decodeDocument parses one export document and returns its spans.
func decodeDocument(t *testing.T, data []byte) []otlp.Span {
	t.Helper()
	var request otlp.ExportRequest
	if err := json.Unmarshal(data, &request); err != nil {
		t.Fatalf("decoding export document: %v", err)
	}
	if len(request.ResourceSpans) != 1 || len(request.ResourceSpans[0].ScopeSpans) != 1 {
		t.Fatalf("unexpected document nesting: %s", data)
	}
	return request.ResourceSpans[0].ScopeSpans[0].Spans
}

// fileResolver builds a resolver pointed at a file destination in a
// fresh temp dir, returning the resolver and the directory.
func fileResolver(t *testing.T) (*Resolver, string) {
	t.Helper()
	directory := t.TempDir()
	return NewResolver(ResolverOptions{DefaultDirectory: directory}), directory
}

func TestFlushSyncWritesSessionFile(t *testing.T) {
	resolver, directory := fileResolver(t)
	clk := clock.Fake(time.UnixMilli(1_700_000_000_000))

	exporter := New(Options{
		Resolver:  resolver,
		Clock:     clk,
		SessionID: func() string { return "sess-42" },
	})

	exporter.BufferSpan(closedSpan("turn"))
	exporter.BufferSpan(closedSpan("thread"))
	exporter.FlushSync(context.Background())

	entries, err := os.ReadDir(directory)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 telemetry file, got %d", len(entries))
	}
	name := entries[0].Name()
	if name != "sess-42_1700000000000.otlp.jsonl" {
		t.Fatalf("unexpected file name %q", name)
	}

	data, err := os.ReadFile(filepath.Join(directory, name))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 document line, got %d", len(lines))
	}

	spans := decodeDocument(t, []byte(lines[0]))
	if len(spans) != 2 || spans[0].Name != "turn" || spans[1].Name != "thread" {
		t.Fatalf("batch order not preserved: %+v", spans)
	}
}

func TestUnknownSessionFileName(t *testing.T) {
	resolver, directory := fileResolver(t)
	exporter := New(Options{
		Resolver: resolver,
		Clock:    clock.Fake(time.UnixMilli(5)),
	})

	exporter.BufferSpan(closedSpan("thread"))
	exporter.FlushSync(context.Background())

	entries, err := os.ReadDir(directory)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "unknown_5.otlp.jsonl" {
		t.Fatalf("expected unknown_5.otlp.jsonl, got %v", entries)
	}
}

func TestBatchSizeTriggersAsyncFlush(t *testing.T) {
	received := make(chan []otlp.Span, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("content type %q", r.Header.Get("Content-Type"))
		}
		if r.Header.Get("X-Team") != "infra" {
			t.Errorf("configured header missing")
		}
		var request otlp.ExportRequest
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			t.Errorf("decoding body: %v", err)
		}
		received <- request.ResourceSpans[0].ScopeSpans[0].Spans
	}))
	defer server.Close()

	global := writeSettings(t, `{
		"export": "`+server.URL+`",
		"headers": {"X-Team": "infra"},
		"batchSize": 2
	}`)
	resolver := NewResolver(ResolverOptions{GlobalPath: global})
	exporter := New(Options{Resolver: resolver, Clock: clock.Fake(time.Unix(0, 0))})

	exporter.BufferSpan(closedSpan("tool Bash"))
	if exporter.QueueLen() != 1 {
		t.Fatalf("flush fired below batch size")
	}
	exporter.BufferSpan(closedSpan("turn"))

	select {
	case spans := <-received:
		if len(spans) != 2 {
			t.Fatalf("batch had %d spans, want 2", len(spans))
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("no flush within deadline")
	}
	if exporter.QueueLen() != 0 {
		t.Fatalf("queue not drained after flush")
	}
}

func TestTimerFlush(t *testing.T) {
	received := make(chan []otlp.Span, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var request otlp.ExportRequest
		json.NewDecoder(r.Body).Decode(&request)
		received <- request.ResourceSpans[0].ScopeSpans[0].Spans
	}))
	defer server.Close()

	global := writeSettings(t, `{"export": "`+server.URL+`", "flushIntervalMs": 5000}`)
	resolver := NewResolver(ResolverOptions{GlobalPath: global})
	clk := clock.Fake(time.Unix(0, 0))
	exporter := New(Options{Resolver: resolver, Clock: clk})

	exporter.BufferSpan(closedSpan("tool Read"))

	// A second span below the batch threshold must not reset the
	// pending timer — exactly one waiter stays registered.
	exporter.BufferSpan(closedSpan("tool Edit"))
	if clk.PendingWaiters() != 1 {
		t.Fatalf("expected 1 pending timer, got %d", clk.PendingWaiters())
	}

	clk.Advance(5 * time.Second)

	select {
	case spans := <-received:
		if len(spans) != 2 {
			t.Fatalf("timer flush carried %d spans, want 2", len(spans))
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timer flush never delivered")
	}
}

func TestGzipCompression(t *testing.T) {
	received := make(chan *http.Request, 1)
	bodies := make(chan []byte, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := make([]byte, r.ContentLength)
		r.Body.Read(body)
		received <- r
		bodies <- body
	}))
	defer server.Close()

	global := writeSettings(t, `{"export": "`+server.URL+`", "compress": true}`)
	resolver := NewResolver(ResolverOptions{GlobalPath: global})
	exporter := New(Options{Resolver: resolver, Clock: clock.Fake(time.Unix(0, 0))})

	exporter.BufferSpan(closedSpan("thread"))
	exporter.FlushSync(context.Background())

	select {
	case request := <-received:
		if request.Header.Get("Content-Encoding") != "gzip" {
			t.Fatalf("Content-Encoding %q, want gzip", request.Header.Get("Content-Encoding"))
		}
		body := <-bodies
		if len(body) < 2 || body[0] != 0x1f || body[1] != 0x8b {
			t.Fatalf("body is not gzip framed")
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("no request received")
	}
}

func TestSocketDelivery(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "collector.sock")
	listener, err := (&net.ListenConfig{}).Listen(context.Background(), "unix", socketPath)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer listener.Close()

	lines := make(chan string, 1)
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		data, _ := io.ReadAll(conn)
		lines <- string(data)
	}()

	global := writeSettings(t, `{"export": "unix://`+socketPath+`"}`)
	resolver := NewResolver(ResolverOptions{GlobalPath: global})
	exporter := New(Options{Resolver: resolver, Clock: clock.Fake(time.Unix(0, 0))})

	exporter.BufferSpan(closedSpan("thread"))
	exporter.FlushSync(context.Background())

	select {
	case line := <-lines:
		if !strings.HasSuffix(line, "\n") {
			t.Fatalf("socket payload missing trailing newline")
		}
		spans := decodeDocument(t, []byte(strings.TrimSpace(line)))
		if len(spans) != 1 || spans[0].Name != "thread" {
			t.Fatalf("wrong socket payload: %+v", spans)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("socket never received the batch")
	}
}

func TestNoneDestinationDropsSilently(t *testing.T) {
	resolver := NewResolver(ResolverOptions{DefaultDirectory: t.TempDir()})
	t.Setenv(EnvExport, "none")

	exporter := New(Options{Resolver: resolver, Clock: clock.Fake(time.Unix(0, 0))})
	exporter.BufferSpan(closedSpan("thread"))
	exporter.FlushSync(context.Background())

	if exporter.QueueLen() != 0 {
		t.Fatalf("queue not drained by none destination")
	}
}

func TestDeliveryFailuresNeverPropagate(t *testing.T) {
	cases := []string{
		"unix://" + filepath.Join(t.TempDir(), "missing.sock"),
		"http://127.0.0.1:1/v1/traces", // connection refused
		"file:///dev/null/not-a-directory",
	}
	for _, destination := range cases {
		t.Setenv(EnvExport, destination)
		resolver := NewResolver(ResolverOptions{DefaultDirectory: t.TempDir()})
		exporter := New(Options{Resolver: resolver, Clock: clock.Fake(time.Unix(0, 0))})

		exporter.BufferSpan(closedSpan("thread"))
		// Both disciplines must swallow the failure.
		exporter.FlushSync(context.Background())
		exporter.BufferSpan(closedSpan("turn"))
		exporter.Flush()

		if exporter.QueueLen() != 0 {
			t.Fatalf("%s: queue not drained", destination)
		}
	}
}

func TestFlushOnEmptyQueueIsNoOp(t *testing.T) {
	resolver, directory := fileResolver(t)
	exporter := New(Options{Resolver: resolver, Clock: clock.Fake(time.Unix(0, 0))})

	exporter.Flush()
	exporter.FlushSync(context.Background())

	entries, err := os.ReadDir(directory)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("empty flush produced files: %v", entries)
	}
}
