// Copyright 2026 The Threadline Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"strings"
	"testing"

	"github.com/threadline-dev/threadline/lib/hostapi"
)

func TestCallAttributesShell(t *testing.T) {
	call := &hostapi.ToolCallPayload{
		CallID: "c1",
		Name:   "Bash",
		Kind:   hostapi.ToolKindShell,
		Input:  map[string]any{"command": "git status --porcelain"},
	}
	attrs := CallAttributes(call)
	if got := attrs["tool.name"]; got != "Bash" {
		t.Fatalf("tool.name = %v", got)
	}
	if got := attrs["tool.kind"]; got != "shell" {
		t.Fatalf("tool.kind = %v", got)
	}
	if got := attrs["tool.command"]; got != "git status --porcelain" {
		t.Fatalf("tool.command = %v", got)
	}
	if got := attrs["tool.command.label"]; got != "git.status" {
		t.Fatalf("tool.command.label = %v", got)
	}
	if _, ok := attrs["tool.command.truncated"]; ok {
		t.Fatal("short command marked truncated")
	}
}

func TestCallAttributesShellTruncatesLongCommand(t *testing.T) {
	long := strings.Repeat("x", MaxCommandLength+500)
	call := &hostapi.ToolCallPayload{
		Name:  "Bash",
		Kind:  hostapi.ToolKindShell,
		Input: map[string]any{"command": long},
	}
	attrs := CallAttributes(call)
	command := attrs["tool.command"].(string)
	if len([]rune(command)) != MaxCommandLength {
		t.Fatalf("truncated command length = %d, want %d", len([]rune(command)), MaxCommandLength)
	}
	if !strings.HasSuffix(command, truncationMarker) {
		t.Fatal("truncated command lacks marker")
	}
	if got := attrs["tool.command.length"]; got != int64(MaxCommandLength+500) {
		t.Fatalf("tool.command.length = %v", got)
	}
	if got := attrs["tool.command.truncated"]; got != true {
		t.Fatalf("tool.command.truncated = %v", got)
	}
}

func TestCallAttributesFileKinds(t *testing.T) {
	tests := []struct {
		kind  hostapi.ToolKind
		input map[string]any
		key   string
		want  any
	}{
		{hostapi.ToolKindRead, map[string]any{"file_path": "a.go", "offset": float64(10)}, "tool.read.offset", int64(10)},
		{hostapi.ToolKindEdit, map[string]any{"path": "b.go", "old_string": "xx", "new_string": "yyyy"}, "tool.edit.new_bytes", int64(4)},
		{hostapi.ToolKindWrite, map[string]any{"file_path": "c.go", "content": "hello"}, "tool.write.bytes", int64(5)},
	}
	for _, tt := range tests {
		attrs := CallAttributes(&hostapi.ToolCallPayload{Name: "t", Kind: tt.kind, Input: tt.input})
		if _, ok := attrs["tool.file.path"]; !ok {
			t.Fatalf("%s: tool.file.path missing", tt.kind)
		}
		if got := attrs[tt.key]; got != tt.want {
			t.Fatalf("%s: %s = %v, want %v", tt.kind, tt.key, got, tt.want)
		}
	}
}

func TestCallAttributesMissingFieldsOmitted(t *testing.T) {
	attrs := CallAttributes(&hostapi.ToolCallPayload{Name: "Bash", Kind: hostapi.ToolKindShell})
	if _, ok := attrs["tool.command"]; ok {
		t.Fatal("tool.command present without input")
	}
	// Wrong-typed field is treated as absent.
	attrs = CallAttributes(&hostapi.ToolCallPayload{
		Name: "Read", Kind: hostapi.ToolKindRead,
		Input: map[string]any{"file_path": 42},
	})
	if _, ok := attrs["tool.file.path"]; ok {
		t.Fatal("tool.file.path present for non-string value")
	}
}

func TestSummarizeResultOutputAndLabels(t *testing.T) {
	call := &hostapi.ToolCallPayload{
		Name: "Bash", Kind: hostapi.ToolKindShell,
		Input: map[string]any{"command": "npm install -D foo"},
	}
	result := &hostapi.ToolResultPayload{
		CallID:  "c1",
		Content: "added 12 packages",
		Metadata: map[string]any{
			"exit_code": 0,
			"ignored":   []string{"not", "scalar"},
		},
	}
	summary := SummarizeResult(call, result)
	if summary.CommandLabel != "npm.install" {
		t.Fatalf("CommandLabel = %q, want npm.install", summary.CommandLabel)
	}
	if summary.OutputBytes != int64(len("added 12 packages")) {
		t.Fatalf("OutputBytes = %d", summary.OutputBytes)
	}
	if got := summary.Attributes["tool.output"]; got != "added 12 packages" {
		t.Fatalf("tool.output = %v", got)
	}
	if got := summary.Attributes["tool.meta.exit_code"]; got != int64(0) {
		t.Fatalf("tool.meta.exit_code = %v, want 0", got)
	}
	if _, ok := summary.Attributes["tool.meta.ignored"]; ok {
		t.Fatal("non-scalar metadata lifted onto span")
	}
}

func TestSummarizeResultTruncatesOutput(t *testing.T) {
	call := &hostapi.ToolCallPayload{Name: "Bash", Kind: hostapi.ToolKindShell}
	result := &hostapi.ToolResultPayload{
		Content:   strings.Repeat("y", MaxOutputLength+1),
		Truncated: true,
	}
	summary := SummarizeResult(call, result)
	output := summary.Attributes["tool.output"].(string)
	if len([]rune(output)) != MaxOutputLength {
		t.Fatalf("output length = %d, want %d", len([]rune(output)), MaxOutputLength)
	}
	if got := summary.Attributes["tool.output.truncated"]; got != true {
		t.Fatal("tool.output.truncated not set")
	}
	// The host-side clip is a separate signal from our truncation.
	if got := summary.Attributes["tool.output.clipped"]; got != true {
		t.Fatal("tool.output.clipped not propagated")
	}
}

func TestSummarizeResultErrorAndDenial(t *testing.T) {
	call := &hostapi.ToolCallPayload{
		Name: "Bash", Kind: hostapi.ToolKindShell,
		Input: map[string]any{"command": "touch /etc/hosts"},
	}
	result := &hostapi.ToolResultPayload{
		IsError:      true,
		ErrorMessage: "touch: cannot touch '/etc/hosts': Read-only file system",
	}
	summary := SummarizeResult(call, result)
	if got := summary.Attributes["tool.error"]; got != true {
		t.Fatal("tool.error not set")
	}
	if got := summary.Attributes["error.message"]; got != result.ErrorMessage {
		t.Fatalf("error.message = %v", got)
	}
	if got := summary.Attributes["sandbox.denied"]; got != true {
		t.Fatal("sandbox.denied not set")
	}
	if got := summary.Attributes["sandbox.denial"]; got != "filesystem" {
		t.Fatalf("sandbox.denial = %v, want filesystem", got)
	}
}

func TestSummarizeResultBoundsErrorMessage(t *testing.T) {
	call := &hostapi.ToolCallPayload{Name: "custom", Kind: hostapi.ToolKindOther}
	result := &hostapi.ToolResultPayload{
		IsError:      true,
		ErrorMessage: strings.Repeat("e", maxErrorLength*2),
	}
	summary := SummarizeResult(call, result)
	message := summary.Attributes["error.message"].(string)
	if len([]rune(message)) != maxErrorLength {
		t.Fatalf("error.message length = %d, want %d", len([]rune(message)), maxErrorLength)
	}
}

func TestSummarizeResultFilePath(t *testing.T) {
	call := &hostapi.ToolCallPayload{
		Name: "Edit", Kind: hostapi.ToolKindEdit,
		Input: map[string]any{"file_path": "lib/a.go"},
	}
	summary := SummarizeResult(call, &hostapi.ToolResultPayload{Content: "ok"})
	if summary.FilePath != "lib/a.go" {
		t.Fatalf("FilePath = %q, want lib/a.go", summary.FilePath)
	}
	if summary.CommandLabel != "" {
		t.Fatalf("CommandLabel = %q, want empty for edit", summary.CommandLabel)
	}
}
