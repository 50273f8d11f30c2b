// Copyright 2026 The Threadline Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"unicode/utf8"

	"github.com/threadline-dev/threadline/lib/hostapi"
	"github.com/threadline-dev/threadline/lib/sandboxdiag"
)

// CallAttributes derives the attribute set recorded on a tool span at
// open time, from the call payload alone. Missing or wrong-typed
// input fields produce no attribute; extraction never fails.
func CallAttributes(call *hostapi.ToolCallPayload) map[string]any {
	attrs := map[string]any{
		"tool.name": call.Name,
		"tool.kind": string(call.Kind),
	}
	if call.CallID != "" {
		attrs["tool.call_id"] = call.CallID
	}
	switch call.Kind {
	case hostapi.ToolKindShell:
		if command, ok := stringInput(call.Input, "command"); ok {
			trunc := Truncate(command, MaxCommandLength)
			attrs["tool.command"] = trunc.Text
			if trunc.Truncated {
				attrs["tool.command.length"] = int64(trunc.OriginalLength)
				attrs["tool.command.truncated"] = true
			}
			attrs["tool.command.label"] = ExtractCommand(command)
		}
	case hostapi.ToolKindRead:
		if path, ok := stringInput(call.Input, "file_path", "path"); ok {
			attrs["tool.file.path"] = path
		}
		if offset, ok := intInput(call.Input, "offset"); ok {
			attrs["tool.read.offset"] = offset
		}
		if limit, ok := intInput(call.Input, "limit"); ok {
			attrs["tool.read.limit"] = limit
		}
	case hostapi.ToolKindEdit:
		if path, ok := stringInput(call.Input, "file_path", "path"); ok {
			attrs["tool.file.path"] = path
		}
		if old, ok := stringInput(call.Input, "old_string"); ok {
			attrs["tool.edit.old_bytes"] = int64(len(old))
		}
		if replacement, ok := stringInput(call.Input, "new_string"); ok {
			attrs["tool.edit.new_bytes"] = int64(len(replacement))
		}
	case hostapi.ToolKindWrite:
		if path, ok := stringInput(call.Input, "file_path", "path"); ok {
			attrs["tool.file.path"] = path
		}
		if content, ok := stringInput(call.Input, "content"); ok {
			attrs["tool.write.bytes"] = int64(len(content))
		}
	}
	return attrs
}

// ResultSummary carries everything the lifecycle controller needs
// from one tool result: the attributes to set on the closing tool
// span, plus the labels the rollups count by.
type ResultSummary struct {
	Attributes map[string]any

	// CommandLabel is the normalized shell-command label, empty for
	// non-shell tools or when no command was present in the call.
	CommandLabel string

	// FilePath is the touched file for read/edit/write tools, empty
	// otherwise.
	FilePath string

	// OutputBytes is the size of the result content before any
	// telemetry-side truncation.
	OutputBytes int64
}

// SummarizeResult derives the attribute set and rollup labels for a
// completed tool call. The call payload supplies identity and input
// parameters; the result supplies content, error state, and host
// metadata. Either side being sparse just means fewer attributes.
func SummarizeResult(call *hostapi.ToolCallPayload, result *hostapi.ToolResultPayload) ResultSummary {
	summary := ResultSummary{Attributes: map[string]any{}}

	switch call.Kind {
	case hostapi.ToolKindShell:
		if command, ok := stringInput(call.Input, "command"); ok {
			summary.CommandLabel = ExtractCommand(command)
		}
	case hostapi.ToolKindRead, hostapi.ToolKindEdit, hostapi.ToolKindWrite:
		if path, ok := stringInput(call.Input, "file_path", "path"); ok {
			summary.FilePath = path
		}
	}

	if result.Content != "" {
		summary.OutputBytes = int64(len(result.Content))
		trunc := Truncate(result.Content, MaxOutputLength)
		summary.Attributes["tool.output"] = trunc.Text
		summary.Attributes["tool.output.bytes"] = summary.OutputBytes
		if trunc.Truncated {
			summary.Attributes["tool.output.length"] = int64(trunc.OriginalLength)
			summary.Attributes["tool.output.truncated"] = true
		}
	}
	// A host-side clip is distinct from our own storage truncation:
	// the host already dropped content we never saw.
	if result.Truncated {
		summary.Attributes["tool.output.clipped"] = true
	}

	if result.IsError {
		summary.Attributes["tool.error"] = true
		if result.ErrorMessage != "" {
			summary.Attributes["error.message"] = Truncate(result.ErrorMessage, maxErrorLength).Text
			if cause, ok := sandboxdiag.ClassifyDenial(result.ErrorMessage); ok {
				summary.Attributes["sandbox.denied"] = true
				summary.Attributes["sandbox.denial"] = cause
			}
		}
	}

	for key, value := range metadataAttributes(result.Metadata) {
		summary.Attributes[key] = value
	}
	return summary
}

// metadataAttributes lifts scalar host metadata onto the span under
// the tool.meta. prefix. Non-scalar values are dropped, and string
// values are bounded the same way output is.
func metadataAttributes(metadata map[string]any) map[string]any {
	if len(metadata) == 0 {
		return nil
	}
	attrs := make(map[string]any, len(metadata))
	for key, value := range metadata {
		switch v := value.(type) {
		case string:
			if utf8.RuneCountInString(v) > MaxOutputLength {
				v = Truncate(v, MaxOutputLength).Text
			}
			attrs["tool.meta."+key] = v
		case bool:
			attrs["tool.meta."+key] = v
		case int:
			attrs["tool.meta."+key] = int64(v)
		case int64, float64:
			attrs["tool.meta."+key] = v
		}
	}
	return attrs
}

// stringInput returns the first of keys present in input as a
// non-empty string.
func stringInput(input map[string]any, keys ...string) (string, bool) {
	for _, key := range keys {
		if value, ok := input[key].(string); ok && value != "" {
			return value, true
		}
	}
	return "", false
}

// intInput returns input[key] as an int64, accepting the numeric
// types a JSON decode or a native host payload may carry.
func intInput(input map[string]any, key string) (int64, bool) {
	switch v := input[key].(type) {
	case int:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		return int64(v), true
	}
	return 0, false
}
