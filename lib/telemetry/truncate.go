// Copyright 2026 The Threadline Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

// Truncation bounds for stored text attributes, in characters
// (runes). Free-form prompt/response/system-prompt text gets the
// largest budget; shell commands and tool output are tighter because
// they recur once per tool call.
const (
	MaxPromptLength  = 10000
	MaxCommandLength = 2000
	MaxOutputLength  = 5000

	// maxErrorLength bounds the error-message attribute attached to
	// failed tool results.
	maxErrorLength = 1000
)

// truncationMarker is appended to truncated text. It counts toward
// the length bound, which is what makes Truncate idempotent: output
// is always at or under the bound, so re-truncating it is a no-op.
const truncationMarker = "…[truncated]"

// Truncation is the result of bounding a string for storage.
type Truncation struct {
	// Text is the possibly-truncated text, with a trailing marker
	// when truncation occurred.
	Text string

	// OriginalLength is the rune length of the input.
	OriginalLength int

	// Truncated reports whether any text was cut.
	Truncated bool
}

// Truncate bounds s to max runes. Strings at or under the bound are
// returned unchanged. Truncation counts runes, not bytes, so
// multi-byte characters are never split.
//
// Idempotent: Truncate(Truncate(s, n).Text, n).Text ==
// Truncate(s, n).Text for all s and n.
func Truncate(s string, max int) Truncation {
	runes := []rune(s)
	length := len(runes)
	if length <= max {
		return Truncation{Text: s, OriginalLength: length}
	}

	marker := []rune(truncationMarker)
	if max <= len(marker) {
		return Truncation{Text: string(runes[:max]), OriginalLength: length, Truncated: true}
	}
	return Truncation{
		Text:           string(runes[:max-len(marker)]) + truncationMarker,
		OriginalLength: length,
		Truncated:      true,
	}
}
