// Copyright 2026 The Threadline Authors
// SPDX-License-Identifier: Apache-2.0

package trace

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// TraceID is a 16-byte globally unique trace identifier. All spans
// causally inside one thread share the same TraceID.
//
// Encoding: JSON uses 32-character lowercase hex text (via
// encoding.TextMarshaler), matching the OTLP JSON mapping.
type TraceID [16]byte

// NewTraceID returns a random TraceID. Randomness comes from
// crypto/rand; a read failure panics because it indicates a broken
// platform RNG, not a recoverable condition.
func NewTraceID() TraceID {
	var id TraceID
	if _, err := rand.Read(id[:]); err != nil {
		panic(fmt.Sprintf("trace: reading random trace ID: %v", err))
	}
	return id
}

// MarshalText implements encoding.TextMarshaler. Returns a
// 32-character lowercase hex string.
func (id TraceID) MarshalText() ([]byte, error) {
	return []byte(hex.EncodeToString(id[:])), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Parses a
// 32-character hex string into a TraceID.
func (id *TraceID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*id = TraceID{}
		return nil
	}
	decoded, err := hex.DecodeString(string(data))
	if err != nil {
		return fmt.Errorf("invalid TraceID hex: %w", err)
	}
	if len(decoded) != 16 {
		return fmt.Errorf("invalid TraceID: expected 16 bytes, got %d", len(decoded))
	}
	copy(id[:], decoded)
	return nil
}

// IsZero reports whether this is an uninitialized zero-value TraceID.
func (id TraceID) IsZero() bool { return id == TraceID{} }

// String returns the 32-character lowercase hex representation.
func (id TraceID) String() string { return hex.EncodeToString(id[:]) }

// SpanID is an 8-byte span identifier, unique within a trace.
type SpanID [8]byte

// NewSpanID returns a random SpanID from crypto/rand.
func NewSpanID() SpanID {
	var id SpanID
	if _, err := rand.Read(id[:]); err != nil {
		panic(fmt.Sprintf("trace: reading random span ID: %v", err))
	}
	return id
}

// MarshalText implements encoding.TextMarshaler. Returns a
// 16-character lowercase hex string.
func (id SpanID) MarshalText() ([]byte, error) {
	return []byte(hex.EncodeToString(id[:])), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Parses a
// 16-character hex string into a SpanID.
func (id *SpanID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*id = SpanID{}
		return nil
	}
	decoded, err := hex.DecodeString(string(data))
	if err != nil {
		return fmt.Errorf("invalid SpanID hex: %w", err)
	}
	if len(decoded) != 8 {
		return fmt.Errorf("invalid SpanID: expected 8 bytes, got %d", len(decoded))
	}
	copy(id[:], decoded)
	return nil
}

// IsZero reports whether this is an uninitialized zero-value SpanID.
func (id SpanID) IsZero() bool { return id == SpanID{} }

// String returns the 16-character lowercase hex representation.
func (id SpanID) String() string { return hex.EncodeToString(id[:]) }
