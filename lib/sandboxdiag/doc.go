// Copyright 2026 The Threadline Authors
// SPDX-License-Identifier: Apache-2.0

// Package sandboxdiag diagnoses sandboxed tool execution. It detects
// what sandboxing the system supports (bubblewrap, unprivileged user
// namespaces) and classifies tool failures that look like sandbox
// denials, so users get one actionable notice instead of a wall of
// permission errors.
package sandboxdiag
