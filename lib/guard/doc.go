// Copyright 2026 The Threadline Authors
// SPDX-License-Identifier: Apache-2.0

// Package guard runs validation commands after file-mutating tool
// calls. Rules pair glob patterns (tool name, file path) with a shell
// command; when an edit or write succeeds against a matching path,
// the command runs under a timeout and its verdict is surfaced to the
// user. The runner itself is best-effort: a rule that fails to
// execute is logged and skipped, never escalated to the host.
package guard
