// Copyright 2026 The Threadline Authors
// SPDX-License-Identifier: Apache-2.0

package sandboxdiag

import "strings"

// denialPatterns maps error-text fragments to a denial cause. The
// fragments are the kernel/libc strings sandboxed processes actually
// surface; the cause names the restricted resource class.
var denialPatterns = []struct {
	fragment string
	cause    string
}{
	{"read-only file system", "filesystem"},
	{"permission denied", "filesystem"},
	{"operation not permitted", "process"},
	{"network is unreachable", "network"},
	{"temporary failure in name resolution", "network"},
	{"connection refused", "network"},
	{"no new privileges", "process"},
	{"seccomp", "process"},
}

// ClassifyDenial reports whether an error message looks like a
// sandbox denial, and if so which resource class was denied
// ("filesystem", "network", or "process"). Matching is substring,
// case-insensitive; the first pattern wins.
func ClassifyDenial(message string) (string, bool) {
	lowered := strings.ToLower(message)
	for _, p := range denialPatterns {
		if strings.Contains(lowered, p.fragment) {
			return p.cause, true
		}
	}
	return "", false
}
