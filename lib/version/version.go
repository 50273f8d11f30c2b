// Copyright 2026 The Threadline Authors
// SPDX-License-Identifier: Apache-2.0

// Package version carries build version information for Threadline
// binaries and for the telemetry resource attributes.
//
// Values are injected at build time via -ldflags, for example:
//
//	go build -ldflags "-X github.com/threadline-dev/threadline/lib/version.GitCommit=$(git rev-parse --short HEAD)"
package version

import "fmt"

// These variables are set via -ldflags at build time.
var (
	// Version is the semantic version, set manually for releases.
	Version = "0.1.0-dev"

	// GitCommit is the short git SHA of the build.
	GitCommit = "unknown"
)

// Info returns a formatted version string suitable for --version
// output and for the telemetry service.version resource attribute.
func Info() string {
	return fmt.Sprintf("%s (%s)", Version, GitCommit)
}
