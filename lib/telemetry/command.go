// Copyright 2026 The Threadline Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import "strings"

// commandFallbackLabel is the attribution label for empty or
// whitespace-only commands.
const commandFallbackLabel = "n/a"

// ExtractCommand normalizes a shell command line into an attribution
// label for the per-command rollup maps: the base program name, plus
// the subcommand when the second token is not a flag.
//
//	"git status --porcelain" -> "git.status"
//	"npm install -D foo"     -> "npm.install"
//	"ls -la"                 -> "ls"
//	"./build.sh --prod"      -> "build.sh"
//	""                       -> "n/a"
func ExtractCommand(raw string) string {
	fields := strings.Fields(strings.TrimSpace(raw))
	if len(fields) == 0 {
		return commandFallbackLabel
	}

	base := strings.TrimPrefix(fields[0], "./")
	if base == "" {
		return commandFallbackLabel
	}
	if len(fields) > 1 && !strings.HasPrefix(fields[1], "-") {
		return base + "." + fields[1]
	}
	return base
}
