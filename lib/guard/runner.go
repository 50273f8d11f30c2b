// Copyright 2026 The Threadline Authors
// SPDX-License-Identifier: Apache-2.0

package guard

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
)

// Result is the outcome of one validation command.
type Result struct {
	// Rule is the name of the rule that ran.
	Rule string

	// Path is the mutated file the rule matched.
	Path string

	// Passed is true when the command exited zero.
	Passed bool

	// Output is combined stdout/stderr, trimmed.
	Output string

	// TimedOut is true when the command was killed at the rule's
	// timeout.
	TimedOut bool
}

// Runner executes one rule's command against a mutated file. The
// plugin's default runs the command through the shell; tests
// substitute their own.
type Runner func(ctx context.Context, rule Rule, dir, path string) Result

// Run executes the rule's command via "sh -c" in dir, with the rule's
// timeout applied on top of ctx. The mutated path is exposed to the
// command as $THREADLINE_FILE.
func Run(ctx context.Context, rule Rule, dir, path string) Result {
	ctx, cancel := context.WithTimeout(ctx, rule.Timeout())
	defer cancel()

	var output bytes.Buffer
	command := exec.CommandContext(ctx, "sh", "-c", rule.Command)
	command.Dir = dir
	command.Env = append(command.Environ(), "THREADLINE_FILE="+path)
	command.Stdout = &output
	command.Stderr = &output

	err := command.Run()
	return Result{
		Rule:     rule.Name,
		Path:     path,
		Passed:   err == nil,
		Output:   strings.TrimSpace(output.String()),
		TimedOut: ctx.Err() == context.DeadlineExceeded,
	}
}
