// Copyright 2026 The Threadline Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/threadline-dev/threadline/lib/hostapi"
	"github.com/threadline-dev/threadline/lib/version"
)

// gitProbeBudget bounds the git subprocesses run at thread start.
// Environment capture is best-effort; a wedged git must not stall
// event handling noticeably.
const gitProbeBudget = 2 * time.Second

// EnvironmentAttributes captures process, platform, and repository
// identity for a new thread span. Every field is best-effort: a
// missing git binary or a non-repository working directory simply
// yields fewer attributes.
func EnvironmentAttributes(workingDirectory string) map[string]any {
	attrs := map[string]any{
		"process.pid":     int64(os.Getpid()),
		"platform.os":     runtime.GOOS,
		"platform.arch":   runtime.GOARCH,
		"service.version": version.Version,
	}
	if workingDirectory != "" {
		attrs["workspace.directory"] = workingDirectory
	}
	if hostname, err := os.Hostname(); err == nil {
		attrs["platform.hostname"] = hostname
	}
	for key, value := range gitAttributes(workingDirectory) {
		attrs[key] = value
	}
	return attrs
}

// ModelAttributes projects a model descriptor onto span attributes.
// Nil descriptors produce an empty map.
func ModelAttributes(model *hostapi.ModelDescriptor) map[string]any {
	if model == nil {
		return map[string]any{}
	}
	attrs := map[string]any{
		"model.provider": model.Provider,
		"model.id":       model.ID,
	}
	if model.Name != "" {
		attrs["model.name"] = model.Name
	}
	if model.ContextWindow > 0 {
		attrs["model.context_window"] = model.ContextWindow
	}
	if model.Reasoning {
		attrs["model.reasoning"] = true
	}
	return attrs
}

// gitAttributes reads branch, commit, and dirty state from the
// working directory's repository. All probes share one deadline and
// any failure drops the whole group.
func gitAttributes(dir string) map[string]any {
	if dir == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), gitProbeBudget)
	defer cancel()

	commit, err := runGit(ctx, dir, "rev-parse", "HEAD")
	if err != nil {
		return nil
	}
	attrs := map[string]any{"git.commit": commit}
	if branch, err := runGit(ctx, dir, "rev-parse", "--abbrev-ref", "HEAD"); err == nil && branch != "HEAD" {
		attrs["git.branch"] = branch
	}
	if status, err := runGit(ctx, dir, "status", "--porcelain"); err == nil {
		attrs["git.dirty"] = status != ""
	}
	return attrs
}

// runGit executes a git command targeting dir and returns trimmed
// stdout.
func runGit(ctx context.Context, dir string, args ...string) (string, error) {
	fullArgs := append([]string{"-C", dir}, args...)
	var stdout bytes.Buffer
	command := exec.CommandContext(ctx, "git", fullArgs...)
	command.Stdout = &stdout
	if err := command.Run(); err != nil {
		return "", err
	}
	return strings.TrimSpace(stdout.String()), nil
}
