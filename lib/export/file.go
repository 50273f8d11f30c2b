// Copyright 2026 The Threadline Authors
// SPDX-License-Identifier: Apache-2.0

package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/threadline-dev/threadline/lib/clock"
)

// fileDeliverer appends export documents to newline-delimited JSON
// files in a directory, one file per session and flush timestamp:
// {dir}/{sessionID|"unknown"}_{unixMillis}.otlp.jsonl. Each line is a
// complete resourceSpans document.
type fileDeliverer struct {
	directory string
	sessionID func() string
	clk       clock.Clock
}

func (d *fileDeliverer) deliver(_ context.Context, document []byte) error {
	if err := os.MkdirAll(d.directory, 0o755); err != nil {
		return fmt.Errorf("creating telemetry directory: %w", err)
	}

	session := d.sessionID()
	if session == "" {
		session = "unknown"
	}
	name := fmt.Sprintf("%s_%d.otlp.jsonl", session, d.clk.Now().UnixMilli())

	file, err := os.OpenFile(filepath.Join(d.directory, name),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening telemetry file: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(append(document, '\n')); err != nil {
		return fmt.Errorf("writing telemetry file: %w", err)
	}
	return nil
}
