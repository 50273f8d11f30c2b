// Copyright 2026 The Threadline Authors
// SPDX-License-Identifier: Apache-2.0

package export

import "log/slog"

// bestEffort is the single no-throw boundary for telemetry delivery.
// Every delivery path — async goroutine or synchronous shutdown
// flush — runs inside it: errors are logged at debug level and
// dropped, and panics are recovered. Telemetry must never surface as
// a user-visible failure or destabilize the host process.
func bestEffort(logger *slog.Logger, operation string, fn func() error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			logger.Warn("telemetry panic suppressed",
				"operation", operation,
				"panic", recovered,
			)
		}
	}()

	if err := fn(); err != nil {
		logger.Debug("telemetry delivery failed",
			"operation", operation,
			"error", err,
		)
	}
}
