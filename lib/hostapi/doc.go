// Copyright 2026 The Threadline Authors
// SPDX-License-Identifier: Apache-2.0

// Package hostapi declares the surface Threadline consumes from the
// host coding-agent runtime. Nothing here is implemented by
// Threadline — the host delivers lifecycle events and a context
// accessor to each registered plugin, and these types describe that
// contract so plugins can be tested against fakes.
//
// Event delivery is serialized by the host: a plugin's HandleEvent is
// never invoked concurrently, which is why the telemetry lifecycle
// controller can own its span tables without locking.
package hostapi
