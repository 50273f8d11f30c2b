// Copyright 2026 The Threadline Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts the small slice of the time package that
// Threadline's plugins use: reading the current time and scheduling a
// one-shot callback. Production code injects [Real]; tests inject
// [Fake] and advance it deterministically.
//
// The batched exporter is the main consumer: its flush timer is a
// single outstanding AfterFunc that is stopped and rescheduled, never
// overlapping. Driving that timer from a fake clock is what makes the
// flush-discipline tests deterministic.
package clock
