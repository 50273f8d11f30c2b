// Copyright 2026 The Threadline Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

func TestFakeAfterFuncFiresOnAdvance(t *testing.T) {
	clk := Fake(time.Unix(1000, 0))

	fired := 0
	clk.AfterFunc(5*time.Second, func() { fired++ })

	clk.Advance(4 * time.Second)
	if fired != 0 {
		t.Fatalf("callback fired before deadline")
	}

	clk.Advance(1 * time.Second)
	if fired != 1 {
		t.Fatalf("expected 1 fire, got %d", fired)
	}

	// Advancing further must not re-fire a one-shot.
	clk.Advance(10 * time.Second)
	if fired != 1 {
		t.Fatalf("one-shot fired again, got %d", fired)
	}
}

func TestFakeAfterFuncStop(t *testing.T) {
	clk := Fake(time.Unix(1000, 0))

	fired := false
	timer := clk.AfterFunc(time.Second, func() { fired = true })

	if !timer.Stop() {
		t.Fatalf("Stop on pending timer returned false")
	}
	if timer.Stop() {
		t.Fatalf("second Stop returned true")
	}

	clk.Advance(time.Minute)
	if fired {
		t.Fatalf("stopped timer fired")
	}
	if clk.PendingWaiters() != 0 {
		t.Fatalf("expected no pending waiters, got %d", clk.PendingWaiters())
	}
}

func TestFakeAdvanceFiresInDeadlineOrder(t *testing.T) {
	clk := Fake(time.Unix(0, 0))

	var order []string
	clk.AfterFunc(3*time.Second, func() { order = append(order, "c") })
	clk.AfterFunc(1*time.Second, func() { order = append(order, "a") })
	clk.AfterFunc(2*time.Second, func() { order = append(order, "b") })

	clk.Advance(5 * time.Second)

	if len(order) != 3 || order[0] != "a" || order[1] != "b" || order[2] != "c" {
		t.Fatalf("wrong fire order: %v", order)
	}
}

func TestFakeImmediateCallback(t *testing.T) {
	clk := Fake(time.Unix(0, 0))

	fired := false
	clk.AfterFunc(0, func() { fired = true })
	if !fired {
		t.Fatalf("zero-duration callback did not fire synchronously")
	}
}

func TestFakeCallbackSeesAdvancedTime(t *testing.T) {
	clk := Fake(time.Unix(100, 0))

	var seen time.Time
	clk.AfterFunc(30*time.Second, func() { seen = clk.Now() })

	clk.Advance(time.Minute)

	if want := time.Unix(130, 0); !seen.Equal(want) {
		t.Fatalf("callback saw %v, want %v", seen, want)
	}
	if want := time.Unix(160, 0); !clk.Now().Equal(want) {
		t.Fatalf("clock at %v after Advance, want %v", clk.Now(), want)
	}
}
