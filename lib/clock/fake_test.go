// Copyright 2026 The Gantry Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

func TestFakeClockAdvance(t *testing.T) {
	initial := time.Date(2026, 8, 10, 11, 12, 37, 0, time.UTC)
	c := Fake(initial)

	if got := c.Now(); !got.Equal(initial) {
		t.Errorf("Now() = %v, want %v", got, initial)
	}

	c.Advance(3 * time.Second)
	if got := c.Now(); !got.Equal(initial.Add(3 * time.Second)) {
		t.Errorf("Now() after Advance = %v, want %v", got, initial.Add(3*time.Second))
	}
}

func TestFakeClockSleepAdvances(t *testing.T) {
	initial := time.Date(2026, 8, 10, 11, 12, 37, 0, time.UTC)
	c := Fake(initial)

	done := make(chan struct{})
	go func() {
		c.Sleep(time.Second)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("fake Sleep blocked")
	}

	if got := c.Now(); !got.Equal(initial.Add(time.Second)) {
		t.Errorf("Now() after Sleep = %v, want %v", got, initial.Add(time.Second))
	}
}

func TestFakeClockSet(t *testing.T) {
	c := Fake(time.Date(2026, 8, 10, 14, 0, 1, 0, time.UTC))
	target := time.Date(2026, 8, 10, 11, 12, 37, 0, time.UTC)

	c.Set(target)
	if got := c.Now(); !got.Equal(target) {
		t.Errorf("Now() after Set = %v, want %v", got, target)
	}
}
