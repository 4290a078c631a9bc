// Copyright 2026 The Gantry Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time abstraction for
// testability. Production code accepts a Clock instead of calling
// time.Now or time.Sleep directly: Real() in binaries, Fake() in
// tests, where time advances only under test control.
package clock

import "time"

// Clock abstracts the time operations gantry depends on. Archive
// identifier allocation derives IDs from Now, and collision handling
// uses Sleep; both must be deterministic under test.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// Sleep pauses the calling goroutine for at least duration d.
	Sleep(d time.Duration)
}
