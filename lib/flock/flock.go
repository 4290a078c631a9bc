// Copyright 2026 The Gantry Authors
// SPDX-License-Identifier: Apache-2.0

// Package flock provides cross-process advisory locking via flock(2).
//
// The archive store and the live pointer are shared mutable resources
// across process invocations, not threads: two operators can run
// deploy commands at the same time, or a scheduled redeploy can race
// a manual revert. A held Lock serializes the register/activate
// critical section. Read-only operations (list, resolve) do not take
// the lock and tolerate an in-flight writer.
package flock

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// ErrLockHeld reports that another process holds the lock. Callers
// surface this to the operator without attempting any mutation; the
// losing invocation is re-run by a human, never retried internally.
var ErrLockHeld = errors.New("another deployment is in progress")

// Lock is a held advisory file lock. Release it on all exit paths,
// typically with defer immediately after acquisition.
type Lock struct {
	path string
	file *os.File
}

// TryAcquire takes an exclusive flock on path without blocking. The
// lock file is created if absent and never removed — its existence
// carries no meaning, only the flock state does. Returns ErrLockHeld
// (wrapped) if another process holds the lock.
func TryAcquire(path string) (*Lock, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening lock file %s: %w", path, err)
	}

	if err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		file.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("lock %s: %w", path, ErrLockHeld)
		}
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}

	return &Lock{path: path, file: file}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string { return l.path }

// Release drops the lock. Safe to call exactly once; the flock is
// released implicitly when the descriptor closes, so a crashed holder
// never wedges the lock.
func (l *Lock) Release() error {
	if err := l.file.Close(); err != nil {
		return fmt.Errorf("releasing lock %s: %w", l.path, err)
	}
	return nil
}
