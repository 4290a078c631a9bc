// Copyright 2026 The Gantry Authors
// SPDX-License-Identifier: Apache-2.0

// Package deploy implements the deployment switch and the deploy
// orchestration on top of the archive store, the source fetcher, and
// the advisory lock.
package deploy

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gantry-project/gantry/lib/archive"
)

// ErrSwitchFailed reports that the live pointer could not be
// repointed. When this is returned, the pointer is unchanged — it
// still resolves to whatever was active before, or remains unset.
var ErrSwitchFailed = errors.New("activating archive failed")

// Switch owns the live pointer: a symlink whose target is the active
// archive directory. Repointing is a symlink-create-then-rename, so
// any process resolving the pointer during a switch sees either the
// fully-old or fully-new archive, never a mix and never a missing
// link.
type Switch struct {
	current string
}

// NewSwitch returns a Switch managing the live pointer at path.
func NewSwitch(path string) *Switch {
	return &Switch{current: path}
}

// Path returns the live pointer path.
func (s *Switch) Path() string { return s.current }

// Active returns the ID of the archive the live pointer currently
// resolves to, or "" if the service has never been deployed.
func (s *Switch) Active() (string, error) {
	target, err := os.Readlink(s.current)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("reading live pointer %s: %w", s.current, err)
	}
	id := filepath.Base(target)
	if !archive.ValidID(id) {
		return "", fmt.Errorf("live pointer %s targets %s, which is not an archive", s.current, target)
	}
	return id, nil
}

// Activate atomically repoints the live pointer at the given archive
// and returns the previously active archive ID ("" on first deploy).
//
// The target is verified first: its directory must exist and carry a
// readable manifest. Any verification or repoint failure wraps
// ErrSwitchFailed and leaves the pointer untouched.
func (s *Switch) Activate(a archive.Archive) (previous string, err error) {
	info, statErr := os.Stat(a.Location)
	if statErr != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: archive %s is missing at %s", ErrSwitchFailed, a.ID, a.Location)
	}
	if _, err := archive.LoadManifest(a.Location); err != nil {
		return "", fmt.Errorf("%w: archive %s is not fully materialized: %w", ErrSwitchFailed, a.ID, err)
	}

	previous, err = s.Active()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSwitchFailed, err)
	}

	// Build the new link beside the old one, then rename over it.
	// rename(2) replaces the link in one step; symlinks cannot be
	// retargeted in place.
	temporary := s.current + ".next"
	if err := os.Remove(temporary); err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("%w: clearing stale %s: %w", ErrSwitchFailed, temporary, err)
	}
	if err := os.Symlink(a.Location, temporary); err != nil {
		return "", fmt.Errorf("%w: %w", ErrSwitchFailed, err)
	}
	if err := os.Rename(temporary, s.current); err != nil {
		os.Remove(temporary)
		return "", fmt.Errorf("%w: %w", ErrSwitchFailed, err)
	}
	return previous, nil
}
