// Copyright 2026 The Gantry Authors
// SPDX-License-Identifier: Apache-2.0

package deploy

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gantry-project/gantry/cmd/gantry/cli"
	"github.com/gantry-project/gantry/lib/archive"
	"github.com/gantry-project/gantry/lib/clock"
	"github.com/gantry-project/gantry/lib/config"
	deployment "github.com/gantry-project/gantry/lib/deploy"
	"github.com/gantry-project/gantry/lib/flock"
	"github.com/gantry-project/gantry/lib/gitfetch"
)

// lockFileName is the advisory lock file under the archive root that
// serializes deploy and revert invocations.
const lockFileName = ".gantry.lock"

// revisionDisplayLength truncates commit hashes in human-readable
// output. JSON output always carries the full hash.
const revisionDisplayLength = 10

// loadConfig loads and validates the configuration, preferring an
// explicit --config path over the GANTRY_CONFIG environment variable.
func loadConfig(path string) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// openStore returns the archive store for the configured archive root.
func openStore(cfg *config.Config) *archive.Store {
	return archive.NewStore(cfg.Paths.Archives, clock.Real())
}

// lockPath returns the advisory lock file path for the configured
// archive root.
func lockPath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.Archives, lockFileName)
}

// noChange translates domain failures that left the live pointer
// untouched into exit code 2, the "nothing was deployed, do not
// restart anything" signal. Every other error propagates unchanged
// and surfaces as exit code 1, which supervisors treat as an internal
// error.
func noChange(err error) error {
	var ambiguous *archive.AmbiguousError
	if errors.As(err, &ambiguous) {
		fmt.Fprintf(os.Stderr, "error: %v\n", ambiguous)
		for _, candidate := range ambiguous.Candidates {
			fmt.Fprintf(os.Stderr, "  %s\n", candidate)
		}
		return &cli.ExitError{Code: 2}
	}

	if errors.Is(err, archive.ErrNotFound) ||
		errors.Is(err, gitfetch.ErrFetchFailed) ||
		errors.Is(err, deployment.ErrSwitchFailed) ||
		errors.Is(err, flock.ErrLockHeld) {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return &cli.ExitError{Code: 2}
	}

	return err
}

// shortRevision truncates a commit hash for display.
func shortRevision(revision string) string {
	if len(revision) > revisionDisplayLength {
		return revision[:revisionDisplayLength]
	}
	return revision
}
