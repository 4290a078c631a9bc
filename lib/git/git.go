// Copyright 2026 The Gantry Authors
// SPDX-License-Identifier: Apache-2.0

// Package git provides typed access to the git CLI for the working
// clone gantry deploys from. All commands target a specific repository
// directory via the -C flag, which is injected by every Repository
// method — callers must always say which repository they mean.
//
// Gantry deliberately drives the git binary rather than linking a git
// implementation: the working clone is shared with operators who run
// git by hand, and the binary is the one tool guaranteed to agree with
// them about repository state.
package git

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Repository represents a git repository at a specific directory.
type Repository struct {
	dir string
}

// NewRepository returns a Repository targeting the given directory.
func NewRepository(dir string) *Repository {
	return &Repository{dir: dir}
}

// Dir returns the repository directory.
func (r *Repository) Dir() string {
	return r.dir
}

// Clone clones url into dir and returns a Repository targeting it.
// Unlike the Repository methods, this runs without -C because the
// target directory does not exist yet.
func Clone(ctx context.Context, url, dir string) (*Repository, error) {
	var stderr bytes.Buffer
	command := exec.CommandContext(ctx, "git", "clone", url, dir)
	command.Stderr = &stderr
	if err := command.Run(); err != nil {
		return nil, fmt.Errorf("git clone %s into %s: %w (stderr: %s)",
			url, dir, err, strings.TrimSpace(stderr.String()))
	}
	return NewRepository(dir), nil
}

// Run executes a git command targeting this repository and returns
// stdout. Stderr is captured separately and included in error messages
// on failure.
func (r *Repository) Run(ctx context.Context, args ...string) (string, error) {
	fullArgs := append([]string{"-C", r.dir}, args...)
	var stdout, stderr bytes.Buffer
	command := exec.CommandContext(ctx, "git", fullArgs...)
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return "", fmt.Errorf("git %s in %s: %w (stderr: %s)",
			strings.Join(args, " "), r.dir, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// Checkout switches the working tree to the given branch.
func (r *Repository) Checkout(ctx context.Context, branch string) error {
	_, err := r.Run(ctx, "checkout", branch)
	return err
}

// Fetch updates remote-tracking branches from the named remote.
func (r *Repository) Fetch(ctx context.Context, remote string) error {
	_, err := r.Run(ctx, "fetch", remote)
	return err
}

// Merge fast-forwards or merges the given ref (e.g. "origin/main")
// into the current branch.
func (r *Repository) Merge(ctx context.Context, ref string) error {
	_, err := r.Run(ctx, "merge", ref)
	return err
}

// Head returns the full commit hash of HEAD.
func (r *Repository) Head(ctx context.Context) (string, error) {
	output, err := r.Run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(output), nil
}

// Subject returns the subject line of the HEAD commit.
func (r *Repository) Subject(ctx context.Context) (string, error) {
	output, err := r.Run(ctx, "log", "-1", "--format=%s")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(output), nil
}
