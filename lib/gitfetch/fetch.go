// Copyright 2026 The Gantry Authors
// SPDX-License-Identifier: Apache-2.0

// Package gitfetch retrieves the latest revision from the configured
// git origin and stages it for archive registration.
//
// The fetcher maintains a persistent working clone: cloned on first
// use, then checkout/fetch/merge on every subsequent deploy. An
// optional application-config directory is mirrored into the clone
// before the optional build step, and the configured subset of the
// clone (plus that config directory) is copied into a staging
// directory under the archive root. Fetching is all-or-nothing — any
// failure removes the staging directory and nothing is ever
// registered.
package gitfetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/gantry-project/gantry/lib/archive"
	"github.com/gantry-project/gantry/lib/config"
	"github.com/gantry-project/gantry/lib/git"
	"github.com/gantry-project/gantry/lib/treehash"
)

// ErrFetchFailed reports that the origin was unreachable or the fetch
// did not complete. When this is returned, no archive was registered
// and no staging content remains visible.
var ErrFetchFailed = errors.New("fetch from origin failed")

// Result describes a completed fetch. Staged is a fully materialized
// tree under the archive store's staging area, ready for
// Store.Register; the caller owns it and must remove it if it decides
// not to register.
type Result struct {
	// Staged is the staging directory holding the fetched tree.
	Staged string

	// Revision is the full commit hash the tree was built from.
	Revision string

	// Subject is the subject line of that commit.
	Subject string

	// Checksum is the tree digest of the staged content.
	Checksum string
}

// Fetcher retrieves revisions from the configured origin.
type Fetcher struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewFetcher returns a Fetcher for the given configuration.
func NewFetcher(cfg *config.Config, logger *slog.Logger) *Fetcher {
	return &Fetcher{cfg: cfg, logger: logger}
}

// Fetch brings the working clone up to date with the origin, runs the
// configured build commands, and stages the deployable subset into
// store's staging area. Two consecutive calls with an unchanged
// origin produce two identical trees — deduplication is not the
// fetcher's concern.
func (f *Fetcher) Fetch(ctx context.Context, store *archive.Store) (*Result, error) {
	repo, err := f.syncWorkingClone(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	revision, err := repo.Head(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	subject, err := repo.Subject(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	if err := f.syncAppConfig(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	if err := f.runBuild(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	staged, err := store.StageDir()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	if err := f.stage(staged); err != nil {
		os.RemoveAll(staged)
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	checksum, err := treehash.Hash(staged)
	if err != nil {
		os.RemoveAll(staged)
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	f.logger.Info("fetch complete",
		"revision", revision,
		"subject", subject,
		"staged", staged)

	return &Result{
		Staged:   staged,
		Revision: revision,
		Subject:  subject,
		Checksum: checksum,
	}, nil
}

// syncWorkingClone clones the origin on first use, otherwise brings
// the existing clone's branch up to date with the configured remote.
func (f *Fetcher) syncWorkingClone(ctx context.Context) (*git.Repository, error) {
	work := f.cfg.Paths.Work
	origin := f.cfg.Origin

	if _, err := os.Stat(filepath.Join(work, ".git")); os.IsNotExist(err) {
		f.logger.Info("cloning origin", "url", origin.URL, "into", work)
		repo, err := git.Clone(ctx, origin.URL, work)
		if err != nil {
			return nil, err
		}
		if err := repo.Checkout(ctx, origin.Branch); err != nil {
			return nil, err
		}
		return repo, nil
	}

	f.logger.Info("updating working clone",
		"branch", origin.Branch, "remote", origin.Remote)
	repo := git.NewRepository(work)
	if err := repo.Checkout(ctx, origin.Branch); err != nil {
		return nil, err
	}
	if err := repo.Fetch(ctx, origin.Remote); err != nil {
		return nil, err
	}
	if err := repo.Merge(ctx, origin.Remote+"/"+origin.Branch); err != nil {
		return nil, err
	}
	return repo, nil
}

// syncAppConfig mirrors the configured application-config directory
// into the working clone under its base name, before the build runs.
// The build therefore sees the same deployment-site configuration
// that every archive carries.
func (f *Fetcher) syncAppConfig() error {
	source := f.cfg.Paths.AppConfig
	if source == "" {
		return nil
	}
	destination := filepath.Join(f.cfg.Paths.Work, filepath.Base(source))
	if err := copyTree(source, destination); err != nil {
		return fmt.Errorf("mirroring app config into working clone: %w", err)
	}
	return nil
}

// runBuild runs the configured build commands in the working clone.
// Output is captured and attached to the error on failure so the
// operator sees what the build printed.
func (f *Fetcher) runBuild(ctx context.Context) error {
	for _, line := range f.cfg.Build.Commands {
		f.logger.Info("running build command", "command", line)
		command := exec.CommandContext(ctx, "sh", "-c", line)
		command.Dir = f.cfg.Paths.Work
		output, err := command.CombinedOutput()
		if err != nil {
			return fmt.Errorf("build command %q: %w\n%s", line, err, output)
		}
	}
	return nil
}

// stage copies the deployable subset of the working clone into the
// staging directory. With no include list, the whole tree except
// .git is staged.
func (f *Fetcher) stage(staged string) error {
	work := f.cfg.Paths.Work

	include := f.cfg.Deploy.Include
	if len(include) == 0 {
		entries, err := os.ReadDir(work)
		if err != nil {
			return fmt.Errorf("reading working clone: %w", err)
		}
		for _, entry := range entries {
			if entry.Name() == ".git" {
				continue
			}
			include = append(include, entry.Name())
		}
	}

	for _, item := range include {
		source := filepath.Join(work, item)
		if _, err := os.Lstat(source); err != nil {
			return fmt.Errorf("configured include %q missing from working clone: %w", item, err)
		}
		if err := copyTree(source, filepath.Join(staged, item)); err != nil {
			return fmt.Errorf("staging %q: %w", item, err)
		}
	}

	// The app-config directory is captured in every archive, whether
	// or not the include list names it.
	if source := f.cfg.Paths.AppConfig; source != "" {
		if err := copyTree(source, filepath.Join(staged, filepath.Base(source))); err != nil {
			return fmt.Errorf("staging app config: %w", err)
		}
	}
	return nil
}

// copyTree copies the file, symlink, or directory tree at source to
// destination, preserving file modes and symlink targets.
func copyTree(source, destination string) error {
	info, err := os.Lstat(source)
	if err != nil {
		return err
	}

	switch {
	case info.Mode()&fs.ModeSymlink != 0:
		target, err := os.Readlink(source)
		if err != nil {
			return err
		}
		// Symlinks cannot be overwritten in place; repeated mirroring
		// into the working clone replaces them.
		if err := os.Remove(destination); err != nil && !os.IsNotExist(err) {
			return err
		}
		return os.Symlink(target, destination)

	case info.IsDir():
		if err := os.MkdirAll(destination, info.Mode().Perm()); err != nil {
			return err
		}
		entries, err := os.ReadDir(source)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			if err := copyTree(filepath.Join(source, entry.Name()), filepath.Join(destination, entry.Name())); err != nil {
				return err
			}
		}
		return nil

	case info.Mode().IsRegular():
		return copyFile(source, destination, info.Mode().Perm())

	default:
		return fmt.Errorf("unsupported file type %s: %s", info.Mode(), source)
	}
}

func copyFile(source, destination string, perm fs.FileMode) error {
	in, err := os.Open(source)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(destination), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(destination, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
