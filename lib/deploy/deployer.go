// Copyright 2026 The Gantry Authors
// SPDX-License-Identifier: Apache-2.0

package deploy

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/gantry-project/gantry/lib/archive"
	"github.com/gantry-project/gantry/lib/flock"
	"github.com/gantry-project/gantry/lib/gitfetch"
)

// Fetcher retrieves the origin's current head into the store's
// staging area. Satisfied by *gitfetch.Fetcher; tests substitute a
// fake.
type Fetcher interface {
	Fetch(ctx context.Context, store *archive.Store) (*gitfetch.Result, error)
}

// Result describes a completed deploy or revert.
type Result struct {
	// Previous is the archive ID that was active before the switch,
	// "" on first deploy.
	Previous string

	// Archive is the now-active archive.
	Archive archive.Archive

	// Fetched is true when a fresh archive was fetched and
	// registered, false on a revert to an existing archive.
	Fetched bool
}

// Deployer composes the store, the fetcher, and the switch into the
// two deployment workflows: fresh deploy (fetch, register, activate)
// and revert (resolve, activate). One Deploy call is one mutation of
// the shared on-disk state and runs under the advisory lock; nothing
// is retried internally — on any failure the operator re-invokes.
type Deployer struct {
	store    *archive.Store
	fetcher  Fetcher
	switcher *Switch
	lockPath string
	logger   *slog.Logger
}

// NewDeployer returns a Deployer over the given collaborators. The
// lock file at lockPath serializes concurrent deploy/revert
// invocations across processes.
func NewDeployer(store *archive.Store, fetcher Fetcher, switcher *Switch, lockPath string, logger *slog.Logger) *Deployer {
	return &Deployer{
		store:    store,
		fetcher:  fetcher,
		switcher: switcher,
		lockPath: lockPath,
		logger:   logger,
	}
}

// Deploy performs one deployment. With an empty token it fetches the
// origin's head, registers it as a new archive, and activates it.
// With a non-empty token it resolves an existing archive by exact or
// unambiguous partial ID and activates that — the revert path, no
// fetch involved.
//
// The advisory lock is held for the whole call: the working clone,
// the store, and the live pointer are all shared across invocations,
// and the register/activate critical section must not interleave with
// another writer. Contention surfaces as flock.ErrLockHeld with no
// mutation attempted.
func (d *Deployer) Deploy(ctx context.Context, token, message string) (*Result, error) {
	lock, err := flock.TryAcquire(d.lockPath)
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	var target archive.Archive
	fetched := false

	if token == "" {
		fetchResult, err := d.fetcher.Fetch(ctx, d.store)
		if err != nil {
			return nil, err
		}
		target, err = d.store.Register(fetchResult.Staged, archive.Manifest{
			Revision: fetchResult.Revision,
			Subject:  fetchResult.Subject,
			Message:  message,
			Checksum: fetchResult.Checksum,
		})
		if err != nil {
			os.RemoveAll(fetchResult.Staged)
			return nil, err
		}
		fetched = true
		d.logger.Info("registered archive", "id", target.ID, "revision", target.Revision)
	} else {
		if message != "" {
			d.logger.Warn("deploy message ignored on revert; messages are recorded at fetch time")
		}
		target, err = d.store.Resolve(token)
		if err != nil {
			return nil, err
		}
	}

	previous, err := d.switcher.Activate(target)
	if err != nil {
		return nil, err
	}

	d.logger.Info("activated archive",
		"id", target.ID,
		"revision", target.Revision,
		"previous", previous)

	return &Result{
		Previous: previous,
		Archive:  target,
		Fetched:  fetched,
	}, nil
}

// Active returns the currently active archive, or ok=false when the
// service has never been deployed.
func (d *Deployer) Active() (archive.Archive, bool, error) {
	id, err := d.switcher.Active()
	if err != nil {
		return archive.Archive{}, false, err
	}
	if id == "" {
		return archive.Archive{}, false, nil
	}
	a, err := d.store.Get(id)
	if err != nil {
		return archive.Archive{}, false, fmt.Errorf("live pointer targets unknown archive %s: %w", id, err)
	}
	return a, true, nil
}
