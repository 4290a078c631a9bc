// Copyright 2026 The Gantry Authors
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gantry-project/gantry/lib/clock"
)

// stagingDirName holds in-flight fetch output under the store root.
// The leading dot keeps it outside the ID pattern, so partially
// staged content is invisible to List until Register renames it into
// place. Keeping it under the root guarantees the rename stays on one
// filesystem and therefore atomic.
const stagingDirName = ".staging"

// maxRegisterAttempts bounds collision retries in Register. Each
// retry waits one second for a fresh timestamp, so this is also the
// worst-case registration delay in seconds.
const maxRegisterAttempts = 5

// Store is the archive registry rooted at a single directory. Reads
// (List, Get, Resolve, Latest) take no lock and re-enumerate the disk
// on every call; Register is the only mutator and must run under the
// deployment lock when invoked concurrently with other writers.
type Store struct {
	root  string
	clock clock.Clock
}

// NewStore returns a Store rooted at root. The clock drives
// identifier allocation; production callers pass clock.Real().
func NewStore(root string, c clock.Clock) *Store {
	return &Store{root: root, clock: c}
}

// Root returns the store's root directory.
func (s *Store) Root() string { return s.root }

// List returns all archives in ascending ID order. An empty slice
// means no deployments exist yet. Entries that do not match the
// identifier pattern are ignored.
func (s *Store) List() ([]Archive, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return []Archive{}, nil
		}
		return nil, fmt.Errorf("reading archive root %s: %w", s.root, err)
	}

	archives := make([]Archive, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() || !ValidID(entry.Name()) {
			continue
		}
		archives = append(archives, s.load(entry.Name()))
	}

	sort.Slice(archives, func(i, j int) bool {
		return archives[i].ID < archives[j].ID
	})
	return archives, nil
}

// Get returns the archive with exactly the given ID, or ErrNotFound.
func (s *Store) Get(id string) (Archive, error) {
	if !ValidID(id) {
		return Archive{}, fmt.Errorf("archive %q: %w", id, ErrNotFound)
	}
	info, err := os.Stat(filepath.Join(s.root, id))
	if err != nil || !info.IsDir() {
		return Archive{}, fmt.Errorf("archive %q: %w", id, ErrNotFound)
	}
	return s.load(id), nil
}

// Latest returns the archive with the highest ID, or ErrNotFound if
// the store is empty.
func (s *Store) Latest() (Archive, error) {
	archives, err := s.List()
	if err != nil {
		return Archive{}, err
	}
	if len(archives) == 0 {
		return Archive{}, fmt.Errorf("store is empty: %w", ErrNotFound)
	}
	return archives[len(archives)-1], nil
}

// StageDir creates a fresh staging directory under the store root and
// returns its path. Content placed there is invisible to List and
// must be handed to Register to become an archive; on failure the
// caller removes it.
func (s *Store) StageDir() (string, error) {
	parent := filepath.Join(s.root, stagingDirName)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return "", fmt.Errorf("creating staging area: %w", err)
	}
	staged, err := os.MkdirTemp(parent, "fetch-")
	if err != nil {
		return "", fmt.Errorf("creating staging directory: %w", err)
	}
	return staged, nil
}

// Register turns a fully staged directory into an archive. It
// allocates a fresh identifier from the clock (in UTC, regardless of
// the clock's zone), writes the manifest
// into the staged directory, and renames it into place — the store
// mutation is the rename, so an archive is either fully present or
// absent. On an identifier collision (two registrations within the
// same second), Register waits for the next second and retries; it
// never overwrites an existing archive.
//
// The staged directory must live under the same store root (see
// StageDir) so the rename cannot cross filesystems.
func (s *Store) Register(staged string, m Manifest) (Archive, error) {
	for attempt := 0; attempt < maxRegisterAttempts; attempt++ {
		createdAt := s.clock.Now().UTC()
		id := createdAt.Format(IDFormat)
		target := filepath.Join(s.root, id)

		if _, err := os.Stat(target); err == nil {
			s.clock.Sleep(time.Second)
			continue
		}

		m.CreatedAt = createdAt.Format(time.RFC3339)
		if err := WriteManifest(staged, m); err != nil {
			return Archive{}, err
		}
		if err := os.Rename(staged, target); err != nil {
			return Archive{}, fmt.Errorf("registering archive %s: %w", id, err)
		}
		return s.load(id), nil
	}
	return Archive{}, fmt.Errorf("could not allocate a unique archive ID after %d attempts", maxRegisterAttempts)
}

// load builds an Archive for a directory known to exist under the
// root. Manifest fields are best-effort: an archive whose manifest
// was lost still lists (with its ID-derived timestamp), but it will
// fail materialization checks at activation time.
func (s *Store) load(id string) Archive {
	location := filepath.Join(s.root, id)
	a := Archive{
		ID:       id,
		Location: location,
	}
	a.CreatedAt, _ = time.Parse(IDFormat, id)

	if m, err := LoadManifest(location); err == nil {
		a.Revision = m.Revision
		a.Subject = m.Subject
		a.Message = m.Message
		a.Checksum = m.Checksum
		if t, err := time.Parse(time.RFC3339, m.CreatedAt); err == nil {
			a.CreatedAt = t
		}
	}
	return a
}
