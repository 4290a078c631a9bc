// Copyright 2026 The Gantry Authors
// SPDX-License-Identifier: Apache-2.0

// Package archive implements the on-disk registry of immutable
// deployment snapshots. Each archive is a directory under the store
// root named by a sortable timestamp identifier, carrying a
// .deploy-info manifest with the revision it was fetched from. The
// directory name is the primary key; the store sorts on read and
// never assumes write order.
package archive

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// IDFormat is the time layout archive identifiers are derived from.
// Second-level precision; collisions within the same second are
// resolved at registration time, never by overwriting. Identifiers
// are always UTC — local time would repeat a wall-clock hour on a DST
// fall-back and make the affected IDs ambiguous.
const IDFormat = "2006-01-02-15-04-05"

// ManifestName is the metadata file written into every archive
// directory before registration. Its presence distinguishes a fully
// materialized archive from a bare directory.
const ManifestName = ".deploy-info"

// idPattern matches well-formed archive identifiers. Directory
// entries under the store root that do not match are ignored, so
// staging areas and stray files never surface as archives.
var idPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}-\d{2}-\d{2}-\d{2}$`)

// ErrNotFound reports that no archive matches a given identifier.
var ErrNotFound = errors.New("no matching archive")

// AmbiguousError reports that a partial identifier matches more than
// one archive. Candidates holds every matching ID in ascending order
// so the caller can display them for disambiguation.
type AmbiguousError struct {
	Token      string
	Candidates []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("archive ID %q is ambiguous (%d matches)", e.Token, len(e.Candidates))
}

// Archive is one immutable deployment snapshot.
type Archive struct {
	// ID is the timestamp identifier, unique within the store.
	ID string

	// Revision is the origin commit this archive was fetched from.
	Revision string

	// Subject is the subject line of that commit.
	Subject string

	// Message is the operator-supplied deploy message, if any.
	Message string

	// Checksum is the hex tree digest of the archive content,
	// recorded at fetch time.
	Checksum string

	// CreatedAt is the creation timestamp. Redundant with ID but
	// kept typed for sorting and display.
	CreatedAt time.Time

	// Location is the archive directory.
	Location string
}

// Manifest is the persisted metadata of an archive, stored as YAML in
// ManifestName inside the archive directory.
type Manifest struct {
	Revision  string `yaml:"revision"`
	Subject   string `yaml:"subject,omitempty"`
	Message   string `yaml:"message,omitempty"`
	Checksum  string `yaml:"checksum"`
	CreatedAt string `yaml:"created_at"`
}

// ValidID reports whether s is a well-formed archive identifier.
func ValidID(s string) bool {
	if !idPattern.MatchString(s) {
		return false
	}
	_, err := time.Parse(IDFormat, s)
	return err == nil
}

// WriteManifest writes m into the directory at location. Called on
// the staging directory before the rename that registers an archive,
// so a registered archive always carries its manifest.
func WriteManifest(location string, m Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	path := filepath.Join(location, ManifestName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}

// LoadManifest reads the manifest from the directory at location. A
// missing or unparseable manifest is an error: it means the directory
// is not a fully materialized archive.
func LoadManifest(location string) (Manifest, error) {
	data, err := os.ReadFile(filepath.Join(location, ManifestName))
	if err != nil {
		return Manifest{}, fmt.Errorf("archive %s has no readable manifest: %w", location, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("archive %s has a corrupt manifest: %w", location, err)
	}
	return m, nil
}
