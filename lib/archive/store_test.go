// Copyright 2026 The Gantry Authors
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gantry-project/gantry/lib/clock"
)

func testStore(t *testing.T, at time.Time) (*Store, *clock.FakeClock) {
	t.Helper()
	fake := clock.Fake(at)
	return NewStore(t.TempDir(), fake), fake
}

// stageWithContent creates a staging directory holding one file, ready
// to register.
func stageWithContent(t *testing.T, s *Store, content string) string {
	t.Helper()
	staged, err := s.StageDir()
	if err != nil {
		t.Fatalf("StageDir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(staged, "app.py"), []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return staged
}

func register(t *testing.T, s *Store, revision string) Archive {
	t.Helper()
	staged := stageWithContent(t, s, revision)
	a, err := s.Register(staged, Manifest{Revision: revision, Checksum: "deadbeef"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return a
}

func TestRegisterAndGet(t *testing.T) {
	s, _ := testStore(t, time.Date(2016, 8, 10, 11, 12, 37, 0, time.UTC))

	a := register(t, s, "abc123")
	if a.ID != "2016-08-10-11-12-37" {
		t.Errorf("ID = %q, want %q", a.ID, "2016-08-10-11-12-37")
	}
	if a.Revision != "abc123" {
		t.Errorf("Revision = %q, want %q", a.Revision, "abc123")
	}

	got, err := s.Get(a.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != a.ID || got.Revision != a.Revision || got.Location != a.Location {
		t.Errorf("Get returned %+v, want %+v", got, a)
	}

	// Archive content moved out of staging intact.
	data, err := os.ReadFile(filepath.Join(a.Location, "app.py"))
	if err != nil || string(data) != "abc123" {
		t.Errorf("archive content = %q, %v", data, err)
	}
	// Manifest travels with the archive.
	if _, err := LoadManifest(a.Location); err != nil {
		t.Errorf("LoadManifest: %v", err)
	}
}

func TestGetNotFound(t *testing.T) {
	s, _ := testStore(t, time.Date(2016, 8, 10, 11, 12, 37, 0, time.UTC))

	_, err := s.Get("2016-08-10-11-12-38")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get missing ID: %v, want ErrNotFound", err)
	}
	_, err = s.Get("not-an-id")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get malformed ID: %v, want ErrNotFound", err)
	}
}

func TestRegisterCollisionAllocatesDistinctIDs(t *testing.T) {
	// All registrations start at the same second; the store must wait
	// out each collision rather than overwrite.
	s, _ := testStore(t, time.Date(2016, 8, 10, 14, 0, 1, 0, time.UTC))

	seen := make(map[string]bool)
	for i := 0; i < 4; i++ {
		a := register(t, s, "rev")
		if seen[a.ID] {
			t.Fatalf("duplicate archive ID %s", a.ID)
		}
		seen[a.ID] = true
	}

	archives, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(archives) != 4 {
		t.Errorf("List returned %d archives, want 4", len(archives))
	}
}

func TestRegisterAllocatesIDsInUTC(t *testing.T) {
	// A clock reporting zoned time must not leak its offset into the
	// ID: local time would repeat a wall-clock hour on DST fall-back.
	zone := time.FixedZone("CEST", 2*60*60)
	s, _ := testStore(t, time.Date(2016, 8, 10, 13, 12, 37, 0, zone))

	a := register(t, s, "rev")
	if a.ID != "2016-08-10-11-12-37" {
		t.Errorf("ID = %q, want the UTC rendering %q", a.ID, "2016-08-10-11-12-37")
	}
	if !a.CreatedAt.Equal(time.Date(2016, 8, 10, 11, 12, 37, 0, time.UTC)) {
		t.Errorf("CreatedAt = %v, want the same instant in UTC", a.CreatedAt)
	}
}

func TestRegisterNeverOverwrites(t *testing.T) {
	s, fake := testStore(t, time.Date(2016, 8, 10, 14, 0, 1, 0, time.UTC))

	first := register(t, s, "first")
	fake.Set(time.Date(2016, 8, 10, 14, 0, 1, 0, time.UTC))
	register(t, s, "second")

	// The first archive's content is untouched.
	got, err := s.Get(first.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Revision != "first" {
		t.Errorf("first archive revision = %q after colliding register", got.Revision)
	}
}

func TestListAscendingRegardlessOfRegistrationOrder(t *testing.T) {
	s, fake := testStore(t, time.Date(2016, 8, 10, 14, 0, 1, 0, time.UTC))

	register(t, s, "later")
	// Wind the clock backwards: insertion order now disagrees with ID
	// order, and List must still sort ascending.
	fake.Set(time.Date(2016, 8, 10, 11, 12, 37, 0, time.UTC))
	register(t, s, "earlier")

	archives, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(archives) != 2 {
		t.Fatalf("List returned %d archives, want 2", len(archives))
	}
	if archives[0].ID != "2016-08-10-11-12-37" || archives[1].ID != "2016-08-10-14-00-01" {
		t.Errorf("List order = %s, %s; want ascending", archives[0].ID, archives[1].ID)
	}
}

func TestListEmptyStore(t *testing.T) {
	s, _ := testStore(t, time.Now())
	archives, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(archives) != 0 {
		t.Errorf("List on empty store returned %d entries", len(archives))
	}

	// A store whose root does not exist yet behaves the same.
	missing := NewStore(filepath.Join(t.TempDir(), "nowhere"), clock.Real())
	archives, err = missing.List()
	if err != nil {
		t.Fatalf("List on missing root: %v", err)
	}
	if len(archives) != 0 {
		t.Errorf("List on missing root returned %d entries", len(archives))
	}
}

func TestListIgnoresForeignEntries(t *testing.T) {
	s, _ := testStore(t, time.Date(2016, 8, 10, 11, 12, 37, 0, time.UTC))
	register(t, s, "rev")

	// Staging area, stray files, and malformed directory names must
	// not surface as archives.
	if err := os.WriteFile(filepath.Join(s.Root(), "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(s.Root(), "backup"), 0o755); err != nil {
		t.Fatal(err)
	}
	// Leave an abandoned staging directory behind.
	if _, err := s.StageDir(); err != nil {
		t.Fatal(err)
	}

	archives, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(archives) != 1 {
		t.Errorf("List returned %d archives, want 1", len(archives))
	}
}

func TestLatest(t *testing.T) {
	s, fake := testStore(t, time.Date(2016, 8, 10, 11, 12, 37, 0, time.UTC))

	if _, err := s.Latest(); !errors.Is(err, ErrNotFound) {
		t.Errorf("Latest on empty store: %v, want ErrNotFound", err)
	}

	register(t, s, "old")
	fake.Set(time.Date(2016, 8, 10, 14, 0, 1, 0, time.UTC))
	newest := register(t, s, "new")

	latest, err := s.Latest()
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest.ID != newest.ID {
		t.Errorf("Latest = %s, want %s", latest.ID, newest.ID)
	}
}

func TestStagingInvisibleUntilRegister(t *testing.T) {
	s, _ := testStore(t, time.Date(2016, 8, 10, 11, 12, 37, 0, time.UTC))

	staged := stageWithContent(t, s, "in flight")
	archives, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(archives) != 0 {
		t.Errorf("staged content visible to List: %d entries", len(archives))
	}

	if _, err := s.Register(staged, Manifest{Revision: "rev", Checksum: "c"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	archives, _ = s.List()
	if len(archives) != 1 {
		t.Errorf("List after Register returned %d entries, want 1", len(archives))
	}
}
