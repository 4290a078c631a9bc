// Copyright 2026 The Gantry Authors
// SPDX-License-Identifier: Apache-2.0

package deploy

import (
	"archive/tar"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"

	"github.com/gantry-project/gantry/cmd/gantry/cli"
	"github.com/gantry-project/gantry/lib/archive"
)

func TestRunDeployRevertsToExistingArchive(t *testing.T) {
	env := newTestEnv(t)
	first := env.registerArchive(t, "version one\n")
	second := env.registerArchive(t, "version two\n")

	if err := runDeploy(env.configPath, second.ID, ""); err != nil {
		t.Fatalf("runDeploy(%s): %v", second.ID, err)
	}
	if err := runDeploy(env.configPath, first.ID, ""); err != nil {
		t.Fatalf("runDeploy(%s): %v", first.ID, err)
	}

	target, err := os.Readlink(env.current)
	if err != nil {
		t.Fatalf("Readlink: %v", err)
	}
	if target != first.Location {
		t.Errorf("live pointer targets %s, want %s", target, first.Location)
	}
}

func TestRunDeployUnknownTokenExitsTwo(t *testing.T) {
	env := newTestEnv(t)
	env.registerArchive(t, "content\n")

	err := runDeploy(env.configPath, "2099-01-01", "")
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != 2 {
		t.Fatalf("runDeploy(unknown) = %v, want ExitError code 2", err)
	}

	// Nothing was activated.
	if _, err := os.Readlink(env.current); !os.IsNotExist(err) {
		t.Errorf("live pointer exists after failed revert: %v", err)
	}
}

func TestRunDeployAmbiguousTokenExitsTwo(t *testing.T) {
	env := newTestEnv(t)
	env.registerArchive(t, "one\n")
	env.registerArchive(t, "two\n")

	err := runDeploy(env.configPath, "2016-08-10", "")
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != 2 {
		t.Fatalf("runDeploy(ambiguous) = %v, want ExitError code 2", err)
	}
}

func TestRunVerifyDetectsTampering(t *testing.T) {
	env := newTestEnv(t)
	a := env.registerArchive(t, "pristine\n")

	if err := runVerify(env.configPath, a.ID); err != nil {
		t.Fatalf("runVerify on pristine archive: %v", err)
	}

	if err := os.WriteFile(filepath.Join(a.Location, "app.py"), []byte("tampered\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := runVerify(env.configPath, a.ID); err == nil {
		t.Error("runVerify passed on tampered archive")
	}
}

func TestRunListAndInfo(t *testing.T) {
	env := newTestEnv(t)
	a := env.registerArchive(t, "content\n")

	if err := runList(env.configPath, true); err != nil {
		t.Fatalf("runList: %v", err)
	}
	if err := runInfo(env.configPath, a.ID, true); err != nil {
		t.Fatalf("runInfo: %v", err)
	}

	// No token and nothing deployed: falls back to the newest archive.
	if err := runInfo(env.configPath, "", true); err != nil {
		t.Errorf("runInfo without token: %v", err)
	}

	// An empty store has nothing to describe.
	empty := newTestEnv(t)
	var exitErr *cli.ExitError
	if err := runInfo(empty.configPath, "", true); !errors.As(err, &exitErr) || exitErr.Code != 2 {
		t.Errorf("runInfo on empty store = %v, want ExitError code 2", err)
	}
}

func TestRunExportRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	a := env.registerArchive(t, "exported content\n")
	output := filepath.Join(t.TempDir(), "export.tar.zst")

	if err := runExport(env.configPath, a.ID, output); err != nil {
		t.Fatalf("runExport: %v", err)
	}

	file, err := os.Open(output)
	if err != nil {
		t.Fatalf("opening export: %v", err)
	}
	defer file.Close()

	decompressor, err := zstd.NewReader(file)
	if err != nil {
		t.Fatalf("zstd reader: %v", err)
	}
	defer decompressor.Close()

	names := map[string]bool{}
	reader := tar.NewReader(decompressor)
	for {
		header, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("reading tar: %v", err)
		}
		names[header.Name] = true
	}

	for _, want := range []string{
		a.ID + "/app.py",
		a.ID + "/" + archive.ManifestName,
	} {
		if !names[want] {
			t.Errorf("export missing entry %s (have %v)", want, names)
		}
	}
}
