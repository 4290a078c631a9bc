// Copyright 2026 The Gantry Authors
// SPDX-License-Identifier: Apache-2.0

// Package treehash computes a deterministic digest over a directory
// tree. The digest covers every regular file's relative path and
// content plus every symlink's relative path and target, visited in
// lexical order, so two trees with identical content always produce
// identical digests regardless of filesystem enumeration order.
//
// Gantry records this digest in each archive's manifest at fetch time
// and recomputes it on demand to detect archives whose content was
// modified or truncated after registration.
package treehash

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/zeebo/blake3"
)

// Hash computes the blake3 digest of the tree rooted at root and
// returns it hex-encoded. Directory entries themselves contribute
// nothing; an empty directory hashes the same as a missing one.
//
// Entries whose root-relative path equals one of skip are excluded.
// This lets a caller verify a tree that gained bookkeeping files after
// its digest was recorded.
func Hash(root string, skip ...string) (string, error) {
	hasher := blake3.New()

	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}

		relative, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		for _, name := range skip {
			if filepath.ToSlash(relative) == name {
				return nil
			}
		}

		// Path and content are separated by NUL so that file
		// boundaries cannot be forged by renaming.
		if entry.Type()&fs.ModeSymlink != 0 {
			target, err := os.Readlink(path)
			if err != nil {
				return err
			}
			fmt.Fprintf(hasher, "l %s\x00%s\x00", filepath.ToSlash(relative), target)
			return nil
		}
		if !entry.Type().IsRegular() {
			return fmt.Errorf("unsupported file type %s in tree: %s", entry.Type(), relative)
		}

		fmt.Fprintf(hasher, "f %s\x00", filepath.ToSlash(relative))
		file, err := os.Open(path)
		if err != nil {
			return err
		}
		_, copyErr := io.Copy(hasher, file)
		file.Close()
		if copyErr != nil {
			return copyErr
		}
		hasher.Write([]byte{0})
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("hashing tree %s: %w", root, err)
	}

	return fmt.Sprintf("%x", hasher.Sum(nil)), nil
}
