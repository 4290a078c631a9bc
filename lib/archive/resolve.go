// Copyright 2026 The Gantry Authors
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"fmt"
	"strings"
)

// Resolve maps a full or partial archive identifier to exactly one
// archive. An exact ID match always wins. Otherwise every archive
// whose ID starts with token is a candidate: zero candidates is
// ErrNotFound, one resolves, several is an AmbiguousError carrying
// the candidate IDs in ascending order.
//
// Resolve never guesses on empty input — substituting "the latest
// archive" or "fetch a new one" is the orchestrator's policy, not the
// resolver's.
func (s *Store) Resolve(token string) (Archive, error) {
	if token == "" {
		return Archive{}, fmt.Errorf("empty archive ID token")
	}

	if a, err := s.Get(token); err == nil {
		return a, nil
	}

	archives, err := s.List()
	if err != nil {
		return Archive{}, err
	}

	var matches []Archive
	for _, a := range archives {
		if strings.HasPrefix(a.ID, token) {
			matches = append(matches, a)
		}
	}

	switch len(matches) {
	case 0:
		return Archive{}, fmt.Errorf("archive %q: %w", token, ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		candidates := make([]string, len(matches))
		for i, match := range matches {
			candidates[i] = match.ID
		}
		return Archive{}, &AmbiguousError{Token: token, Candidates: candidates}
	}
}
