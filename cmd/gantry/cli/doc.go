// Copyright 2026 The Gantry Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command framework for the gantry binary:
// a declarative command tree with pflag flag parsing, structured help
// output, typo suggestions for unknown commands and flags, JSON
// output helpers, and the ExitError mechanism that carries the
// deployment exit-status contract out of command handlers.
package cli
