// Copyright 2026 The Gantry Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the complete gantry CLI command tree.
package commands

import (
	"github.com/gantry-project/gantry/cmd/gantry/cli"
	deploycmd "github.com/gantry-project/gantry/cmd/gantry/deploy"
)

// Root returns the root gantry command with all subcommands attached.
func Root() *cli.Command {
	return &cli.Command{
		Name:    "gantry",
		Summary: "Archive-based service deployment",
		Description: `Gantry deploys a service from its git origin as immutable,
timestamped archives and switches a live symlink between them.

Every deployment is kept; reverting to any earlier version is a single
atomic pointer switch away. Configuration comes from a YAML file named
by the GANTRY_CONFIG environment variable or the --config flag.`,
		Subcommands: []*cli.Command{
			deploycmd.DeployCommand(),
			deploycmd.ListCommand(),
			deploycmd.InfoCommand(),
			deploycmd.VerifyCommand(),
			deploycmd.ExportCommand(),
		},
	}
}
