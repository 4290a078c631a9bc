// Copyright 2026 The Gantry Authors
// SPDX-License-Identifier: Apache-2.0

// Package deploy implements the gantry CLI commands: deploy, list,
// info, verify, and export. Each command loads its configuration,
// assembles the archive store and deployment machinery from lib/, and
// translates domain errors into the exit-status contract consumed by
// the supervisor scripts that invoke gantry.
package deploy
