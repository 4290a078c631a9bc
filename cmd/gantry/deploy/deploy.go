// Copyright 2026 The Gantry Authors
// SPDX-License-Identifier: Apache-2.0

package deploy

import (
	"context"
	"fmt"

	"github.com/spf13/pflag"

	"github.com/gantry-project/gantry/cmd/gantry/cli"
	deployment "github.com/gantry-project/gantry/lib/deploy"
	"github.com/gantry-project/gantry/lib/gitfetch"
)

// DeployCommand returns the "deploy" command.
func DeployCommand() *cli.Command {
	var configPath string
	var message string

	return &cli.Command{
		Name:    "deploy",
		Summary: "Deploy the latest revision, or revert to an archived one",
		Description: `Deploy a version of the service.

With no archive ID, fetches the head of the configured origin branch,
registers it as a new immutable archive, and atomically switches the
live pointer to it.

With an archive ID (full, or any unambiguous prefix such as a date),
switches the live pointer back to that existing archive without
touching the origin. Prefix matching lets you revert with just
"gantry deploy 2026-08-28" when one deployment happened that day.

Exit status tells the invoking supervisor what to do: 0 means a switch
happened and dependent services should be restarted; 2 means nothing
changed and nothing must be restarted; anything else is an internal
error.`,
		Usage: "gantry deploy [archive-id] [flags]",
		Examples: []cli.Example{
			{
				Description: "Deploy the current origin head",
				Command:     "gantry deploy -m 'enable new query UI'",
			},
			{
				Description: "Revert to the only deployment of August 10th",
				Command:     "gantry deploy 2016-08-10",
			},
		},
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("deploy", pflag.ContinueOnError)
			flags.StringVar(&configPath, "config", "", "config file path (overrides GANTRY_CONFIG)")
			flags.StringVarP(&message, "message", "m", "", "deploy message recorded in the archive manifest")
			return flags
		},
		Run: func(args []string) error {
			if len(args) > 1 {
				return fmt.Errorf("expected at most one archive ID, got %d arguments", len(args))
			}
			token := ""
			if len(args) == 1 {
				token = args[0]
			}
			return runDeploy(configPath, token, message)
		},
	}
}

func runDeploy(configPath, token, message string) error {
	logger := cli.NewCommandLogger().With("command", "deploy")

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if err := cfg.EnsurePaths(); err != nil {
		return err
	}

	store := openStore(cfg)
	fetcher := gitfetch.NewFetcher(cfg, logger)
	switcher := deployment.NewSwitch(cfg.Paths.Current)
	deployer := deployment.NewDeployer(store, fetcher, switcher, lockPath(cfg), logger)

	result, err := deployer.Deploy(context.Background(), token, message)
	if err != nil {
		return noChange(err)
	}

	if result.Fetched {
		fmt.Printf("deployed %s (revision %s)\n",
			result.Archive.ID, shortRevision(result.Archive.Revision))
	} else {
		fmt.Printf("reverted to %s (revision %s)\n",
			result.Archive.ID, shortRevision(result.Archive.Revision))
	}
	if result.Previous != "" {
		fmt.Printf("previously active: %s\n", result.Previous)
	}
	return nil
}
