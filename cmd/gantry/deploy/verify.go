// Copyright 2026 The Gantry Authors
// SPDX-License-Identifier: Apache-2.0

package deploy

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/gantry-project/gantry/cmd/gantry/cli"
	"github.com/gantry-project/gantry/lib/archive"
	"github.com/gantry-project/gantry/lib/treehash"
)

// VerifyCommand returns the "verify" command.
func VerifyCommand() *cli.Command {
	var configPath string

	return &cli.Command{
		Name:    "verify",
		Summary: "Check an archive's content against its recorded checksum",
		Description: `Recompute the content digest of an archive and compare it with the
checksum recorded in the manifest at fetch time.

Archives are meant to be immutable; a mismatch means the archive was
modified or truncated after registration and should not be reverted
to.`,
		Usage: "gantry verify <archive-id> [flags]",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("verify", pflag.ContinueOnError)
			flags.StringVar(&configPath, "config", "", "config file path (overrides GANTRY_CONFIG)")
			return flags
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("expected exactly one archive ID, got %d arguments", len(args))
			}
			return runVerify(configPath, args[0])
		},
	}
}

func runVerify(configPath, token string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	target, err := openStore(cfg).Resolve(token)
	if err != nil {
		return noChange(err)
	}
	if target.Checksum == "" {
		return fmt.Errorf("archive %s has no recorded checksum", target.ID)
	}

	// The manifest is written after the checksum is taken, so it is
	// excluded from the recomputation.
	digest, err := treehash.Hash(target.Location, archive.ManifestName)
	if err != nil {
		return err
	}

	if digest != target.Checksum {
		return fmt.Errorf("archive %s content mismatch:\n  recorded %s\n  computed %s",
			target.ID, target.Checksum, digest)
	}

	fmt.Printf("archive %s verified (%s)\n", target.ID, shortRevision(target.Revision))
	return nil
}
