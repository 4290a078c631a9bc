// Copyright 2026 The Gantry Authors
// SPDX-License-Identifier: Apache-2.0

package deploy

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"github.com/gantry-project/gantry/cmd/gantry/cli"
	"github.com/gantry-project/gantry/lib/archive"
	deployment "github.com/gantry-project/gantry/lib/deploy"
)

// archiveInfo is the "info" output for one archive.
type archiveInfo struct {
	ID        string    `json:"id"`
	Revision  string    `json:"revision"`
	Subject   string    `json:"subject,omitempty"`
	Message   string    `json:"message,omitempty"`
	Checksum  string    `json:"checksum,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Location  string    `json:"location"`
	SizeBytes uint64    `json:"size_bytes"`
	Active    bool      `json:"active"`
}

// InfoCommand returns the "info" command.
func InfoCommand() *cli.Command {
	var configPath string
	var asJSON bool

	return &cli.Command{
		Name:    "info",
		Summary: "Show details of an archived deployment",
		Description: `Show the manifest and on-disk details of one archive.

With no argument, describes the currently active archive. With an
archive ID (or unambiguous prefix), describes that archive.`,
		Usage: "gantry info [archive-id] [flags]",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("info", pflag.ContinueOnError)
			flags.StringVar(&configPath, "config", "", "config file path (overrides GANTRY_CONFIG)")
			flags.BoolVar(&asJSON, "json", false, "output as JSON")
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
			return runInfo(configPath, token, asJSON)
		},
	}
}

func runInfo(configPath, token string, asJSON bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	store := openStore(cfg)
	switcher := deployment.NewSwitch(cfg.Paths.Current)
	active, err := switcher.Active()
	if err != nil {
		return err
	}

	// No token: describe the active archive, or the newest one when
	// nothing is deployed yet.
	var target archive.Archive
	switch {
	case token != "":
		target, err = store.Resolve(token)
	case active != "":
		target, err = store.Get(active)
	default:
		target, err = store.Latest()
	}
	if err != nil {
		return noChange(err)
	}

	size, err := treeSize(target.Location)
	if err != nil {
		return err
	}

	info := archiveInfo{
		ID:        target.ID,
		Revision:  target.Revision,
		Subject:   target.Subject,
		Message:   target.Message,
		Checksum:  target.Checksum,
		CreatedAt: target.CreatedAt,
		Location:  target.Location,
		SizeBytes: size,
		Active:    target.ID == active,
	}

	if asJSON {
		return cli.WriteJSON(info)
	}

	writer := tabwriter.NewWriter(os.Stdout, 2, 0, 2, ' ', 0)
	fmt.Fprintf(writer, "ID:\t%s\n", info.ID)
	fmt.Fprintf(writer, "Created:\t%s (%s)\n",
		info.CreatedAt.Format(time.RFC3339), humanize.Time(info.CreatedAt))
	fmt.Fprintf(writer, "Revision:\t%s\n", info.Revision)
	if info.Subject != "" {
		fmt.Fprintf(writer, "Subject:\t%s\n", info.Subject)
	}
	if info.Message != "" {
		fmt.Fprintf(writer, "Message:\t%s\n", info.Message)
	}
	if info.Checksum != "" {
		fmt.Fprintf(writer, "Checksum:\t%s\n", info.Checksum)
	}
	fmt.Fprintf(writer, "Location:\t%s\n", info.Location)
	fmt.Fprintf(writer, "Size:\t%s\n", humanize.Bytes(info.SizeBytes))
	fmt.Fprintf(writer, "Active:\t%t\n", info.Active)
	return writer.Flush()
}

// treeSize sums the sizes of all regular files under root.
func treeSize(root string) (uint64, error) {
	var total uint64
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.Type().IsRegular() {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		total += uint64(info.Size())
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("measuring %s: %w", root, err)
	}
	return total, nil
}
