// Copyright 2026 The Gantry Authors
// SPDX-License-Identifier: Apache-2.0

package deploy

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"github.com/gantry-project/gantry/cmd/gantry/cli"
	deployment "github.com/gantry-project/gantry/lib/deploy"
)

// listEntry is one archive in the "list" output.
type listEntry struct {
	ID        string    `json:"id"`
	Revision  string    `json:"revision"`
	Subject   string    `json:"subject,omitempty"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Active    bool      `json:"active"`
}

// ListCommand returns the "list" command.
func ListCommand() *cli.Command {
	var configPath string
	var asJSON bool

	return &cli.Command{
		Name:    "list",
		Summary: "List archived deployments",
		Description: `List all archived deployments in chronological order.

The active archive (the one the live pointer resolves to) is marked
with an asterisk. Any listed ID, or any unambiguous prefix of one, can
be passed to "gantry deploy" to revert.`,
		Usage: "gantry list [flags]",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("list", pflag.ContinueOnError)
			flags.StringVar(&configPath, "config", "", "config file path (overrides GANTRY_CONFIG)")
			flags.BoolVar(&asJSON, "json", false, "output as JSON")
			return flags
		},
		Run: func(args []string) error {
			if len(args) != 0 {
				return fmt.Errorf("list takes no arguments, got %d", len(args))
			}
			return runList(configPath, asJSON)
		},
	}
}

func runList(configPath string, asJSON bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	store := openStore(cfg)
	archives, err := store.List()
	if err != nil {
		return err
	}

	active, err := deployment.NewSwitch(cfg.Paths.Current).Active()
	if err != nil {
		return err
	}

	entries := make([]listEntry, 0, len(archives))
	for _, a := range archives {
		entries = append(entries, listEntry{
			ID:        a.ID,
			Revision:  a.Revision,
			Subject:   a.Subject,
			Message:   a.Message,
			CreatedAt: a.CreatedAt,
			Active:    a.ID == active,
		})
	}

	if asJSON {
		return cli.WriteJSON(entries)
	}

	if len(entries) == 0 {
		fmt.Println("no deployments")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 2, 0, 3, ' ', 0)
	fmt.Fprintln(writer, " \tID\tAGE\tREVISION\tNOTE")
	for _, entry := range entries {
		marker := " "
		if entry.Active {
			marker = "*"
		}
		note := entry.Message
		if note == "" {
			note = entry.Subject
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\n",
			marker,
			entry.ID,
			humanize.Time(entry.CreatedAt),
			shortRevision(entry.Revision),
			note)
	}
	return writer.Flush()
}
