// Copyright 2026 The Gantry Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func TestExecuteDispatchesSubcommand(t *testing.T) {
	ran := false
	root := &Command{
		Name: "gantry",
		Subcommands: []*Command{
			{
				Name: "list",
				Run: func(args []string) error {
					ran = true
					return nil
				},
			},
		},
	}

	if err := root.Execute([]string{"list"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !ran {
		t.Error("subcommand did not run")
	}
}

func TestExecuteUnknownCommandSuggests(t *testing.T) {
	root := &Command{
		Name: "gantry",
		Subcommands: []*Command{
			{Name: "deploy", Run: func([]string) error { return nil }},
		},
	}

	err := root.Execute([]string{"depoy"})
	if err == nil {
		t.Fatal("expected error for unknown command")
	}
	if !strings.Contains(err.Error(), `"deploy"`) {
		t.Errorf("error %q does not suggest deploy", err)
	}
}

func TestExecuteParsesFlags(t *testing.T) {
	var message string
	command := &Command{
		Name: "deploy",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("deploy", pflag.ContinueOnError)
			flags.StringVarP(&message, "message", "m", "", "")
			return flags
		},
		Run: func(args []string) error {
			if len(args) != 1 || args[0] != "2016-08-10" {
				t.Errorf("unexpected positional args %v", args)
			}
			return nil
		},
	}

	if err := command.Execute([]string{"-m", "hotfix", "2016-08-10"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if message != "hotfix" {
		t.Errorf("message = %q, want hotfix", message)
	}
}

func TestExecuteUnknownFlagSuggests(t *testing.T) {
	command := &Command{
		Name: "deploy",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("deploy", pflag.ContinueOnError)
			flags.String("message", "", "")
			return flags
		},
		Run: func([]string) error { return nil },
	}

	err := command.Execute([]string{"--mesage", "hi"})
	if err == nil {
		t.Fatal("expected error for unknown flag")
	}
	if !strings.Contains(err.Error(), "--message") {
		t.Errorf("error %q does not suggest --message", err)
	}
}

func TestExecutePropagatesRunError(t *testing.T) {
	sentinel := &ExitError{Code: 2}
	command := &Command{
		Name: "deploy",
		Run:  func([]string) error { return sentinel },
	}

	err := command.Execute(nil)
	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != 2 {
		t.Fatalf("Execute returned %v, want ExitError code 2", err)
	}
}

func TestPrintHelpListsSubcommandsAndExamples(t *testing.T) {
	root := &Command{
		Name:    "gantry",
		Summary: "Archive-based service deployment",
		Examples: []Example{
			{Description: "Deploy the origin head", Command: "gantry deploy"},
		},
		Subcommands: []*Command{
			{Name: "deploy", Summary: "Deploy the latest revision"},
			{Name: "list", Summary: "List archived deployments"},
		},
	}

	var out strings.Builder
	root.PrintHelp(&out)
	help := out.String()

	for _, want := range []string{"deploy", "list", "gantry deploy", "Archive-based"} {
		if !strings.Contains(help, want) {
			t.Errorf("help output missing %q:\n%s", want, help)
		}
	}
}

func TestPathIncludesParent(t *testing.T) {
	root := &Command{
		Name: "gantry",
		Subcommands: []*Command{
			{Name: "list", Run: func([]string) error { return nil }},
		},
	}
	if err := root.Execute([]string{"list"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := root.Subcommands[0].path(); got != "gantry list" {
		t.Errorf("path = %q, want %q", got, "gantry list")
	}
}
