// Copyright 2026 The Gantry Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"

	"github.com/gantry-project/gantry/cmd/gantry/commands"
	"github.com/gantry-project/gantry/lib/process"
)

func main() {
	if err := run(); err != nil {
		// Commands that already printed their own diagnostics return
		// an ExitError carrying the desired exit code. Don't print a
		// redundant "error:" line for those.
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		process.Fatal(err)
	}
}

func run() error {
	return commands.Root().Execute(os.Args[1:])
}
