// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// leaktrace isolates which member of a shared Matrix room is leaking
// its content, by bisecting the suspect population: silence half,
// probe with a marked message, watch the leak destination, restore,
// and recurse on the implicated half.
package main

import (
	"fmt"
	"os"

	"github.com/bureau-foundation/leaktrace/cmd/leaktrace/cli"
	"github.com/bureau-foundation/leaktrace/lib/version"
)

func main() {
	if err := run(); err != nil {
		// Commands that produce their own output return an ExitError
		// with the desired code. Don't print a redundant "error:" line
		// for those.
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	return rootCommand().Execute(os.Args[1:])
}

func rootCommand() *cli.Command {
	return &cli.Command{
		Name:    "leaktrace",
		Summary: "isolate who is leaking content from a shared room",
		Description: "leaktrace finds which member of a group holding a shared\n" +
			"capability is leaking content, by adaptive bisection: silence half\n" +
			"the suspects, send a marked probe, watch the leak destination, and\n" +
			"recurse on the implicated half. Every silenced member is restored\n" +
			"before each round's result is acted on.",
		Subcommands: []*cli.Command{
			runCommand(),
			checkConfigCommand(),
			versionCommand(),
		},
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:    "version",
		Summary: "print version information",
		Run: func([]string) error {
			fmt.Println(version.Full())
			return nil
		},
	}
}
