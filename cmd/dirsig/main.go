// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// dirsig creates, verifies, and queries directory signatures.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/bureau-foundation/dirsig/cmd/dirsig/cli"
)

func main() {
	if err := run(); err != nil {
		// Commands that print their own output (verify, lookup)
		// return an ExitError with the desired code. Don't print a
		// redundant "error:" line for those.
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
		Name:    "dirsig",
		Summary: "directory signature tool",
		Description: "dirsig produces and consumes directory signatures: deterministic,\n" +
			"self-authenticating text indexes of filesystem trees with per-block\n" +
			"content hashes.",
		Subcommands: []*cli.Command{
			createCommand(),
			verifyCommand(),
			lookupCommand(),
			showCommand(),
			mergeCommand(),
		},
	}
}

// setupLogging installs the process-wide slog handler. Everything
// logs to stderr; stdout is reserved for signature output.
func setupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}
