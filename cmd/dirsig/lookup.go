// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/dirsig/cmd/dirsig/cli"
	"github.com/bureau-foundation/dirsig/lib/dirsig"
)

func lookupCommand() *cli.Command {
	var (
		verbose     bool
		offsetsPath string
	)

	flags := func() *pflag.FlagSet {
		fs := pflag.NewFlagSet("lookup", pflag.ContinueOnError)
		fs.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
		fs.StringVar(&offsetsPath, "offsets", "",
			"offset sidecar file: loaded when present, written after a fresh scan")
		return fs
	}
	flagSet := flags()

	return &cli.Command{
		Name:    "lookup",
		Summary: "find one path in a signature",
		Description: "lookup locates a single path without parsing the whole signature:\n" +
			"a binary search over the directory table, then a scan of one\n" +
			"directory's entries. Exit code 1 when the path is not present.",
		Usage: "dirsig lookup [flags] <signature> <path>",
		Flags: func() *pflag.FlagSet { return flagSet },
		Run: func(args []string) error {
			if len(args) != 2 {
				return fmt.Errorf("lookup takes a signature file and a path")
			}
			setupLogging(verbose)

			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening signature: %w", err)
			}
			defer file.Close()

			navigator, err := openNavigator(file, offsetsPath)
			if err != nil {
				return err
			}

			entry, err := navigator.Lookup([]byte(args[1]))
			if errors.Is(err, dirsig.ErrNotFound) {
				fmt.Fprintf(os.Stderr, "%s: not found\n", args[1])
				return &cli.ExitError{Code: 1}
			}
			if err != nil {
				return err
			}
			fmt.Println(formatEntry(entry))
			return nil
		},
	}
}

// openNavigator builds a navigator, going through the offset sidecar
// when one is available and writing it back after a fresh body scan.
func openNavigator(file *os.File, offsetsPath string) (*dirsig.Navigator, error) {
	if offsetsPath != "" {
		sidecar, err := os.Open(offsetsPath)
		if err == nil {
			defer sidecar.Close()
			return dirsig.OpenNavigatorWithOffsets(file, sidecar)
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("opening offset sidecar: %w", err)
		}
	}

	navigator, err := dirsig.OpenNavigator(file)
	if err != nil {
		return nil, err
	}
	if offsetsPath != "" {
		sidecar, err := os.Create(offsetsPath)
		if err != nil {
			return nil, fmt.Errorf("creating offset sidecar: %w", err)
		}
		defer sidecar.Close()
		if err := navigator.SaveOffsets(sidecar); err != nil {
			return nil, err
		}
	}
	return navigator, nil
}

// formatEntry renders an entry in the signature's own line syntax,
// with the full (escaped) path in place of the name.
func formatEntry(entry dirsig.Entry) string {
	path := string(dirsig.EscapeName(entry.Path()))
	switch e := entry.(type) {
	case dirsig.Dir:
		return path
	case dirsig.Symlink:
		return fmt.Sprintf("%s s %s", path, dirsig.EscapeName(e.Target))
	case dirsig.File:
		kind := "f"
		if e.Executable {
			kind = "x"
		}
		var line strings.Builder
		fmt.Fprintf(&line, "%s %s %d", path, kind, e.Size)
		for i := 0; i < e.Hashes.Len(); i++ {
			fmt.Fprintf(&line, " %s", dirsig.FormatDigest(e.Hashes.At(i)))
		}
		return line.String()
	}
	return path
}
