// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/dirsig/cmd/dirsig/cli"
	"github.com/bureau-foundation/dirsig/lib/dirsig"
)

func mergeCommand() *cli.Command {
	var (
		verbose  bool
		diffOnly bool
	)

	flags := func() *pflag.FlagSet {
		fs := pflag.NewFlagSet("merge", pflag.ContinueOnError)
		fs.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
		fs.BoolVar(&diffOnly, "diff", false, "print only paths that differ between the inputs")
		return fs
	}
	flagSet := flags()

	return &cli.Command{
		Name:    "merge",
		Summary: "walk several signatures in lockstep",
		Description: "merge streams two or more signatures side by side in canonical\n" +
			"order, printing each path with the inputs it appears in. Inputs must\n" +
			"share the hash algorithm and block size. With --diff, paths present\n" +
			"and identical in every input are suppressed.",
		Usage: "dirsig merge [flags] <signature>...",
		Flags: func() *pflag.FlagSet { return flagSet },
		Run: func(args []string) error {
			if len(args) < 2 {
				return fmt.Errorf("merge takes at least two signature files")
			}
			setupLogging(verbose)

			readers := make([]*dirsig.Reader, 0, len(args))
			for _, path := range args {
				file, err := os.Open(path)
				if err != nil {
					return fmt.Errorf("opening signature: %w", err)
				}
				defer file.Close()
				source, err := dirsig.DecodeSource(file)
				if err != nil {
					return err
				}
				reader, err := dirsig.NewReader(source)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				readers = append(readers, reader)
			}

			merged, err := dirsig.NewMergedReaders(readers...)
			if err != nil {
				return err
			}

			out := bufio.NewWriter(os.Stdout)
			defer out.Flush()
			for {
				sightings, err := merged.Next()
				if err == io.EOF {
					return nil
				}
				if err != nil {
					return err
				}
				if diffOnly && len(sightings) == len(args) && allSame(sightings) {
					continue
				}
				printSightings(out, args, sightings)
			}
		},
	}
}

// allSame reports whether every sighting of a path carries identical
// content: same entry kind, and for files same size, executable bit
// and block hashes, for symlinks same target.
func allSame(sightings []dirsig.Sighting) bool {
	first := sightings[0].Entry
	for _, s := range sightings[1:] {
		if !entriesEqual(first, s.Entry) {
			return false
		}
	}
	return true
}

func entriesEqual(a, b dirsig.Entry) bool {
	switch ae := a.(type) {
	case dirsig.Dir:
		_, ok := b.(dirsig.Dir)
		return ok
	case dirsig.Symlink:
		be, ok := b.(dirsig.Symlink)
		return ok && string(ae.Target) == string(be.Target)
	case dirsig.File:
		be, ok := b.(dirsig.File)
		return ok && ae.Executable == be.Executable &&
			ae.Size == be.Size && ae.Hashes.Equal(be.Hashes)
	}
	return false
}

// printSightings renders one merge step: the path, then the inputs
// that contain it.
func printSightings(out io.Writer, names []string, sightings []dirsig.Sighting) {
	var sources strings.Builder
	for i, s := range sightings {
		if i > 0 {
			sources.WriteString(", ")
		}
		sources.WriteString(names[s.Source])
	}
	fmt.Fprintf(out, "%s\t%s\n",
		dirsig.EscapeName(sightings[0].Entry.Path()), sources.String())
}
