// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/dirsig/cmd/dirsig/cli"
	"github.com/bureau-foundation/dirsig/lib/dirsig"
)

func showCommand() *cli.Command {
	var (
		verbose bool
		dirPath string
	)

	flags := func() *pflag.FlagSet {
		fs := pflag.NewFlagSet("show", pflag.ContinueOnError)
		fs.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
		fs.StringVar(&dirPath, "dir", "", "show only this directory's entries")
		return fs
	}
	flagSet := flags()

	return &cli.Command{
		Name:    "show",
		Summary: "print a signature's header and entries",
		Description: "show streams a signature to stdout in canonical text form,\n" +
			"decompressing zstd input transparently. With --dir it prints only one\n" +
			"directory, found through a table of directory offsets built in one\n" +
			"pass over the file; --dir needs an uncompressed signature.",
		Usage: "dirsig show [flags] <signature>",
		Flags: func() *pflag.FlagSet { return flagSet },
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("show takes exactly one signature file")
			}
			setupLogging(verbose)

			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening signature: %w", err)
			}
			defer file.Close()

			out := bufio.NewWriter(os.Stdout)
			defer out.Flush()

			if dirPath != "" {
				return showDir(file, dirPath, out)
			}
			return showAll(file, out)
		},
	}
}

// showAll streams the whole signature, re-rendering each entry. The
// body is verified against the footer as a side effect of reading it
// to the end.
func showAll(file *os.File, out io.Writer) error {
	source, err := dirsig.DecodeSource(file)
	if err != nil {
		return err
	}
	reader, err := dirsig.NewReader(source)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, reader.Header().String())
	for {
		entry, err := reader.Next()
		if err == io.EOF {
			fmt.Fprintln(out, dirsig.FormatDigest(reader.FooterDigest()))
			return nil
		}
		if err != nil {
			return err
		}
		printEntry(out, entry)
	}
}

// showDir uses the navigator to print one directory's block.
func showDir(file *os.File, dirPath string, out io.Writer) error {
	navigator, err := dirsig.OpenNavigator(file)
	if err != nil {
		return err
	}
	entries, err := navigator.IterDir([]byte(dirPath))
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s\n", dirsig.EscapeName([]byte(dirPath)))
	for _, entry := range entries {
		printEntry(out, entry)
	}
	return nil
}

// printEntry renders one entry in the signature's line syntax:
// directory lines with their full path, file and symlink lines
// indented with their name.
func printEntry(out io.Writer, entry dirsig.Entry) {
	switch e := entry.(type) {
	case dirsig.Dir:
		fmt.Fprintf(out, "%s\n", dirsig.EscapeName(e.DirPath))
	case dirsig.Symlink:
		key := e.Key()
		fmt.Fprintf(out, "  %s s %s\n", dirsig.EscapeName(key.Name), dirsig.EscapeName(e.Target))
	case dirsig.File:
		key := e.Key()
		kind := "f"
		if e.Executable {
			kind = "x"
		}
		fmt.Fprintf(out, "  %s %s %d", dirsig.EscapeName(key.Name), kind, e.Size)
		for i := 0; i < e.Hashes.Len(); i++ {
			fmt.Fprintf(out, " %s", dirsig.FormatDigest(e.Hashes.At(i)))
		}
		fmt.Fprintln(out)
	}
}
