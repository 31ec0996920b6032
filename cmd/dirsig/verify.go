// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/dirsig/cmd/dirsig/cli"
	"github.com/bureau-foundation/dirsig/lib/dirsig"
	"github.com/bureau-foundation/dirsig/lib/scan"
)

func verifyCommand() *cli.Command {
	var (
		verbose bool
		threads int
	)

	flags := func() *pflag.FlagSet {
		fs := pflag.NewFlagSet("verify", pflag.ContinueOnError)
		fs.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
		fs.IntVarP(&threads, "threads", "t", 0, "hashing workers for tree comparison")
		return fs
	}
	flagSet := flags()

	return &cli.Command{
		Name:    "verify",
		Summary: "check a signature's footer, optionally against a tree",
		Description: "verify parses the whole signature and recomputes the footer digest.\n" +
			"With a directory argument it additionally re-scans the tree under the\n" +
			"signature's own parameters and compares the digests.\n\n" +
			"Exit codes: 0 verified, 2 digest mismatch, 1 any other error.",
		Usage: "dirsig verify [flags] <signature> [<directory>]",
		Flags: func() *pflag.FlagSet { return flagSet },
		Run: func(args []string) error {
			if len(args) != 1 && len(args) != 2 {
				return fmt.Errorf("verify takes a signature file and an optional directory")
			}
			setupLogging(verbose)

			header, footer, err := verifyFile(args[0])
			if errors.Is(err, dirsig.ErrFooterMismatch) {
				fmt.Printf("%s: CORRUPT: %v\n", args[0], err)
				return &cli.ExitError{Code: 2}
			}
			if err != nil {
				return err
			}

			if len(args) == 1 {
				fmt.Printf("%s: OK %s\n", args[0], dirsig.FormatDigest(footer))
				return nil
			}

			ctx, stop := signal.NotifyContext(context.Background(),
				syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// Re-scan under the signature's own parameters, extra
			// header fields included — they are part of the hashed
			// bytes, so leaving them out could never match.
			digest, err := scan.Scan(ctx, args[1], scan.Config{
				Algorithm: header.Algorithm,
				BlockSize: header.BlockSize,
				Threads:   threads,
				Extra:     header.Extra,
			}, io.Discard)
			if err != nil {
				return err
			}
			if digest != footer {
				fmt.Printf("%s: MISMATCH: tree %s hashes to %s, signature is %s\n",
					args[0], args[1], dirsig.FormatDigest(digest), dirsig.FormatDigest(footer))
				return &cli.ExitError{Code: 2}
			}
			fmt.Printf("%s: OK, matches %s\n", args[0], args[1])
			return nil
		},
	}
}

// verifyFile parses the signature end to end, returning its header
// and verified footer digest.
func verifyFile(path string) (dirsig.Header, dirsig.Digest, error) {
	file, err := os.Open(path)
	if err != nil {
		return dirsig.Header{}, dirsig.Digest{}, fmt.Errorf("opening signature: %w", err)
	}
	defer file.Close()

	source, err := dirsig.DecodeSource(file)
	if err != nil {
		return dirsig.Header{}, dirsig.Digest{}, err
	}
	reader, err := dirsig.NewReader(source)
	if err != nil {
		return dirsig.Header{}, dirsig.Digest{}, err
	}
	for {
		_, err := reader.Next()
		if err == io.EOF {
			return reader.Header(), reader.FooterDigest(), nil
		}
		if err != nil {
			return reader.Header(), dirsig.Digest{}, err
		}
	}
}
