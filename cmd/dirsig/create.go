// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/bureau-foundation/dirsig/cmd/dirsig/cli"
	"github.com/bureau-foundation/dirsig/lib/dirsig"
	"github.com/bureau-foundation/dirsig/lib/scan"
)

func createCommand() *cli.Command {
	var (
		configPath string
		verbose    bool
		output     string
		hashName   string
		blockSize  uint64
		threads    int
		useZstd    bool
		noProgress bool
	)

	flags := func() *pflag.FlagSet {
		fs := pflag.NewFlagSet("create", pflag.ContinueOnError)
		fs.StringVar(&configPath, "config", "", "config file (default $DIRSIG_CONFIG)")
		fs.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
		fs.StringVarP(&output, "output", "o", "", "write the signature to this file (default stdout)")
		fs.StringVar(&hashName, "hash", string(dirsig.SHA512_256),
			"hash algorithm: sha512/256, blake2b/256, or blake3/256")
		fs.Uint64Var(&blockSize, "block-size", scan.DefaultBlockSize, "bytes per block hash")
		fs.IntVarP(&threads, "threads", "t", 0,
			"hashing workers (default one per CPU, 1 disables the pool)")
		fs.BoolVar(&useZstd, "zstd", false, "zstd-compress the output")
		fs.BoolVar(&noProgress, "no-progress", false, "suppress the progress line")
		return fs
	}
	flagSet := flags()

	return &cli.Command{
		Name:    "create",
		Summary: "scan a directory tree and emit its signature",
		Usage:   "dirsig create [flags] <directory>",
		Flags:   func() *pflag.FlagSet { return flagSet },
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("create takes exactly one directory argument")
			}
			setupLogging(verbose)

			config, err := loadFileConfig(configPath)
			if err != nil {
				return err
			}
			// Explicit flags win over the config file, which wins over
			// built-in defaults.
			if !flagSet.Changed("hash") && config.Defaults.Hash != "" {
				hashName = config.Defaults.Hash
			}
			if !flagSet.Changed("block-size") && config.Defaults.BlockSize != 0 {
				blockSize = config.Defaults.BlockSize
			}
			if !flagSet.Changed("threads") && config.Defaults.Threads != 0 {
				threads = config.Defaults.Threads
			}
			algorithm, err := dirsig.ParseAlgorithm(hashName)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(),
				syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			out, closeOut, err := openOutput(output, useZstd)
			if err != nil {
				return err
			}

			scanConfig := scan.Config{
				Algorithm: algorithm,
				BlockSize: blockSize,
				Threads:   threads,
			}
			// The progress line goes to stderr and rewrites itself
			// with a carriage return, which is only sensible on a
			// terminal.
			if !noProgress && term.IsTerminal(int(os.Stderr.Fd())) {
				scanConfig.Progress = scan.NewProgress(os.Stderr)
			}

			if _, err := scan.Scan(ctx, args[0], scanConfig, out); err != nil {
				closeOut()
				// Never leave a truncated, unverifiable signature
				// behind.
				if output != "" {
					os.Remove(output)
				}
				return err
			}
			return closeOut()
		},
	}
}

// openOutput resolves the output stream: a file or stdout, buffered,
// optionally behind a zstd encoder. The returned close function
// flushes everything in the right order.
func openOutput(path string, useZstd bool) (out *bufio.Writer, closeOut func() error, err error) {
	var base *os.File
	if path == "" {
		base = os.Stdout
	} else {
		base, err = os.Create(path)
		if err != nil {
			return nil, nil, fmt.Errorf("creating output file: %w", err)
		}
	}

	if !useZstd {
		buffered := bufio.NewWriter(base)
		return buffered, func() error {
			if err := buffered.Flush(); err != nil {
				return fmt.Errorf("writing signature: %w", err)
			}
			if path != "" {
				return base.Close()
			}
			return nil
		}, nil
	}

	encoder, err := dirsig.NewCompressingWriter(base)
	if err != nil {
		if path != "" {
			base.Close()
		}
		return nil, nil, err
	}
	buffered := bufio.NewWriter(encoder)
	return buffered, func() error {
		if err := buffered.Flush(); err != nil {
			return fmt.Errorf("writing signature: %w", err)
		}
		if err := encoder.Close(); err != nil {
			return fmt.Errorf("finishing zstd stream: %w", err)
		}
		if path != "" {
			return base.Close()
		}
		return nil
	}, nil
}
